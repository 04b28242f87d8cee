// Package api - HTTP-слой сервиса поверх chi.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/UkralStul/fanfic-archive-service/internal/catalog"
	"github.com/UkralStul/fanfic-archive-service/internal/comments"
	"github.com/UkralStul/fanfic-archive-service/internal/dataloader"
	"github.com/UkralStul/fanfic-archive-service/internal/logging"
	"github.com/UkralStul/fanfic-archive-service/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Handler держит зависимости обработчиков.
type Handler struct {
	store     storage.Storage
	catalog   *catalog.Service
	comments  *comments.Service
	validator *Validator
	log       logrus.FieldLogger
}

func NewHandler(store storage.Storage, catalogSvc *catalog.Service, commentsSvc *comments.Service, log logrus.FieldLogger) *Handler {
	return &Handler{
		store:     store,
		catalog:   catalogSvc,
		comments:  commentsSvc,
		validator: NewValidator(),
		log:       log,
	}
}

// Router собирает маршруты /api.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeFail(w, http.StatusNotFound, "Not Found")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)

		r.Group(func(r chi.Router) {
			r.Use(dataloader.Middleware(h.store))
			r.Get("/works", h.listWorks)
			r.Get("/works/{id}", h.getWork)
		})

		r.Route("/comments", func(r chi.Router) {
			r.Post("/", h.createComment)
			r.Post("/vote", h.voteComment)
			r.Get("/works/{workId}", h.listComments)
			r.Get("/works/{workId}/live", h.liveComments)
		})
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.WithError(err).Error("health check failed")
		writeFail(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeOK(w, http.StatusOK, "ok", nil)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, "+VoterHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
