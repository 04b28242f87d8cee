package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UkralStul/fanfic-archive-service/internal/api"
	"github.com/UkralStul/fanfic-archive-service/internal/catalog"
	"github.com/UkralStul/fanfic-archive-service/internal/comments"
	"github.com/UkralStul/fanfic-archive-service/internal/config"
	"github.com/UkralStul/fanfic-archive-service/internal/domain"
	"github.com/UkralStul/fanfic-archive-service/internal/logging"
	"github.com/UkralStul/fanfic-archive-service/internal/storage"
	"github.com/UkralStul/fanfic-archive-service/internal/storage/inmemory"
	"github.com/UkralStul/fanfic-archive-service/internal/storage/postgres"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, dotenv, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	storageType := flag.String("storage", cfg.Storage, "Storage type (in-memory or postgres)")
	flag.Parse()
	cfg.Storage = *storageType
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid config: %v", err)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if !dotenv {
		log.Debug("No .env file found, reading config from environment")
	}

	store, closeStore := openStorage(cfg, log)
	defer closeStore()

	observer := comments.NewObserver()
	handler := api.NewHandler(
		store,
		catalog.NewService(store, log.WithField("component", "catalog")),
		comments.NewService(store, observer, log.WithField("component", "comments")),
		log,
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infof("listening on http://localhost%s/api", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func openStorage(cfg *config.Config, log *logrus.Logger) (storage.Storage, func()) {
	log.Infof("Starting server with %s storage", cfg.Storage)

	if cfg.Storage == config.StoragePostgres {
		level, err := config.GormLogLevel(cfg.DBLogLevel)
		if err != nil {
			log.Fatalf("invalid config: %v", err)
		}
		store, err := postgres.New(cfg.DatabaseURL, level)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.WithError(err).Error("failed to close postgres")
			}
		}
	}

	store := inmemory.New()
	if cfg.SeedDemoData {
		// Заполним данными для тестов
		fillWithMockData(store, log)
	}
	return store, func() {}
}

func fillWithMockData(s *inmemory.Store, log logrus.FieldLogger) {
	ctx := context.Background()
	summary := func(v string) *string { return &v }

	works := []struct {
		work domain.Work
		meta map[domain.MetadataKind][]string
	}{
		{
			work: domain.Work{
				ID: 1, Title: "Тихая гавань", Author: "north_wind", Chapters: 1,
				Kudos: 420, Comments: 2, Hits: 5100, Words: 4200, Language: "Русский",
				Summary: summary("Короткая история о смотрителе маяка."), Rating: domain.RatingGeneral, IsComplete: true,
			},
			meta: map[domain.MetadataKind][]string{
				domain.KindFandom:    {"Original Work"},
				domain.KindTag:       {"Fluff", "Slice of Life"},
				domain.KindCharacter: {"Смотритель"},
				domain.KindWarning:   {"No Archive Warnings Apply"},
				domain.KindCategory:  {"Gen"},
			},
		},
		{
			work: domain.Work{
				ID: 2, Title: "Dragon's Ledger", Author: "inkwell", Chapters: 14,
				Kudos: 1830, Comments: 96, Hits: 40211, Words: 98000, Language: "English",
				Summary: summary("A dragon audits the kingdom's treasury."), Rating: domain.RatingTeen,
			},
			meta: map[domain.MetadataKind][]string{
				domain.KindFandom:       {"Original Work"},
				domain.KindTag:          {"Adventure", "Humor"},
				domain.KindCharacter:    {"Vex", "Queen Aldera"},
				domain.KindRelationship: {"Vex & Queen Aldera"},
				domain.KindWarning:      {"Creator Chose Not To Use Archive Warnings"},
				domain.KindCategory:     {"Gen"},
			},
		},
		{
			work: domain.Work{
				ID: 3, Title: "Ashes After", Author: "grey_quill", Chapters: 1,
				Kudos: 77, Hits: 990, Words: 2500, Language: "English",
				Rating: domain.RatingMature, IsComplete: true,
			},
			meta: map[domain.MetadataKind][]string{
				domain.KindTag:     {"Angst"},
				domain.KindWarning: {"Major Character Death"},
			},
		},
	}
	for _, w := range works {
		if err := s.AddWork(w.work, w.meta); err != nil {
			log.Fatalf("fillWithMockData: failed to add work %d: %v", w.work.ID, err)
		}
	}

	for _, c := range []domain.Comment{
		{WorkID: 1, AuthorName: "reader1", Content: "Очень атмосферно!"},
		{WorkID: 1, AuthorName: "Anonymous", Content: "Хочу продолжение."},
		{WorkID: 2, AuthorName: "ledger_fan", Content: "The audit chapter made my day."},
	} {
		if _, err := s.CreateComment(ctx, &c); err != nil {
			log.Fatalf("fillWithMockData: failed to create comment: %v", err)
		}
	}

	log.Infof("Mock data filled successfully: %d works", len(works))
}
