package comments

import (
	"sync"

	"github.com/UkralStul/fanfic-archive-service/internal/domain"
	"github.com/google/uuid"
)

// Observer хранит каналы подписчиков на новые комментарии.
type Observer struct {
	mu sync.RWMutex
	//   map[workID] map[subscriberID] channel
	subs map[int64]map[string]chan *domain.Comment
}

// NewObserver - конструктор наблюдателя.
func NewObserver() *Observer {
	return &Observer{
		subs: make(map[int64]map[string]chan *domain.Comment),
	}
}

// Subscribe регистрирует подписчика на комментарии работы.
// Возвращает канал и функцию отписки; после отписки канал закрывается.
func (o *Observer) Subscribe(workID int64) (<-chan *domain.Comment, func()) {
	ch := make(chan *domain.Comment, 8)
	subID := uuid.NewString()

	o.mu.Lock()
	if o.subs[workID] == nil {
		o.subs[workID] = make(map[string]chan *domain.Comment)
	}
	o.subs[workID][subID] = ch
	o.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			o.mu.Lock()
			if workSubs, ok := o.subs[workID]; ok {
				delete(workSubs, subID)
				if len(workSubs) == 0 {
					delete(o.subs, workID)
				}
			}
			o.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish рассылает комментарий подписчикам работы, не блокируясь на медленных.
func (o *Observer) Publish(c *domain.Comment) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for _, ch := range o.subs[c.WorkID] {
		cp := *c
		select {
		case ch <- &cp:
		default:
			// Клиент не успевает читать, пропускаем
		}
	}
}

// Subscribers возвращает число подписчиков работы.
func (o *Observer) Subscribers(workID int64) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs[workID])
}
