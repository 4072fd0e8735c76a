package crypto

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LiveTickers tracks at most one running ticker per channel.
type LiveTickers struct {
	mu    sync.Mutex
	tasks map[string]*liveTask
	wg    sync.WaitGroup
}

type liveTask struct {
	id     string
	cancel context.CancelFunc
}

// NewLiveTickers creates an empty registry.
func NewLiveTickers() *LiveTickers {
	return &LiveTickers{tasks: make(map[string]*liveTask)}
}

// Start runs tick every interval for channelID until parent is cancelled or the
// ticker is stopped. A ticker already running in the channel is replaced.
func (l *LiveTickers) Start(parent context.Context, channelID string, interval time.Duration, tick func(ctx context.Context) error) string {
	ctx, cancel := context.WithCancel(parent)
	task := &liveTask{id: uuid.NewString(), cancel: cancel}

	l.mu.Lock()
	if old, ok := l.tasks[channelID]; ok {
		old.cancel()
	}
	l.tasks[channelID] = task
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer l.remove(channelID, task.id)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := tick(ctx); err != nil && ctx.Err() == nil {
					log.Printf("⚠️ [livecrypto %s] update failed: %v", channelID, err)
				}
			}
		}
	}()
	return task.id
}

// Stop cancels the ticker in channelID and reports whether one was running.
func (l *LiveTickers) Stop(channelID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	task, ok := l.tasks[channelID]
	if ok {
		task.cancel()
		delete(l.tasks, channelID)
	}
	return ok
}

// Running reports whether a ticker is active in channelID.
func (l *LiveTickers) Running(channelID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.tasks[channelID]
	return ok
}

// StopAll cancels every ticker and waits for them to exit.
func (l *LiveTickers) StopAll() {
	l.mu.Lock()
	for id, task := range l.tasks {
		task.cancel()
		delete(l.tasks, id)
	}
	l.mu.Unlock()
	l.wg.Wait()
}

func (l *LiveTickers) remove(channelID, id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if task, ok := l.tasks[channelID]; ok && task.id == id {
		delete(l.tasks, channelID)
	}
}
