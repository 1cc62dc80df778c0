package bot

import (
	"errors"
	"sync"
	"time"
)

// ErrQueueClosed возвращается при постановке задачи в закрытую очередь.
var ErrQueueClosed = errors.New("chat queue is closed")

// ChatQueue выполняет задачи одного чата строго по порядку поступления,
// а задачи разных чатов - параллельно. На каждый активный чат заводится
// отдельный воркер, который завершается после простоя idleTimeout.
type ChatQueue struct {
	mu          sync.Mutex
	workers     map[int64]*chatWorker // map[chatID]worker
	idleTimeout time.Duration
	closed      bool
	wg          sync.WaitGroup
}

type chatWorker struct {
	pending []func()
	wake    chan struct{}
}

// NewChatQueue создает очередь с заданным временем простоя воркера.
func NewChatQueue(idleTimeout time.Duration) *ChatQueue {
	return &ChatQueue{
		workers:     make(map[int64]*chatWorker),
		idleTimeout: idleTimeout,
	}
}

// Submit ставит задачу в очередь чата chatID и не ждет ее выполнения.
func (q *ChatQueue) Submit(chatID int64, task func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	w, ok := q.workers[chatID]
	if !ok {
		w = &chatWorker{wake: make(chan struct{}, 1)}
		q.workers[chatID] = w
		q.wg.Add(1)
		go q.run(chatID, w)
	}

	w.pending = append(w.pending, task)
	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

// Active возвращает число чатов, у которых сейчас есть воркер.
func (q *ChatQueue) Active() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.workers)
}

// Close перестает принимать задачи, дожидается выполнения уже поставленных
// и завершения всех воркеров.
func (q *ChatQueue) Close() {
	q.mu.Lock()
	q.closed = true
	for _, w := range q.workers {
		select {
		case w.wake <- struct{}{}:
		default:
		}
	}
	q.mu.Unlock()

	q.wg.Wait()
}

func (q *ChatQueue) run(chatID int64, w *chatWorker) {
	defer q.wg.Done()

	timer := time.NewTimer(q.idleTimeout)
	defer timer.Stop()

	for {
		task, ok := q.next(chatID, w)
		if !ok {
			return
		}
		if task != nil {
			task()
			continue
		}

		resetTimer(timer, q.idleTimeout)
		select {
		case <-w.wake:
		case <-timer.C:
			// за время ожидания могли прийти новые задачи, next решит под мьютексом
			if q.expire(chatID, w) {
				return
			}
		}
	}
}

// next забирает очередную задачу. Возвращает (nil, true), если задач нет и нужно ждать,
// и (nil, false), если очередь закрыта и воркер должен завершиться.
func (q *ChatQueue) next(chatID int64, w *chatWorker) (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(w.pending) > 0 {
		task := w.pending[0]
		w.pending[0] = nil
		w.pending = w.pending[1:]
		return task, true
	}
	if q.closed {
		delete(q.workers, chatID)
		return nil, false
	}
	return nil, true
}

// expire удаляет простаивающий воркер, если за время ожидания у него не появилось задач.
func (q *ChatQueue) expire(chatID int64, w *chatWorker) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(w.pending) > 0 {
		return false
	}
	delete(q.workers, chatID)
	return true
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
