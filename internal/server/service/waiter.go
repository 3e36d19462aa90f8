package service

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// WaitTimeout is the maximum time a client can wait for notifications
const WaitTimeout = 25 * time.Second

// WaitRegistry manages long-polling clients waiting for game state changes
type WaitRegistry struct {
	mu       sync.Mutex
	waiters  map[string][]*WaitRequest // gameID → waiting clients
	timeout  time.Duration
	shutdown chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// WaitRequest is a single client waiting for game updates. Its channel is
// closed exactly once: on a change, on timeout, or at shutdown.
type WaitRequest struct {
	GameID    string
	MoveCount int // last move count the client saw
	done      chan struct{}
	once      sync.Once
	timer     *time.Timer
}

func (r *WaitRequest) wake() {
	r.once.Do(func() { close(r.done) })
}

// NewWaitRegistry creates a new wait registry
func NewWaitRegistry(timeout time.Duration) *WaitRegistry {
	if timeout <= 0 {
		timeout = WaitTimeout
	}
	return &WaitRegistry{
		waiters:  make(map[string][]*WaitRequest),
		timeout:  timeout,
		shutdown: make(chan struct{}),
	}
}

// RegisterWait returns a channel closed when the game changes, the wait
// times out, or the registry shuts down
func (w *WaitRegistry) RegisterWait(ctx context.Context, gameID string, moveCount int) <-chan struct{} {
	req := &WaitRequest{
		GameID:    gameID,
		MoveCount: moveCount,
		done:      make(chan struct{}),
	}
	req.timer = time.AfterFunc(w.timeout, req.wake)

	w.mu.Lock()
	w.waiters[gameID] = append(w.waiters[gameID], req)
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		select {
		case <-ctx.Done():
		case <-req.done:
		case <-w.shutdown:
			req.wake()
		}
		req.timer.Stop()
		w.removeWaiter(req)
	}()

	return req.done
}

// NotifyGame wakes every client waiting on a game
func (w *WaitRegistry) NotifyGame(gameID string) {
	w.mu.Lock()
	waitList := w.waiters[gameID]
	w.mu.Unlock()

	for _, req := range waitList {
		req.wake()
	}
}

// RemoveGame wakes and forgets all waiters of a game (called before game deletion)
func (w *WaitRegistry) RemoveGame(gameID string) {
	w.mu.Lock()
	waitList := w.waiters[gameID]
	delete(w.waiters, gameID)
	w.mu.Unlock()

	for _, req := range waitList {
		req.wake()
	}
}

// Waiting returns the number of clients waiting on a game
func (w *WaitRegistry) Waiting(gameID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.waiters[gameID])
}

// Shutdown wakes all waiters and waits for their goroutines
func (w *WaitRegistry) Shutdown(timeout time.Duration) error {
	w.stopOnce.Do(func() { close(w.shutdown) })

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("wait registry shutdown timed out after %s", timeout)
	}
}

// removeWaiter removes a specific waiter from the registry
func (w *WaitRegistry) removeWaiter(req *WaitRequest) {
	w.mu.Lock()
	defer w.mu.Unlock()

	waitList := w.waiters[req.GameID]
	for i, waiter := range waitList {
		if waiter == req {
			w.waiters[req.GameID] = append(waitList[:i:i], waitList[i+1:]...)
			break
		}
	}

	if len(w.waiters[req.GameID]) == 0 {
		delete(w.waiters, req.GameID)
	}
}
