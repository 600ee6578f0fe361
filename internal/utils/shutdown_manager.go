package utils

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

const shutdownGrace = 15 * time.Second

// ShutdownManager cancels the base context on SIGINT/SIGTERM, then runs the
// registered teardown hooks in registration order under a grace deadline.
type ShutdownManager struct {
	cancel context.CancelFunc

	mu    sync.Mutex
	hooks []func(context.Context) error
}

func NewShutdownManager(ctx context.Context) (context.Context, *ShutdownManager) {
	ctx, cancel := context.WithCancel(ctx)
	return ctx, &ShutdownManager{cancel: cancel}
}

// Register adds a teardown hook. Hooks registered first run first, so open
// dependencies before the things that use them.
func (sm *ShutdownManager) Register(hook func(context.Context) error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.hooks = append(sm.hooks, hook)
}

func (sm *ShutdownManager) StartListening() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("[SHUTDOWN] Received signal: %v", sig)
		sm.cancel()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		sm.runHooks(ctx)

		log.Println("[SHUTDOWN] Graceful shutdown complete")
		os.Exit(0)
	}()
}

func (sm *ShutdownManager) runHooks(ctx context.Context) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for _, hook := range sm.hooks {
		if err := hook(ctx); err != nil {
			log.Printf("[SHUTDOWN] Error during shutdown: %v", err)
		}
	}
}
