package promptlog

import (
	"context"
	"sync"

	"github.com/use-agent/webagent/models"
)

// Handle opens its Store on first use. A failed open is not cached: the
// next call tries again. Handle itself satisfies Store.
type Handle struct {
	dsn  string
	open func(ctx context.Context, dsn string) (Store, error)

	mu     sync.Mutex
	store  Store
	closed bool
}

// NewHandle returns a Handle for dsn (see Open).
func NewHandle(dsn string) *Handle {
	return &Handle{dsn: dsn, open: Open}
}

// Store returns the underlying store, opening it if needed.
func (h *Handle) Store(ctx context.Context) (Store, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	if h.store != nil {
		return h.store, nil
	}
	s, err := h.open(ctx, h.dsn)
	if err != nil {
		return nil, err
	}
	h.store = s
	return s, nil
}

func (h *Handle) Save(ctx context.Context, e models.PromptEntry) error {
	s, err := h.Store(ctx)
	if err != nil {
		return err
	}
	return s.Save(ctx, e)
}

func (h *Handle) Recent(ctx context.Context, limit int) ([]models.PromptEntry, error) {
	s, err := h.Store(ctx)
	if err != nil {
		return nil, err
	}
	return s.Recent(ctx, limit)
}

// Close closes the store if it was opened. Later calls fail with ErrClosed.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	if h.store == nil {
		return nil
	}
	err := h.store.Close()
	h.store = nil
	return err
}
