package persist

import (
	"context"
	"time"
)

type Request struct {
	WorldID string
	Meta    Meta
	State   WorldState
}

// Writer saves in the background. Only the latest pending request is kept,
// so Submit never blocks the caller.
type Writer struct {
	svc          *Service
	pending      chan Request
	flushTimeout time.Duration
	saved        func(Request, error)
}

func NewWriter(svc *Service) *Writer {
	return &Writer{
		svc:          svc,
		pending:      make(chan Request, 1),
		flushTimeout: 5 * time.Second,
		saved:        func(Request, error) {},
	}
}

// OnSaved registers a callback run on the writer goroutine after each save.
func (w *Writer) OnSaved(fn func(Request, error)) {
	w.saved = fn
}

// Submit replaces any request still waiting. It must be called from a single goroutine.
func (w *Writer) Submit(req Request) {
	select {
	case w.pending <- req:
		return
	default:
	}
	select {
	case <-w.pending:
	default:
	}
	select {
	case w.pending <- req:
	default:
	}
}

// Run saves requests until ctx is done, then flushes whatever is still pending.
func (w *Writer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.flush()
			return
		case req := <-w.pending:
			w.write(ctx, req)
		}
	}
}

func (w *Writer) flush() {
	select {
	case req := <-w.pending:
		ctx, cancel := context.WithTimeout(context.Background(), w.flushTimeout)
		defer cancel()
		w.write(ctx, req)
	default:
	}
}

func (w *Writer) write(ctx context.Context, req Request) {
	err := w.svc.Save(ctx, req.WorldID, req.Meta, req.State)
	if err != nil {
		w.svc.log.Error().Err(err).Str("world", req.WorldID).Msg("save failed")
	}
	w.saved(req, err)
}
