package nonce

import (
	"context"

	"go.uber.org/zap"
)

// RevealFunc performs the shared forge-sign-preapply-inject pipeline
// for a single nonce's seed-nonce-revelation operation. In
// this version, a failure here does not get retried: the
// caller is expected to still report success from the scheduler's point of
// view (the nonce is dropped either way), only logging the failure.
type RevealFunc func(ctx context.Context, r Record) error

// WindowFunc returns the inclusive reveal window [start, end] for a nonce
// committed at level. Callers pass NetworkPreset.RevealWindow; kept as a
// function value here (rather than importing the network-preset type) so
// this package has no dependency on the orchestration package that
// constructs it.
type WindowFunc func(level uint32) (start, end uint32)

// Scheduler tracks outstanding
// commitment nonces and reveals or abandons them as the chain head crosses
// their reveal window.
type Scheduler struct {
	Store       Store
	Window      WindowFunc
	Reveal      RevealFunc
	Logger      *zap.Logger
	// OnAbandon, if set, is called once per nonce that falls out of its
	// reveal window unrevealed, letting the orchestration package feed
	// its own abandoned-nonce counter without this package depending on
	// it directly.
	OnAbandon   func(level uint32)
	outstanding []Record
}

// NewScheduler constructs a Scheduler and loads its outstanding nonces
// from store.
func NewScheduler(ctx context.Context, store Store, window WindowFunc, reveal RevealFunc, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	records, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		Store:       store,
		Window:      window,
		Reveal:      reveal,
		Logger:      logger,
		outstanding: records,
	}, nil
}

// Add registers a newly-committed nonce, produced by the Baker at a
// commitment level, and persists it immediately (a single-record append is
// still a whole-list rewrite).
func (s *Scheduler) Add(ctx context.Context, r Record) error {
	s.outstanding = append(s.outstanding, r)
	return s.Store.Save(ctx, s.outstanding)
}

// Outstanding returns the current outstanding nonce list. Exposed for
// inspection by tests and operator tooling; the Scheduler itself is the
// only writer.
func (s *Scheduler) Outstanding() []Record {
	return append([]Record{}, s.outstanding...)
}

// Tick runs one Scheduler pass against the observed head
// level: abandon nonces whose window has closed, reveal nonces whose
// window has opened, and keep everything else. If anything was dropped,
// the outstanding list is rewritten to the store exactly once at the end
// of the pass.
func (s *Scheduler) Tick(ctx context.Context, headLevel uint32) error {
	kept := make([]Record, 0, len(s.outstanding))
	dropped := false

	for _, r := range s.outstanding {
		start, end := s.Window(r.Level)

		switch {
		case headLevel > end:
			s.Logger.Info("abandon nonce",
				zap.Uint32("level", r.Level),
				zap.Uint32("head", headLevel),
				zap.Uint32("window_end", end))

			if s.OnAbandon != nil {
				s.OnAbandon(r.Level)
			}

			dropped = true

		case headLevel >= start && !r.Revealed:
			if err := s.Reveal(ctx, r); err != nil {
				s.Logger.Warn("reveal failed, not retried",
					zap.Uint32("level", r.Level),
					zap.Error(err))
			}

			r.Revealed = true
			dropped = true

		default:
			kept = append(kept, r)
		}
	}

	s.outstanding = kept

	if dropped {
		return s.Store.Save(ctx, s.outstanding)
	}

	return nil
}
