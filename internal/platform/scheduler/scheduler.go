package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/medsupply/medsupply/internal/domain/requisition"
)

// DefaultSpec runs the sweep every morning at 06:00.
const DefaultSpec = "0 6 * * *"

// sweepTimeout bounds one full pass over every facility.
const sweepTimeout = 2 * time.Minute

// SuggestionSource is what the sweep reads from. requisition.Service
// satisfies it.
type SuggestionSource interface {
	Facilities(ctx context.Context) ([]string, error)
	FacilitySuggestions(ctx context.Context, facility string) ([]requisition.Suggestion, error)
}

// Scheduler periodically derives restock suggestions for every facility and
// logs them.
type Scheduler struct {
	cron   *cron.Cron
	source SuggestionSource
	logger zerolog.Logger
}

// New registers the sweep under spec, a standard five-field cron expression.
func New(spec string, source SuggestionSource, logger zerolog.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	s := &Scheduler{
		cron:   cron.New(),
		source: source,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("schedule suggestion sweep %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.logger.Info().Msg("starting scheduler")
	s.cron.Start()
}

// Stop halts scheduling and waits for a running sweep to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	s.logger.Info().Msg("stopping scheduler")
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error().Err(err).Msg("suggestion sweep failed")
	}
}

// Sweep computes suggestions for every known facility. A facility that fails
// is logged and skipped; only failing to list facilities is an error.
func (s *Scheduler) Sweep(ctx context.Context) (map[string][]requisition.Suggestion, error) {
	facilities, err := s.source.Facilities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list facilities: %w", err)
	}

	out := make(map[string][]requisition.Suggestion, len(facilities))
	for _, f := range facilities {
		sg, err := s.source.FacilitySuggestions(ctx, f)
		if err != nil {
			s.logger.Error().Err(err).Str("facility", f).Msg("suggestions failed")
			continue
		}
		out[f] = sg
		if len(sg) == 0 {
			continue
		}
		urgent := 0
		for _, x := range sg {
			if x.Priority == requisition.PriorityUrgent {
				urgent++
			}
		}
		lvl := zerolog.InfoLevel
		if urgent > 0 {
			lvl = zerolog.WarnLevel
		}
		s.logger.WithLevel(lvl).Str("facility", f).Int("suggestions", len(sg)).Int("urgent", urgent).Msg("restock suggested")
	}
	s.logger.Info().Int("facilities", len(facilities)).Msg("suggestion sweep complete")
	return out, nil
}
