package receipt

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type Service struct {
	repo   Repository
	now    func() time.Time
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Create validates g, derives every line's short quantity and stores it.
func (s *Service) Create(ctx context.Context, g *GoodsReceipt) error {
	if err := g.validate(); err != nil {
		return err
	}
	now := s.now()
	g.ID = newID()
	g.CreatedAt = now
	g.UpdatedAt = now
	if err := s.repo.Create(ctx, g); err != nil {
		return fmt.Errorf("create goods receipt: %w", err)
	}
	_, _, _, short := g.Totals()
	s.logger.Info().Str("receipt_id", g.ID).Str("facility", g.Facility).Int("lines", len(g.Lines)).Int("short_qty", short).Msg("goods receipt created")
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*GoodsReceipt, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, facility string, limit, offset int) ([]*GoodsReceipt, int, error) {
	return s.repo.ListByFacility(ctx, facility, limit, offset)
}

// UpdateLine records the received and damaged quantities of one line.
func (s *Service) UpdateLine(ctx context.Context, id string, index, received, damaged int) (*GoodsReceipt, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(g.Lines) {
		return nil, invalid("line %d does not exist", index)
	}
	line := g.Lines[index]
	if err := line.SetReceived(received, damaged); err != nil {
		return nil, err
	}
	g.Lines[index] = line
	g.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, g); err != nil {
		return nil, fmt.Errorf("update goods receipt: %w", err)
	}
	return g, nil
}
