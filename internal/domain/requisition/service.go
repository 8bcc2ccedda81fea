package requisition

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Action names accepted by Apply.
const (
	ActionDeliver  = "deliver"
	ActionRaise    = "raise"
	ActionReject   = "reject"
	ActionComplete = "complete"
)

// ActionRequest is one lifecycle transition as carried by PATCH
// /requisitions/:id. A non-zero Version must match the stored record.
type ActionRequest struct {
	Action   string   `json:"action"`
	Quantity int      `json:"quantity,omitempty"`
	Remarks  string   `json:"remarks,omitempty"`
	Reason   string   `json:"reason,omitempty"`
	Priority Priority `json:"priority,omitempty"`
	Version  int      `json:"version,omitempty"`
}

type cartKey struct {
	facility string
	user     string
}

// Service applies lifecycle transitions to persisted requisitions and holds
// one bulk cart per facility user.
type Service struct {
	repo   Repository
	usage  UsageHistory
	tx     Transactor
	now    func() time.Time
	logger zerolog.Logger

	mu    sync.Mutex
	carts map[cartKey]*Cart
}

func NewService(repo Repository, usage UsageHistory, logger zerolog.Logger) *Service {
	if usage == nil {
		usage = NewFixedUsage(DefaultMonthlyUsage)
	}
	return &Service{
		repo:   repo,
		usage:  usage,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
		carts:  make(map[cartKey]*Cart),
	}
}

// SetTransactor makes every load-mutate-save cycle run in one transaction.
func (s *Service) SetTransactor(tx Transactor) { s.tx = tx }

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) Create(ctx context.Context, sess Session, in NewRequest) (*Requisition, error) {
	r, err := NewIndividual(sess, in, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create requisition: %w", err)
	}
	s.logger.Info().Str("requisition_id", r.ID).Str("facility", r.Facility).Str("item", r.ItemName).Msg("requisition created")
	return r, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Requisition, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByFacility(ctx context.Context, facility string, limit, offset int) ([]*Requisition, int, error) {
	return s.repo.ListByFacility(ctx, facility, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Requisition, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

func (s *Service) Facilities(ctx context.Context) ([]string, error) {
	return s.repo.Facilities(ctx)
}

// Apply runs one transition. The stored record is only replaced when the
// transition succeeds.
func (s *Service) Apply(ctx context.Context, sess Session, id string, req ActionRequest) (*Requisition, error) {
	var step func(r *Requisition, at time.Time) error
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case ActionDeliver:
		step = func(r *Requisition, at time.Time) error {
			return r.Deliver(req.Quantity, req.Remarks, sess.UserName, at)
		}
	case ActionRaise:
		step = func(r *Requisition, at time.Time) error {
			return r.RaiseToWarehouse(req.Quantity, req.Priority, req.Remarks, sess.UserName, at)
		}
	case ActionReject:
		step = func(r *Requisition, at time.Time) error {
			return r.Reject(req.Reason, sess.UserName, at)
		}
	case ActionComplete:
		step = func(r *Requisition, at time.Time) error {
			return r.Complete(at)
		}
	default:
		return nil, invalid("apply", "unknown action %q", req.Action)
	}

	var out *Requisition
	err := s.inTx(ctx, func(ctx context.Context) error {
		cur, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if req.Version != 0 && req.Version != cur.Version {
			return ErrConflict
		}
		next := cur.Clone()
		if err := step(next, s.now()); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("requisition_id", out.ID).Str("action", req.Action).Str("status", string(out.Status)).Msg("requisition transitioned")
	return out, nil
}

func (s *Service) Deliver(ctx context.Context, sess Session, id string, qty int, remarks string) (*Requisition, error) {
	return s.Apply(ctx, sess, id, ActionRequest{Action: ActionDeliver, Quantity: qty, Remarks: remarks})
}

func (s *Service) RaiseToWarehouse(ctx context.Context, sess Session, id string, qty int, priority Priority, remarks string) (*Requisition, error) {
	return s.Apply(ctx, sess, id, ActionRequest{Action: ActionRaise, Quantity: qty, Priority: priority, Remarks: remarks})
}

func (s *Service) Reject(ctx context.Context, sess Session, id, reason string) (*Requisition, error) {
	return s.Apply(ctx, sess, id, ActionRequest{Action: ActionReject, Reason: reason})
}

func (s *Service) Complete(ctx context.Context, sess Session, id string) (*Requisition, error) {
	return s.Apply(ctx, sess, id, ActionRequest{Action: ActionComplete})
}

// Suggestions derives restock suggestions for facility. Items already staged
// in the session's cart are left out.
func (s *Service) Suggestions(ctx context.Context, sess Session, facility string) ([]Suggestion, error) {
	all, err := s.FacilitySuggestions(ctx, facility)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.carts[keyFor(sess)]
	if cart == nil {
		return all, nil
	}
	return withoutStaged(all, cart.Entries()), nil
}

// FacilitySuggestions derives restock suggestions for facility regardless of
// any cart.
func (s *Service) FacilitySuggestions(ctx context.Context, facility string) ([]Suggestion, error) {
	reqs, err := s.repo.AllByFacility(ctx, facility)
	if err != nil {
		return nil, fmt.Errorf("load requisitions: %w", err)
	}
	return Suggest(reqs, facility, s.usage, s.now()), nil
}

func inCart(entries []BulkListEntry, item string) bool {
	for _, e := range entries {
		if sameItem(e.ItemName, item) {
			return true
		}
	}
	return false
}

func withoutStaged(all []Suggestion, staged []BulkListEntry) []Suggestion {
	if len(staged) == 0 {
		return all
	}
	out := all[:0]
	for _, sg := range all {
		if !inCart(staged, sg.ItemName) {
			out = append(out, sg)
		}
	}
	return out
}

// stageEntry converts an individual requisition into a cart entry.
func stageEntry(r *Requisition, now time.Time) (BulkListEntry, error) {
	if r.IsBulk() {
		return BulkListEntry{}, invalid("add to bulk list", "%s is a bulk requisition and cannot be staged", r.ID)
	}
	return BulkListEntry{
		ItemName: r.ItemName,
		Quantity: r.Quantity,
		Priority: r.Priority,
		Reason:   string(r.FacilityStatus(now)),
	}, nil
}

// -- bulk cart --

func keyFor(sess Session) cartKey {
	return cartKey{facility: strings.ToLower(sess.Facility), user: sess.UserName}
}

func (s *Service) withCart(sess Session, fn func(c *Cart)) []BulkListEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := keyFor(sess)
	c, ok := s.carts[k]
	if !ok {
		c = &Cart{}
		s.carts[k] = c
	}
	fn(c)
	if c.Len() == 0 {
		delete(s.carts, k)
	}
	return c.Entries()
}

func (s *Service) BulkList(sess Session) []BulkListEntry {
	return s.withCart(sess, func(*Cart) {})
}

// AddToBulkList stages the item of requisition id in the session's cart.
func (s *Service) AddToBulkList(ctx context.Context, sess Session, id string) ([]BulkListEntry, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	entry, err := stageEntry(r, s.now())
	if err != nil {
		return nil, err
	}
	return s.withCart(sess, func(c *Cart) { c.Add(entry) }), nil
}

// AddEntry stages an arbitrary entry, such as an accepted suggestion.
func (s *Service) AddEntry(sess Session, e BulkListEntry) ([]BulkListEntry, error) {
	if strings.TrimSpace(e.ItemName) == "" {
		return nil, invalid("add to bulk list", "item name is required")
	}
	if e.Quantity <= 0 {
		return nil, invalid("add to bulk list", "quantity must be greater than 0")
	}
	if e.Priority != "" {
		if _, ok := priorityRank[e.Priority]; !ok {
			return nil, invalid("add to bulk list", "invalid priority: %s", e.Priority)
		}
	}
	return s.withCart(sess, func(c *Cart) { c.Add(e) }), nil
}

func (s *Service) AddSuggestionToBulkList(sess Session, sg Suggestion) ([]BulkListEntry, error) {
	return s.AddEntry(sess, sg.Entry())
}

func (s *Service) RemoveFromBulkList(sess Session, index int) []BulkListEntry {
	return s.withCart(sess, func(c *Cart) { c.Remove(index) })
}

func (s *Service) UpdateBulkItemQuantity(sess Session, index, qty int) []BulkListEntry {
	return s.withCart(sess, func(c *Cart) { c.UpdateQuantity(index, qty) })
}

func (s *Service) ClearBulkList(sess Session) {
	s.withCart(sess, func(c *Cart) { c.Clear() })
}

// SubmitBulkRequisition persists the session's cart as one bulk requisition.
// The cart is detached while the record is stored, so entries staged in the
// meantime land in a fresh cart. On failure the submitted entries are put back.
func (s *Service) SubmitBulkRequisition(ctx context.Context, sess Session) (*Requisition, error) {
	k := keyFor(sess)
	s.mu.Lock()
	var entries []BulkListEntry
	if c, ok := s.carts[k]; ok {
		entries = c.Entries()
		delete(s.carts, k)
	}
	s.mu.Unlock()

	r, err := NewBulk(sess, entries, s.now())
	if err == nil {
		if err = s.repo.Create(ctx, r); err != nil {
			err = fmt.Errorf("create bulk requisition: %w", err)
		}
	}
	if err != nil {
		s.restoreCart(k, entries)
		return nil, err
	}
	s.logger.Info().Str("requisition_id", r.ID).Str("facility", r.Facility).Int("items", len(r.BulkItems)).Int("quantity", r.Quantity).Msg("bulk requisition submitted")
	return r, nil
}

// restoreCart puts entries back ahead of anything staged since they were
// detached.
func (s *Service) restoreCart(k cartKey, entries []BulkListEntry) {
	if len(entries) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	restored := &Cart{}
	for _, e := range entries {
		restored.Add(e)
	}
	if c, ok := s.carts[k]; ok {
		for _, e := range c.Entries() {
			restored.Add(e)
		}
	}
	s.carts[k] = restored
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.InTx(ctx, fn)
}
