package requisition

import (
	"fmt"
	"strings"
	"time"
)

// Manager owns the requisitions of one facility together with the bulk cart
// and the derived suggestions. It is not safe for concurrent use: a single
// actor drives it through direct calls.
type Manager struct {
	session     Session
	usage       UsageHistory
	now         func() time.Time
	reqs        []*Requisition
	cart        Cart
	suggestions []Suggestion
	prompted    bool
}

type ManagerOption func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func NewManager(sess Session, usage UsageHistory, opts ...ManagerOption) *Manager {
	if usage == nil {
		usage = NewFixedUsage(DefaultMonthlyUsage)
	}
	m := &Manager{session: sess, usage: usage, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Session() Session { return m.session }

// Load replaces the collection with the records that belong to the session
// facility.
func (m *Manager) Load(reqs []*Requisition) {
	m.reqs = make([]*Requisition, 0, len(reqs))
	for _, r := range reqs {
		if m.session.Facility != "" && !strings.EqualFold(r.Facility, m.session.Facility) {
			continue
		}
		m.reqs = append(m.reqs, r.Clone())
	}
	m.refresh()
}

// Requisitions returns copies of every record, oldest first.
func (m *Manager) Requisitions() []*Requisition {
	out := make([]*Requisition, len(m.reqs))
	for i, r := range m.reqs {
		out[i] = r.Clone()
	}
	return out
}

func (m *Manager) Get(id string) (*Requisition, error) {
	i, err := m.indexOf(id)
	if err != nil {
		return nil, err
	}
	return m.reqs[i].Clone(), nil
}

// Create raises a new individual requisition for the session.
func (m *Manager) Create(in NewRequest) (*Requisition, error) {
	r, err := NewIndividual(m.session, in, m.now())
	if err != nil {
		return nil, err
	}
	m.reqs = append(m.reqs, r)
	m.refresh()
	return r.Clone(), nil
}

func (m *Manager) Deliver(id string, qty int, remarks string) error {
	return m.apply(id, func(r *Requisition, at time.Time) error {
		return r.Deliver(qty, remarks, m.session.UserName, at)
	})
}

func (m *Manager) RaiseToWarehouse(id string, qty int, priority Priority, remarks string) error {
	return m.apply(id, func(r *Requisition, at time.Time) error {
		return r.RaiseToWarehouse(qty, priority, remarks, m.session.UserName, at)
	})
}

func (m *Manager) Reject(id, reason string) error {
	return m.apply(id, func(r *Requisition, at time.Time) error {
		return r.Reject(reason, m.session.UserName, at)
	})
}

func (m *Manager) Complete(id string) error {
	return m.apply(id, func(r *Requisition, at time.Time) error {
		return r.Complete(at)
	})
}

// apply runs fn on a copy and only swaps it in when fn succeeds.
func (m *Manager) apply(id string, fn func(*Requisition, time.Time) error) error {
	i, err := m.indexOf(id)
	if err != nil {
		return err
	}
	next := m.reqs[i].Clone()
	if err := fn(next, m.now()); err != nil {
		return err
	}
	m.reqs[i] = next
	m.refresh()
	return nil
}

// AddToBulkList stages the requisition's item and quantity. The requisition
// itself is left untouched. Bulk requisitions cannot be staged again.
func (m *Manager) AddToBulkList(id string) error {
	i, err := m.indexOf(id)
	if err != nil {
		return err
	}
	entry, err := stageEntry(m.reqs[i], m.now())
	if err != nil {
		return err
	}
	m.cart.Add(entry)
	m.refresh()
	return nil
}

// AddSuggestionToBulkList stages s. Its item stays out of the active
// suggestions for as long as it is in the cart.
func (m *Manager) AddSuggestionToBulkList(s Suggestion) {
	m.cart.Add(s.Entry())
	m.refresh()
}

// SubmitBulkRequisition turns the cart into one bulk requisition and empties
// the cart.
func (m *Manager) SubmitBulkRequisition() (*Requisition, error) {
	r, err := NewBulk(m.session, m.cart.Entries(), m.now())
	if err != nil {
		return nil, err
	}
	m.reqs = append(m.reqs, r)
	m.cart.Clear()
	m.refresh()
	return r.Clone(), nil
}

func (m *Manager) RemoveFromBulkList(index int) {
	m.cart.Remove(index)
	m.refresh()
}

func (m *Manager) UpdateBulkItemQuantity(index, qty int) { m.cart.UpdateQuantity(index, qty) }

func (m *Manager) ClearBulkList() {
	m.cart.Clear()
	m.refresh()
}

func (m *Manager) BulkList() []BulkListEntry { return m.cart.Entries() }

// Suggestions returns the active suggestions.
func (m *Manager) Suggestions() []Suggestion {
	return append([]Suggestion(nil), m.suggestions...)
}

// TakeSuggestionPrompt reports true exactly once per manager, and only when
// there is something to suggest.
func (m *Manager) TakeSuggestionPrompt() bool {
	if m.prompted || len(m.suggestions) == 0 {
		return false
	}
	m.prompted = true
	return true
}

// refresh recomputes suggestions, leaving out items already staged.
func (m *Manager) refresh() {
	m.suggestions = withoutStaged(Suggest(m.reqs, m.session.Facility, m.usage, m.now()), m.cart.Entries())
}

func (m *Manager) indexOf(id string) (int, error) {
	for i, r := range m.reqs {
		if r.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrNotFound, id)
}
