package requisition

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a requisition.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusDelivered  Status = "Delivered"
	StatusCompleted  Status = "Completed"
	StatusRejected   Status = "Rejected"
)

// ParseStatus returns the Status matching s, case-insensitively.
func ParseStatus(s string) (Status, error) {
	for _, st := range []Status{StatusPending, StatusProcessing, StatusDelivered, StatusCompleted, StatusRejected} {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid status: %s", s)
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

type Priority string

const (
	PriorityNormal Priority = "Normal"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

var priorityRank = map[Priority]int{
	PriorityNormal: 0,
	PriorityHigh:   1,
	PriorityUrgent: 2,
}

// ParsePriority returns the Priority matching s. An empty string yields Normal.
func ParsePriority(s string) (Priority, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PriorityNormal, nil
	}
	for p := range priorityRank {
		if strings.EqualFold(string(p), s) {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid priority: %s", s)
}

// Higher returns the more severe of p and o.
func (p Priority) Higher(o Priority) Priority {
	if priorityRank[o] > priorityRank[p] {
		return o
	}
	return p
}

type Kind string

const (
	KindIndividual Kind = "individual"
	KindBulk       Kind = "bulk"
)

const (
	individualPrefix = "REQ-"
	bulkPrefix       = "BULK-"
)

// NewID returns a requisition identifier for the given kind.
func NewID(kind Kind) string {
	short := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	if kind == KindBulk {
		return bulkPrefix + short
	}
	return individualPrefix + short
}

// KindOf infers the kind from an identifier prefix.
func KindOf(id string) Kind {
	if strings.HasPrefix(id, bulkPrefix) {
		return KindBulk
	}
	return KindIndividual
}

// TimelineEntry records one lifecycle transition. Label is what the user sees;
// Status is the state the requisition entered.
type TimelineEntry struct {
	Status Status    `json:"status"`
	Label  string    `json:"label"`
	At     time.Time `json:"at"`
}

type RemarkEntry struct {
	Actor string    `json:"actor"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

// BulkItem is one line of a submitted bulk requisition.
type BulkItem struct {
	ItemName string   `json:"item_name"`
	Quantity int      `json:"quantity"`
	Priority Priority `json:"priority"`
	Reason   string   `json:"reason,omitempty"`
}

// Requisition maps to the requisition table.
type Requisition struct {
	ID            string          `db:"id" json:"id"`
	Kind          Kind            `db:"kind" json:"kind"`
	Facility      string          `db:"facility" json:"facility"`
	RequestedBy   string          `db:"requested_by" json:"requested_by"`
	Department    string          `db:"department" json:"department,omitempty"`
	ItemName      string          `db:"item_name" json:"item_name"`
	Quantity      int             `db:"quantity" json:"quantity"`
	FacilityStock int             `db:"facility_stock" json:"facility_stock"`
	Priority      Priority        `db:"priority" json:"priority"`
	Status        Status          `db:"status" json:"status"`
	ExpiryDate    *time.Time      `db:"expiry_date" json:"expiry_date,omitempty"`
	DeliveredQty  int             `db:"delivered_qty" json:"delivered_qty,omitempty"`
	WarehouseQty  int             `db:"warehouse_qty" json:"warehouse_qty,omitempty"`
	BulkItems     []BulkItem      `db:"bulk_items" json:"bulk_items,omitempty"`
	Timeline      []TimelineEntry `db:"timeline" json:"status_timeline"`
	Remarks       []RemarkEntry   `db:"remarks" json:"remarks_log"`
	Version       int             `db:"version" json:"version"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// IsBulk reports whether r aggregates several staged items.
func (r *Requisition) IsBulk() bool { return r.Kind == KindBulk }

// LastEntry returns the most recent timeline entry, or false when the
// timeline is empty.
func (r *Requisition) LastEntry() (TimelineEntry, bool) {
	if len(r.Timeline) == 0 {
		return TimelineEntry{}, false
	}
	return r.Timeline[len(r.Timeline)-1], true
}

// Consistent reports whether the audit trail agrees with the current status.
func (r *Requisition) Consistent() bool {
	last, ok := r.LastEntry()
	return ok && last.Status == r.Status
}

// FacilityStatus derives the stock classification at now.
func (r *Requisition) FacilityStatus(now time.Time) FacilityStatus {
	return DeriveFacilityStatus(r.FacilityStock, r.ExpiryDate, r.Quantity, now)
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (r *Requisition) Clone() *Requisition {
	c := *r
	if r.ExpiryDate != nil {
		exp := *r.ExpiryDate
		c.ExpiryDate = &exp
	}
	c.BulkItems = append([]BulkItem(nil), r.BulkItems...)
	c.Timeline = append([]TimelineEntry(nil), r.Timeline...)
	c.Remarks = append([]RemarkEntry(nil), r.Remarks...)
	return &c
}

// Session identifies who is acting and on behalf of which facility. It
// replaces any ambient notion of the logged-in user.
type Session struct {
	UserName   string `json:"user_name"`
	Role       string `json:"role"`
	Facility   string `json:"facility"`
	Department string `json:"department,omitempty"`
}
