package requisition

import (
	"fmt"
	"strings"
	"time"
)

// Timeline labels.
const (
	LabelRequested        = "Requested"
	LabelDelivered        = "Delivered"
	LabelRaised           = "Raised to Warehouse"
	LabelRejected         = "Rejected"
	LabelCompleted        = "Completed"
	LabelRaisedByFacility = "Raised by Facility Admin"
)

const defaultDeliverRemark = "Delivered from available stock"

// allowedTransitions lists, for every status, the statuses it may move to.
// Processing has no outgoing edge here: escalated requisitions are handed to
// the warehouse flow.
var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusDelivered, StatusRejected},
	StatusProcessing: nil,
	StatusDelivered:  {StatusCompleted},
	StatusCompleted:  nil,
	StatusRejected:   nil,
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// NewRequest carries the fields a user supplies when raising a requisition.
type NewRequest struct {
	ItemName      string     `json:"item_name"`
	Quantity      int        `json:"quantity"`
	FacilityStock int        `json:"facility_stock"`
	Priority      Priority   `json:"priority"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	Department    string     `json:"department,omitempty"`
}

// NewIndividual builds a Pending requisition raised by the session user.
func NewIndividual(sess Session, in NewRequest, at time.Time) (*Requisition, error) {
	const op = "create requisition"
	if strings.TrimSpace(sess.Facility) == "" {
		return nil, invalid(op, "facility is required")
	}
	if strings.TrimSpace(in.ItemName) == "" {
		return nil, invalid(op, "item name is required")
	}
	if in.Quantity <= 0 {
		return nil, invalid(op, "quantity must be greater than 0")
	}
	if in.FacilityStock < 0 {
		return nil, invalid(op, "facility stock cannot be negative")
	}
	priority := in.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	if _, ok := priorityRank[priority]; !ok {
		return nil, invalid(op, "invalid priority: %s", priority)
	}
	dept := in.Department
	if dept == "" {
		dept = sess.Department
	}
	r := &Requisition{
		ID:            NewID(KindIndividual),
		Kind:          KindIndividual,
		Facility:      sess.Facility,
		RequestedBy:   sess.UserName,
		Department:    dept,
		ItemName:      strings.TrimSpace(in.ItemName),
		Quantity:      in.Quantity,
		FacilityStock: in.FacilityStock,
		Priority:      priority,
		Status:        StatusPending,
		ExpiryDate:    in.ExpiryDate,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	r.Timeline = []TimelineEntry{{Status: StatusPending, Label: LabelRequested, At: at}}
	return r, nil
}

// NewBulk aggregates staged entries into one Processing requisition. The
// facility stock check is skipped, so the timeline starts already escalated.
func NewBulk(sess Session, entries []BulkListEntry, at time.Time) (*Requisition, error) {
	if len(entries) == 0 {
		return nil, invalid("submit bulk requisition", "empty list")
	}
	if strings.TrimSpace(sess.Facility) == "" {
		return nil, invalid("submit bulk requisition", "facility is required")
	}
	total := 0
	priority := PriorityNormal
	items := make([]BulkItem, 0, len(entries))
	for _, e := range entries {
		total += e.Quantity
		priority = priority.Higher(e.Priority)
		items = append(items, BulkItem(e))
	}
	r := &Requisition{
		ID:          NewID(KindBulk),
		Kind:        KindBulk,
		Facility:    sess.Facility,
		RequestedBy: sess.UserName,
		Department:  sess.Department,
		ItemName:    fmt.Sprintf("Bulk Requisition (%d items)", len(entries)),
		Quantity:    total,
		Priority:    priority,
		Status:      StatusProcessing,
		BulkItems:   items,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	r.Timeline = []TimelineEntry{
		{Status: StatusPending, Label: LabelRaisedByFacility, At: at},
		{Status: StatusProcessing, Label: LabelRaised, At: at},
	}
	r.Remarks = []RemarkEntry{{
		Actor: sess.UserName,
		Text:  fmt.Sprintf("Bulk requisition submitted with %d items", len(entries)),
		At:    at,
	}}
	return r, nil
}

func (r *Requisition) checkTransition(op string, to Status) error {
	if !CanTransition(r.Status, to) {
		return invalid(op, "requisition %s is %s and cannot become %s", r.ID, r.Status, to)
	}
	return nil
}

func (r *Requisition) transition(to Status, label string, at time.Time) {
	r.Status = to
	r.Timeline = append(r.Timeline, TimelineEntry{Status: to, Label: label, At: at})
	r.UpdatedAt = at
}

func (r *Requisition) remark(actor, text string, at time.Time) {
	r.Remarks = append(r.Remarks, RemarkEntry{Actor: actor, Text: text, At: at})
}

// Deliver hands qty units from facility stock to the requester.
func (r *Requisition) Deliver(qty int, remarks, actor string, at time.Time) error {
	const op = "deliver"
	if err := r.checkTransition(op, StatusDelivered); err != nil {
		return err
	}
	if qty <= 0 {
		return invalid(op, "quantity must be greater than 0")
	}
	if qty > r.FacilityStock {
		return invalid(op, "quantity %d exceeds facility stock %d", qty, r.FacilityStock)
	}
	r.transition(StatusDelivered, LabelDelivered, at)
	r.DeliveredQty = qty
	r.FacilityStock -= qty
	r.remark(actor, orDefault(remarks, defaultDeliverRemark), at)
	return nil
}

// RaiseToWarehouse escalates the requisition for qty units at priority.
func (r *Requisition) RaiseToWarehouse(qty int, priority Priority, remarks, actor string, at time.Time) error {
	const op = "raise to warehouse"
	if err := r.checkTransition(op, StatusProcessing); err != nil {
		return err
	}
	if qty <= 0 {
		return invalid(op, "quantity must be greater than 0")
	}
	if priority == "" {
		priority = r.Priority
	}
	if _, ok := priorityRank[priority]; !ok {
		return invalid(op, "invalid priority: %s", priority)
	}
	r.transition(StatusProcessing, LabelRaised, at)
	r.Priority = priority
	r.WarehouseQty = qty
	r.remark(actor, orDefault(remarks, fmt.Sprintf("Raised to warehouse with %s priority", priority)), at)
	return nil
}

// Reject closes the requisition. A reason is mandatory.
func (r *Requisition) Reject(reason, actor string, at time.Time) error {
	const op = "reject"
	if err := r.checkTransition(op, StatusRejected); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return invalid(op, "reason is required")
	}
	r.transition(StatusRejected, LabelRejected, at)
	r.remark(actor, reason, at)
	return nil
}

// Complete confirms a delivered requisition was received.
func (r *Requisition) Complete(at time.Time) error {
	if err := r.checkTransition("complete", StatusCompleted); err != nil {
		return err
	}
	r.transition(StatusCompleted, LabelCompleted, at)
	return nil
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
