package requisition

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func pending(t *testing.T, qty, stock int) *Requisition {
	t.Helper()
	r, err := NewIndividual(testSession(), NewRequest{ItemName: "Gauze", Quantity: qty, FacilityStock: stock}, testNow)
	if err != nil {
		t.Fatalf("new individual: %v", err)
	}
	return r
}

func TestNewIndividual(t *testing.T) {
	r := pending(t, 20, 50)
	if !strings.HasPrefix(r.ID, "REQ-") || r.Kind != KindIndividual {
		t.Errorf("unexpected id/kind: %s %s", r.ID, r.Kind)
	}
	if r.Priority != PriorityNormal {
		t.Errorf("expected default priority Normal, got %s", r.Priority)
	}
	if len(r.Timeline) != 1 || r.Timeline[0].Label != LabelRequested || !r.Consistent() {
		t.Errorf("unexpected timeline: %+v", r.Timeline)
	}
	if r.RequestedBy != "Asha" || r.Facility != "PHC Kottayam" {
		t.Errorf("session not applied: %+v", r)
	}
}

func TestNewIndividual_Validation(t *testing.T) {
	tests := []struct {
		name string
		sess Session
		in   NewRequest
	}{
		{"no facility", Session{UserName: "x"}, NewRequest{ItemName: "Gauze", Quantity: 1}},
		{"blank item", testSession(), NewRequest{ItemName: "  ", Quantity: 1}},
		{"zero quantity", testSession(), NewRequest{ItemName: "Gauze"}},
		{"negative stock", testSession(), NewRequest{ItemName: "Gauze", Quantity: 1, FacilityStock: -1}},
		{"bad priority", testSession(), NewRequest{ItemName: "Gauze", Quantity: 1, Priority: "Soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewIndividual(tt.sess, tt.in, testNow); !errors.Is(err, ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDeliver(t *testing.T) {
	r := pending(t, 20, 50)
	at := testNow.Add(time.Hour)
	if err := r.Deliver(20, "", "Asha", at); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if r.Status != StatusDelivered || r.DeliveredQty != 20 || r.FacilityStock != 30 {
		t.Errorf("unexpected state: %+v", r)
	}
	if !r.Consistent() || len(r.Timeline) != 2 {
		t.Errorf("timeline out of step: %+v", r.Timeline)
	}
	if len(r.Remarks) != 1 || r.Remarks[0].Text != defaultDeliverRemark {
		t.Errorf("expected default remark, got %+v", r.Remarks)
	}
	if !r.UpdatedAt.Equal(at) {
		t.Errorf("expected updated_at %v, got %v", at, r.UpdatedAt)
	}
}

func TestDeliver_Bounds(t *testing.T) {
	for _, qty := range []int{0, -1, 51} {
		r := pending(t, 20, 50)
		if err := r.Deliver(qty, "", "Asha", testNow); !errors.Is(err, ErrValidation) {
			t.Errorf("qty %d: expected validation error, got %v", qty, err)
		}
	}
	r := pending(t, 20, 50)
	if err := r.Deliver(50, "", "Asha", testNow); err != nil {
		t.Errorf("delivering the whole stock should succeed: %v", err)
	}
	if r.FacilityStock != 0 {
		t.Errorf("expected stock 0, got %d", r.FacilityStock)
	}
}

func TestRaiseToWarehouse(t *testing.T) {
	r := pending(t, 20, 0)
	if err := r.RaiseToWarehouse(100, "", "", "Asha", testNow); err != nil {
		t.Fatalf("raise: %v", err)
	}
	if r.Status != StatusProcessing || r.WarehouseQty != 100 || r.Priority != PriorityNormal {
		t.Errorf("unexpected state: %+v", r)
	}
	if r.Timeline[1].Label != LabelRaised {
		t.Errorf("expected %q, got %q", LabelRaised, r.Timeline[1].Label)
	}
	if r.Remarks[0].Text != "Raised to warehouse with Normal priority" {
		t.Errorf("unexpected remark %q", r.Remarks[0].Text)
	}
	if err := r.Deliver(1, "", "Asha", testNow); !errors.Is(err, ErrValidation) {
		t.Errorf("processing requisitions cannot be delivered, got %v", err)
	}
}

func TestReject_RequiresReason(t *testing.T) {
	r := pending(t, 5, 5)
	if err := r.Reject(" \t", "Asha", testNow); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if r.Status != StatusPending || len(r.Timeline) != 1 {
		t.Errorf("state changed on failed reject: %+v", r)
	}
	if err := r.Reject("  not stocked  ", "Asha", testNow); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if r.Remarks[0].Text != "not stocked" {
		t.Errorf("expected trimmed reason, got %q", r.Remarks[0].Text)
	}
}

func TestComplete_OnlyFromDelivered(t *testing.T) {
	r := pending(t, 5, 5)
	if err := r.Complete(testNow); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := r.Deliver(5, "", "Asha", testNow); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if err := r.Complete(testNow); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if r.Status != StatusCompleted || !r.Status.Terminal() || !r.Consistent() {
		t.Errorf("unexpected state: %+v", r)
	}
}

func TestTerminalStatesHaveNoTransitions(t *testing.T) {
	all := []Status{StatusPending, StatusProcessing, StatusDelivered, StatusCompleted, StatusRejected}
	for _, from := range []Status{StatusCompleted, StatusRejected, StatusProcessing} {
		for _, to := range all {
			if CanTransition(from, to) {
				t.Errorf("%s -> %s should not be allowed", from, to)
			}
		}
	}
	if !CanTransition(StatusPending, StatusRejected) || !CanTransition(StatusDelivered, StatusCompleted) {
		t.Error("expected documented edges to be allowed")
	}
}

func TestNewBulk(t *testing.T) {
	entries := []BulkListEntry{
		{ItemName: "Gauze", Quantity: 5, Priority: PriorityNormal},
		{ItemName: "Gloves", Quantity: 7, Priority: PriorityUrgent},
	}
	r, err := NewBulk(testSession(), entries, testNow)
	if err != nil {
		t.Fatalf("new bulk: %v", err)
	}
	if !strings.HasPrefix(r.ID, "BULK-") || KindOf(r.ID) != KindBulk {
		t.Errorf("unexpected id %s", r.ID)
	}
	if r.Quantity != 12 || r.Priority != PriorityUrgent || r.Status != StatusProcessing {
		t.Errorf("unexpected aggregate: %+v", r)
	}
	if r.ItemName != "Bulk Requisition (2 items)" {
		t.Errorf("unexpected item name %q", r.ItemName)
	}
	if len(r.Timeline) != 2 || r.Timeline[0].Label != LabelRaisedByFacility || !r.Consistent() {
		t.Errorf("unexpected timeline: %+v", r.Timeline)
	}
	if len(r.BulkItems) != 2 || r.BulkItems[1].ItemName != "Gloves" {
		t.Errorf("unexpected items: %+v", r.BulkItems)
	}
}

func TestNewBulk_Empty(t *testing.T) {
	if _, err := NewBulk(testSession(), nil, testNow); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
