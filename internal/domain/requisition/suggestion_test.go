package requisition

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func stocked(item string, stock int, expiry *time.Time) *Requisition {
	return &Requisition{
		ID:            NewID(KindIndividual),
		Kind:          KindIndividual,
		Facility:      "PHC Kottayam",
		ItemName:      item,
		Quantity:      10,
		FacilityStock: stock,
		Priority:      PriorityNormal,
		Status:        StatusPending,
		ExpiryDate:    expiry,
	}
}

func TestSuggest_Rules(t *testing.T) {
	soon := testNow.Add(10 * 24 * time.Hour)
	later := testNow.Add(120 * 24 * time.Hour)
	reqs := []*Requisition{
		stocked("Gloves", 0, &soon),
		stocked("Masks", 4, &later),
		stocked("Saline", 40, &soon),
		stocked("Gauze", 40, &later),
	}

	got := Suggest(reqs, "PHC Kottayam", NewFixedUsage(10), testNow)
	if len(got) != 3 {
		t.Fatalf("expected 3 suggestions, got %d: %+v", len(got), got)
	}

	want := []struct {
		item     string
		reason   FacilityStatus
		priority Priority
		qty      int
	}{
		{"Gloves", FacilityOutOfStock, PriorityUrgent, 20},
		{"Masks", FacilityLowStock, PriorityHigh, 20},
		{"Saline", FacilityNearExpiry, PriorityNormal, 30},
	}
	for i, w := range want {
		s := got[i]
		if s.ItemName != w.item || s.Reason != w.reason || s.Priority != w.priority || s.Quantity != w.qty {
			t.Errorf("suggestion %d: expected %+v, got %+v", i, w, s)
		}
	}
}

func TestSuggest_OutOfStockNeverNearExpiry(t *testing.T) {
	soon := testNow.Add(24 * time.Hour)
	got := Suggest([]*Requisition{stocked("Gloves", 0, &soon)}, "", nil, testNow)
	if len(got) != 1 || got[0].Reason != FacilityOutOfStock {
		t.Errorf("expected Out of Stock, got %+v", got)
	}
}

func TestSuggest_FirstOccurrenceWins(t *testing.T) {
	reqs := []*Requisition{
		stocked("Gloves", 40, nil),
		stocked("gloves", 0, nil),
	}
	if got := Suggest(reqs, "", nil, testNow); len(got) != 0 {
		t.Errorf("expected first snapshot to decide, got %+v", got)
	}
}

func TestSuggest_SkipsBulkAndOtherFacilities(t *testing.T) {
	bulk := stocked("Bulk Requisition (2 items)", 0, nil)
	bulk.Kind = KindBulk
	other := stocked("Gloves", 0, nil)
	other.Facility = "CHC Pala"

	if got := Suggest([]*Requisition{bulk, other}, "PHC Kottayam", nil, testNow); len(got) != 0 {
		t.Errorf("expected no suggestions, got %+v", got)
	}
}

func TestSuggest_RoundsUp(t *testing.T) {
	usage := NewHistoryUsage(nil)
	usage.Record("PHC Kottayam", "Gloves", 3, 4)
	got := Suggest([]*Requisition{stocked("Gloves", 0, nil)}, "", usage, testNow)
	if len(got) != 1 || got[0].Quantity != 7 {
		t.Errorf("expected ceil(3.5*2)=7, got %+v", got)
	}

	tiny := FixedUsage{Value: decimal.RequireFromString("0.2")}
	got = Suggest([]*Requisition{stocked("Gloves", 0, nil)}, "", tiny, testNow)
	if len(got) != 1 || got[0].Quantity != 1 {
		t.Errorf("expected minimum of 1, got %+v", got)
	}
}

func TestHistoryUsage_Fallback(t *testing.T) {
	h := NewHistoryUsage(NewFixedUsage(12))
	if !h.AverageMonthlyUsage("x", "y").Equal(decimal.NewFromInt(12)) {
		t.Error("expected fallback value")
	}
	h.Record(" X ", "Y", 10, 20, 30)
	if !h.AverageMonthlyUsage("x", "y").Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected 20, got %s", h.AverageMonthlyUsage("x", "y"))
	}
}

func TestSuggestion_Entry(t *testing.T) {
	s := Suggestion{ItemName: "Gloves", Reason: FacilityLowStock, Priority: PriorityHigh, Quantity: 20}
	e := s.Entry()
	if e.ItemName != "Gloves" || e.Quantity != 20 || e.Priority != PriorityHigh || e.Reason != "Low Stock" {
		t.Errorf("unexpected entry: %+v", e)
	}
}
