package requisition

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Suggestion recommends restocking an item. It is derived on demand and never
// stored.
type Suggestion struct {
	ItemName     string         `json:"item_name"`
	Reason       FacilityStatus `json:"reason"`
	Priority     Priority       `json:"priority"`
	Quantity     int            `json:"suggested_qty"`
	CurrentStock int            `json:"current_stock"`
	ExpiryDate   *time.Time     `json:"expiry_date,omitempty"`
}

// Entry converts the suggestion into a bulk list entry.
func (s Suggestion) Entry() BulkListEntry {
	return BulkListEntry{
		ItemName: s.ItemName,
		Quantity: s.Quantity,
		Priority: s.Priority,
		Reason:   string(s.Reason),
	}
}

var (
	two   = decimal.NewFromInt(2)
	three = decimal.NewFromInt(3)
)

// Suggest scans the individual requisitions of facility and yields at most
// one suggestion per item. The first requisition seen for an item supplies
// its stock and expiry snapshot. An empty facility matches every record.
func Suggest(reqs []*Requisition, facility string, usage UsageHistory, now time.Time) []Suggestion {
	if usage == nil {
		usage = NewFixedUsage(DefaultMonthlyUsage)
	}
	seen := make(map[string]bool)
	var out []Suggestion
	for _, r := range reqs {
		if r.IsBulk() {
			continue
		}
		if facility != "" && !strings.EqualFold(r.Facility, facility) {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(r.ItemName))
		if seen[key] {
			continue
		}
		seen[key] = true

		avg := usage.AverageMonthlyUsage(r.Facility, r.ItemName)
		if s, ok := classify(r, avg, now); ok {
			out = append(out, s)
		}
	}
	return out
}

func classify(r *Requisition, avg decimal.Decimal, now time.Time) (Suggestion, bool) {
	s := Suggestion{
		ItemName:     r.ItemName,
		CurrentStock: r.FacilityStock,
		ExpiryDate:   r.ExpiryDate,
	}
	stock := decimal.NewFromInt(int64(r.FacilityStock))
	switch {
	case r.FacilityStock == 0:
		s.Reason, s.Priority, s.Quantity = FacilityOutOfStock, PriorityUrgent, suggestedQty(avg, two)
	case stock.LessThan(avg.Div(two)):
		s.Reason, s.Priority, s.Quantity = FacilityLowStock, PriorityHigh, suggestedQty(avg, two)
	case nearExpiry(r.ExpiryDate, now):
		s.Reason, s.Priority, s.Quantity = FacilityNearExpiry, PriorityNormal, suggestedQty(avg, three)
	default:
		return Suggestion{}, false
	}
	return s, true
}

// suggestedQty rounds avg*factor up, never below one unit.
func suggestedQty(avg, factor decimal.Decimal) int {
	q := avg.Mul(factor).Ceil().IntPart()
	if q < 1 {
		return 1
	}
	return int(q)
}
