package requisition

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// DefaultMonthlyUsage stands in for consumption history when none is known.
const DefaultMonthlyUsage = 10

// UsageHistory supplies the average monthly consumption of an item at a
// facility.
type UsageHistory interface {
	AverageMonthlyUsage(facility, item string) decimal.Decimal
}

// FixedUsage reports the same average for every item.
type FixedUsage struct {
	Value decimal.Decimal
}

func NewFixedUsage(v int64) FixedUsage {
	return FixedUsage{Value: decimal.NewFromInt(v)}
}

func (f FixedUsage) AverageMonthlyUsage(string, string) decimal.Decimal {
	return f.Value
}

// HistoryUsage averages recorded monthly consumption. Items without history
// fall back to Fallback.
type HistoryUsage struct {
	Fallback UsageHistory

	mu      sync.RWMutex
	monthly map[string][]int64
}

func NewHistoryUsage(fallback UsageHistory) *HistoryUsage {
	if fallback == nil {
		fallback = NewFixedUsage(DefaultMonthlyUsage)
	}
	return &HistoryUsage{Fallback: fallback, monthly: make(map[string][]int64)}
}

// Record appends one month of consumption per value.
func (h *HistoryUsage) Record(facility, item string, months ...int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	k := usageKey(facility, item)
	h.monthly[k] = append(h.monthly[k], months...)
}

func (h *HistoryUsage) AverageMonthlyUsage(facility, item string) decimal.Decimal {
	h.mu.RLock()
	months := h.monthly[usageKey(facility, item)]
	h.mu.RUnlock()
	if len(months) == 0 {
		return h.Fallback.AverageMonthlyUsage(facility, item)
	}
	sum := decimal.Zero
	for _, m := range months {
		sum = sum.Add(decimal.NewFromInt(m))
	}
	return sum.Div(decimal.NewFromInt(int64(len(months))))
}

func usageKey(facility, item string) string {
	return strings.ToLower(strings.TrimSpace(facility)) + "|" + strings.ToLower(strings.TrimSpace(item))
}
