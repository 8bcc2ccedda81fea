package requisition

import "time"

// FacilityStatus classifies a facility's stock position for one item.
type FacilityStatus string

const (
	FacilityOutOfStock FacilityStatus = "Out of Stock"
	FacilityNearExpiry FacilityStatus = "Near Expiry"
	FacilityLowStock   FacilityStatus = "Low Stock"
	FacilityInStock    FacilityStatus = "In Stock"
)

// NearExpiryWindow is how far ahead an expiry date counts as near.
const NearExpiryWindow = 30 * 24 * time.Hour

// DeriveFacilityStatus classifies stock against the requested quantity. The
// first matching rule wins: zero stock, then expiry inside the window, then a
// request larger than stock.
func DeriveFacilityStatus(stock int, expiry *time.Time, requested int, now time.Time) FacilityStatus {
	switch {
	case stock == 0:
		return FacilityOutOfStock
	case nearExpiry(expiry, now):
		return FacilityNearExpiry
	case requested > stock:
		return FacilityLowStock
	default:
		return FacilityInStock
	}
}

func nearExpiry(expiry *time.Time, now time.Time) bool {
	if expiry == nil {
		return false
	}
	return !expiry.After(now.Add(NearExpiryWindow))
}

// Badge is the display affordance for a facility status.
type Badge struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
}

var facilityBadges = map[FacilityStatus]Badge{
	FacilityOutOfStock: {Label: "Out of Stock", Severity: "danger"},
	FacilityNearExpiry: {Label: "Near Expiry", Severity: "warning"},
	FacilityLowStock:   {Label: "Low Stock", Severity: "warning"},
	FacilityInStock:    {Label: "In Stock", Severity: "success"},
}

func (s FacilityStatus) Display() Badge {
	if b, ok := facilityBadges[s]; ok {
		return b
	}
	return Badge{Label: string(s), Severity: "secondary"}
}
