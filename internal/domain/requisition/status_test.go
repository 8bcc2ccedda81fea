package requisition

import (
	"testing"
	"time"
)

func TestDeriveFacilityStatus(t *testing.T) {
	soon := testNow.Add(5 * 24 * time.Hour)
	later := testNow.Add(90 * 24 * time.Hour)
	edge := testNow.Add(NearExpiryWindow)

	tests := []struct {
		name      string
		stock     int
		expiry    *time.Time
		requested int
		want      FacilityStatus
	}{
		{"zero stock wins over expiry", 0, &soon, 10, FacilityOutOfStock},
		{"near expiry", 100, &soon, 10, FacilityNearExpiry},
		{"expiry on window edge", 100, &edge, 10, FacilityNearExpiry},
		{"near expiry beats low stock", 5, &soon, 10, FacilityNearExpiry},
		{"low stock", 5, &later, 10, FacilityLowStock},
		{"in stock", 50, &later, 10, FacilityInStock},
		{"no expiry in stock", 50, nil, 50, FacilityInStock},
		{"no expiry low stock", 5, nil, 6, FacilityLowStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveFacilityStatus(tt.stock, tt.expiry, tt.requested, testNow)
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFacilityStatus_Display(t *testing.T) {
	if b := FacilityOutOfStock.Display(); b.Severity != "danger" {
		t.Errorf("expected danger, got %s", b.Severity)
	}
	if b := FacilityInStock.Display(); b.Severity != "success" {
		t.Errorf("expected success, got %s", b.Severity)
	}
	if b := FacilityStatus("Quarantined").Display(); b.Severity != "secondary" || b.Label != "Quarantined" {
		t.Errorf("unexpected fallback badge: %+v", b)
	}
}
