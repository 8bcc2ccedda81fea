package receipt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("goods receipt not found")
	ErrInvalid  = errors.New("invalid goods receipt")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Line is one dispatched item on a goods receipt note.
type Line struct {
	ItemName      string `json:"item_name"`
	DispatchedQty int    `json:"dispatched_qty"`
	ReceivedQty   int    `json:"received_qty"`
	DamagedQty    int    `json:"damaged_qty"`
	ShortQty      int    `json:"short_qty"`
}

// SetReceived records what arrived. ShortQty is always derived from the
// dispatched and received quantities.
func (l *Line) SetReceived(received, damaged int) error {
	if received < 0 || received > l.DispatchedQty {
		return invalid("%s: received %d outside [0, %d]", l.ItemName, received, l.DispatchedQty)
	}
	if damaged < 0 || damaged > received {
		return invalid("%s: damaged %d outside [0, %d]", l.ItemName, damaged, received)
	}
	l.ReceivedQty = received
	l.DamagedQty = damaged
	l.ShortQty = l.DispatchedQty - l.ReceivedQty
	return nil
}

// GoodsReceipt maps to the goods_receipt table.
type GoodsReceipt struct {
	ID            string    `db:"id" json:"id"`
	RequisitionID string    `db:"requisition_id" json:"requisition_id,omitempty"`
	Facility      string    `db:"facility" json:"facility"`
	ReceivedBy    string    `db:"received_by" json:"received_by"`
	Lines         []Line    `db:"lines" json:"lines"`
	Notes         string    `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

func newID() string {
	return "GRN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Totals sums the line quantities.
func (g *GoodsReceipt) Totals() (dispatched, received, damaged, short int) {
	for _, l := range g.Lines {
		dispatched += l.DispatchedQty
		received += l.ReceivedQty
		damaged += l.DamagedQty
		short += l.ShortQty
	}
	return
}

func (g *GoodsReceipt) validate() error {
	if strings.TrimSpace(g.Facility) == "" {
		return invalid("facility is required")
	}
	if len(g.Lines) == 0 {
		return invalid("at least one line is required")
	}
	for i := range g.Lines {
		l := &g.Lines[i]
		if strings.TrimSpace(l.ItemName) == "" {
			return invalid("line %d: item name is required", i)
		}
		if l.DispatchedQty <= 0 {
			return invalid("line %d: dispatched quantity must be greater than 0", i)
		}
		if err := l.SetReceived(l.ReceivedQty, l.DamagedQty); err != nil {
			return err
		}
	}
	return nil
}
