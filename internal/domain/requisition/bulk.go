package requisition

import "strings"

// BulkListEntry is an item staged for a bulk requisition.
type BulkListEntry struct {
	ItemName string   `json:"item_name"`
	Quantity int      `json:"quantity"`
	Priority Priority `json:"priority"`
	Reason   string   `json:"reason,omitempty"`
}

// Cart is the working list of staged entries. The zero value is empty and
// ready to use.
type Cart struct {
	entries []BulkListEntry
}

// Add appends e, or adds its quantity to an existing entry with the same item
// name. A merged entry keeps the more severe priority.
func (c *Cart) Add(e BulkListEntry) {
	for i := range c.entries {
		if sameItem(c.entries[i].ItemName, e.ItemName) {
			c.entries[i].Quantity += e.Quantity
			c.entries[i].Priority = c.entries[i].Priority.Higher(e.Priority)
			return
		}
	}
	if e.Priority == "" {
		e.Priority = PriorityNormal
	}
	c.entries = append(c.entries, e)
}

// Remove drops the entry at index. Out of range indexes are ignored.
func (c *Cart) Remove(index int) {
	if index < 0 || index >= len(c.entries) {
		return
	}
	c.entries = append(c.entries[:index], c.entries[index+1:]...)
}

// UpdateQuantity sets the quantity at index. Non-positive quantities are
// ignored, leaving the entry as it was.
func (c *Cart) UpdateQuantity(index, qty int) {
	if qty <= 0 || index < 0 || index >= len(c.entries) {
		return
	}
	c.entries[index].Quantity = qty
}

// Entries returns a copy of the staged entries.
func (c *Cart) Entries() []BulkListEntry {
	return append([]BulkListEntry(nil), c.entries...)
}

func (c *Cart) Len() int { return len(c.entries) }

func (c *Cart) Clear() { c.entries = nil }

// TotalQuantity sums the staged quantities.
func (c *Cart) TotalQuantity() int {
	total := 0
	for _, e := range c.entries {
		total += e.Quantity
	}
	return total
}

func sameItem(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
