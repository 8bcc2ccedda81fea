package requisition

import (
	"errors"
	"testing"
	"time"
)

func newTestManager() *Manager {
	return NewManager(testSession(), nil, WithClock(func() time.Time { return testNow }))
}

func TestManager_LoadFiltersFacility(t *testing.T) {
	m := newTestManager()
	other := stocked("Gloves", 5, nil)
	other.Facility = "CHC Pala"
	m.Load([]*Requisition{stocked("Gauze", 5, nil), other})

	got := m.Requisitions()
	if len(got) != 1 || got[0].ItemName != "Gauze" {
		t.Errorf("expected only the session facility, got %+v", got)
	}
}

func TestManager_Lifecycle(t *testing.T) {
	m := newTestManager()
	r, err := m.Create(NewRequest{ItemName: "Gauze", Quantity: 20, FacilityStock: 50})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.Deliver(r.ID, 20, ""); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if err := m.Complete(r.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, err := m.Get(r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCompleted || got.FacilityStock != 30 || len(got.Timeline) != 3 {
		t.Errorf("unexpected final state: %+v", got)
	}
}

func TestManager_FailedActionLeavesState(t *testing.T) {
	m := newTestManager()
	r, _ := m.Create(NewRequest{ItemName: "Gauze", Quantity: 20, FacilityStock: 5})

	if err := m.Deliver(r.ID, 6, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := m.Reject(r.ID, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	got, _ := m.Get(r.ID)
	if got.Status != StatusPending || got.FacilityStock != 5 || len(got.Timeline) != 1 || len(got.Remarks) != 0 {
		t.Errorf("state changed: %+v", got)
	}
}

func TestManager_UnknownID(t *testing.T) {
	m := newTestManager()
	if err := m.RaiseToWarehouse("REQ-NOPE", 5, PriorityHigh, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if err := m.AddToBulkList("REQ-NOPE"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestManager_GetReturnsCopy(t *testing.T) {
	m := newTestManager()
	r, _ := m.Create(NewRequest{ItemName: "Gauze", Quantity: 1, FacilityStock: 1})
	got, _ := m.Get(r.ID)
	got.Status = StatusRejected
	again, _ := m.Get(r.ID)
	if again.Status != StatusPending {
		t.Error("Get leaked internal state")
	}
}

func TestManager_SubmitBulk(t *testing.T) {
	m := newTestManager()
	a, _ := m.Create(NewRequest{ItemName: "Gauze", Quantity: 5, FacilityStock: 50})
	b, _ := m.Create(NewRequest{ItemName: "Gloves", Quantity: 7, FacilityStock: 50})
	if err := m.AddToBulkList(a.ID); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := m.AddToBulkList(b.ID); err != nil {
		t.Fatalf("add: %v", err)
	}

	bulk, err := m.SubmitBulkRequisition()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if bulk.Quantity != 12 || bulk.Status != StatusProcessing || len(bulk.Timeline) != 2 {
		t.Errorf("unexpected bulk: %+v", bulk)
	}
	if len(m.BulkList()) != 0 {
		t.Error("expected cart cleared")
	}
	if len(m.Requisitions()) != 3 {
		t.Errorf("expected 3 requisitions, got %d", len(m.Requisitions()))
	}
	orig, _ := m.Get(a.ID)
	if orig.Status != StatusPending {
		t.Errorf("staging must not change the source requisition, got %s", orig.Status)
	}
}

func TestManager_SubmitEmptyBulk(t *testing.T) {
	m := newTestManager()
	if _, err := m.SubmitBulkRequisition(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(m.Requisitions()) != 0 {
		t.Error("expected no requisition created")
	}
}

func TestManager_BulkListEditing(t *testing.T) {
	m := newTestManager()
	a, _ := m.Create(NewRequest{ItemName: "Gauze", Quantity: 20, FacilityStock: 50})
	_ = m.AddToBulkList(a.ID)
	_ = m.AddToBulkList(a.ID)
	if l := m.BulkList(); len(l) != 1 || l[0].Quantity != 40 {
		t.Fatalf("expected merged entry of 40, got %+v", l)
	}
	m.UpdateBulkItemQuantity(0, 15)
	if m.BulkList()[0].Quantity != 15 {
		t.Errorf("expected 15, got %d", m.BulkList()[0].Quantity)
	}
	m.RemoveFromBulkList(3)
	if len(m.BulkList()) != 1 {
		t.Error("out of range remove should be ignored")
	}
	m.ClearBulkList()
	if len(m.BulkList()) != 0 {
		t.Error("expected empty list")
	}
}

func TestManager_Suggestions(t *testing.T) {
	m := newTestManager()
	m.Load([]*Requisition{stocked("Gloves", 0, nil), stocked("Gauze", 100, nil)})

	sg := m.Suggestions()
	if len(sg) != 1 || sg[0].ItemName != "Gloves" {
		t.Fatalf("expected one suggestion for Gloves, got %+v", sg)
	}
	if !m.TakeSuggestionPrompt() {
		t.Error("expected first prompt")
	}
	if m.TakeSuggestionPrompt() {
		t.Error("prompt should only fire once")
	}

	m.AddSuggestionToBulkList(sg[0])
	if len(m.Suggestions()) != 0 {
		t.Error("accepted suggestion should leave the active set")
	}
	if l := m.BulkList(); len(l) != 1 || l[0].Priority != PriorityUrgent || l[0].Quantity != 20 {
		t.Errorf("unexpected staged entry: %+v", l)
	}
}

func TestManager_NoPromptWithoutSuggestions(t *testing.T) {
	m := newTestManager()
	m.Load([]*Requisition{stocked("Gauze", 100, nil)})
	if m.TakeSuggestionPrompt() {
		t.Error("no prompt expected without suggestions")
	}
}

func TestManager_StagedSuggestionStaysConsumed(t *testing.T) {
	m := newTestManager()
	m.Load([]*Requisition{stocked("Gloves", 0, nil)})

	sg := m.Suggestions()
	if len(sg) != 1 {
		t.Fatalf("expected one suggestion, got %+v", sg)
	}
	m.AddSuggestionToBulkList(sg[0])

	r, err := m.Create(NewRequest{ItemName: "Tape", Quantity: 5, FacilityStock: 50})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.Deliver(r.ID, 5, ""); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	for _, s := range m.Suggestions() {
		if s.ItemName == "Gloves" {
			t.Fatalf("staged item came back after a recompute: %+v", m.Suggestions())
		}
	}

	m.ClearBulkList()
	if got := m.Suggestions(); len(got) != 1 || got[0].ItemName != "Gloves" {
		t.Errorf("expected Gloves suggested again once unstaged, got %+v", got)
	}
}

func TestManager_AddToBulkList_RejectsBulk(t *testing.T) {
	m := newTestManager()
	a, _ := m.Create(NewRequest{ItemName: "Gauze", Quantity: 3, FacilityStock: 50, Priority: PriorityHigh})
	if err := m.AddToBulkList(a.ID); err != nil {
		t.Fatalf("add: %v", err)
	}
	bulk, err := m.SubmitBulkRequisition()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := m.AddToBulkList(bulk.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(m.BulkList()) != 0 {
		t.Errorf("cart should stay empty, got %+v", m.BulkList())
	}
}
