package scheduler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medsupply/medsupply/internal/domain/requisition"
)

type stubSource struct {
	facilities []string
	listErr    error
	byFacility map[string][]requisition.Suggestion
	failFor    string
}

func (s *stubSource) Facilities(context.Context) ([]string, error) {
	return s.facilities, s.listErr
}

func (s *stubSource) FacilitySuggestions(_ context.Context, facility string) ([]requisition.Suggestion, error) {
	if facility == s.failFor {
		return nil, errors.New("db down")
	}
	return s.byFacility[facility], nil
}

func TestNew_InvalidSpec(t *testing.T) {
	if _, err := New("every day", &stubSource{}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestNew_DefaultSpec(t *testing.T) {
	s, err := New("", &stubSource{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.cron.Entries()) != 1 {
		t.Errorf("expected one scheduled entry, got %d", len(s.cron.Entries()))
	}
}

func TestSweep(t *testing.T) {
	var buf bytes.Buffer
	src := &stubSource{
		facilities: []string{"PHC Kottayam", "CHC Pala", "FHC Vaikom"},
		byFacility: map[string][]requisition.Suggestion{
			"PHC Kottayam": {
				{ItemName: "Gloves", Priority: requisition.PriorityUrgent, Quantity: 20},
				{ItemName: "Masks", Priority: requisition.PriorityHigh, Quantity: 20},
			},
		},
		failFor: "FHC Vaikom",
	}
	s, err := New(DefaultSpec, src, zerolog.New(&buf))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	got, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(got["PHC Kottayam"]) != 2 {
		t.Errorf("expected 2 suggestions for PHC Kottayam, got %d", len(got["PHC Kottayam"]))
	}
	if _, ok := got["FHC Vaikom"]; ok {
		t.Error("failed facility should be skipped")
	}
	logs := buf.String()
	if !strings.Contains(logs, `"urgent":1`) || !strings.Contains(logs, `"level":"warn"`) {
		t.Errorf("expected urgent warning in logs, got %s", logs)
	}
	if !strings.Contains(logs, "db down") {
		t.Errorf("expected facility failure to be logged, got %s", logs)
	}
}

func TestSweep_ListError(t *testing.T) {
	s, _ := New(DefaultSpec, &stubSource{listErr: errors.New("boom")}, zerolog.Nop())
	if _, err := s.Sweep(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestStartStop(t *testing.T) {
	s, _ := New(DefaultSpec, &stubSource{}, zerolog.Nop())
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestSweep_LogLevelFollowsUrgency(t *testing.T) {
	var buf bytes.Buffer
	src := &stubSource{
		facilities: []string{"CHC Pala"},
		byFacility: map[string][]requisition.Suggestion{
			"CHC Pala": {{ItemName: "Masks", Priority: requisition.PriorityHigh, Quantity: 10}},
		},
	}
	s, _ := New(DefaultSpec, src, zerolog.New(&buf))
	if _, err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	var restock []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Contains(line, "restock suggested") {
			restock = append(restock, line)
		}
	}
	if len(restock) != 1 {
		t.Fatalf("expected one restock line, got %d: %s", len(restock), buf.String())
	}
	if !strings.Contains(restock[0], `"level":"info"`) {
		t.Errorf("expected info level without urgent items, got %s", restock[0])
	}
}
