package tickets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ponto-labs/ponto/internal/domain"
)

// fakeStore records calls and mirrors the real store's active-clearing rule.
type fakeStore struct {
	rows    map[string]*domain.Ticket
	fail    error
	updates int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]*domain.Ticket)}
}

func (f *fakeStore) CreateTicket(_ context.Context, identifier, workDate string) (domain.Ticket, error) {
	if f.fail != nil {
		return domain.Ticket{}, f.fail
	}
	row := domain.Ticket{ID: uuid.NewString(), Identifier: identifier, WorkDate: workDate}
	f.rows[row.ID] = &row
	return row, nil
}

func (f *fakeStore) UpdateTicketSeconds(_ context.Context, id string, seconds int64) error {
	if f.fail != nil {
		return f.fail
	}
	row, ok := f.rows[id]
	if !ok {
		return domain.ErrTicketNotFound
	}
	row.AccumulatedSeconds = seconds
	f.updates++
	return nil
}

func (f *fakeStore) UpdateTicketAccrual(_ context.Context, id string, seconds int64, since time.Time) error {
	if f.fail != nil {
		return f.fail
	}
	row, ok := f.rows[id]
	if !ok {
		return domain.ErrTicketNotFound
	}
	row.AccumulatedSeconds = seconds
	row.ActiveSince = &since
	f.updates++
	return nil
}

func (f *fakeStore) SetTicketActive(_ context.Context, id string, since *time.Time) error {
	if f.fail != nil {
		return f.fail
	}
	row, ok := f.rows[id]
	if !ok {
		return domain.ErrTicketNotFound
	}
	for _, other := range f.rows {
		other.ActiveSince = nil
	}
	row.ActiveSince = since
	return nil
}

func (f *fakeStore) DeleteTicket(_ context.Context, id string) error {
	if f.fail != nil {
		return f.fail
	}
	if _, ok := f.rows[id]; !ok {
		return domain.ErrTicketNotFound
	}
	delete(f.rows, id)
	return nil
}

func newEngineWith(t *testing.T, identifiers ...string) (*Engine, *fakeStore, []*State) {
	t.Helper()
	store := newFakeStore()
	e := NewEngine(store, "2026-03-10")
	var states []*State
	for _, id := range identifiers {
		st, err := e.Add(context.Background(), id)
		if err != nil {
			t.Fatalf("Add(%q) error: %v", id, err)
		}
		states = append(states, st)
	}
	return e, store, states
}

// ─── Toggle Tests ───────────────────────────────────────────────────────────

func TestToggle_RequiresWorking(t *testing.T) {
	e, _, states := newEngineWith(t, "TK-1")
	for _, status := range []domain.WorkdayStatus{domain.NotStarted, domain.OnBreak, domain.Finished, domain.Incomplete} {
		err := e.Toggle(context.Background(), states[0].ID, status, time.Now())
		if !errors.Is(err, domain.ErrNotWorking) {
			t.Errorf("Toggle in %s: error = %v, want ErrNotWorking", status, err)
		}
	}
}

func TestToggle_StartAndPause(t *testing.T) {
	e, store, states := newEngineWith(t, "TK-1")
	now := time.Now()

	if err := e.Toggle(context.Background(), states[0].ID, domain.Working, now); err != nil {
		t.Fatalf("Toggle start: %v", err)
	}
	active := e.Active()
	if active == nil || active.ID != states[0].ID {
		t.Fatal("ticket should be active after first toggle")
	}
	if store.rows[states[0].ID].ActiveSince == nil {
		t.Error("store should record active_since")
	}

	if err := e.Toggle(context.Background(), states[0].ID, domain.Working, now.Add(time.Minute)); err != nil {
		t.Fatalf("Toggle pause: %v", err)
	}
	if e.Active() != nil {
		t.Error("no ticket should be active after pause")
	}
	if store.rows[states[0].ID].ActiveSince != nil {
		t.Error("store should have cleared active_since")
	}
}

func TestToggle_MovesAccrualCursor(t *testing.T) {
	e, store, states := newEngineWith(t, "TK-A", "TK-B")
	now := time.Now()
	a, b := states[0], states[1]

	if err := e.Toggle(context.Background(), a.ID, domain.Working, now); err != nil {
		t.Fatalf("toggle A: %v", err)
	}
	e.ApplyElapsed(90)

	if err := e.Toggle(context.Background(), b.ID, domain.Working, now.Add(90*time.Second)); err != nil {
		t.Fatalf("toggle B: %v", err)
	}

	active := e.Active()
	if active == nil || active.ID != b.ID {
		t.Fatal("exactly B should be active")
	}
	if a.Active || a.ActiveSince != nil {
		t.Error("A should be fully deactivated")
	}
	if store.rows[a.ID].ActiveSince != nil {
		t.Error("store should have cleared A's active_since")
	}
	if store.rows[a.ID].AccumulatedSeconds != 90 {
		t.Errorf("A's accrued seconds = %d, want 90 (snapshotted on deactivation)", store.rows[a.ID].AccumulatedSeconds)
	}
}

func TestToggle_StoreFailureLeavesStateUnchanged(t *testing.T) {
	e, store, states := newEngineWith(t, "TK-1")
	store.fail = errors.New("network down")

	err := e.Toggle(context.Background(), states[0].ID, domain.Working, time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
	if e.Active() != nil {
		t.Error("failed toggle must not leave a ticket active in memory")
	}
}

// ─── Accrual Tests ──────────────────────────────────────────────────────────

func TestApplyElapsed_OnlyActiveTicket(t *testing.T) {
	e, _, states := newEngineWith(t, "TK-A", "TK-B")
	if err := e.Toggle(context.Background(), states[0].ID, domain.Working, time.Now()); err != nil {
		t.Fatal(err)
	}

	e.ApplyElapsed(12.5)
	e.ApplyElapsed(0)  // no-op
	e.ApplyElapsed(-3) // never subtracts

	if got := states[0].Seconds; got != 12.5 {
		t.Errorf("active ticket seconds = %v, want 12.5", got)
	}
	if got := states[1].Seconds; got != 0 {
		t.Errorf("inactive ticket seconds = %v, want 0", got)
	}
}

func TestApplyElapsed_NoActiveTicket(t *testing.T) {
	e, _, states := newEngineWith(t, "TK-A")
	e.ApplyElapsed(60)
	if states[0].Seconds != 0 {
		t.Error("delta with no active ticket should be dropped")
	}
}

// ─── Manual Adjust Tests ────────────────────────────────────────────────────

func TestManualAdjust(t *testing.T) {
	tests := []struct {
		name        string
		newMinutes  int64
		otherSecs   int64
		workedSecs  int64
		wantErr     error
		wantSeconds int64
	}{
		{"valid edit", 30, 0, 3600, nil, 1800},
		{"exactly at cap", 60, 0, 3600, nil, 3600},
		{"negative rejected", -1, 0, 3600, domain.ErrNegativeTime, 0},
		{"over allocation", 31, 1800, 3600, domain.ErrTicketOverAllocation, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, states := newEngineWith(t, "TK-A", "TK-B")
			states[1].Seconds = float64(tt.otherSecs)

			err := e.ManualAdjust(context.Background(), states[0].ID, tt.newMinutes, tt.workedSecs)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ManualAdjust error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				if states[0].WholeSeconds() != 0 {
					t.Error("rejected edit must not change in-memory seconds")
				}
				return
			}
			if got := states[0].WholeSeconds(); got != tt.wantSeconds {
				t.Errorf("seconds = %d, want %d", got, tt.wantSeconds)
			}
			// Invariant: Σ ticket seconds ≤ worked seconds.
			if e.TotalSeconds() > tt.workedSecs {
				t.Errorf("ticket total %d exceeds worked %d", e.TotalSeconds(), tt.workedSecs)
			}
		})
	}
}

func TestManualAdjust_UnknownTicket(t *testing.T) {
	e, _, _ := newEngineWith(t, "TK-A")
	err := e.ManualAdjust(context.Background(), "nope", 10, 3600)
	if !errors.Is(err, domain.ErrTicketNotFound) {
		t.Errorf("error = %v, want ErrTicketNotFound", err)
	}
}

// ─── Load Reconciliation Tests ──────────────────────────────────────────────

func TestLoad_ReconcilesRunningTimer(t *testing.T) {
	store := newFakeStore()
	e := NewEngine(store, "2026-03-10")

	now := time.Now()
	since := now.Add(-30 * time.Minute)
	rows := []domain.Ticket{
		{ID: "t1", Identifier: "TK-1", AccumulatedSeconds: 600, ActiveSince: &since},
		{ID: "t2", Identifier: "TK-2", AccumulatedSeconds: 120},
	}
	e.Load(rows, now)

	active := e.Active()
	if active == nil || active.ID != "t1" {
		t.Fatal("t1 should be active after load")
	}
	if got := active.WholeSeconds(); got != 2400 {
		t.Errorf("reconciled seconds = %d, want 2400 (600 + 1800)", got)
	}
}

func TestLoad_FutureActiveSinceNotSubtracted(t *testing.T) {
	store := newFakeStore()
	e := NewEngine(store, "2026-03-10")

	now := time.Now()
	since := now.Add(5 * time.Minute) // clock skew: activation in the future
	e.Load([]domain.Ticket{{ID: "t1", Identifier: "TK-1", AccumulatedSeconds: 600, ActiveSince: &since}}, now)

	if got := e.Active().WholeSeconds(); got != 600 {
		t.Errorf("seconds = %d, want 600 (negative span ignored)", got)
	}
}

// ─── Add/Remove Tests ───────────────────────────────────────────────────────

func TestAdd_DuplicateIdentifier(t *testing.T) {
	e, _, _ := newEngineWith(t, "TK-1")
	_, err := e.Add(context.Background(), "TK-1")
	if !errors.Is(err, domain.ErrDuplicateTicket) {
		t.Errorf("error = %v, want ErrDuplicateTicket", err)
	}
}

func TestRemove(t *testing.T) {
	e, store, states := newEngineWith(t, "TK-1", "TK-2")
	if err := e.Remove(context.Background(), states[0].ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(e.Tickets()) != 1 {
		t.Errorf("tickets remaining = %d, want 1", len(e.Tickets()))
	}
	if _, ok := store.rows[states[0].ID]; ok {
		t.Error("row should be gone from the store")
	}
}

func TestRemove_StoreFailure(t *testing.T) {
	e, store, states := newEngineWith(t, "TK-1")
	store.fail = errors.New("network down")
	if err := e.Remove(context.Background(), states[0].ID); err == nil {
		t.Fatal("expected error")
	}
	if len(e.Tickets()) != 1 {
		t.Error("failed delete must not drop the in-memory ticket")
	}
}

// ─── Persistence Cadence ────────────────────────────────────────────────────

func TestPersistActive(t *testing.T) {
	e, store, states := newEngineWith(t, "TK-1")
	start := time.Now()
	if err := e.Toggle(context.Background(), states[0].ID, domain.Working, start); err != nil {
		t.Fatal(err)
	}
	e.ApplyElapsed(45.9)

	flushAt := start.Add(46 * time.Second)
	if err := e.PersistActive(context.Background(), flushAt); err != nil {
		t.Fatalf("PersistActive: %v", err)
	}
	row := store.rows[states[0].ID]
	if got := row.AccumulatedSeconds; got != 45 {
		t.Errorf("persisted seconds = %d, want 45 (whole seconds only)", got)
	}
	if row.ActiveSince == nil || !row.ActiveSince.Equal(flushAt) {
		t.Errorf("active_since = %v, want advanced to %v", row.ActiveSince, flushAt)
	}
}

func TestPersistActive_NoActiveIsNoop(t *testing.T) {
	e, store, _ := newEngineWith(t, "TK-1")
	before := store.updates
	if err := e.PersistActive(context.Background(), time.Now()); err != nil {
		t.Fatalf("PersistActive: %v", err)
	}
	if store.updates != before {
		t.Error("no store write expected without an active ticket")
	}
}

func TestPersistActive_ReloadDoesNotDoubleCount(t *testing.T) {
	store := newFakeStore()
	e := NewEngine(store, "2026-03-10")
	st, err := e.Add(context.Background(), "TK-1")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	start := time.Now()
	if err := e.Toggle(context.Background(), st.ID, domain.Working, start); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	e.ApplyElapsed(900)
	flushAt := start.Add(15 * time.Minute)
	if err := e.PersistActive(context.Background(), flushAt); err != nil {
		t.Fatalf("PersistActive: %v", err)
	}

	// A fresh engine loading the flushed rows at the flush instant must see
	// exactly the elapsed work, not the flushed total plus the span again.
	fresh := NewEngine(store, "2026-03-10")
	fresh.Load([]domain.Ticket{*store.rows[st.ID]}, flushAt)
	if got := fresh.Active().WholeSeconds(); got != 900 {
		t.Errorf("seconds after reload = %d, want 900", got)
	}

	// Another 60 seconds of running timer before the next flush is recovered
	// once, on top of the flushed total.
	later := NewEngine(store, "2026-03-10")
	later.Load([]domain.Ticket{*store.rows[st.ID]}, flushAt.Add(time.Minute))
	if got := later.Active().WholeSeconds(); got != 960 {
		t.Errorf("seconds after later reload = %d, want 960", got)
	}
}
