package state

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func openSession(t *testing.T, s *Store) Session {
	t.Helper()
	sess, err := s.OpenSession(0, "3.2", 1)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	return sess
}

func TestOpenAndCloseSession(t *testing.T) {
	s := tempDB(t)
	sess := openSession(t, s)
	if sess.SessionID == "" {
		t.Fatal("expected non-empty session ID")
	}
	if !sess.Open() {
		t.Fatal("new session should be open")
	}

	got, err := s.GetSession(sess.SessionID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.HALVersion != "3.2" || got.TableIndex != 1 {
		t.Fatalf("unexpected session %+v", got)
	}

	if err := s.CloseSession(sess.SessionID); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	got, _ = s.GetSession(sess.SessionID)
	if got.Open() {
		t.Fatal("session should be closed")
	}

	// Closing twice finds no open row.
	if err := s.CloseSession(sess.SessionID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s := tempDB(t)
	if _, err := s.GetSession("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListSessions(t *testing.T) {
	s := tempDB(t)
	for i := 0; i < 3; i++ {
		if _, err := s.OpenSession(i, "1.0", 0); err != nil {
			t.Fatalf("OpenSession: %v", err)
		}
		time.Sleep(time.Millisecond)
	}

	list, err := s.ListSessions(2)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list))
	}
	if list[0].Instance != 2 {
		t.Fatalf("expected newest first, got instance %d", list[0].Instance)
	}
}

func TestRecordApplyUpdatesActive(t *testing.T) {
	s := tempDB(t)
	sess := openSession(t, s)

	active, err := s.GetActive(sess.SessionID)
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if active.Static != -1 || active.Dynamic != -1 || active.External != -1 {
		t.Fatalf("expected seeded -1 ids, got %+v", active)
	}

	rec, err := s.RecordApply(AppliedRecord{
		SessionID:    sess.SessionID,
		ScenarioID:   3,
		ScenarioName: "REAR_SINGLE_WIDE_PHOTO",
		Category:     "static",
		Floors:       map[string]int{"cam": 400000, "mif": 0},
		CPUs:         "0-3",
		Writes:       5,
	})
	if err != nil {
		t.Fatalf("RecordApply: %v", err)
	}
	if rec.ApplyID == "" {
		t.Fatal("expected generated apply ID")
	}

	if _, err := s.RecordApply(AppliedRecord{
		SessionID:    sess.SessionID,
		ScenarioID:   9,
		ScenarioName: "REAR_SINGLE_TELE_CAPTURE",
		Category:     "dynamic",
		Floors:       map[string]int{"cam": 600000},
		Throttled:    true,
	}); err != nil {
		t.Fatalf("RecordApply dynamic: %v", err)
	}

	active, _ = s.GetActive(sess.SessionID)
	if active.Static != 3 || active.Dynamic != 9 || active.External != -1 {
		t.Fatalf("unexpected active %+v", active)
	}
}

func TestRecordApplyRejectsUnknownCategory(t *testing.T) {
	s := tempDB(t)
	sess := openSession(t, s)
	_, err := s.RecordApply(AppliedRecord{SessionID: sess.SessionID, Category: "bogus"})
	if err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestRecordApplyRequiresSession(t *testing.T) {
	s := tempDB(t)
	_, err := s.RecordApply(AppliedRecord{SessionID: "missing", Category: "static", Floors: map[string]int{}})
	if err == nil {
		t.Fatal("expected foreign key failure")
	}
}

func TestListAndLastApplied(t *testing.T) {
	s := tempDB(t)
	sess := openSession(t, s)
	other := openSession(t, s)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := s.RecordApply(AppliedRecord{
			SessionID:    sess.SessionID,
			ScenarioID:   i + 1,
			ScenarioName: "S",
			Category:     "static",
			Floors:       map[string]int{"int": i},
			CreatedAt:    base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("RecordApply: %v", err)
		}
	}
	if _, err := s.RecordApply(AppliedRecord{
		SessionID: other.SessionID, ScenarioID: 7, ScenarioName: "O",
		Category: "external", Floors: map[string]int{}, CreatedAt: base,
	}); err != nil {
		t.Fatalf("RecordApply other: %v", err)
	}

	recs, err := s.ListApplied(sess.SessionID, 10)
	if err != nil {
		t.Fatalf("ListApplied: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[0].ScenarioID != 3 || recs[0].Floors["int"] != 2 {
		t.Fatalf("expected newest first, got %+v", recs[0])
	}

	all, _ := s.ListApplied("", 10)
	if len(all) != 4 {
		t.Fatalf("expected 4 records across sessions, got %d", len(all))
	}

	last, err := s.LastApplied(sess.SessionID)
	if err != nil {
		t.Fatalf("LastApplied: %v", err)
	}
	if last.ScenarioID != 3 {
		t.Fatalf("expected scenario 3, got %d", last.ScenarioID)
	}

	fresh := openSession(t, s)
	if _, err := s.LastApplied(fresh.SessionID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
