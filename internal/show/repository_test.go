package show_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/showcall/showcall-core/migrations"

	"github.com/showcall/showcall-core/internal/infrastructure/database"
	"github.com/showcall/showcall-core/internal/show"
	"github.com/showcall/showcall-core/internal/showlog"
)

// openTestDB opens a migrated SQLite database in a per-test temp directory.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "showcall-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Errorf("closing test database: %v", closeErr)
		}
	})
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func seedShow(t *testing.T, repo *show.SQLiteRepository, id string) {
	t.Helper()
	err := repo.CreateShow(context.Background(), &show.Show{
		ID:     id,
		Name:   "Evening Performance",
		Status: show.StatusNotStarted,
	})
	if err != nil {
		t.Fatalf("seeding show %s: %v", id, err)
	}
}

func TestSQLiteRepository_ShowRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := show.NewSQLiteRepository(db.DB)

	seedShow(t, repo, "show-one")

	got, err := repo.GetShow(ctx, "show-one")
	if err != nil {
		t.Fatalf("GetShow() error = %v", err)
	}
	if got.Name != "Evening Performance" || got.Status != show.StatusNotStarted {
		t.Errorf("round-tripped show = %+v", got)
	}
	if got.StartedAt != nil || got.CurrentCueID != nil {
		t.Errorf("nullable fields not nil on fresh show: %+v", got)
	}

	// Duplicate ID is a domain error.
	err = repo.CreateShow(ctx, &show.Show{ID: "show-one", Name: "Again"})
	if !errors.Is(err, show.ErrShowExists) {
		t.Errorf("duplicate CreateShow() error = %v, want ErrShowExists", err)
	}

	if _, err := repo.GetShow(ctx, "show-missing"); !errors.Is(err, show.ErrShowNotFound) {
		t.Errorf("GetShow(missing) error = %v, want ErrShowNotFound", err)
	}
}

func TestSQLiteRepository_CueRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := show.NewSQLiteRepository(db.DB)
	seedShow(t, repo, "show-one")

	duration := 45
	assigned := "op-board-2"
	cue := &show.Cue{
		ID:              "cue-one",
		ShowID:          "show-one",
		Number:          "LX1",
		SortOrder:       1,
		Type:            show.CueLighting,
		Description:     "House to half",
		TriggerType:     show.TriggerManual,
		DurationSeconds: &duration,
		Department:      "LX",
		AssignedTo:      &assigned,
		Dependencies:    []string{"cue-zero"},
		Status:          show.CuePending,
	}
	if err := repo.CreateCue(ctx, cue); err != nil {
		t.Fatalf("CreateCue() error = %v", err)
	}

	got, err := repo.GetCue(ctx, "cue-one")
	if err != nil {
		t.Fatalf("GetCue() error = %v", err)
	}
	if got.Number != "LX1" || got.Department != "LX" {
		t.Errorf("round-tripped cue = %+v", got)
	}
	if got.DurationSeconds == nil || *got.DurationSeconds != 45 {
		t.Errorf("DurationSeconds = %v, want 45", got.DurationSeconds)
	}
	if len(got.Dependencies) != 1 || got.Dependencies[0] != "cue-zero" {
		t.Errorf("Dependencies = %v, want [cue-zero]", got.Dependencies)
	}

	got.Description = "House out"
	if err := repo.UpdateCue(ctx, got); err != nil {
		t.Fatalf("UpdateCue() error = %v", err)
	}
	updated, err := repo.GetCue(ctx, "cue-one")
	if err != nil {
		t.Fatalf("GetCue() after update error = %v", err)
	}
	if updated.Description != "House out" {
		t.Errorf("Description = %q, want %q", updated.Description, "House out")
	}

	if err := repo.DeleteCue(ctx, "cue-one"); err != nil {
		t.Fatalf("DeleteCue() error = %v", err)
	}
	if _, err := repo.GetCue(ctx, "cue-one"); !errors.Is(err, show.ErrCueNotFound) {
		t.Errorf("GetCue() after delete error = %v, want ErrCueNotFound", err)
	}
}

func TestSQLiteRepository_ApplyCueChangeIsAtomic(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := show.NewSQLiteRepository(db.DB)
	seedShow(t, repo, "show-one")

	cue := &show.Cue{
		ID: "cue-one", ShowID: "show-one", Number: "LX1", SortOrder: 1,
		Type: show.CueLighting, TriggerType: show.TriggerManual,
		Status: show.CuePending,
	}
	if err := repo.CreateCue(ctx, cue); err != nil {
		t.Fatalf("CreateCue() error = %v", err)
	}

	executed := cue.DeepCopy()
	executed.Status = show.CueExecuted
	s, err := repo.GetShow(ctx, "show-one")
	if err != nil {
		t.Fatalf("GetShow() error = %v", err)
	}
	s.CurrentCueID = &executed.ID

	entry := &showlog.Entry{
		ShowID:    "show-one",
		EventType: showlog.EventCueGo,
		CueID:     &executed.ID,
		Actor:     "SM Dana",
	}
	if err := repo.ApplyCueChange(ctx, executed, s, entry); err != nil {
		t.Fatalf("ApplyCueChange() error = %v", err)
	}

	// Cue, show, and log all reflect the change.
	gotCue, err := repo.GetCue(ctx, "cue-one")
	if err != nil {
		t.Fatalf("GetCue() error = %v", err)
	}
	if gotCue.Status != show.CueExecuted {
		t.Errorf("cue status = %s, want executed", gotCue.Status)
	}
	gotShow, err := repo.GetShow(ctx, "show-one")
	if err != nil {
		t.Fatalf("GetShow() error = %v", err)
	}
	if gotShow.CurrentCueID == nil || *gotShow.CurrentCueID != "cue-one" {
		t.Errorf("CurrentCueID = %v, want cue-one", gotShow.CurrentCueID)
	}

	logRepo := showlog.NewSQLiteAppender(db.DB)
	result, err := logRepo.List(ctx, "show-one", showlog.Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("log total = %d, want 1", result.Total)
	}
	if result.Entries[0].EventType != showlog.EventCueGo || result.Entries[0].Seq != 1 {
		t.Errorf("log entry = %+v", result.Entries[0])
	}

	// A missing cue aborts the whole transaction, including the log append.
	ghost := executed.DeepCopy()
	ghost.ID = "cue-missing"
	err = repo.ApplyCueChange(ctx, ghost, nil, &showlog.Entry{
		ShowID: "show-one", EventType: showlog.EventCueGo, Actor: "SM Dana",
	})
	if !errors.Is(err, show.ErrCueNotFound) {
		t.Fatalf("ApplyCueChange(missing) error = %v, want ErrCueNotFound", err)
	}
	result, err = logRepo.List(ctx, "show-one", showlog.Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 {
		t.Errorf("log total after failed change = %d, want 1", result.Total)
	}
}

func TestSQLiteRepository_ReorderCues(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := show.NewSQLiteRepository(db.DB)
	seedShow(t, repo, "show-one")

	ids := []string{"cue-a", "cue-b", "cue-c"}
	for i, id := range ids {
		err := repo.CreateCue(ctx, &show.Cue{
			ID: id, ShowID: "show-one", Number: id, SortOrder: i + 1,
			Type: show.CueLighting, TriggerType: show.TriggerManual,
			Status: show.CuePending,
		})
		if err != nil {
			t.Fatalf("CreateCue(%s) error = %v", id, err)
		}
	}

	reversed := []string{"cue-c", "cue-b", "cue-a"}
	if err := repo.ReorderCues(ctx, "show-one", reversed); err != nil {
		t.Fatalf("ReorderCues() error = %v", err)
	}

	cues, err := repo.ListCues(ctx, "show-one")
	if err != nil {
		t.Fatalf("ListCues() error = %v", err)
	}
	for i, c := range cues {
		if c.ID != reversed[i] {
			t.Errorf("position %d = %s, want %s", i, c.ID, reversed[i])
		}
		if c.SortOrder != i+1 {
			t.Errorf("position %d sort_order = %d, want %d", i, c.SortOrder, i+1)
		}
	}

	// Reordering with a cue from another show rolls back entirely.
	err = repo.ReorderCues(ctx, "show-one", []string{"cue-a", "cue-b", "cue-ghost"})
	if !errors.Is(err, show.ErrInvalidReorder) {
		t.Fatalf("ReorderCues(ghost) error = %v, want ErrInvalidReorder", err)
	}
	cues, err = repo.ListCues(ctx, "show-one")
	if err != nil {
		t.Fatalf("ListCues() error = %v", err)
	}
	if cues[0].ID != "cue-c" {
		t.Errorf("order changed by failed reorder: first = %s, want cue-c", cues[0].ID)
	}
}

func TestShowLog_FilterAndSequence(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := show.NewSQLiteRepository(db.DB)
	logRepo := showlog.NewSQLiteAppender(db.DB)
	seedShow(t, repo, "show-one")
	seedShow(t, repo, "show-two")

	note := "standby called late"
	entries := []showlog.Entry{
		{ShowID: "show-one", EventType: showlog.EventShowStart, Actor: "SM Dana"},
		{ShowID: "show-one", EventType: showlog.EventNote, Notes: &note, Actor: "ASM Kit"},
		{ShowID: "show-two", EventType: showlog.EventShowStart, Actor: "SM Lee"},
		{ShowID: "show-one", EventType: showlog.EventShowEnd, Actor: "SM Dana"},
	}
	for i := range entries {
		if err := logRepo.Append(ctx, &entries[i]); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}

	// Sequence numbers are per show and contiguous.
	result, err := logRepo.List(ctx, "show-one", showlog.Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 3 {
		t.Fatalf("show-one total = %d, want 3", result.Total)
	}
	for i, e := range result.Entries {
		if e.Seq != int64(i+1) {
			t.Errorf("entry %d seq = %d, want %d", i, e.Seq, i+1)
		}
	}

	filtered, err := logRepo.List(ctx, "show-one", showlog.Filter{EventType: showlog.EventNote})
	if err != nil {
		t.Fatalf("List(filtered) error = %v", err)
	}
	if filtered.Total != 1 || filtered.Entries[0].Actor != "ASM Kit" {
		t.Errorf("filtered = %+v, want the single note", filtered)
	}
}
