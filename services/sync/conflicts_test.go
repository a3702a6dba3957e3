package sync

import (
	"strings"
	"testing"
	"time"

	"schoolsync_go/models"
)

func task(id uint, title, description, deadline, status string) models.Task {
	return models.Task{ID: id, Title: title, Description: description, Deadline: deadline, Status: status}
}

func TestDetectTaskConflict(t *testing.T) {
	r := NewConflictResolver(nil)

	cases := []struct {
		name       string
		local      models.Task
		remote     models.Task
		wantFields []string
	}{
		{
			name:   "identical tasks",
			local:  task(1, "A", "d", "2025-09-20", "active"),
			remote: task(1, "A", "d", "2025-09-20", "active"),
		},
		{
			name:       "title differs",
			local:      task(1, "A", "d", "2025-09-20", "active"),
			remote:     task(1, "B", "d", "2025-09-20", "active"),
			wantFields: []string{"title"},
		},
		{
			name:   "blank local title never conflicts",
			local:  task(1, "", "d", "2025-09-20", "active"),
			remote: task(1, "B", "d", "2025-09-20", "active"),
		},
		{
			name:   "blank remote deadline never conflicts",
			local:  task(1, "A", "d", "2025-09-20", "active"),
			remote: task(1, "A", "d", "", "active"),
		},
		{
			name:       "status conflicts even with blanks elsewhere",
			local:      task(1, "A", "", "", "active"),
			remote:     task(1, "A", "x", "2025-09-20", "completed"),
			wantFields: []string{"status"},
		},
		{
			name:       "multiple fields",
			local:      task(1, "A", "short", "2025-09-20", "active"),
			remote:     task(1, "B", "other", "2025-09-21", "completed"),
			wantFields: []string{"title", "description", "deadline", "status"},
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			c, found := r.DetectTaskConflict(tc.local, tc.remote)
			if len(tc.wantFields) == 0 {
				if found {
					t.Fatalf("unexpected conflict: %+v", c.Changes)
				}
				return
			}
			if !found {
				t.Fatal("expected a conflict")
			}
			if len(c.Changes) != len(tc.wantFields) {
				t.Fatalf("changes = %+v, want fields %v", c.Changes, tc.wantFields)
			}
			for i, field := range tc.wantFields {
				if c.Changes[i].Field != field {
					t.Errorf("change %d field = %q, want %q", i, c.Changes[i].Field, field)
				}
			}
		})
	}
}

func TestAutoResolveSimple(t *testing.T) {
	long := strings.Repeat("о", 50)
	boundary := strings.Repeat("о", 49)

	r := NewConflictResolver(nil)

	simple, _ := r.DetectTaskConflict(
		task(1, "A", "короткое описание", "2025-09-20", "active"),
		task(1, "A", "другое короткое", "2025-09-20", "active"),
	)
	longDesc, _ := r.DetectTaskConflict(
		task(2, "A", long, "2025-09-20", "active"),
		task(2, "A", "короткое", "2025-09-20", "active"),
	)
	statusChange, _ := r.DetectTaskConflict(
		task(3, "A", "d", "2025-09-20", "active"),
		task(3, "A", "d", "2025-09-20", "completed"),
	)
	// 49 runes on both sides sits just inside the auto-resolve limit
	edge, _ := r.DetectTaskConflict(
		task(4, "A", boundary, "2025-09-20", "active"),
		task(4, "A", strings.Repeat("а", 49), "2025-09-20", "active"),
	)
	r.Add(simple)
	r.Add(longDesc)
	r.Add(statusChange)
	r.Add(edge)

	r.AutoResolveSimple()

	remaining := r.Conflicts()
	if len(remaining) != 2 {
		t.Fatalf("remaining = %d, want 2", len(remaining))
	}
	for _, c := range remaining {
		if c.EntityID == 1 {
			t.Error("short description conflict should have been auto-resolved")
		}
		if c.EntityID == 4 {
			t.Error("49-rune descriptions on both sides should have been auto-resolved")
		}
	}
}

func TestResolveRemovesFromQueue(t *testing.T) {
	r := NewConflictResolver(nil)
	c, _ := r.DetectTaskConflict(
		task(7, "A", "d", "2025-09-20", "active"),
		task(7, "B", "d", "2025-09-20", "active"),
	)
	r.Add(c)

	if err := r.Resolve(c, UseLocal{}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Count() != 0 {
		t.Errorf("queue size = %d after resolve, want 0", r.Count())
	}
}

func TestResolveRemovesOnlyTheResolvedEntry(t *testing.T) {
	r := NewConflictResolver(nil)

	older := Conflict{
		EntityType: "Task",
		EntityID:   7,
		Local:      task(7, "A", "d", "2025-09-20", "active"),
		Remote:     task(7, "B", "d", "2025-09-20", "active"),
		Changes:    []FieldChange{{Field: "title", Local: "A", Remote: "B"}},
		DetectedAt: time.Date(2025, 9, 20, 10, 0, 0, 0, time.UTC),
	}
	newer := older
	newer.DetectedAt = older.DetectedAt.Add(time.Hour)
	r.Add(older)
	r.Add(newer)

	if err := r.Resolve(older, UseRemote{}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	remaining := r.Conflicts()
	if len(remaining) != 1 {
		t.Fatalf("queue size = %d, want 1", len(remaining))
	}
	if !remaining[0].DetectedAt.Equal(newer.DetectedAt) {
		t.Error("the wrong queue entry was removed")
	}
}

func TestResolutionApply(t *testing.T) {
	local := task(5, "локальный", "локальное описание", "2025-09-20", "completed")
	remote := task(5, "удалённый", "удалённое описание", "2025-09-25", "active")
	r := NewConflictResolver(nil)
	c, _ := r.DetectTaskConflict(local, remote)

	if got := (UseLocal{}).apply(c); got != local {
		t.Errorf("UseLocal = %+v, want local version", got)
	}
	if got := (UseRemote{}).apply(c); got != remote {
		t.Errorf("UseRemote = %+v, want remote version", got)
	}

	merged := Merge{Overrides: map[string]string{"title": "своё название"}}.apply(c)
	if merged.Title != "своё название" {
		t.Errorf("override ignored, title = %q", merged.Title)
	}
	if merged.Description != remote.Description || merged.Deadline != remote.Deadline || merged.Status != remote.Status {
		t.Errorf("un-overridden fields must default to remote: %+v", merged)
	}
	if merged.ID != local.ID {
		t.Errorf("merge must keep the task id, got %d", merged.ID)
	}
}

func TestSyncWithConflictResolution(t *testing.T) {
	r := NewConflictResolver(nil)

	before := []models.Task{
		task(1, "A", "короткое", "2025-09-20", "active"),
		task(2, "B", "d", "2025-09-20", "active"),
		task(3, "C", "d", "2025-09-20", "active"),
	}
	after := []models.Task{
		task(1, "A", "другое короткое", "2025-09-20", "active"), // simple, auto-resolved
		task(2, "B2", "d", "2025-09-20", "active"),              // needs a decision
		task(4, "D", "d", "2025-09-20", "active"),               // new task, no pair
	}

	r.SyncWithConflictResolution(before, after)

	remaining := r.Conflicts()
	if len(remaining) != 1 {
		t.Fatalf("remaining = %d, want 1", len(remaining))
	}
	if remaining[0].EntityID != 2 {
		t.Errorf("remaining conflict id = %d, want 2", remaining[0].EntityID)
	}
}
