package sync

import (
	stdsync "sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"schoolsync_go/models"
)

// FieldChange is one divergent field between the local and remote copy
// of a task.
type FieldChange struct {
	Field  string `json:"field"`
	Local  string `json:"local"`
	Remote string `json:"remote"`
}

// Conflict pairs the two versions of a task whose fields diverged
// during a sync round.
type Conflict struct {
	EntityType string        `json:"entity_type"`
	EntityID   uint          `json:"entity_id"`
	Local      models.Task   `json:"local"`
	Remote     models.Task   `json:"remote"`
	Changes    []FieldChange `json:"changes"`
	DetectedAt time.Time     `json:"detected_at"`
}

// Resolution decides which version of a conflicted task survives.
type Resolution interface {
	apply(c Conflict) models.Task
}

// UseLocal keeps the locally edited version.
type UseLocal struct{}

func (UseLocal) apply(c Conflict) models.Task { return c.Local }

// UseRemote keeps the version fetched from the portal.
type UseRemote struct{}

func (UseRemote) apply(c Conflict) models.Task { return c.Remote }

// Merge builds the surviving task field by field. Fields present in
// Overrides take that value; every other conflicted field defaults to
// the remote side.
type Merge struct {
	Overrides map[string]string
}

func (m Merge) apply(c Conflict) models.Task {
	pick := func(field, remote string) string {
		if v, ok := m.Overrides[field]; ok {
			return v
		}
		return remote
	}
	merged := c.Local
	merged.Title = pick("title", c.Remote.Title)
	merged.Description = pick("description", c.Remote.Description)
	merged.Deadline = pick("deadline", c.Remote.Deadline)
	merged.Status = pick("status", c.Remote.Status)
	return merged
}

// ConflictResolver keeps an in-memory queue of unresolved task
// conflicts. The queue is rebuilt on every sync round.
type ConflictResolver struct {
	db *gorm.DB

	mu        stdsync.Mutex
	conflicts []Conflict
}

func NewConflictResolver(db *gorm.DB) *ConflictResolver {
	return &ConflictResolver{db: db}
}

// DetectTaskConflict compares the two copies of one task. Title,
// description and deadline only conflict when both sides are non-blank,
// because a blank side means the field was never filled, not edited.
// Status always participates.
func (r *ConflictResolver) DetectTaskConflict(local, remote models.Task) (Conflict, bool) {
	var changes []FieldChange

	bothSet := func(a, b string) bool { return a != "" && b != "" }

	if local.Title != remote.Title && bothSet(local.Title, remote.Title) {
		changes = append(changes, FieldChange{Field: "title", Local: local.Title, Remote: remote.Title})
	}
	if local.Description != remote.Description && bothSet(local.Description, remote.Description) {
		changes = append(changes, FieldChange{Field: "description", Local: local.Description, Remote: remote.Description})
	}
	if local.Deadline != remote.Deadline && bothSet(local.Deadline, remote.Deadline) {
		changes = append(changes, FieldChange{Field: "deadline", Local: local.Deadline, Remote: remote.Deadline})
	}
	if local.Status != remote.Status {
		changes = append(changes, FieldChange{Field: "status", Local: local.Status, Remote: remote.Status})
	}

	if len(changes) == 0 {
		return Conflict{}, false
	}
	return Conflict{
		EntityType: "Task",
		EntityID:   local.ID,
		Local:      local,
		Remote:     remote,
		Changes:    changes,
		DetectedAt: time.Now(),
	}, true
}

// Add appends a conflict to the queue.
func (r *ConflictResolver) Add(c Conflict) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts = append(r.conflicts, c)
}

// Clear drops the whole queue.
func (r *ConflictResolver) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts = nil
}

// Conflicts returns a snapshot of the queue.
func (r *ConflictResolver) Conflicts() []Conflict {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Conflict, len(r.conflicts))
	copy(out, r.conflicts)
	return out
}

// Count returns the number of queued conflicts.
func (r *ConflictResolver) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conflicts)
}

// Resolve writes the surviving version of the task and removes exactly
// the resolved entry from the queue; other entries for the same task
// stay until they are resolved themselves.
func (r *ConflictResolver) Resolve(c Conflict, res Resolution) error {
	survivor := res.apply(c)

	if r.db != nil {
		err := r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&survivor).Error
		if err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.conflicts[:0]
	removed := false
	for _, queued := range r.conflicts {
		if !removed && queued.EntityID == c.EntityID && queued.DetectedAt.Equal(c.DetectedAt) {
			removed = true
			continue
		}
		kept = append(kept, queued)
	}
	r.conflicts = kept
	return nil
}

// isSimple reports whether every change is a description edit short
// enough on both sides to take the remote version without asking.
func isSimple(c Conflict) bool {
	for _, change := range c.Changes {
		if change.Field != "description" {
			return false
		}
		if utf8.RuneCountInString(change.Local) >= 50 || utf8.RuneCountInString(change.Remote) >= 50 {
			return false
		}
	}
	return len(c.Changes) > 0
}

// AutoResolveSimple resolves every simple conflict in favor of the
// remote side, leaving only conflicts that need a user decision.
func (r *ConflictResolver) AutoResolveSimple() {
	var simple []Conflict
	r.mu.Lock()
	for _, c := range r.conflicts {
		if isSimple(c) {
			simple = append(simple, c)
		}
	}
	r.mu.Unlock()

	for _, c := range simple {
		if err := r.Resolve(c, UseRemote{}); err != nil {
			logrus.WithFields(logrus.Fields{
				"task_id": c.EntityID,
				"error":   err.Error(),
			}).Error("auto-resolving conflict")
		}
	}
}

// SyncWithConflictResolution rebuilds the queue from the task
// snapshots taken before and after a sync round, then auto-resolves
// the simple ones.
func (r *ConflictResolver) SyncWithConflictResolution(before, after []models.Task) {
	r.Clear()

	byID := make(map[uint]models.Task, len(after))
	for _, task := range after {
		byID[task.ID] = task
	}

	for _, local := range before {
		remote, ok := byID[local.ID]
		if !ok {
			continue
		}
		if c, found := r.DetectTaskConflict(local, remote); found {
			r.Add(c)
		}
	}

	r.AutoResolveSimple()

	logrus.WithField("remaining", r.Count()).Info("conflict reconciliation finished")
}
