package sync

import (
	"context"
	"encoding/json"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"schoolsync_go/models"
	"schoolsync_go/services/portal"
)

// Outcome is the scheduler-facing result of one sync job.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeRetry   Outcome = "retry"
	OutcomeFailure Outcome = "failure"
)

// Notifier receives sync outcomes for user-facing delivery. Optional.
type Notifier interface {
	NotifySyncOutcome(kind, outcome, detail string)
}

// Scheduler runs periodic portal sync jobs. Start is idempotent, so a
// second configuration request keeps the existing schedule instead of
// stacking a duplicate job.
type Scheduler struct {
	db       *gorm.DB
	client   *portal.Client
	spec     string
	notifier Notifier
	cron     *cron.Cron
}

func NewScheduler(db *gorm.DB, client *portal.Client, spec string, notifier Notifier) *Scheduler {
	return &Scheduler{db: db, client: client, spec: spec, notifier: notifier}
}

// Start schedules the periodic full sync. No-op when already running.
func (s *Scheduler) Start() error {
	if s.cron != nil {
		logrus.Debug("sync scheduler already running, keeping existing schedule")
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(s.spec, func() {
		s.RunFullSync(context.Background())
	}); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	logrus.WithField("schedule", s.spec).Info("sync scheduler started")
	return nil
}

// Stop halts the schedule; a running job finishes first.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	logrus.Info("sync scheduler stopped")
}

// outcomeFor maps a fetch error to a scheduler outcome. Whether a
// retry is worthwhile is the portal client's call.
func outcomeFor(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	if portal.Retryable(err) {
		return OutcomeRetry
	}
	return OutcomeFailure
}

// RunFullSync runs one full sync round and records the outcome.
func (s *Scheduler) RunFullSync(ctx context.Context) Outcome {
	logrus.Info("starting full portal sync")

	outcome := OutcomeSuccess
	detail := "all portal data synchronized"
	if !s.client.SyncAllData(ctx) {
		outcome = OutcomeRetry
		detail = "some sync steps failed, will retry on next run"
	}

	s.record("full", outcome, detail, nil)
	return outcome
}

// RunScheduleSync fetches only the schedule page.
func (s *Scheduler) RunScheduleSync(ctx context.Context) Outcome {
	return s.runStep(ctx, "schedule", s.client.FetchSchedule)
}

// RunTasksSync fetches only the homework page.
func (s *Scheduler) RunTasksSync(ctx context.Context) Outcome {
	return s.runStep(ctx, "tasks", s.client.FetchTasks)
}

// RunMessagesSync fetches only the messages page.
func (s *Scheduler) RunMessagesSync(ctx context.Context) Outcome {
	return s.runStep(ctx, "messages", s.client.FetchMessages)
}

func (s *Scheduler) runStep(ctx context.Context, kind string, fetch func(context.Context) error) Outcome {
	err := fetch(ctx)
	outcome := outcomeFor(err)

	detail := kind + " synchronized"
	var details map[string]string
	if err != nil {
		detail = err.Error()
		details = map[string]string{"kind": string(portal.ErrKind(err))}
	}
	s.record(kind, outcome, detail, details)
	return outcome
}

func (s *Scheduler) record(kind string, outcome Outcome, message string, details map[string]string) {
	entry := models.SyncLog{
		Kind:    kind,
		Success: outcome == OutcomeSuccess,
		Outcome: string(outcome),
		Message: message,
	}
	if len(details) > 0 {
		if b, err := json.Marshal(details); err == nil {
			entry.Details = models.JSON(b)
		}
	}
	if s.db != nil {
		if err := s.db.Create(&entry).Error; err != nil {
			logrus.WithField("error", err.Error()).Error("recording sync outcome")
		}
	}
	if s.notifier != nil {
		s.notifier.NotifySyncOutcome(kind, string(outcome), message)
	}

	logrus.WithFields(logrus.Fields{
		"kind":    kind,
		"outcome": outcome,
	}).Info("sync job finished")
}
