package controllers

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	stdsync "sync"
	"testing"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"schoolsync_go/models"
)

// stubConn satisfies database/sql/driver so gorm can render SQL in dry
// run mode. None of its methods are ever reached.
type stubConn struct{}

func (stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not executable") }
func (stubConn) Close() error                        { return nil }
func (stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("not executable") }

type stubConnector struct{}

func (stubConnector) Connect(context.Context) (driver.Conn, error) { return stubConn{}, nil }
func (stubConnector) Driver() driver.Driver                        { return stubDriver{} }

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return stubConn{}, nil }

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	sqlDB := sql.OpenDB(stubConnector{})
	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("opening dry-run db: %v", err)
	}
	return db
}

func TestDayScheduleQueryJoinsTeachersThroughSubjects(t *testing.T) {
	db := dryRunDB(t)

	var entries []dayEntry
	stmt := dayScheduleQuery(db, "2025-09-15").Find(&entries).Statement
	rendered := stmt.SQL.String()

	if !strings.Contains(rendered, "teachers.id = subjects.teacher_id") {
		t.Errorf("teacher must be joined through the subject, got: %s", rendered)
	}
	if strings.Contains(rendered, "schedule_entries.teacher_id") {
		t.Errorf("schedule entries carry no teacher column, got: %s", rendered)
	}
	if !strings.Contains(rendered, "schedule_entries.date = ?") {
		t.Errorf("query must filter by date, got: %s", rendered)
	}
}

func TestReplacementsCarryADateColumn(t *testing.T) {
	s, err := schema.Parse(&models.Replacement{}, &stdsync.Map{}, schema.NamingStrategy{})
	if err != nil {
		t.Fatalf("parsing replacement schema: %v", err)
	}
	field := s.LookUpField("date")
	if field == nil {
		t.Fatal("replacements need a date column for the day view lookup")
	}
}
