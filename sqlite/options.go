package sqlite

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/slackmgr/todos/task"
)

var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Option is a functional option for configuring a Client.
type Option func(*options)

type options struct {
	path        string
	tasksTable  string
	busyTimeout time.Duration
	logger      task.Logger
}

func newOptions() *options {
	return &options{
		path:        ":memory:",
		tasksTable:  "tasks",
		busyTimeout: 5 * time.Second,
	}
}

// WithPath sets the database file path. The default, ":memory:", keeps the
// database in memory for the lifetime of the Client.
func WithPath(path string) Option {
	return func(o *options) { o.path = path }
}

// WithTasksTable sets the name of the tasks table. The default is "tasks".
func WithTasksTable(name string) Option {
	return func(o *options) { o.tasksTable = name }
}

// WithBusyTimeout sets how long a statement waits on a locked database.
// The default is 5 seconds.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) { o.busyTimeout = d }
}

func WithLogger(logger task.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func (o *options) validate() error {
	if o.path == "" {
		return errors.New("database path is required")
	}

	if !validIdentifier.MatchString(o.tasksTable) {
		return fmt.Errorf("table name %q contains invalid characters", o.tasksTable)
	}

	if o.busyTimeout < 0 {
		return errors.New("busy timeout cannot be negative")
	}

	return nil
}

func (o *options) pragmas() []string {
	return []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", o.busyTimeout.Milliseconds()),
	}
}

func (o *options) createTableStatement() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, description TEXT NOT NULL, completed INTEGER NOT NULL, created_at INTEGER NOT NULL, user_id TEXT NULL)`, o.tasksTable)
}

func (o *options) createIndexStatement() string {
	return fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_user_id_idx ON %s (user_id) WHERE user_id IS NOT NULL`, o.tasksTable, o.tasksTable)
}

// expectedColumns maps column name to declared type and NOT NULL flag, as
// reported by PRAGMA table_info.
func expectedColumns() map[string]column {
	return map[string]column{
		"id":          {declType: "TEXT", notNull: false},
		"description": {declType: "TEXT", notNull: true},
		"completed":   {declType: "INTEGER", notNull: true},
		"created_at":  {declType: "INTEGER", notNull: true},
		"user_id":     {declType: "TEXT", notNull: false},
	}
}

type column struct {
	declType string
	notNull  bool
}
