//nolint:nilnil
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/slackmgr/todos/task"
)

var errNotConnected = errors.New("client is not connected")

// Client is a SQLite-backed implementation of the [task.Store] interface,
// intended for local development and tests.
type Client struct {
	db   *sql.DB
	opts *options
}

var _ task.Store = (*Client)(nil)

func New(opts ...Option) *Client {
	o := newOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Client{opts: o}
}

// Connect opens the database and applies the connection pragmas. The file is
// created if it does not exist.
func (c *Client) Connect(ctx context.Context) error {
	if c.db != nil {
		_ = c.db.Close()
		c.db = nil
	}

	if err := c.opts.validate(); err != nil {
		return fmt.Errorf("invalid SQLite db configuration: %w", err)
	}

	db, err := sql.Open("sqlite3", c.opts.path)
	if err != nil {
		return fmt.Errorf("failed to open SQLite db: %w", err)
	}

	// SQLite allows a single writer, and an in-memory database exists per
	// connection, so the pool is pinned to one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to connect to SQLite db: %w", err)
	}

	for _, pragma := range c.opts.pragmas() {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	c.db = db

	return nil
}

func (c *Client) Close(_ context.Context) error {
	if c.db == nil {
		return nil
	}

	err := c.db.Close()
	c.db = nil

	return err
}

// Init creates the tasks table if it does not exist, verifies its column
// layout unless skipSchemaValidation is true, and then creates the owner
// index. A table without the owner column gets no index when validation is
// skipped.
func (c *Client) Init(ctx context.Context, skipSchemaValidation bool) error {
	if c.db == nil {
		return errNotConnected
	}

	if _, err := c.db.ExecContext(ctx, c.opts.createTableStatement()); err != nil {
		return fmt.Errorf("failed to create SQLite table %s: %w", c.opts.tasksTable, err)
	}

	columns, err := c.tableColumns(ctx)
	if err != nil {
		return err
	}

	if !skipSchemaValidation {
		if err := c.verifySchema(columns); err != nil {
			return err
		}
	}

	if _, ok := columns["user_id"]; !ok {
		c.logger(ctx).Info("Owner column missing, owner index not created")
		return nil
	}

	if _, err := c.db.ExecContext(ctx, c.opts.createIndexStatement()); err != nil {
		return fmt.Errorf("failed to create owner index on SQLite table %s: %w", c.opts.tasksTable, err)
	}

	return nil
}

// DropAllData deletes every row from the tasks table. Intended for tests only.
func (c *Client) DropAllData(ctx context.Context) error {
	if c.db == nil {
		return errNotConnected
	}

	if _, err := c.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", c.opts.tasksTable)); err != nil {
		return fmt.Errorf("failed to drop SQLite table %s: %w", c.opts.tasksTable, err)
	}

	return nil
}

func (c *Client) PutTask(ctx context.Context, t *task.Task) error {
	if c.db == nil {
		return errNotConnected
	}

	if err := validateTask(t); err != nil {
		return err
	}

	if err := c.upsert(ctx, t); err != nil {
		return fmt.Errorf("failed to save task to SQLite table %s: %w", c.opts.tasksTable, err)
	}

	c.logger(ctx).WithField("task_id", t.ID).WithField("owner_id", t.OwnerID).Debug("Task written to SQLite")

	return nil
}

func (c *Client) UpdateTask(ctx context.Context, t *task.Task) error {
	if c.db == nil {
		return errNotConnected
	}

	if err := validateTask(t); err != nil {
		return err
	}

	if err := c.upsert(ctx, t); err != nil {
		return fmt.Errorf("failed to update task in SQLite table %s: %w", c.opts.tasksTable, err)
	}

	c.logger(ctx).WithField("task_id", t.ID).WithField("owner_id", t.OwnerID).Debug("Task updated in SQLite")

	return nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	if c.db == nil {
		return errNotConnected
	}

	if id == "" {
		return errors.New("task ID cannot be empty")
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", c.opts.tasksTable)

	if _, err := c.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete task from SQLite table %s: %w", c.opts.tasksTable, err)
	}

	c.logger(ctx).WithField("task_id", id).Debug("Task deleted from SQLite")

	return nil
}

func (c *Client) FindTask(ctx context.Context, id string) (*task.Task, error) {
	if c.db == nil {
		return nil, errNotConnected
	}

	if id == "" {
		return nil, errors.New("task ID cannot be empty")
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", selectColumns, c.opts.tasksTable)

	t, err := scanTask(c.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to find task in SQLite table %s: %w", c.opts.tasksTable, err)
	}

	return t, nil
}

func (c *Client) FindTasksByOwner(ctx context.Context, ownerID string) ([]*task.Task, error) {
	if c.db == nil {
		return nil, errNotConnected
	}

	if ownerID == "" {
		return nil, errors.New("owner ID cannot be empty")
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE user_id = ? ORDER BY created_at, id", selectColumns, c.opts.tasksTable)

	tasks, err := c.queryTasks(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find tasks by owner in SQLite table %s: %w", c.opts.tasksTable, err)
	}

	return tasks, nil
}

func (c *Client) ScanTasks(ctx context.Context) ([]*task.Task, error) {
	if c.db == nil {
		return nil, errNotConnected
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at, id", selectColumns, c.opts.tasksTable)

	tasks, err := c.queryTasks(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to scan SQLite table %s: %w", c.opts.tasksTable, err)
	}

	return tasks, nil
}

func (c *Client) ScanPublicTasks(ctx context.Context) ([]*task.Task, error) {
	if c.db == nil {
		return nil, errNotConnected
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE user_id IS NULL ORDER BY created_at, id", selectColumns, c.opts.tasksTable)

	tasks, err := c.queryTasks(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to scan public tasks in SQLite table %s: %w", c.opts.tasksTable, err)
	}

	return tasks, nil
}

const selectColumns = "id, description, completed, created_at, COALESCE(user_id, '')"

func (c *Client) upsert(ctx context.Context, t *task.Task) error {
	statement := fmt.Sprintf("INSERT INTO %s (id, description, completed, created_at, user_id) VALUES (?, ?, ?, ?, ?) ON CONFLICT (id) DO UPDATE SET description = excluded.description, completed = excluded.completed, created_at = excluded.created_at, user_id = excluded.user_id", c.opts.tasksTable)

	var owner sql.NullString
	if t.OwnerID != "" {
		owner = sql.NullString{String: t.OwnerID, Valid: true}
	}

	_, err := c.db.ExecContext(ctx, statement, t.ID, t.Description, t.Completed, t.CreatedAt, owner)

	return err
}

func (c *Client) queryTasks(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	tasks := []*task.Task{}

	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}

		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over task rows: %w", err)
	}

	return tasks, nil
}

// tableColumns reads the column layout reported by PRAGMA table_info.
func (c *Client) tableColumns(ctx context.Context) (map[string]column, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", c.opts.tasksTable))
	if err != nil {
		return nil, fmt.Errorf("failed to query table info: %w", err)
	}

	defer rows.Close()

	columns := map[string]column{}

	for rows.Next() {
		var (
			cid      int
			name     string
			declType string
			notNull  bool
			dflt     any
			pk       int
		)

		if err := rows.Scan(&cid, &name, &declType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan table info row: %w", err)
		}

		columns[name] = column{declType: declType, notNull: notNull}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over table info rows: %w", err)
	}

	return columns, nil
}

func (c *Client) verifySchema(actual map[string]column) error {
	for name, want := range expectedColumns() {
		got, ok := actual[name]
		if !ok {
			return fmt.Errorf("column '%s.%s' not found in current database schema", c.opts.tasksTable, name)
		}

		if !strings.EqualFold(got.declType, want.declType) {
			return fmt.Errorf("data type mismatch for '%s.%s': expected %s, got %s", c.opts.tasksTable, name, want.declType, got.declType)
		}

		if got.notNull != want.notNull {
			return fmt.Errorf("nullability mismatch for '%s.%s'", c.opts.tasksTable, name)
		}
	}

	return nil
}

//nolint:ireturn
func (c *Client) logger(ctx context.Context) task.Logger {
	return task.LoggerFromContext(ctx, c.opts.logger).WithField("table", c.opts.tasksTable)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	t := &task.Task{}

	if err := row.Scan(&t.ID, &t.Description, &t.Completed, &t.CreatedAt, &t.OwnerID); err != nil {
		return nil, err
	}

	return t, nil
}

func validateTask(t *task.Task) error {
	if t == nil {
		return errors.New("task cannot be nil")
	}

	if t.ID == "" {
		return errors.New("task ID cannot be empty")
	}

	return nil
}
