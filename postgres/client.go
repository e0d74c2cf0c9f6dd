//nolint:nilnil
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/slackmgr/todos/task"
)

var errNotConnected = errors.New("client is not connected")

// undefinedColumn is the SQLSTATE for a reference to a missing column.
const undefinedColumn = "42703"

// pool defines the interface for database operations.
// This interface is satisfied by *pgxpool.Pool and can be mocked for testing.
type pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
	Ping(ctx context.Context) error
}

// Client is a PostgreSQL-backed implementation of the [task.Store] interface.
type Client struct {
	conn pool
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

func (c *Client) Connect(ctx context.Context) error {
	// Close existing connection if any to prevent leaks
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	if err := c.opts.validate(); err != nil {
		return fmt.Errorf("invalid Postgres db configuration: %w", err)
	}

	config, err := pgxpool.ParseConfig(c.opts.connectionString())
	if err != nil {
		return fmt.Errorf("failed to parse Postgres db connection string: %w", err)
	}

	if c.opts.poolMaxConnections != nil {
		config.MaxConns = *c.opts.poolMaxConnections
	}

	if c.opts.poolMinConnections != nil {
		config.MinConns = *c.opts.poolMinConnections
	}

	if c.opts.poolMaxConnectionLifetime != nil {
		config.MaxConnLifetime = *c.opts.poolMaxConnectionLifetime
	}

	if c.opts.poolMaxConnectionIdleTime != nil {
		config.MaxConnIdleTime = *c.opts.poolMaxConnectionIdleTime
	}

	if c.opts.poolHealthCheckPeriod != nil {
		config.HealthCheckPeriod = *c.opts.poolHealthCheckPeriod
	}

	conn, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create new Postgres connection pool: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return fmt.Errorf("failed to ping Postgres db: %w", err)
	}

	c.conn = conn

	return nil
}

func (c *Client) Close(_ context.Context) error {
	if c.conn == nil {
		return nil
	}

	c.conn.Close()

	c.conn = nil

	return nil
}

// Init creates the tasks table if it does not exist, verifies its column
// layout against information_schema unless skipSchemaValidation is true, and
// then creates the owner index.
//
// When validation is skipped on a table that predates the owner column, the
// index is not created and Init still succeeds.
func (c *Client) Init(ctx context.Context, skipSchemaValidation bool) error {
	if c.conn == nil {
		return errNotConnected
	}

	if _, err := c.conn.Exec(ctx, c.opts.createTableStatement()); err != nil {
		return fmt.Errorf("failed to create Postgres table %s: %w", c.opts.tasksTable, err)
	}

	if !skipSchemaValidation {
		if err := c.verifySchema(ctx); err != nil {
			return err
		}
	}

	if _, err := c.conn.Exec(ctx, c.opts.createIndexStatement()); err != nil {
		var pgErr *pgconn.PgError
		if skipSchemaValidation && errors.As(err, &pgErr) && pgErr.Code == undefinedColumn {
			c.logger(ctx).Info("Owner column missing, owner index not created")
			return nil
		}

		return fmt.Errorf("failed to create owner index on Postgres table %s: %w", c.opts.tasksTable, err)
	}

	return nil
}

func (c *Client) verifySchema(ctx context.Context) error {
	query := "SELECT table_name, column_name, data_type, is_nullable FROM information_schema.columns WHERE table_schema = 'public' AND table_name = $1 ORDER BY ordinal_position"

	rows, err := c.conn.Query(ctx, query, c.opts.tasksTable)
	if err != nil {
		return fmt.Errorf("failed to query information schema: %w", err)
	}

	defer rows.Close()

	infoRows := map[string]*dbRow{}

	for rows.Next() {
		var table, column string
		infoRow := &dbRow{}

		if err := rows.Scan(&table, &column, &infoRow.DataType, &infoRow.IsNullable); err != nil {
			return fmt.Errorf("failed to scan row from information schema: %w", err)
		}

		infoRows[table+"."+column] = infoRow
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating over rows from information schema: %w", err)
	}

	if err := c.opts.verifyCurrentDatabaseVersion(infoRows); err != nil {
		return fmt.Errorf("failed to verify current database version: %w", err)
	}

	return nil
}

// DropAllData drops the tasks table. Intended for tests only.
func (c *Client) DropAllData(ctx context.Context) error {
	if c.conn == nil {
		return errNotConnected
	}

	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin drop tables transaction: %w", err)
	}

	defer func() { _ = tx.Rollback(ctx) }() // No-op if committed

	for _, sql := range c.opts.dropStatements() {
		if _, err := tx.Exec(ctx, sql); err != nil {
			return fmt.Errorf("failed to execute drop statement: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit drop tables transaction: %w", err)
	}

	return nil
}

func (c *Client) PutTask(ctx context.Context, t *task.Task) error {
	if c.conn == nil {
		return errNotConnected
	}

	if err := validateTask(t); err != nil {
		return err
	}

	sql, args := c.upsertSQL(t)

	if _, err := c.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to save task to Postgres table %s: %w", c.opts.tasksTable, err)
	}

	c.logger(ctx).WithField("task_id", t.ID).WithField("owner_id", t.OwnerID).Debug("Task written to Postgres")

	return nil
}

// UpdateTask has the same semantics as [Client.PutTask]: the row is
// overwritten, or created if it does not exist.
func (c *Client) UpdateTask(ctx context.Context, t *task.Task) error {
	if c.conn == nil {
		return errNotConnected
	}

	if err := validateTask(t); err != nil {
		return err
	}

	sql, args := c.upsertSQL(t)

	if _, err := c.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to update task in Postgres table %s: %w", c.opts.tasksTable, err)
	}

	c.logger(ctx).WithField("task_id", t.ID).WithField("owner_id", t.OwnerID).Debug("Task updated in Postgres")

	return nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	if c.conn == nil {
		return errNotConnected
	}

	if id == "" {
		return errors.New("task ID cannot be empty")
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", c.opts.tasksTable)

	if _, err := c.conn.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete task from Postgres table %s: %w", c.opts.tasksTable, err)
	}

	c.logger(ctx).WithField("task_id", id).Debug("Task deleted from Postgres")

	return nil
}

func (c *Client) FindTask(ctx context.Context, id string) (*task.Task, error) {
	if c.conn == nil {
		return nil, errNotConnected
	}

	if id == "" {
		return nil, errors.New("task ID cannot be empty")
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", selectColumns, c.opts.tasksTable)

	row := c.conn.QueryRow(ctx, query, id)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to find task in Postgres table %s: %w", c.opts.tasksTable, err)
	}

	return t, nil
}

func (c *Client) FindTasksByOwner(ctx context.Context, ownerID string) ([]*task.Task, error) {
	if c.conn == nil {
		return nil, errNotConnected
	}

	if ownerID == "" {
		return nil, errors.New("owner ID cannot be empty")
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE user_id = $1 ORDER BY created_at, id", selectColumns, c.opts.tasksTable)

	tasks, err := c.queryTasks(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find tasks by owner in Postgres table %s: %w", c.opts.tasksTable, err)
	}

	c.logger(ctx).WithField("owner_id", ownerID).Debugf("Found %d tasks by owner", len(tasks))

	return tasks, nil
}

func (c *Client) ScanTasks(ctx context.Context) ([]*task.Task, error) {
	if c.conn == nil {
		return nil, errNotConnected
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at, id", selectColumns, c.opts.tasksTable)

	tasks, err := c.queryTasks(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to scan Postgres table %s: %w", c.opts.tasksTable, err)
	}

	return tasks, nil
}

// ScanPublicTasks returns every task without an owner. The partial owner
// index does not cover NULL owners, so this is a sequential scan.
func (c *Client) ScanPublicTasks(ctx context.Context) ([]*task.Task, error) {
	if c.conn == nil {
		return nil, errNotConnected
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE user_id IS NULL ORDER BY created_at, id", selectColumns, c.opts.tasksTable)

	tasks, err := c.queryTasks(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to scan public tasks in Postgres table %s: %w", c.opts.tasksTable, err)
	}

	return tasks, nil
}

// selectColumns maps a NULL owner to the empty string, which is how an
// ownerless task is represented in memory.
const selectColumns = "id, description, completed, created_at, COALESCE(user_id, '')"

func (c *Client) queryTasks(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	rows, err := c.conn.Query(ctx, query, args...)
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

func (c *Client) upsertSQL(t *task.Task) (string, []any) {
	param1 := t.ID
	param2 := t.Description
	param3 := t.Completed
	param4 := t.CreatedAt
	param5 := ownerParam(t.OwnerID)

	statement := fmt.Sprintf("INSERT INTO %s (id, description, completed, created_at, user_id) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO UPDATE SET description = EXCLUDED.description, completed = EXCLUDED.completed, created_at = EXCLUDED.created_at, user_id = EXCLUDED.user_id", c.opts.tasksTable)
	args := []any{param1, param2, param3, param4, param5}

	return statement, args
}

//nolint:ireturn
func (c *Client) logger(ctx context.Context) task.Logger {
	return task.LoggerFromContext(ctx, c.opts.logger).WithField("table", c.opts.tasksTable)
}

// ownerParam stores an empty owner as NULL, keeping it out of the owner index.
func ownerParam(ownerID string) any {
	if ownerID == "" {
		return nil
	}

	return ownerID
}

func scanTask(row pgx.Row) (*task.Task, error) {
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
