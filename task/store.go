package task

import "context"

// Store is the persistence contract for tasks. All implementations in this
// module use a single logical table keyed by task ID with a secondary index
// on the owner.
//
// Writes are last-writer-wins and carry no concurrency token. Store errors are
// returned as-is to the caller; a missing record is never reported as an
// error, except where documented.
type Store interface {
	// PutTask inserts the task, or fully overwrites the record with the same ID.
	PutTask(ctx context.Context, t *Task) error

	// UpdateTask writes the task with the same semantics as PutTask.
	UpdateTask(ctx context.Context, t *Task) error

	// DeleteTask removes the task with the given ID. It is a no-op if the task
	// does not exist.
	DeleteTask(ctx context.Context, id string) error

	// FindTask returns the task with the given ID, or (nil, nil) if it does
	// not exist.
	FindTask(ctx context.Context, id string) (*Task, error)

	// FindTasksByOwner returns all tasks owned by ownerID using the owner
	// index. Result order is unspecified.
	FindTasksByOwner(ctx context.Context, ownerID string) ([]*Task, error)

	// ScanTasks returns every task in the table. It reads the whole table and
	// is meant for maintenance tooling only.
	ScanTasks(ctx context.Context) ([]*Task, error)

	// ScanPublicTasks returns the tasks without an owner. There is no index on
	// the absence of an owner, so this is a full scan.
	ScanPublicTasks(ctx context.Context) ([]*Task, error)
}
