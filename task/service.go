package task

import (
	"context"
	"errors"
	"fmt"
)

// Service scopes task operations to a caller identity. It is the only
// component that stamps IDs, timestamps and owners onto tasks.
//
// The caller ID passed to every method must come from a verified identity at
// the request boundary, never from the request body.
//
// Service holds no mutable state and is safe for concurrent use.
type Service struct {
	store Store
	opts  *Options
}

// NewService creates a Service backed by store.
func NewService(store Store, opts ...Option) *Service {
	options := newOptions()

	for _, o := range opts {
		o(options)
	}

	return &Service{
		store: store,
		opts:  options,
	}
}

// ListForCaller returns the tasks owned by callerID. Result order is
// unspecified.
func (s *Service) ListForCaller(ctx context.Context, callerID string) ([]*Task, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}

	logger := s.logger(ctx).WithField("owner_id", callerID)
	logger.Debug("Listing tasks for caller")

	tasks, err := s.store.FindTasksByOwner(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks for owner %s: %w", callerID, err)
	}

	// The owner index is authoritative, but a record that slipped through
	// with another owner must never reach the caller.
	owned := make([]*Task, 0, len(tasks))

	for _, t := range tasks {
		if t != nil && t.OwnerID == callerID {
			owned = append(owned, t)
		}
	}

	if dropped := len(tasks) - len(owned); dropped > 0 {
		logger.Errorf("Owner index returned %d tasks with a different owner", dropped)
	}

	return owned, nil
}

// ListPublic returns the tasks that have no owner. It requires no identity.
func (s *Service) ListPublic(ctx context.Context) ([]*Task, error) {
	s.logger(ctx).Debug("Listing public tasks")

	tasks, err := s.store.ScanPublicTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list public tasks: %w", err)
	}

	return tasks, nil
}

// Get returns the task with the given ID. It returns [ErrNotFound] if the
// task does not exist and [ErrForbidden] if it belongs to someone else.
func (s *Service) Get(ctx context.Context, callerID, id string) (*Task, error) {
	return s.loadOwned(ctx, callerID, id)
}

// Create stores a new task for callerID. The ID, completion flag, creation
// time and owner are assigned here; any values the draft carries for them are
// ignored. The draft itself is not modified.
func (s *Service) Create(ctx context.Context, callerID string, draft *Task) (*Task, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}

	if draft == nil {
		return nil, fmt.Errorf("%w: task cannot be nil", ErrInvalidTask)
	}

	description, err := ValidateDescription(draft.Description)
	if err != nil {
		return nil, err
	}

	t := &Task{
		ID:          s.opts.idGenerator(),
		Description: description,
		Completed:   false,
		CreatedAt:   s.opts.clock().UnixMilli(),
		OwnerID:     callerID,
	}

	logger := s.logger(ctx).WithField("owner_id", callerID).WithField("task_id", t.ID)

	if err := s.store.PutTask(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create task %s for owner %s: %w", t.ID, callerID, err)
	}

	logger.Info("Task created")

	return t, nil
}

// Update replaces the description and completion flag of an existing task
// owned by callerID. The ID, owner and creation time of the stored task are
// preserved.
//
// Update loads the stored task before writing. It returns [ErrNotFound] if the
// task does not exist and [ErrForbidden] if it belongs to someone else. The
// load and the write are separate round trips; two concurrent updates to the
// same task resolve as last-writer-wins.
func (s *Service) Update(ctx context.Context, callerID, id string, draft *Task) (*Task, error) {
	if draft == nil {
		return nil, fmt.Errorf("%w: task cannot be nil", ErrInvalidTask)
	}

	description, err := ValidateDescription(draft.Description)
	if err != nil {
		return nil, err
	}

	existing, err := s.loadOwned(ctx, callerID, id)
	if err != nil {
		return nil, err
	}

	t := &Task{
		ID:          existing.ID,
		Description: description,
		Completed:   draft.Completed,
		CreatedAt:   existing.CreatedAt,
		OwnerID:     callerID,
	}

	if err := s.store.UpdateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update task %s for owner %s: %w", id, callerID, err)
	}

	s.logger(ctx).WithField("owner_id", callerID).WithField("task_id", id).Info("Task updated")

	return t, nil
}

// Delete removes a task owned by callerID. Deleting a task that does not
// exist succeeds. It returns [ErrForbidden] if the task belongs to someone
// else.
func (s *Service) Delete(ctx context.Context, callerID, id string) error {
	_, err := s.loadOwned(ctx, callerID, id)
	if errors.Is(err, ErrNotFound) {
		s.logger(ctx).WithField("owner_id", callerID).WithField("task_id", id).Debug("Task already deleted")
		return nil
	}

	if err != nil {
		return err
	}

	if err := s.store.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("failed to delete task %s for owner %s: %w", id, callerID, err)
	}

	s.logger(ctx).WithField("owner_id", callerID).WithField("task_id", id).Info("Task deleted")

	return nil
}

func (s *Service) loadOwned(ctx context.Context, callerID, id string) (*Task, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}

	if id == "" {
		return nil, fmt.Errorf("%w: task ID cannot be empty", ErrInvalidTask)
	}

	t, err := s.store.FindTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load task %s for owner %s: %w", id, callerID, err)
	}

	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if t.OwnerID != callerID {
		s.logger(ctx).
			WithField("owner_id", callerID).
			WithField("task_id", id).
			Info("Rejected access to a task owned by another caller")

		return nil, fmt.Errorf("%w: %s", ErrForbidden, id)
	}

	return t, nil
}

//nolint:ireturn
func (s *Service) logger(ctx context.Context) Logger {
	return LoggerFromContext(ctx, s.opts.logger)
}
