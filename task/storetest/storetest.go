// Package storetest contains behavioural tests shared by every [task.Store]
// implementation. Backends call these from their own test files with a
// connected, initialised store:
//
//	func TestFindTasksByOwner(t *testing.T) {
//	    storetest.TestFindTasksByOwner(t, client)
//	}
//
// Each test uses freshly generated IDs and owners, so the store may be shared
// between tests and need not be empty.
package storetest

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/slackmgr/todos/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTask(owner, description string) *task.Task {
	return &task.Task{
		ID:          uuid.NewString(),
		Description: description,
		CreatedAt:   time.Now().UnixMilli(),
		OwnerID:     owner,
	}
}

func ids(tasks []*task.Task) []string {
	out := make([]string, 0, len(tasks))

	for _, t := range tasks {
		out = append(out, t.ID)
	}

	slices.Sort(out)

	return out
}

// TestPutAndFindTask verifies that a stored task is read back unchanged.
func TestPutAndFindTask(t *testing.T, store task.Store) {
	t.Helper()

	ctx := context.Background()
	want := newTask(uuid.NewString(), "buy milk")
	want.Completed = true

	require.NoError(t, store.PutTask(ctx, want))

	got, err := store.FindTask(ctx, want.ID)

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, got)
}

// TestPutOverwrites verifies last-writer-wins semantics of PutTask.
func TestPutOverwrites(t *testing.T, store task.Store) {
	t.Helper()

	ctx := context.Background()
	first := newTask(uuid.NewString(), "first")

	require.NoError(t, store.PutTask(ctx, first))

	second := first.Clone()
	second.Description = "second"
	second.Completed = true

	require.NoError(t, store.PutTask(ctx, second))

	got, err := store.FindTask(ctx, first.ID)

	require.NoError(t, err)
	assert.Equal(t, second, got)
}

// TestUpdateTask verifies that UpdateTask overwrites the record and is
// idempotent.
func TestUpdateTask(t *testing.T, store task.Store) {
	t.Helper()

	ctx := context.Background()
	original := newTask(uuid.NewString(), "original")

	require.NoError(t, store.PutTask(ctx, original))

	updated := original.Clone()
	updated.Description = "updated"
	updated.Completed = true

	require.NoError(t, store.UpdateTask(ctx, updated))
	require.NoError(t, store.UpdateTask(ctx, updated))

	got, err := store.FindTask(ctx, original.ID)

	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

// TestFindMissingTask verifies that a missing task yields (nil, nil).
func TestFindMissingTask(t *testing.T, store task.Store) {
	t.Helper()

	got, err := store.FindTask(context.Background(), uuid.NewString())

	require.NoError(t, err)
	assert.Nil(t, got)
}

// TestDeleteTask verifies that delete removes the task and is idempotent.
func TestDeleteTask(t *testing.T, store task.Store) {
	t.Helper()

	ctx := context.Background()
	victim := newTask(uuid.NewString(), "delete me")

	require.NoError(t, store.PutTask(ctx, victim))
	require.NoError(t, store.DeleteTask(ctx, victim.ID))
	require.NoError(t, store.DeleteTask(ctx, victim.ID))

	got, err := store.FindTask(ctx, victim.ID)

	require.NoError(t, err)
	assert.Nil(t, got)

	owned, err := store.FindTasksByOwner(ctx, victim.OwnerID)

	require.NoError(t, err)
	assert.Empty(t, owned)
}

// TestFindTasksByOwner verifies that the owner query returns exactly the
// owner's tasks. Secondary indexes may be eventually consistent, so the
// check is retried for a short while.
func TestFindTasksByOwner(t *testing.T, store task.Store) {
	t.Helper()

	ctx := context.Background()
	ownerA := uuid.NewString()
	ownerB := uuid.NewString()

	a1 := newTask(ownerA, "a1")
	a2 := newTask(ownerA, "a2")
	b1 := newTask(ownerB, "b1")
	public := newTask("", "public")

	for _, tk := range []*task.Task{a1, a2, b1, public} {
		require.NoError(t, store.PutTask(ctx, tk))
	}

	want := ids([]*task.Task{a1, a2})

	require.EventuallyWithT(t, func(c *assert.CollectT) {
		got, err := store.FindTasksByOwner(ctx, ownerA)
		if !assert.NoError(c, err) {
			return
		}

		assert.Equal(c, want, ids(got))

		for _, tk := range got {
			assert.Equal(c, ownerA, tk.OwnerID)
		}
	}, 10*time.Second, 100*time.Millisecond)

	got, err := store.FindTasksByOwner(ctx, uuid.NewString())

	require.NoError(t, err)
	assert.Empty(t, got)
}

// TestScanTasks verifies that a full scan includes owned and ownerless tasks.
func TestScanTasks(t *testing.T, store task.Store) {
	t.Helper()

	ctx := context.Background()
	owned := newTask(uuid.NewString(), "owned")
	public := newTask("", "public")

	require.NoError(t, store.PutTask(ctx, owned))
	require.NoError(t, store.PutTask(ctx, public))

	all, err := store.ScanTasks(ctx)

	require.NoError(t, err)

	found := ids(all)
	assert.Contains(t, found, owned.ID)
	assert.Contains(t, found, public.ID)
}

// TestScanPublicTasks verifies that only ownerless tasks are returned by the
// public scan, and that ownerless tasks never appear in an owner query.
func TestScanPublicTasks(t *testing.T, store task.Store) {
	t.Helper()

	ctx := context.Background()
	owned := newTask(uuid.NewString(), "owned")
	public := newTask("", "public")

	require.NoError(t, store.PutTask(ctx, owned))
	require.NoError(t, store.PutTask(ctx, public))

	tasks, err := store.ScanPublicTasks(ctx)

	require.NoError(t, err)

	found := ids(tasks)
	assert.Contains(t, found, public.ID)
	assert.NotContains(t, found, owned.ID)

	for _, tk := range tasks {
		assert.Empty(t, tk.OwnerID)
	}

	got, err := store.FindTask(ctx, public.ID)

	require.NoError(t, err)
	assert.Equal(t, public, got)
}

// TestValidation verifies that obviously invalid input is rejected before any
// store access.
func TestValidation(t *testing.T, store task.Store) {
	t.Helper()

	ctx := context.Background()

	require.Error(t, store.PutTask(ctx, nil))
	require.Error(t, store.PutTask(ctx, &task.Task{Description: "no id"}))
	require.Error(t, store.UpdateTask(ctx, nil))
	require.Error(t, store.DeleteTask(ctx, ""))

	_, err := store.FindTask(ctx, "")
	require.Error(t, err)

	_, err = store.FindTasksByOwner(ctx, "")
	require.Error(t, err)
}

// RunAll runs every test in this package as a subtest of t.
func RunAll(t *testing.T, store task.Store) {
	t.Helper()

	tests := map[string]func(*testing.T, task.Store){
		"PutAndFindTask":   TestPutAndFindTask,
		"PutOverwrites":    TestPutOverwrites,
		"UpdateTask":       TestUpdateTask,
		"FindMissingTask":  TestFindMissingTask,
		"DeleteTask":       TestDeleteTask,
		"FindTasksByOwner": TestFindTasksByOwner,
		"ScanTasks":        TestScanTasks,
		"ScanPublicTasks":  TestScanPublicTasks,
		"Validation":       TestValidation,
	}

	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			fn(t, store)
		})
	}
}
