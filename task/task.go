package task

// Task is a single entry in a user's task list. The JSON field names match
// the persisted attribute names.
type Task struct {
	ID          string `json:"id"`
	Description string `json:"task"`
	Completed   bool   `json:"completed"`
	CreatedAt   int64  `json:"createdAt"`
	OwnerID     string `json:"userId,omitempty"`
}

// IsPublic reports whether the task has no owner.
func (t *Task) IsPublic() bool {
	return t.OwnerID == ""
}

// Clone returns a copy of t. It returns nil if t is nil.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}

	c := *t

	return &c
}
