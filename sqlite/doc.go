// Package sqlite provides a SQLite-backed implementation of the task.Store
// interface from github.com/slackmgr/todos/task, for local development and
// tests.
//
// The layout mirrors the postgres package: one tasks table keyed by id, with
// a partial index on user_id. Ownerless tasks store NULL and never match an
// owner query. The connection pool is limited to a single connection, which
// also keeps an in-memory database (the default, ":memory:") alive for the
// lifetime of the [Client].
package sqlite
