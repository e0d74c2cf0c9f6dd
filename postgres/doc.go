// Package postgres provides a PostgreSQL-backed implementation of the
// task.Store interface from github.com/slackmgr/todos/task.
//
// It uses pgx v5 with connection pooling (pgxpool). Each task is one row in
// a single table with a partial B-tree index on the owner column.
//
// # Usage
//
// Create a client using [New] with functional options, call [Client.Connect]
// to establish the connection pool, and then [Client.Init] to create the
// database schema:
//
//	client := postgres.New(
//	    postgres.WithHost("localhost"),
//	    postgres.WithPort(5432),
//	    postgres.WithUser("postgres"),
//	    postgres.WithPassword("secret"),
//	    postgres.WithDatabase("todos"),
//	)
//
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close(ctx)
//
//	if err := client.Init(ctx, false); err != nil {
//	    log.Fatal(err)
//	}
//
// # Database Table
//
// [Client.Init] creates the tasks table (name configurable with
// [WithTasksTable]):
//
//	id text PRIMARY KEY, description text, completed boolean,
//	created_at bigint (Unix milliseconds), user_id text NULL
//
// Ownerless tasks store NULL in user_id. The owner index is partial
// (WHERE user_id IS NOT NULL), so such tasks never show up in an owner query.
//
// # Schema Validation
//
// When [Client.Init] is called with skipSchemaValidation set to false, it
// queries information_schema.columns and verifies that every expected column
// exists with the correct data type and nullability.
//
// # SSL
//
// SSL behaviour is controlled by [WithSSLMode] using the [SSLMode] constants.
// The default is [SSLModePrefer].
package postgres
