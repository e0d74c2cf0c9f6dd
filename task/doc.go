// Package task defines the task record, the [Store] contract implemented by
// the storage backends in this module, and the [Service] that scopes every
// read and write to the calling identity.
//
// # Ownership
//
// Every task created through [Service.Create] carries the caller's identity in
// [Task.OwnerID]. [Service.Update], [Service.Get] and [Service.Delete] load the
// stored record first and refuse to act on a record owned by someone else, so
// a caller cannot overwrite or remove another owner's task by guessing its ID.
//
// Tasks with an empty owner form a public partition that can be listed
// anonymously with [Service.ListPublic].
//
// # Logging
//
// Request-scoped loggers travel in the [context.Context]. Use
// [ContextWithLogger] at the request boundary and [LoggerFromContext]
// everywhere else.
package task
