// Package dynamodb provides a DynamoDB-backed implementation of the
// [github.com/slackmgr/todos/task.Store] interface.
//
// # Overview
//
// The package uses a single-table DynamoDB design. Every task is one item
// keyed by its ID (partition key, "id", no sort key):
//
//   - id:        task ID (string)
//   - task:      description (string)
//   - completed: completion flag (boolean)
//   - createdAt: creation time in Unix milliseconds (number)
//   - userId:    owner, absent for ownerless tasks (string)
//
// A Global Secondary Index, [GSIOwner], is keyed by userId and projects all
// attributes. It serves per-owner queries. Ownerless tasks have no userId
// attribute and are never present in the index; they are only reachable by
// ID or by a full table scan.
//
// # Getting Started
//
// Create a [Client] with [New], supplying an AWS config, the DynamoDB table
// name, and any [Option] values you need:
//
//	client := dynamodb.New(
//	    &awsCfg,
//	    tableName,
//	    dynamodb.WithAPIMaxRetryAttempts(5),
//	)
//
//	if err := client.Connect(); err != nil {
//	    return err
//	}
//
//	if err := client.Init(ctx, false); err != nil {
//	    return err
//	}
//
// By default, [Client.Connect] creates an AWS SDK v2 DynamoDB client from the
// supplied [aws.Config]. Supply [WithAPI] to inject a custom or mock
// implementation.
//
// # Consistency
//
// Single-item reads are strongly consistent by default. Owner queries go
// through the index and are eventually consistent, so a task written a
// moment ago may be missing from [Client.FindTasksByOwner].
//
// # Concurrency
//
// [Client] is safe for concurrent use by multiple goroutines once
// [Client.Connect] has returned.
package dynamodb
