//nolint:nilnil
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/slackmgr/todos/task"
)

const (
	// GSIOwner is the default name of the Global Secondary Index used to query
	// tasks by owner. Partition key: userId, projection: ALL.
	//
	// Tasks without an owner have no userId attribute and are therefore not
	// present in the index.
	GSIOwner = "userId-index"

	// IDAttr is the DynamoDB partition key attribute name.
	IDAttr = "id"

	// TaskAttr is the attribute name used to store the task description.
	TaskAttr = "task"

	// CompletedAttr is the attribute name used to store the completion flag.
	CompletedAttr = "completed"

	// CreatedAtAttr is the attribute name used to store the creation time, in
	// milliseconds since the Unix epoch.
	CreatedAtAttr = "createdAt"

	// OwnerAttr is the attribute name used to store the owner. It also serves
	// as the partition key of the owner index.
	OwnerAttr = "userId"

	// maxBackoff is the maximum backoff duration for retry loops.
	maxBackoff = 2 * time.Second
)

var errNotConnected = errors.New("client is not connected")

// Client is a DynamoDB-backed implementation of the [task.Store] interface.
// Tasks live in a single table keyed by task ID, with a Global Secondary Index
// on the owner for per-user queries.
//
// Use [New] to create a Client, [Client.Connect] to initialize the underlying
// DynamoDB connection, and [Client.Init] to validate the table schema.
type Client struct {
	client    API
	tableName string
	awsCfg    *aws.Config
	opts      *Options
}

var _ task.Store = (*Client)(nil)

// New creates a new Client configured with the given AWS config, table name,
// and optional options. Call [Client.Connect] on the returned client before use.
func New(awsCfg *aws.Config, tableName string, opts ...Option) *Client {
	options := newOptions()

	for _, o := range opts {
		o(options)
	}

	return &Client{
		awsCfg:    awsCfg,
		tableName: tableName,
		opts:      options,
	}
}

// Connect initializes the DynamoDB client from the AWS config provided to [New].
// It must be called before any other Client methods, and must complete before
// the Client is used concurrently.
func (c *Client) Connect() error {
	if c.tableName == "" {
		return errors.New("table name cannot be empty")
	}

	if err := c.opts.validate(); err != nil {
		return fmt.Errorf("invalid DynamoDB options: %w", err)
	}

	// Use injected DynamoDB API if provided (useful for testing).
	if c.opts.dynamoDBAPI != nil {
		c.client = c.opts.dynamoDBAPI
		return nil
	}

	if c.awsCfg == nil {
		return errors.New("AWS config cannot be nil")
	}

	c.client = dynamodb.NewFromConfig(*c.awsCfg, func(o *dynamodb.Options) {
		o.Retryer = retry.AddWithMaxBackoffDelay(o.Retryer, c.opts.apiMaxRetryBackoffDelay)
		o.Retryer = retry.AddWithMaxAttempts(o.Retryer, c.opts.apiMaxRetryAttempts)
	})

	return nil
}

// TableName returns the DynamoDB table name supplied to [New].
func (c *Client) TableName() string {
	return c.tableName
}

// Init validates the DynamoDB table schema. It checks that the table exists,
// is active, has the partition key id and no sort key, and that the owner
// index is present, active, keyed by userId and projects all attributes.
//
// Pass skipSchemaValidation true to skip all checks and return immediately,
// which is useful when schema validation is managed separately.
func (c *Client) Init(ctx context.Context, skipSchemaValidation bool) error {
	if c.client == nil {
		return errNotConnected
	}

	if skipSchemaValidation {
		return nil
	}

	input := &dynamodb.DescribeTableInput{
		TableName: aws.String(c.tableName),
	}

	response, err := c.client.DescribeTable(ctx, input)
	if err != nil {
		var notFoundError *dynamodbtypes.ResourceNotFoundException
		if errors.As(err, &notFoundError) {
			return fmt.Errorf("table %s does not exist", c.tableName)
		}
		return fmt.Errorf("failed to describe table %s: %w", c.tableName, err)
	}

	if response.Table == nil {
		return fmt.Errorf("table %s has no description", c.tableName)
	}

	if len(response.Table.KeySchema) < 1 {
		return fmt.Errorf("table %s has no key schema", c.tableName)
	}

	if aws.ToString(response.Table.KeySchema[0].AttributeName) != IDAttr {
		return fmt.Errorf("table %s has partition key %s, expected %s", c.tableName, aws.ToString(response.Table.KeySchema[0].AttributeName), IDAttr)
	}

	if len(response.Table.KeySchema) > 1 {
		return fmt.Errorf("table %s has a composite primary key, expected a simple primary key", c.tableName)
	}

	if response.Table.TableStatus != dynamodbtypes.TableStatusActive {
		return fmt.Errorf("table %s is not active (status: %s)", c.tableName, response.Table.TableStatus)
	}

	return verifyOwnerIndex(response.Table, c.opts.ownerIndexName)
}

// DropAllData deletes every item from the DynamoDB table. It scans the table
// in pages and removes each page using BatchWriteItem with exponential backoff
// for unprocessed items.
//
// This method is intended for use in tests only. Do not call it in production.
func (c *Client) DropAllData(ctx context.Context) error {
	if c.client == nil {
		return errNotConnected
	}

	input := &dynamodb.ScanInput{
		TableName:            aws.String(c.tableName),
		ProjectionExpression: aws.String(IDAttr),
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		output, err := c.client.Scan(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to scan DynamoDB table %s: %w", c.tableName, err)
		}

		// Process items in batches of 25 (DynamoDB BatchWriteItem limit).
		for i := 0; i < len(output.Items); i += 25 {
			end := min(i+25, len(output.Items))
			batch := output.Items[i:end]

			requestItems := make([]dynamodbtypes.WriteRequest, 0, len(batch))

			for _, item := range batch {
				requestItems = append(requestItems, dynamodbtypes.WriteRequest{
					DeleteRequest: &dynamodbtypes.DeleteRequest{
						Key: map[string]dynamodbtypes.AttributeValue{
							IDAttr: item[IDAttr],
						},
					},
				})
			}

			if err := c.batchWrite(ctx, requestItems); err != nil {
				return err
			}
		}

		if output.LastEvaluatedKey == nil {
			break
		}

		input.ExclusiveStartKey = output.LastEvaluatedKey
	}

	return nil
}

// PutTask writes the task to DynamoDB, replacing any existing item with the
// same ID.
func (c *Client) PutTask(ctx context.Context, t *task.Task) error {
	if c.client == nil {
		return errNotConnected
	}

	if err := validateTask(t); err != nil {
		return err
	}

	input := &dynamodb.PutItemInput{
		TableName: &c.tableName,
		Item:      taskToItem(t),
	}

	if _, err := c.client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to write task to DynamoDB table %s: %w", c.tableName, err)
	}

	c.logger(ctx).WithField("task_id", t.ID).WithField("owner_id", t.OwnerID).Debug("Task written to DynamoDB")

	return nil
}

// UpdateTask sets every attribute of the task with UpdateItem. The item is
// created if it does not exist, which makes the call equivalent to
// [Client.PutTask]. The owner attribute is removed for ownerless tasks.
func (c *Client) UpdateTask(ctx context.Context, t *task.Task) error {
	if c.client == nil {
		return errNotConnected
	}

	if err := validateTask(t); err != nil {
		return err
	}

	item := taskToItem(t)

	names := map[string]string{
		"#task":      TaskAttr,
		"#completed": CompletedAttr,
		"#createdAt": CreatedAtAttr,
		"#userId":    OwnerAttr,
	}

	values := map[string]dynamodbtypes.AttributeValue{
		":task":      item[TaskAttr],
		":completed": item[CompletedAttr],
		":createdAt": item[CreatedAtAttr],
	}

	expression := "SET #task = :task, #completed = :completed, #createdAt = :createdAt"

	if t.OwnerID != "" {
		expression += ", #userId = :userId"
		values[":userId"] = item[OwnerAttr]
	} else {
		expression += " REMOVE #userId"
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                 &c.tableName,
		Key:                       idKey(t.ID),
		UpdateExpression:          aws.String(expression),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}

	if _, err := c.client.UpdateItem(ctx, input); err != nil {
		return fmt.Errorf("failed to update task in DynamoDB table %s: %w", c.tableName, err)
	}

	c.logger(ctx).WithField("task_id", t.ID).WithField("owner_id", t.OwnerID).Debug("Task updated in DynamoDB")

	return nil
}

// DeleteTask removes the task from DynamoDB. It is a no-op if the task does
// not exist.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	if c.client == nil {
		return errNotConnected
	}

	if id == "" {
		return errors.New("task ID cannot be empty")
	}

	input := &dynamodb.DeleteItemInput{
		TableName: &c.tableName,
		Key:       idKey(id),
	}

	if _, err := c.client.DeleteItem(ctx, input); err != nil {
		return fmt.Errorf("failed to delete task from DynamoDB table %s: %w", c.tableName, err)
	}

	c.logger(ctx).WithField("task_id", id).Debug("Task deleted from DynamoDB")

	return nil
}

// FindTask retrieves a task by ID. Returns (nil, nil) if the task does not
// exist. Reads are strongly consistent unless disabled with
// [WithConsistentRead].
func (c *Client) FindTask(ctx context.Context, id string) (*task.Task, error) {
	if c.client == nil {
		return nil, errNotConnected
	}

	if id == "" {
		return nil, errors.New("task ID cannot be empty")
	}

	input := &dynamodb.GetItemInput{
		TableName:      &c.tableName,
		Key:            idKey(id),
		ConsistentRead: aws.Bool(c.opts.consistentRead),
	}

	output, err := c.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get task from DynamoDB table %s: %w", c.tableName, err)
	}

	// No task found
	if len(output.Item) == 0 {
		return nil, nil
	}

	t, err := itemToTask(output.Item)
	if err != nil {
		return nil, fmt.Errorf("failed to read task %s from DynamoDB table %s: %w", id, c.tableName, err)
	}

	return t, nil
}

// FindTasksByOwner returns all tasks owned by ownerID, queried from the owner
// index. Returns an empty slice if the owner has no tasks.
//
// Note: the GSI uses eventually consistent reads, so recent writes may not be
// immediately visible.
func (c *Client) FindTasksByOwner(ctx context.Context, ownerID string) ([]*task.Task, error) {
	if c.client == nil {
		return nil, errNotConnected
	}

	if ownerID == "" {
		return nil, errors.New("owner ID cannot be empty")
	}

	queryInput := &dynamodb.QueryInput{
		TableName: &c.tableName,
		IndexName: aws.String(c.opts.ownerIndexName),
		ExpressionAttributeNames: map[string]string{
			"#userId": OwnerAttr,
		},
		ExpressionAttributeValues: map[string]dynamodbtypes.AttributeValue{
			":userId": &dynamodbtypes.AttributeValueMemberS{Value: ownerID},
		},
		KeyConditionExpression: aws.String("#userId = :userId"),
	}

	tasks := []*task.Task{}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		output, err := c.client.Query(ctx, queryInput)
		if err != nil {
			return nil, fmt.Errorf("failed to query DynamoDB table %s: %w", c.tableName, err)
		}

		if tasks, err = itemsToTasks(output.Items, tasks); err != nil {
			return nil, fmt.Errorf("failed to read tasks from DynamoDB table %s: %w", c.tableName, err)
		}

		if output.LastEvaluatedKey == nil {
			break
		}

		queryInput.ExclusiveStartKey = output.LastEvaluatedKey
	}

	c.logger(ctx).WithField("owner_id", ownerID).Debugf("Found %d tasks in owner index", len(tasks))

	return tasks, nil
}

// ScanTasks returns every task in the table. The cost is linear in the size of
// the table; use it for maintenance only.
func (c *Client) ScanTasks(ctx context.Context) ([]*task.Task, error) {
	return c.scan(ctx, func(*task.Task) bool { return true })
}

// ScanPublicTasks returns every task without an owner. There is no index on
// the absence of an owner, so this scans the whole table and filters on the
// client.
func (c *Client) ScanPublicTasks(ctx context.Context) ([]*task.Task, error) {
	return c.scan(ctx, (*task.Task).IsPublic)
}

func (c *Client) scan(ctx context.Context, keep func(*task.Task) bool) ([]*task.Task, error) {
	if c.client == nil {
		return nil, errNotConnected
	}

	input := &dynamodb.ScanInput{
		TableName: aws.String(c.tableName),
	}

	tasks := []*task.Task{}
	scanned := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		output, err := c.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan DynamoDB table %s: %w", c.tableName, err)
		}

		for _, item := range output.Items {
			t, err := itemToTask(item)
			if err != nil {
				return nil, fmt.Errorf("failed to read tasks from DynamoDB table %s: %w", c.tableName, err)
			}

			scanned++

			if keep(t) {
				tasks = append(tasks, t)
			}
		}

		if output.LastEvaluatedKey == nil {
			break
		}

		input.ExclusiveStartKey = output.LastEvaluatedKey
	}

	c.logger(ctx).Debugf("Scanned %d items in DynamoDB table %s, kept %d", scanned, c.tableName, len(tasks))

	return tasks, nil
}

func (c *Client) batchWrite(ctx context.Context, requestItems []dynamodbtypes.WriteRequest) error {
	batchInput := &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]dynamodbtypes.WriteRequest{
			c.tableName: requestItems,
		},
	}

	// Retry with exponential backoff for unprocessed items.
	const maxRetries = 5
	backoff := 50 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		batchResult, err := c.client.BatchWriteItem(ctx, batchInput)
		if err != nil {
			return fmt.Errorf("failed to batch delete items from DynamoDB table %s: %w", c.tableName, err)
		}

		if len(batchResult.UnprocessedItems) == 0 {
			return nil
		}

		if attempt == maxRetries {
			return fmt.Errorf("%d unprocessed items after %d retries in DropAllData",
				len(batchResult.UnprocessedItems[c.tableName]), maxRetries)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, maxBackoff)
		batchInput.RequestItems = batchResult.UnprocessedItems
	}

	return nil
}

//nolint:ireturn
func (c *Client) logger(ctx context.Context) Logger {
	return task.LoggerFromContext(ctx, c.opts.logger).WithField("table", c.tableName)
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

func verifyOwnerIndex(table *dynamodbtypes.TableDescription, indexName string) error {
	for _, index := range table.GlobalSecondaryIndexes {
		if aws.ToString(index.IndexName) != indexName {
			continue
		}

		if len(index.KeySchema) < 1 {
			return fmt.Errorf("global secondary index %s has no key schema", indexName)
		}

		if aws.ToString(index.KeySchema[0].AttributeName) != OwnerAttr {
			return fmt.Errorf("global secondary index %s has partition key %s, expected %s", indexName, aws.ToString(index.KeySchema[0].AttributeName), OwnerAttr)
		}

		if index.IndexStatus != dynamodbtypes.IndexStatusActive {
			return fmt.Errorf("global secondary index %s is not active (status: %s)", indexName, index.IndexStatus)
		}

		if index.Projection == nil || index.Projection.ProjectionType != dynamodbtypes.ProjectionTypeAll {
			return fmt.Errorf("global secondary index %s must project all attributes", indexName)
		}

		return nil
	}

	return fmt.Errorf("global secondary index %s not found", indexName)
}
