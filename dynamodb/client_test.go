package dynamodb

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/slackmgr/todos/task"
)

// mockAPI is a mock implementation of API for testing.
type mockAPI struct {
	putItemFunc        func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	updateItemFunc     func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	getItemFunc        func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	deleteItemFunc     func(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	queryFunc          func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	scanFunc           func(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	batchWriteItemFunc func(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	describeTableFunc  func(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

func (m *mockAPI) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.putItemFunc != nil {
		return m.putItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockAPI) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if m.updateItemFunc != nil {
		return m.updateItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (m *mockAPI) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.getItemFunc != nil {
		return m.getItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockAPI) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if m.deleteItemFunc != nil {
		return m.deleteItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

func (m *mockAPI) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, params, optFns...)
	}
	return &dynamodb.QueryOutput{}, nil
}

func (m *mockAPI) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if m.scanFunc != nil {
		return m.scanFunc(ctx, params, optFns...)
	}
	return &dynamodb.ScanOutput{}, nil
}

func (m *mockAPI) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if m.batchWriteItemFunc != nil {
		return m.batchWriteItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (m *mockAPI) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if m.describeTableFunc != nil {
		return m.describeTableFunc(ctx, params, optFns...)
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

func newTestClient(mock *mockAPI) *Client {
	cfg := aws.Config{}
	client := New(&cfg, "test-table", WithAPI(mock))
	_ = client.Connect()
	return client
}

func taskItem(id, description, owner string) map[string]dynamodbtypes.AttributeValue {
	return taskToItem(&task.Task{
		ID:          id,
		Description: description,
		CreatedAt:   1700000000000,
		OwnerID:     owner,
	})
}

func validTableOutput() *dynamodb.DescribeTableOutput {
	return &dynamodb.DescribeTableOutput{
		Table: &dynamodbtypes.TableDescription{
			TableStatus: dynamodbtypes.TableStatusActive,
			KeySchema: []dynamodbtypes.KeySchemaElement{
				{AttributeName: aws.String(IDAttr), KeyType: dynamodbtypes.KeyTypeHash},
			},
			GlobalSecondaryIndexes: []dynamodbtypes.GlobalSecondaryIndexDescription{
				{
					IndexName:   aws.String(GSIOwner),
					IndexStatus: dynamodbtypes.IndexStatusActive,
					KeySchema: []dynamodbtypes.KeySchemaElement{
						{AttributeName: aws.String(OwnerAttr), KeyType: dynamodbtypes.KeyTypeHash},
					},
					Projection: &dynamodbtypes.Projection{
						ProjectionType: dynamodbtypes.ProjectionTypeAll,
					},
				},
			},
		},
	}
}

// ==================== Connect Tests ====================

func TestConnect_Success(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{}
	cfg := aws.Config{}
	client := New(&cfg, "test-table", WithAPI(mock))

	err := client.Connect()
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if client.TableName() != "test-table" {
		t.Errorf("expected table name test-table, got %s", client.TableName())
	}
}

func TestConnect_EmptyTableName(t *testing.T) {
	t.Parallel()
	cfg := aws.Config{}
	client := New(&cfg, "", WithAPI(&mockAPI{}))

	err := client.Connect()

	if err == nil {
		t.Error("expected error for empty table name, got nil")
	}
}

func TestConnect_InvalidOptions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		opt  Option
	}{
		{"empty index name", WithOwnerIndexName("")},
		{"zero attempts", WithAPIMaxRetryAttempts(0)},
		{"too many attempts", WithAPIMaxRetryAttempts(11)},
		{"backoff too short", WithAPIMaxRetryBackoffDelay(time.Millisecond)},
		{"backoff too long", WithAPIMaxRetryBackoffDelay(time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := aws.Config{}
			client := New(&cfg, "test-table", WithAPI(&mockAPI{}), tt.opt)

			if err := client.Connect(); err == nil {
				t.Error("expected error for invalid options, got nil")
			}
		})
	}
}

func TestConnect_NilConfig(t *testing.T) {
	t.Parallel()
	client := New(nil, "test-table")

	err := client.Connect()

	if err == nil {
		t.Error("expected error for nil AWS config, got nil")
	}
}

func TestConnect_WithoutInjectedAPI(t *testing.T) {
	t.Parallel()
	cfg := aws.Config{Region: "us-east-1"}
	client := New(&cfg, "test-table")

	err := client.Connect()
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if client.client == nil {
		t.Error("expected client to be initialized")
	}
}

func TestMethods_NotConnected(t *testing.T) {
	t.Parallel()
	client := New(&aws.Config{}, "test-table")
	ctx := context.Background()

	if err := client.Init(ctx, true); !errors.Is(err, errNotConnected) {
		t.Errorf("Init: expected errNotConnected, got %v", err)
	}
	if err := client.PutTask(ctx, &task.Task{ID: "t1"}); !errors.Is(err, errNotConnected) {
		t.Errorf("PutTask: expected errNotConnected, got %v", err)
	}
	if _, err := client.FindTask(ctx, "t1"); !errors.Is(err, errNotConnected) {
		t.Errorf("FindTask: expected errNotConnected, got %v", err)
	}
	if _, err := client.ScanTasks(ctx); !errors.Is(err, errNotConnected) {
		t.Errorf("ScanTasks: expected errNotConnected, got %v", err)
	}
}

// ==================== PutTask Tests ====================

func TestPutTask_Success(t *testing.T) {
	t.Parallel()
	var capturedInput *dynamodb.PutItemInput
	mock := &mockAPI{
		putItemFunc: func(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			capturedInput = params
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	client := newTestClient(mock)

	err := client.PutTask(context.Background(), &task.Task{
		ID:          "t1",
		Description: "buy milk",
		Completed:   true,
		CreatedAt:   1700000000000,
		OwnerID:     "u1",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if aws.ToString(capturedInput.TableName) != "test-table" {
		t.Errorf("expected table test-table, got %s", aws.ToString(capturedInput.TableName))
	}
	if getStringValue(capturedInput.Item[IDAttr]) != "t1" {
		t.Errorf("expected id t1, got %s", getStringValue(capturedInput.Item[IDAttr]))
	}
	if getStringValue(capturedInput.Item[OwnerAttr]) != "u1" {
		t.Errorf("expected userId u1, got %s", getStringValue(capturedInput.Item[OwnerAttr]))
	}
	completed, ok := capturedInput.Item[CompletedAttr].(*dynamodbtypes.AttributeValueMemberBOOL)
	if !ok || !completed.Value {
		t.Errorf("expected completed to be a true BOOL attribute, got %#v", capturedInput.Item[CompletedAttr])
	}
	createdAt, ok := capturedInput.Item[CreatedAtAttr].(*dynamodbtypes.AttributeValueMemberN)
	if !ok || createdAt.Value != "1700000000000" {
		t.Errorf("expected createdAt N 1700000000000, got %#v", capturedInput.Item[CreatedAtAttr])
	}
}

func TestPutTask_OwnerlessOmitsUserID(t *testing.T) {
	t.Parallel()
	var capturedInput *dynamodb.PutItemInput
	mock := &mockAPI{
		putItemFunc: func(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			capturedInput = params
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	client := newTestClient(mock)

	err := client.PutTask(context.Background(), &task.Task{ID: "t1", Description: "public"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, exists := capturedInput.Item[OwnerAttr]; exists {
		t.Error("expected no userId attribute on an ownerless task")
	}
}

func TestPutTask_InvalidInput(t *testing.T) {
	t.Parallel()
	called := false
	mock := &mockAPI{
		putItemFunc: func(_ context.Context, _ *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			called = true
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	client := newTestClient(mock)

	if err := client.PutTask(context.Background(), nil); err == nil {
		t.Error("expected error for nil task, got nil")
	}
	if err := client.PutTask(context.Background(), &task.Task{Description: "no id"}); err == nil {
		t.Error("expected error for empty ID, got nil")
	}
	if called {
		t.Error("expected PutItem not to be called")
	}
}

func TestPutTask_PutItemError(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		putItemFunc: func(_ context.Context, _ *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			return nil, errors.New("put failed")
		},
	}
	client := newTestClient(mock)

	err := client.PutTask(context.Background(), &task.Task{ID: "t1"})

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "test-table") {
		t.Errorf("expected error to name the table, got %v", err)
	}
}

// ==================== UpdateTask Tests ====================

func TestUpdateTask_SetsOwner(t *testing.T) {
	t.Parallel()
	var capturedInput *dynamodb.UpdateItemInput
	mock := &mockAPI{
		updateItemFunc: func(_ context.Context, params *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
			capturedInput = params
			return &dynamodb.UpdateItemOutput{}, nil
		},
	}
	client := newTestClient(mock)

	err := client.UpdateTask(context.Background(), &task.Task{ID: "t1", Description: "d", OwnerID: "u1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if getStringValue(capturedInput.Key[IDAttr]) != "t1" {
		t.Errorf("expected key t1, got %s", getStringValue(capturedInput.Key[IDAttr]))
	}
	expr := aws.ToString(capturedInput.UpdateExpression)
	if !strings.Contains(expr, "#userId = :userId") {
		t.Errorf("expected expression to set userId, got %s", expr)
	}
	if strings.Contains(expr, "REMOVE") {
		t.Errorf("expected no REMOVE clause, got %s", expr)
	}
	if getStringValue(capturedInput.ExpressionAttributeValues[":userId"]) != "u1" {
		t.Errorf("expected :userId u1, got %#v", capturedInput.ExpressionAttributeValues[":userId"])
	}
}

func TestUpdateTask_OwnerlessRemovesUserID(t *testing.T) {
	t.Parallel()
	var capturedInput *dynamodb.UpdateItemInput
	mock := &mockAPI{
		updateItemFunc: func(_ context.Context, params *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
			capturedInput = params
			return &dynamodb.UpdateItemOutput{}, nil
		},
	}
	client := newTestClient(mock)

	err := client.UpdateTask(context.Background(), &task.Task{ID: "t1", Description: "d"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	expr := aws.ToString(capturedInput.UpdateExpression)
	if !strings.HasSuffix(expr, "REMOVE #userId") {
		t.Errorf("expected expression to remove userId, got %s", expr)
	}
	if _, exists := capturedInput.ExpressionAttributeValues[":userId"]; exists {
		t.Error("expected no :userId value for an ownerless task")
	}
}

func TestUpdateTask_UpdateItemError(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		updateItemFunc: func(_ context.Context, _ *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
			return nil, errors.New("update failed")
		},
	}
	client := newTestClient(mock)

	if err := client.UpdateTask(context.Background(), &task.Task{ID: "t1"}); err == nil {
		t.Error("expected error, got nil")
	}
}

// ==================== DeleteTask Tests ====================

func TestDeleteTask_Success(t *testing.T) {
	t.Parallel()
	var capturedInput *dynamodb.DeleteItemInput
	mock := &mockAPI{
		deleteItemFunc: func(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
			capturedInput = params
			return &dynamodb.DeleteItemOutput{}, nil
		},
	}
	client := newTestClient(mock)

	if err := client.DeleteTask(context.Background(), "t1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if getStringValue(capturedInput.Key[IDAttr]) != "t1" {
		t.Errorf("expected key t1, got %s", getStringValue(capturedInput.Key[IDAttr]))
	}
}

func TestDeleteTask_EmptyID(t *testing.T) {
	t.Parallel()
	client := newTestClient(&mockAPI{})

	if err := client.DeleteTask(context.Background(), ""); err == nil {
		t.Error("expected error for empty ID, got nil")
	}
}

func TestDeleteTask_DeleteItemError(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		deleteItemFunc: func(_ context.Context, _ *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
			return nil, errors.New("delete failed")
		},
	}
	client := newTestClient(mock)

	if err := client.DeleteTask(context.Background(), "t1"); err == nil {
		t.Error("expected error, got nil")
	}
}

// ==================== FindTask Tests ====================

func TestFindTask_Found(t *testing.T) {
	t.Parallel()
	var capturedInput *dynamodb.GetItemInput
	mock := &mockAPI{
		getItemFunc: func(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			capturedInput = params
			return &dynamodb.GetItemOutput{Item: taskItem("t1", "buy milk", "u1")}, nil
		},
	}
	client := newTestClient(mock)

	got, err := client.FindTask(context.Background(), "t1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := task.Task{ID: "t1", Description: "buy milk", CreatedAt: 1700000000000, OwnerID: "u1"}
	if got == nil || *got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if !aws.ToBool(capturedInput.ConsistentRead) {
		t.Error("expected a consistent read by default")
	}
}

func TestFindTask_EventuallyConsistent(t *testing.T) {
	t.Parallel()
	var capturedInput *dynamodb.GetItemInput
	mock := &mockAPI{
		getItemFunc: func(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			capturedInput = params
			return &dynamodb.GetItemOutput{}, nil
		},
	}
	client := New(&aws.Config{}, "test-table", WithAPI(mock), WithConsistentRead(false))
	_ = client.Connect()

	if _, err := client.FindTask(context.Background(), "t1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if aws.ToBool(capturedInput.ConsistentRead) {
		t.Error("expected an eventually consistent read")
	}
}

func TestFindTask_NotFound(t *testing.T) {
	t.Parallel()
	client := newTestClient(&mockAPI{})

	got, err := client.FindTask(context.Background(), "missing")
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if got != nil {
		t.Errorf("expected nil task, got %+v", got)
	}
}

func TestFindTask_EmptyID(t *testing.T) {
	t.Parallel()
	client := newTestClient(&mockAPI{})

	if _, err := client.FindTask(context.Background(), ""); err == nil {
		t.Error("expected error for empty ID, got nil")
	}
}

func TestFindTask_GetItemError(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		getItemFunc: func(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return nil, errors.New("get failed")
		},
	}
	client := newTestClient(mock)

	if _, err := client.FindTask(context.Background(), "t1"); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestFindTask_MalformedItem(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		getItemFunc: func(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			item := taskItem("t1", "d", "u1")
			item[CompletedAttr] = &dynamodbtypes.AttributeValueMemberS{Value: "yes"}
			return &dynamodb.GetItemOutput{Item: item}, nil
		},
	}
	client := newTestClient(mock)

	if _, err := client.FindTask(context.Background(), "t1"); err == nil {
		t.Error("expected error for malformed item, got nil")
	}
}

// ==================== FindTasksByOwner Tests ====================

func TestFindTasksByOwner_Paginates(t *testing.T) {
	t.Parallel()
	var inputs []*dynamodb.QueryInput
	mock := &mockAPI{
		queryFunc: func(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			snapshot := *params
			inputs = append(inputs, &snapshot)
			if params.ExclusiveStartKey == nil {
				return &dynamodb.QueryOutput{
					Items:            []map[string]dynamodbtypes.AttributeValue{taskItem("t1", "a", "u1")},
					LastEvaluatedKey: idKey("t1"),
				}, nil
			}
			return &dynamodb.QueryOutput{
				Items: []map[string]dynamodbtypes.AttributeValue{taskItem("t2", "b", "u1")},
			}, nil
		},
	}
	client := newTestClient(mock)

	tasks, err := client.FindTasksByOwner(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(tasks) != 2 || tasks[0].ID != "t1" || tasks[1].ID != "t2" {
		t.Errorf("expected tasks t1 and t2, got %+v", tasks)
	}
	if len(inputs) != 2 {
		t.Fatalf("expected 2 query calls, got %d", len(inputs))
	}
	if aws.ToString(inputs[0].IndexName) != GSIOwner {
		t.Errorf("expected index %s, got %s", GSIOwner, aws.ToString(inputs[0].IndexName))
	}
	if getStringValue(inputs[0].ExpressionAttributeValues[":userId"]) != "u1" {
		t.Errorf("expected :userId u1, got %#v", inputs[0].ExpressionAttributeValues[":userId"])
	}
}

func TestFindTasksByOwner_CustomIndex(t *testing.T) {
	t.Parallel()
	var capturedIndex string
	mock := &mockAPI{
		queryFunc: func(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			capturedIndex = aws.ToString(params.IndexName)
			return &dynamodb.QueryOutput{}, nil
		},
	}
	client := New(&aws.Config{}, "test-table", WithAPI(mock), WithOwnerIndexName("owner-idx"))
	_ = client.Connect()

	if _, err := client.FindTasksByOwner(context.Background(), "u1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if capturedIndex != "owner-idx" {
		t.Errorf("expected index owner-idx, got %s", capturedIndex)
	}
}

func TestFindTasksByOwner_Empty(t *testing.T) {
	t.Parallel()
	client := newTestClient(&mockAPI{})

	tasks, err := client.FindTasksByOwner(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tasks == nil || len(tasks) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", tasks)
	}
}

func TestFindTasksByOwner_EmptyOwner(t *testing.T) {
	t.Parallel()
	client := newTestClient(&mockAPI{})

	if _, err := client.FindTasksByOwner(context.Background(), ""); err == nil {
		t.Error("expected error for empty owner, got nil")
	}
}

func TestFindTasksByOwner_QueryError(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		queryFunc: func(_ context.Context, _ *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			return nil, errors.New("query failed")
		},
	}
	client := newTestClient(mock)

	if _, err := client.FindTasksByOwner(context.Background(), "u1"); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestFindTasksByOwner_ContextCanceled(t *testing.T) {
	t.Parallel()
	client := newTestClient(&mockAPI{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FindTasksByOwner(ctx, "u1")

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// ==================== Scan Tests ====================

func TestScanTasks_Paginates(t *testing.T) {
	t.Parallel()
	scanCount := 0
	mock := &mockAPI{
		scanFunc: func(_ context.Context, params *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			scanCount++
			if params.ExclusiveStartKey == nil {
				return &dynamodb.ScanOutput{
					Items:            []map[string]dynamodbtypes.AttributeValue{taskItem("t1", "a", "u1")},
					LastEvaluatedKey: idKey("t1"),
				}, nil
			}
			return &dynamodb.ScanOutput{
				Items: []map[string]dynamodbtypes.AttributeValue{taskItem("t2", "b", "")},
			}, nil
		},
	}
	client := newTestClient(mock)

	tasks, err := client.ScanTasks(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if scanCount != 2 {
		t.Errorf("expected 2 scan calls, got %d", scanCount)
	}
	if len(tasks) != 2 {
		t.Errorf("expected 2 tasks, got %d", len(tasks))
	}
}

func TestScanPublicTasks_FiltersOwned(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		scanFunc: func(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			return &dynamodb.ScanOutput{
				Items: []map[string]dynamodbtypes.AttributeValue{
					taskItem("t1", "owned", "u1"),
					taskItem("t2", "public", ""),
					taskItem("t3", "owned", "u2"),
				},
			}, nil
		},
	}
	client := newTestClient(mock)

	tasks, err := client.ScanPublicTasks(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "t2" {
		t.Errorf("expected only t2, got %+v", tasks)
	}
}

func TestScanTasks_ScanError(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		scanFunc: func(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			return nil, errors.New("scan failed")
		},
	}
	client := newTestClient(mock)

	if _, err := client.ScanTasks(context.Background()); err == nil {
		t.Error("expected error, got nil")
	}
	if _, err := client.ScanPublicTasks(context.Background()); err == nil {
		t.Error("expected error, got nil")
	}
}

// ==================== Init Tests ====================

func TestInit_SkipSchemaValidation(t *testing.T) {
	t.Parallel()
	called := false
	mock := &mockAPI{
		describeTableFunc: func(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
			called = true
			return nil, errors.New("should not be called")
		},
	}
	client := newTestClient(mock)

	err := client.Init(context.Background(), true)
	if err != nil {
		t.Errorf("expected no error when skipping validation, got %v", err)
	}
	if called {
		t.Error("expected DescribeTable not to be called")
	}
}

func TestInit_ValidSchema(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		describeTableFunc: func(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
			return validTableOutput(), nil
		},
	}
	client := newTestClient(mock)

	err := client.Init(context.Background(), false)
	if err != nil {
		t.Errorf("expected no error for valid schema, got %v", err)
	}
}

func TestInit_TableNotFound(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		describeTableFunc: func(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
			return nil, &dynamodbtypes.ResourceNotFoundException{Message: aws.String("table not found")}
		},
	}
	client := newTestClient(mock)

	err := client.Init(context.Background(), false)

	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("expected missing table error, got %v", err)
	}
}

func TestInit_InvalidSchema(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(out *dynamodb.DescribeTableOutput)
	}{
		{"nil table", func(out *dynamodb.DescribeTableOutput) { out.Table = nil }},
		{"empty key schema", func(out *dynamodb.DescribeTableOutput) { out.Table.KeySchema = nil }},
		{"wrong partition key", func(out *dynamodb.DescribeTableOutput) {
			out.Table.KeySchema[0].AttributeName = aws.String("pk")
		}},
		{"composite key", func(out *dynamodb.DescribeTableOutput) {
			out.Table.KeySchema = append(out.Table.KeySchema, dynamodbtypes.KeySchemaElement{AttributeName: aws.String("sk")})
		}},
		{"table not active", func(out *dynamodb.DescribeTableOutput) {
			out.Table.TableStatus = dynamodbtypes.TableStatusCreating
		}},
		{"missing index", func(out *dynamodb.DescribeTableOutput) { out.Table.GlobalSecondaryIndexes = nil }},
		{"index wrong key", func(out *dynamodb.DescribeTableOutput) {
			out.Table.GlobalSecondaryIndexes[0].KeySchema[0].AttributeName = aws.String("owner")
		}},
		{"index not active", func(out *dynamodb.DescribeTableOutput) {
			out.Table.GlobalSecondaryIndexes[0].IndexStatus = dynamodbtypes.IndexStatusUpdating
		}},
		{"index keys only", func(out *dynamodb.DescribeTableOutput) {
			out.Table.GlobalSecondaryIndexes[0].Projection.ProjectionType = dynamodbtypes.ProjectionTypeKeysOnly
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mock := &mockAPI{
				describeTableFunc: func(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
					out := validTableOutput()
					tt.mutate(out)
					return out, nil
				},
			}
			client := newTestClient(mock)

			if err := client.Init(context.Background(), false); err == nil {
				t.Error("expected error for invalid schema, got nil")
			}
		})
	}
}

// ==================== DropAllData Tests ====================

func TestDropAllData_Success(t *testing.T) {
	t.Parallel()
	scanCount := 0
	var deletedKeys []string
	mock := &mockAPI{
		scanFunc: func(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			scanCount++
			if scanCount == 1 {
				return &dynamodb.ScanOutput{
					Items: []map[string]dynamodbtypes.AttributeValue{idKey("t1"), idKey("t2")},
				}, nil
			}
			return &dynamodb.ScanOutput{Items: []map[string]dynamodbtypes.AttributeValue{}}, nil
		},
		batchWriteItemFunc: func(_ context.Context, params *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
			for _, req := range params.RequestItems["test-table"] {
				deletedKeys = append(deletedKeys, getStringValue(req.DeleteRequest.Key[IDAttr]))
			}
			return &dynamodb.BatchWriteItemOutput{}, nil
		},
	}
	client := newTestClient(mock)

	err := client.DropAllData(context.Background())
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if len(deletedKeys) != 2 || deletedKeys[0] != "t1" || deletedKeys[1] != "t2" {
		t.Errorf("expected t1 and t2 deleted, got %v", deletedKeys)
	}
}

func TestDropAllData_RetriesUnprocessed(t *testing.T) {
	t.Parallel()
	batchCount := 0
	mock := &mockAPI{
		scanFunc: func(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			return &dynamodb.ScanOutput{Items: []map[string]dynamodbtypes.AttributeValue{idKey("t1")}}, nil
		},
		batchWriteItemFunc: func(_ context.Context, params *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
			batchCount++
			if batchCount == 1 {
				return &dynamodb.BatchWriteItemOutput{UnprocessedItems: params.RequestItems}, nil
			}
			return &dynamodb.BatchWriteItemOutput{}, nil
		},
	}
	client := newTestClient(mock)

	if err := client.DropAllData(context.Background()); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if batchCount != 2 {
		t.Errorf("expected 2 batch calls, got %d", batchCount)
	}
}

func TestDropAllData_ScanError(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		scanFunc: func(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			return nil, errors.New("scan failed")
		},
	}
	client := newTestClient(mock)

	if err := client.DropAllData(context.Background()); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestDropAllData_BatchDeleteError(t *testing.T) {
	t.Parallel()
	mock := &mockAPI{
		scanFunc: func(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			return &dynamodb.ScanOutput{Items: []map[string]dynamodbtypes.AttributeValue{idKey("t1")}}, nil
		},
		batchWriteItemFunc: func(_ context.Context, _ *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
			return nil, errors.New("batch failed")
		},
	}
	client := newTestClient(mock)

	if err := client.DropAllData(context.Background()); err == nil {
		t.Error("expected error, got nil")
	}
}
