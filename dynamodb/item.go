package dynamodb

import (
	"fmt"
	"strconv"

	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/slackmgr/todos/task"
)

// taskToItem maps a task to its DynamoDB attributes. The owner attribute is
// omitted for ownerless tasks, which keeps them out of the owner index.
func taskToItem(t *task.Task) map[string]dynamodbtypes.AttributeValue {
	item := map[string]dynamodbtypes.AttributeValue{
		IDAttr:        &dynamodbtypes.AttributeValueMemberS{Value: t.ID},
		TaskAttr:      &dynamodbtypes.AttributeValueMemberS{Value: t.Description},
		CompletedAttr: &dynamodbtypes.AttributeValueMemberBOOL{Value: t.Completed},
		CreatedAtAttr: &dynamodbtypes.AttributeValueMemberN{Value: strconv.FormatInt(t.CreatedAt, 10)},
	}

	if t.OwnerID != "" {
		item[OwnerAttr] = &dynamodbtypes.AttributeValueMemberS{Value: t.OwnerID}
	}

	return item
}

// itemToTask maps DynamoDB attributes back to a task. Missing attributes take
// their zero value; an attribute of the wrong type is an error.
func itemToTask(item map[string]dynamodbtypes.AttributeValue) (*task.Task, error) {
	t := &task.Task{
		ID:          getStringValue(item[IDAttr]),
		Description: getStringValue(item[TaskAttr]),
		OwnerID:     getStringValue(item[OwnerAttr]),
	}

	if t.ID == "" {
		return nil, fmt.Errorf("item has no %s attribute", IDAttr)
	}

	switch v := item[CompletedAttr].(type) {
	case nil:
	case *dynamodbtypes.AttributeValueMemberBOOL:
		t.Completed = v.Value
	default:
		return nil, fmt.Errorf("item %s has a non-boolean %s attribute", t.ID, CompletedAttr)
	}

	switch v := item[CreatedAtAttr].(type) {
	case nil:
	case *dynamodbtypes.AttributeValueMemberN:
		createdAt, err := strconv.ParseInt(v.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("item %s has an invalid %s attribute: %w", t.ID, CreatedAtAttr, err)
		}

		t.CreatedAt = createdAt
	default:
		return nil, fmt.Errorf("item %s has a non-numeric %s attribute", t.ID, CreatedAtAttr)
	}

	return t, nil
}

func itemsToTasks(items []map[string]dynamodbtypes.AttributeValue, tasks []*task.Task) ([]*task.Task, error) {
	for _, item := range items {
		t, err := itemToTask(item)
		if err != nil {
			return nil, err
		}

		tasks = append(tasks, t)
	}

	return tasks, nil
}

func idKey(id string) map[string]dynamodbtypes.AttributeValue {
	return map[string]dynamodbtypes.AttributeValue{
		IDAttr: &dynamodbtypes.AttributeValueMemberS{Value: id},
	}
}

// getStringValue extracts the string value from a DynamoDB AttributeValue.
// It returns an empty string if the AttributeValue is not of type AttributeValueMemberS.
func getStringValue(attr dynamodbtypes.AttributeValue) string {
	if attrValue, ok := attr.(*dynamodbtypes.AttributeValueMemberS); ok {
		return attrValue.Value
	}

	return ""
}
