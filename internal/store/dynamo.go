package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/jun/watchlist/internal/model"
)

const (
	attrUserID        = "userId"
	attrItemID        = "itemId"
	attrName          = "name"
	attrAttachmentURL = "attachmentUrl"
)

// DynamoAPI is the subset of *dynamodb.Client used by DynamoTable.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

var _ DynamoAPI = (*dynamodb.Client)(nil)

// DynamoTable stores items in a DynamoDB table keyed by (userId, itemId)
// with a global secondary index on userId.
type DynamoTable struct {
	client    DynamoAPI
	tableName string
	userIndex string
}

// NewDynamoTable creates a DynamoTable.
func NewDynamoTable(client DynamoAPI, tableName, userIndex string) *DynamoTable {
	return &DynamoTable{
		client:    client,
		tableName: tableName,
		userIndex: userIndex,
	}
}

func itemKey(userID, itemID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrUserID: &types.AttributeValueMemberS{Value: userID},
		attrItemID: &types.AttributeValueMemberS{Value: itemID},
	}
}

func (t *DynamoTable) Query(ctx context.Context, userID string) ([]model.WatchListItem, error) {
	keyCond := expression.Key(attrUserID).Equal(expression.Value(userID))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, wrap("query", fmt.Errorf("build expression: %w", err))
	}

	paginator := dynamodb.NewQueryPaginator(t.client, &dynamodb.QueryInput{
		TableName:                 aws.String(t.tableName),
		IndexName:                 aws.String(t.userIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	items := []model.WatchListItem{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrap("query", err)
		}

		var pageItems []model.WatchListItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageItems); err != nil {
			return nil, wrap("query", fmt.Errorf("unmarshal items: %w", err))
		}
		items = append(items, pageItems...)
	}
	return items, nil
}

func (t *DynamoTable) Get(ctx context.Context, userID, itemID string) (*model.WatchListItem, error) {
	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.tableName),
		Key:       itemKey(userID, itemID),
	})
	if err != nil {
		return nil, wrap("get", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var item model.WatchListItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, wrap("get", fmt.Errorf("unmarshal item: %w", err))
	}
	return &item, nil
}

func (t *DynamoTable) Put(ctx context.Context, item model.WatchListItem) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return wrap("put", fmt.Errorf("marshal item: %w", err))
	}

	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.tableName),
		Item:      av,
	})
	return wrap("put", err)
}

func (t *DynamoTable) UpdateName(ctx context.Context, userID, itemID, name string) (*model.WatchListItem, error) {
	update := expression.Set(expression.Name(attrName), expression.Value(name))
	out, err := t.updateExisting(ctx, "update", userID, itemID, update, types.ReturnValueAllNew)
	if err != nil {
		return nil, err
	}

	var item model.WatchListItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, wrap("update", fmt.Errorf("unmarshal item: %w", err))
	}
	return &item, nil
}

func (t *DynamoTable) SetAttachmentURL(ctx context.Context, userID, itemID, url string) error {
	update := expression.Set(expression.Name(attrAttachmentURL), expression.Value(url))
	_, err := t.updateExisting(ctx, "set attachment", userID, itemID, update, types.ReturnValueNone)
	return err
}

// updateExisting applies update only when the key exists, so a missing item
// is reported as ErrNotFound instead of being created by the update.
func (t *DynamoTable) updateExisting(ctx context.Context, op, userID, itemID string, update expression.UpdateBuilder, rv types.ReturnValue) (*dynamodb.UpdateItemOutput, error) {
	cond := expression.AttributeExists(expression.Name(attrItemID))
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return nil, wrap(op, fmt.Errorf("build expression: %w", err))
	}

	out, err := t.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.tableName),
		Key:                       itemKey(userID, itemID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              rv,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, ErrNotFound
		}
		return nil, wrap(op, err)
	}
	return out, nil
}

func (t *DynamoTable) Delete(ctx context.Context, userID, itemID string) (*model.WatchListItem, error) {
	out, err := t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(t.tableName),
		Key:          itemKey(userID, itemID),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return nil, wrap("delete", err)
	}
	if len(out.Attributes) == 0 {
		return nil, nil
	}

	var item model.WatchListItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, wrap("delete", fmt.Errorf("unmarshal item: %w", err))
	}
	return &item, nil
}
