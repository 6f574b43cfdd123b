package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/telecare-api/internal/domain"
)

// CallNotificationRepo provides typed DynamoDB operations for the
// call_notifications table.
type CallNotificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewCallNotificationRepo(client *dynamodb.Client, tableName string) *CallNotificationRepo {
	return &CallNotificationRepo{client: client, tableName: tableName}
}

func (r *CallNotificationRepo) Put(ctx context.Context, n *domain.CallNotification) error {
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return fmt.Errorf("marshal call notification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// GetByCallID looks up a notification by its cross-system correlation key.
// call_id is unique by construction, so only the first match is returned.
func (r *CallNotificationRepo) GetByCallID(ctx context.Context, callID string) (*domain.CallNotification, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("call_id-index"),
		KeyConditionExpression: aws.String("call_id = :cid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid": &types.AttributeValueMemberS{Value: callID},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("call notification %s: %w", callID, domain.ErrNotFound)
	}
	var n domain.CallNotification
	if err := attributevalue.UnmarshalMap(out.Items[0], &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// UpdateStatus sets status and updated_at on a row, conditional on the row
// still holding the expected previous status. Returns domain.ErrConflict when
// a concurrent writer got there first.
func (r *CallNotificationRepo) UpdateStatus(ctx context.Context, notificationID string, from, to domain.CallStatus) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldStatus:  string(to),
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	ue.Names["#prev"] = fieldStatus
	ue.Values[":prev"] = &types.AttributeValueMemberS{Value: string(from)}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("notification_id", notificationID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("#prev = :prev"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return fmt.Errorf("status changed concurrently: %w", domain.ErrConflict)
		}
		return err
	}
	return nil
}

// ListPendingByReceiver queries the receiver_id-status-index GSI for rows
// still ringing for the given receiver.
func (r *CallNotificationRepo) ListPendingByReceiver(ctx context.Context, receiverID string) ([]domain.CallNotification, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("receiver_id-status-index"),
		KeyConditionExpression: aws.String("receiver_id = :rid AND #s = :pending"),
		ExpressionAttributeNames: map[string]string{
			"#s": fieldStatus,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid":     &types.AttributeValueMemberS{Value: receiverID},
			":pending": &types.AttributeValueMemberS{Value: string(domain.CallStatusPending)},
		},
	})
	if err != nil {
		return nil, err
	}
	var notifications []domain.CallNotification
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// DeleteOlderThan removes rows created before cutoff. Scan-based: the table
// is kept small by this very janitor, so a scan is acceptable. The age check
// happens here rather than in a filter expression: stored timestamps are
// RFC3339Nano, which drops trailing zeros and is not lexicographically
// ordered around whole-second values. Returns the number of rows deleted;
// per-row delete failures are logged and skipped.
func (r *CallNotificationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:            aws.String(r.tableName),
		ProjectionExpression: aws.String("notification_id, created_at"),
	})
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, item := range out.Items {
		if !createdBefore(item, cutoff) {
			continue
		}
		idAttr, ok := item["notification_id"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key:       strKey("notification_id", idAttr.Value),
		})
		if err != nil {
			slog.Warn("janitor delete failed", "notification_id", idAttr.Value, "err", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

// createdBefore reports whether the row's created_at parses to a time before
// cutoff. Rows with a missing or unparseable timestamp are left alone.
func createdBefore(item map[string]types.AttributeValue, cutoff time.Time) bool {
	attr, ok := item["created_at"].(*types.AttributeValueMemberS)
	if !ok {
		return false
	}
	created, err := time.Parse(time.RFC3339Nano, attr.Value)
	if err != nil {
		return false
	}
	return created.Before(cutoff)
}
