package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"treeviz-backend/application/ports"
	apperrors "treeviz-backend/pkg/errors"
	"treeviz-backend/pkg/utils"
)

// dynamoDeleteBatchSize is the BatchWriteItem limit.
const dynamoDeleteBatchSize = 25

// ChatMessageRepository implements the ChatMessageRepository port using DynamoDB
type ChatMessageRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewChatMessageRepository creates a new ChatMessageRepository
func NewChatMessageRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.ChatMessageRepository {
	return &ChatMessageRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// messageItem represents the DynamoDB item structure for a chat message.
// The sort key embeds a fixed-width timestamp so lexical order matches
// creation order within a session.
type messageItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	MessageID  string `dynamodbav:"MessageID"`
	UserID     string `dynamodbav:"UserID"`
	SessionID  string `dynamodbav:"SessionID"`
	Author     string `dynamodbav:"Author"`
	Text       string `dynamodbav:"Text"`
	Payload    string `dynamodbav:"Payload,omitempty"`
	Intent     string `dynamodbav:"Intent,omitempty"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
}

func messagePK(userID string) string {
	return fmt.Sprintf("USER#%s", userID)
}

func messageSKPrefix(sessionID string) string {
	return fmt.Sprintf("MSG#%s#", sessionID)
}

func messageSK(sessionID string, createdAt time.Time, messageID string) string {
	return fmt.Sprintf("MSG#%s#%s#%s", sessionID, utils.SortableTimestamp(createdAt), messageID)
}

// Append persists one message at the end of a session's history
func (r *ChatMessageRepository) Append(ctx context.Context, msg *ports.ChatMessage) error {
	item := messageItem{
		PK:         messagePK(msg.UserID),
		SK:         messageSK(msg.SessionID, msg.CreatedAt, msg.ID),
		EntityType: "CHAT_MESSAGE",
		MessageID:  msg.ID,
		UserID:     msg.UserID,
		SessionID:  msg.SessionID,
		Author:     msg.Author,
		Text:       msg.Text,
		Payload:    string(msg.Payload),
		Intent:     msg.Intent,
		CreatedAt:  msg.CreatedAt.Format(time.RFC3339Nano),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return apperrors.NewDatabaseError("failed to marshal message item", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	if err != nil {
		r.logger.Error("Failed to append chat message",
			zap.String("sessionID", msg.SessionID),
			zap.Error(err))
		return apperrors.NewDatabaseError("failed to append message", err)
	}
	return nil
}

// ListBySession retrieves a session's messages in creation order
func (r *ChatMessageRepository) ListBySession(ctx context.Context, userID, sessionID string) ([]*ports.ChatMessage, error) {
	expr, err := r.sessionQuery(userID, sessionID)
	if err != nil {
		return nil, err
	}

	var messages []*ports.ChatMessage
	var lastKey map[string]types.AttributeValue
	for {
		result, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         lastKey,
			ScanIndexForward:          aws.Bool(true),
		})
		if err != nil {
			return nil, apperrors.NewDatabaseError("failed to query messages", err)
		}

		for _, raw := range result.Items {
			var item messageItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Skipping unreadable message item", zap.Error(err))
				continue
			}
			messages = append(messages, fromMessageItem(&item))
		}

		lastKey = result.LastEvaluatedKey
		if lastKey == nil {
			break
		}
	}
	return messages, nil
}

// ClearSession removes all messages for a session, returning the count removed
func (r *ChatMessageRepository) ClearSession(ctx context.Context, userID, sessionID string) (int, error) {
	expr, err := r.sessionQuery(userID, sessionID)
	if err != nil {
		return 0, err
	}

	// Collect keys first, then delete in batches
	var keys []map[string]types.AttributeValue
	var lastKey map[string]types.AttributeValue
	for {
		result, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         lastKey,
			ProjectionExpression:      aws.String("PK, SK"),
		})
		if err != nil {
			return 0, apperrors.NewDatabaseError("failed to query messages for deletion", err)
		}

		for _, raw := range result.Items {
			keys = append(keys, map[string]types.AttributeValue{
				"PK": raw["PK"],
				"SK": raw["SK"],
			})
		}

		lastKey = result.LastEvaluatedKey
		if lastKey == nil {
			break
		}
	}

	deleted := 0
	for start := 0; start < len(keys); start += dynamoDeleteBatchSize {
		end := start + dynamoDeleteBatchSize
		if end > len(keys) {
			end = len(keys)
		}

		writes := make([]types.WriteRequest, 0, end-start)
		for _, key := range keys[start:end] {
			writes = append(writes, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: key},
			})
		}

		_, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				r.tableName: writes,
			},
		})
		if err != nil {
			return deleted, apperrors.NewDatabaseError("failed to delete messages", err)
		}
		deleted += end - start
	}

	r.logger.Debug("Cleared chat history",
		zap.String("sessionID", sessionID),
		zap.Int("deleted", deleted))
	return deleted, nil
}

func (r *ChatMessageRepository) sessionQuery(userID, sessionID string) (expression.Expression, error) {
	keyEx := expression.Key("PK").Equal(expression.Value(messagePK(userID))).
		And(expression.Key("SK").BeginsWith(messageSKPrefix(sessionID)))

	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return expression.Expression{}, apperrors.NewDatabaseError("failed to build message query", err)
	}
	return expr, nil
}

func fromMessageItem(item *messageItem) *ports.ChatMessage {
	createdAt, _ := time.Parse(time.RFC3339Nano, item.CreatedAt)
	msg := &ports.ChatMessage{
		ID:        item.MessageID,
		UserID:    item.UserID,
		SessionID: item.SessionID,
		Author:    item.Author,
		Text:      item.Text,
		Intent:    item.Intent,
		CreatedAt: createdAt,
	}
	if item.Payload != "" {
		msg.Payload = []byte(item.Payload)
	}
	return msg
}
