// Package dynamodb implements the persistence ports on a single DynamoDB
// table. Sessions and chat messages share the table under a USER# partition
// key, with SESSION# and MSG# sort key prefixes.
package dynamodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"treeviz-backend/application/ports"
	"treeviz-backend/domain/tree"
	apperrors "treeviz-backend/pkg/errors"
)

// TreeSessionRepository implements the TreeSessionRepository port using DynamoDB
type TreeSessionRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewTreeSessionRepository creates a new TreeSessionRepository
func NewTreeSessionRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.TreeSessionRepository {
	return &TreeSessionRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// sessionItem represents the DynamoDB item structure for a tree session.
// TreeData is stored as serialized JSON to keep one attribute per graph.
type sessionItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	EntityType  string `dynamodbav:"EntityType"`
	SessionID   string `dynamodbav:"SessionID"`
	UserID      string `dynamodbav:"UserID"`
	SessionName string `dynamodbav:"SessionName"`
	TreeType    string `dynamodbav:"TreeType"`
	Description string `dynamodbav:"Description,omitempty"`
	TreeData    string `dynamodbav:"TreeData"`
	CreatedAt   string `dynamodbav:"CreatedAt"`
	UpdatedAt   string `dynamodbav:"UpdatedAt"`
}

func sessionPK(userID string) string {
	return fmt.Sprintf("USER#%s", userID)
}

func sessionSK(sessionID string) string {
	return fmt.Sprintf("SESSION#%s", sessionID)
}

// Create persists a new tree session
func (r *TreeSessionRepository) Create(ctx context.Context, session *ports.TreeSession) error {
	item, err := r.toItem(session)
	if err != nil {
		return err
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return apperrors.NewDatabaseError("failed to marshal session item", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return apperrors.NewConflictError(fmt.Sprintf("session %s already exists", session.ID))
		}
		r.logger.Error("Failed to create tree session",
			zap.String("sessionID", session.ID),
			zap.Error(err))
		return apperrors.NewDatabaseError("failed to create session", err)
	}

	r.logger.Debug("Tree session created in DynamoDB",
		zap.String("sessionID", session.ID),
		zap.String("userID", session.UserID))
	return nil
}

// GetByID retrieves a session owned by the given user
func (r *TreeSessionRepository) GetByID(ctx context.Context, userID, sessionID string) (*ports.TreeSession, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sessionPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: sessionSK(sessionID)},
		},
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("failed to get session", err)
	}
	if result.Item == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("tree session %s", sessionID))
	}

	var item sessionItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, apperrors.NewDatabaseError("failed to unmarshal session item", err)
	}
	return r.fromItem(&item)
}

// ListByUser retrieves all sessions for a user, newest first
func (r *TreeSessionRepository) ListByUser(ctx context.Context, userID string) ([]*ports.TreeSession, error) {
	keyEx := expression.Key("PK").Equal(expression.Value(sessionPK(userID))).
		And(expression.Key("SK").BeginsWith("SESSION#"))

	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return nil, apperrors.NewDatabaseError("failed to build session query", err)
	}

	var sessions []*ports.TreeSession
	var lastKey map[string]types.AttributeValue
	for {
		result, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         lastKey,
		})
		if err != nil {
			return nil, apperrors.NewDatabaseError("failed to query sessions", err)
		}

		for _, raw := range result.Items {
			var item sessionItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Skipping unreadable session item", zap.Error(err))
				continue
			}
			session, err := r.fromItem(&item)
			if err != nil {
				r.logger.Warn("Skipping session with corrupt tree data",
					zap.String("sessionID", item.SessionID),
					zap.Error(err))
				continue
			}
			sessions = append(sessions, session)
		}

		lastKey = result.LastEvaluatedKey
		if lastKey == nil {
			break
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// Update persists changes to an existing session
func (r *TreeSessionRepository) Update(ctx context.Context, session *ports.TreeSession) error {
	item, err := r.toItem(session)
	if err != nil {
		return err
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return apperrors.NewDatabaseError("failed to marshal session item", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_exists(PK) AND attribute_exists(SK)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return apperrors.NewNotFoundError(fmt.Sprintf("tree session %s", session.ID))
		}
		return apperrors.NewDatabaseError("failed to update session", err)
	}
	return nil
}

// Delete removes a session
func (r *TreeSessionRepository) Delete(ctx context.Context, userID, sessionID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sessionPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: sessionSK(sessionID)},
		},
	})
	if err != nil {
		return apperrors.NewDatabaseError("failed to delete session", err)
	}
	return nil
}

func (r *TreeSessionRepository) toItem(session *ports.TreeSession) (*sessionItem, error) {
	treeData, err := json.Marshal(session.TreeData)
	if err != nil {
		return nil, apperrors.NewDatabaseError("failed to serialize tree data", err)
	}

	return &sessionItem{
		PK:          sessionPK(session.UserID),
		SK:          sessionSK(session.ID),
		EntityType:  "TREE_SESSION",
		SessionID:   session.ID,
		UserID:      session.UserID,
		SessionName: session.SessionName,
		TreeType:    session.TreeType,
		Description: session.Description,
		TreeData:    string(treeData),
		CreatedAt:   session.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   session.UpdatedAt.Format(time.RFC3339),
	}, nil
}

func (r *TreeSessionRepository) fromItem(item *sessionItem) (*ports.TreeSession, error) {
	graph := tree.NewGraph()
	if item.TreeData != "" {
		if err := json.Unmarshal([]byte(item.TreeData), &graph); err != nil {
			return nil, apperrors.NewDatabaseError("failed to deserialize tree data", err)
		}
	}
	if graph.Nodes == nil {
		graph.Nodes = []tree.Node{}
	}
	if graph.Edges == nil {
		graph.Edges = []tree.Edge{}
	}

	createdAt, _ := time.Parse(time.RFC3339, item.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339, item.UpdatedAt)

	return &ports.TreeSession{
		ID:          item.SessionID,
		UserID:      item.UserID,
		SessionName: item.SessionName,
		TreeType:    item.TreeType,
		Description: item.Description,
		TreeData:    graph,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}
