package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-phone-verify/internal/domain"
)

// SessionRepo manages verification sessions.
// PK: token_hash. TTL attribute: expires_at (DynamoDB evicts lazily, so reads re-check it).
type SessionRepo struct {
	client    API
	tableName string
	now       func() time.Time
}

func NewSessionRepo(client API, tableName string) *SessionRepo {
	return &SessionRepo{client: client, tableName: tableName, now: time.Now}
}

func (r *SessionRepo) Create(ctx context.Context, s *domain.VerificationSession) error {
	if s.TokenHash == "" {
		return errors.New("dynamo: empty token hash")
	}
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal verification session: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *SessionRepo) Find(ctx context.Context, tokenHash string) (*domain.VerificationSession, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("token_hash", tokenHash),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification session not found: %w", domain.ErrNotFound)
	}
	var s domain.VerificationSession
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	if s.IsExpired(r.now()) {
		return nil, fmt.Errorf("verification session expired: %w", domain.ErrNotFound)
	}
	return &s, nil
}

func (r *SessionRepo) Invalidate(ctx context.Context, tokenHash string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("token_hash", tokenHash),
	})
	return err
}

// Consume deletes the session only if it still holds the code hash that was
// matched; the conditional delete is the test-and-set, so a second caller
// fails the condition and sees ErrNotFound.
func (r *SessionRepo) Consume(ctx context.Context, tokenHash string, maxAttempts int, match domain.MatchFunc) (*domain.VerificationSession, error) {
	s, err := r.Find(ctx, tokenHash)
	if err != nil {
		return nil, err
	}

	if matchErr := match(s); matchErr != nil {
		if errors.Is(matchErr, domain.ErrMismatch) {
			if err := r.recordFailedAttempt(ctx, s, maxAttempts); err != nil {
				return nil, err
			}
		}
		return nil, matchErr
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("token_hash", tokenHash),
		ConditionExpression: aws.String("attribute_exists(token_hash) AND security_code_hash = :h AND expires_at > :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":h":   strAttr(s.SecurityCodeHash),
			":now": numAttr(r.now().Unix()),
		},
	})
	if isConditionFailed(err) {
		return nil, fmt.Errorf("verification session already consumed: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SessionRepo) recordFailedAttempt(ctx context.Context, s *domain.VerificationSession, maxAttempts int) error {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("token_hash", s.TokenHash),
		UpdateExpression:    aws.String("ADD attempts :one"),
		ConditionExpression: aws.String("attribute_exists(token_hash) AND security_code_hash = :h"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": numAttr(1),
			":h":   strAttr(s.SecurityCodeHash),
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if isConditionFailed(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("record failed attempt: %w", err)
	}
	if maxAttempts > 0 && numValue(out.Attributes, "attempts") >= maxAttempts {
		return r.Invalidate(ctx, s.TokenHash)
	}
	return nil
}
