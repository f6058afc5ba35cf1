package session

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

// DynamoDBClient is the subset of the DynamoDB API the store uses
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoStore keeps verified user sessions in a DynamoDB table whose ttl
// attribute lets DynamoDB expire old items.
type DynamoStore struct {
	client    DynamoDBClient
	tableName string
	ttl       time.Duration
	clock     clock
}

var _ Store = (*DynamoStore)(nil)

func NewDynamoStore(client DynamoDBClient, tableName string, ttl time.Duration) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		ttl:       ttl,
		clock:     realClock{},
	}
}

func (s *DynamoStore) Load(ctx context.Context, key string) (*Record, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"sessionId": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("getting session from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var record Record
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, fmt.Errorf("unmarshaling session record: %w", err)
	}

	// DynamoDB deletes expired items lazily
	if s.clock.Now().Unix() > record.TTL {
		log.Debug().Str("session", key).Msg("Session expired")
		return nil, nil
	}
	return &record, nil
}

func (s *DynamoStore) Save(ctx context.Context, key string, record Record) error {
	record.Key = key
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid session record: %w", err)
	}

	now := s.clock.Now()
	record.LastUpdated = now.Unix()
	record.TTL = now.Add(s.ttl).Unix()

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshaling session record: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("putting session in DynamoDB: %w", err)
	}

	log.Debug().Str("session", key).Msg("Saved session")
	return nil
}
