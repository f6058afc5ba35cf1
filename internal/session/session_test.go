package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClock implements clock interface for testing
type mockClock struct {
	now time.Time
}

func (m *mockClock) Now() time.Time {
	return m.now
}

// mockDynamoDBClient implements a mock DynamoDB client for testing
type mockDynamoDBClient struct {
	getItemFunc func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	putItemFunc func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

var _ DynamoDBClient = (*mockDynamoDBClient)(nil)

func (m *mockDynamoDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.getItemFunc != nil {
		return m.getItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDynamoDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.putItemFunc != nil {
		return m.putItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.PutItemOutput{}, nil
}

// memoryDynamo stores items by sessionId
func memoryDynamo() *mockDynamoDBClient {
	items := map[string]map[string]types.AttributeValue{}
	return &mockDynamoDBClient{
		putItemFunc: func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			key := params.Item["sessionId"].(*types.AttributeValueMemberS).Value
			items[key] = params.Item
			return &dynamodb.PutItemOutput{}, nil
		},
		getItemFunc: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			key := params.Key["sessionId"].(*types.AttributeValueMemberS).Value
			return &dynamodb.GetItemOutput{Item: items[key]}, nil
		},
	}
}

func testRecord() Record {
	return Record{
		Latitude:   25.0375,
		Longitude:  121.5637,
		StationIDs: []string{"1", "2"},
		SpokenText: "離您最近的 GOGORO 換電站是「台北市政府站」",
	}
}

func TestRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Record)
		wantErr bool
	}{
		{"valid", func(r *Record) {}, false},
		{"missing key", func(r *Record) { r.Key = "" }, true},
		{"latitude out of range", func(r *Record) { r.Latitude = 91 }, true},
		{"longitude out of range", func(r *Record) { r.Longitude = -181 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRecord()
			r.Key = "s1"
			tt.modify(&r)
			if tt.wantErr {
				assert.Error(t, r.Validate())
			} else {
				assert.NoError(t, r.Validate())
			}
		})
	}
}

func TestLRUStore(t *testing.T) {
	store, err := NewLRUStore(2, 30*time.Minute)
	require.NoError(t, err)
	clk := &mockClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	store.clock = clk
	ctx := context.Background()

	missing, err := store.Load(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.Save(ctx, "s1", testRecord()))
	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "s1", got.Key)
	assert.Equal(t, []string{"1", "2"}, got.StationIDs)
	assert.Equal(t, clk.now.Unix(), got.LastUpdated)

	t.Run("expires after ttl", func(t *testing.T) {
		clk.now = clk.now.Add(31 * time.Minute)
		got, err := store.Load(ctx, "s1")
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		for _, key := range []string{"a", "b", "c"} {
			require.NoError(t, store.Save(ctx, key, testRecord()))
		}
		assert.Equal(t, 2, store.Len())
		got, err := store.Load(ctx, "a")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("rejects invalid record", func(t *testing.T) {
		r := testRecord()
		r.Latitude = 100
		assert.Error(t, store.Save(ctx, "bad", r))
	})
}

func TestNewLRUStore_InvalidSize(t *testing.T) {
	_, err := NewLRUStore(0, time.Minute)
	assert.Error(t, err)
}

func TestDynamoStore_SaveAndLoad(t *testing.T) {
	client := memoryDynamo()
	store := NewDynamoStore(client, "sessions", 30*24*time.Hour)
	clk := &mockClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	store.clock = clk
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "user-1", testRecord()))

	got, err := store.Load(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.Key)
	assert.Equal(t, 25.0375, got.Latitude)
	assert.Equal(t, clk.now.Add(30*24*time.Hour).Unix(), got.TTL)

	clk.now = clk.now.Add(31 * 24 * time.Hour)
	got, err = store.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, got, "expired items are ignored before DynamoDB removes them")
}

func TestDynamoStore_PutItemShape(t *testing.T) {
	var put *dynamodb.PutItemInput
	client := &mockDynamoDBClient{
		putItemFunc: func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			put = params
			return &dynamodb.PutItemOutput{}, nil
		},
	}

	require.NoError(t, NewDynamoStore(client, "sessions", time.Hour).Save(context.Background(), "user-1", testRecord()))
	require.NotNil(t, put)
	assert.Equal(t, "sessions", *put.TableName)

	var record Record
	require.NoError(t, attributevalue.UnmarshalMap(put.Item, &record))
	assert.Equal(t, "user-1", record.Key)
	assert.Contains(t, put.Item, "ttl")
}

func TestDynamoStore_Errors(t *testing.T) {
	dynamoErr := errors.New("throttled")
	client := &mockDynamoDBClient{
		getItemFunc: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return nil, dynamoErr
		},
		putItemFunc: func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			return nil, dynamoErr
		},
	}
	store := NewDynamoStore(client, "sessions", time.Hour)

	_, err := store.Load(context.Background(), "user-1")
	assert.ErrorIs(t, err, dynamoErr)

	err = store.Save(context.Background(), "user-1", testRecord())
	assert.ErrorIs(t, err, dynamoErr)
}

func TestDynamoStore_LoadMissing(t *testing.T) {
	got, err := NewDynamoStore(&mockDynamoDBClient{}, "sessions", time.Hour).Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSelector_For(t *testing.T) {
	guest, err := NewLRUStore(10, time.Minute)
	require.NoError(t, err)
	verified := NewDynamoStore(&mockDynamoDBClient{}, "sessions", time.Hour)

	selector := Selector{Verified: verified, Guest: guest}
	assert.Same(t, verified, selector.For(true))
	assert.Same(t, guest, selector.For(false))

	guestOnly := Selector{Guest: guest}
	assert.Same(t, guest, guestOnly.For(true))
}
