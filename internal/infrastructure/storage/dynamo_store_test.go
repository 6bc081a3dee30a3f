package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AptScanner/internal/domain"
)

type fakeDynamo struct {
	pages   [][]map[string]types.AttributeValue
	scans   []*dynamodb.ScanInput
	puts    []*dynamodb.PutItemInput
	scanErr error
	putErr  error
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scans = append(f.scans, in)
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	idx := len(f.scans) - 1
	out := &dynamodb.ScanOutput{Items: f.pages[idx]}
	if idx+1 < len(f.pages) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"post_id": &types.AttributeValueMemberS{Value: "cursor"},
		}
	}
	return out, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	return &dynamodb.PutItemOutput{}, f.putErr
}

func idItem(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"post_id": &types.AttributeValueMemberS{Value: id}}
}

func TestDynamoSeenIDsFollowsPages(t *testing.T) {
	api := &fakeDynamo{pages: [][]map[string]types.AttributeValue{
		{idItem("t3_a"), idItem("t3_b")},
		{idItem("t3_c")},
	}}
	store := NewDynamoStore(api, "seen")

	ids, err := store.SeenIDs(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"t3_a": {}, "t3_b": {}, "t3_c": {}}, ids)
	require.Len(t, api.scans, 2)
	assert.Equal(t, "seen", aws.ToString(api.scans[0].TableName))
	assert.Equal(t, "post_id", aws.ToString(api.scans[0].ProjectionExpression))
	assert.NotNil(t, api.scans[1].ExclusiveStartKey)
}

func TestDynamoSeenIDsError(t *testing.T) {
	store := NewDynamoStore(&fakeDynamo{scanErr: errors.New("ResourceNotFoundException")}, "seen")
	_, err := store.SeenIDs(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan seen")
}

func TestDynamoPutRichRecord(t *testing.T) {
	api := &fakeDynamo{}
	store := NewDynamoStore(api, "seen")
	found := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

	err := store.Put(context.Background(), domain.SeenRecord{
		PostID:    "t3_a",
		Title:     "2BR Manhattan Gem",
		FoundAt:   found,
		Status:    domain.DecisionSkip,
		Reason:    "Old Date",
		ExpiresAt: found.Add(14 * 24 * time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, api.puts, 1)

	in := api.puts[0]
	assert.Equal(t, "seen", aws.ToString(in.TableName))
	assert.Equal(t, "attribute_not_exists(post_id)", aws.ToString(in.ConditionExpression))
	assert.Equal(t, &types.AttributeValueMemberS{Value: "t3_a"}, in.Item["post_id"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "2026-10-19T09:30:00Z"}, in.Item["found_at"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "SKIP"}, in.Item["status"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "Old Date"}, in.Item["reason"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "1793611800"}, in.Item["ttl"])
}

func TestDynamoPutSeenOnlyOmitsOutcome(t *testing.T) {
	api := &fakeDynamo{}
	store := NewDynamoStore(api, "seen")

	require.NoError(t, store.Put(context.Background(), domain.SeenRecord{PostID: "t3_a", Title: "x"}))
	require.Len(t, api.puts, 1)
	assert.NotContains(t, api.puts[0].Item, "status")
	assert.NotContains(t, api.puts[0].Item, "reason")
}

func TestDynamoPutExistingIsNoop(t *testing.T) {
	api := &fakeDynamo{putErr: &types.ConditionalCheckFailedException{Message: aws.String("exists")}}
	store := NewDynamoStore(api, "seen")
	assert.NoError(t, store.Put(context.Background(), domain.SeenRecord{PostID: "t3_a"}))
}

func TestDynamoPutError(t *testing.T) {
	api := &fakeDynamo{putErr: errors.New("ProvisionedThroughputExceeded")}
	store := NewDynamoStore(api, "seen")
	err := store.Put(context.Background(), domain.SeenRecord{PostID: "t3_a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "put seen t3_a")
}

func TestDynamoPutDuplicateIDsInOneRun(t *testing.T) {
	api := &fakeDynamo{}
	store := NewDynamoStore(api, "seen")
	ctx := context.Background()
	run := time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)

	rec := domain.SeenRecord{PostID: "t3_dup", Title: "first", FoundAt: run, ExpiresAt: run.Add(time.Hour)}
	require.NoError(t, store.Put(ctx, rec))

	// the table already holds the id, so the second conditional put is rejected
	api.putErr = &types.ConditionalCheckFailedException{Message: aws.String("exists")}
	rec.Title = "second"
	require.NoError(t, store.Put(ctx, rec))

	require.Len(t, api.puts, 2)
	for _, in := range api.puts {
		assert.Equal(t, "attribute_not_exists(post_id)", aws.ToString(in.ConditionExpression))
		assert.Equal(t, &types.AttributeValueMemberS{Value: "t3_dup"}, in.Item["post_id"])
	}
}
