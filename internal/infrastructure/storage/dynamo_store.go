package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"AptScanner/internal/domain"
	"AptScanner/internal/ports"
)

// DynamoAPI is the slice of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	dynamodb.ScanAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoStore keeps the seen-set in a DynamoDB table keyed by post_id.
// Expiry is enforced by the table's TTL setting on the "ttl" attribute.
type DynamoStore struct {
	api   DynamoAPI
	table string
}

var _ ports.SeenStore = (*DynamoStore)(nil)

type dynamoItem struct {
	PostID  string `dynamodbav:"post_id"`
	Title   string `dynamodbav:"title"`
	FoundAt string `dynamodbav:"found_at"`
	Status  string `dynamodbav:"status,omitempty"`
	Reason  string `dynamodbav:"reason,omitempty"`
	TTL     int64  `dynamodbav:"ttl"`
}

// NewDynamoStore binds the client to a table.
func NewDynamoStore(api DynamoAPI, table string) *DynamoStore {
	return &DynamoStore{api: api, table: table}
}

// SeenIDs scans the whole table, projecting only the key. Expiry is left to
// the table's TTL sweep, so now is not consulted.
func (s *DynamoStore) SeenIDs(ctx context.Context, _ time.Time) (map[string]struct{}, error) {
	paginator := dynamodb.NewScanPaginator(s.api, &dynamodb.ScanInput{
		TableName:            aws.String(s.table),
		ProjectionExpression: aws.String("post_id"),
	})

	result := make(map[string]struct{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}

		var rows []struct {
			PostID string `dynamodbav:"post_id"`
		}
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &rows); err != nil {
			return nil, fmt.Errorf("unmarshal scan page: %w", err)
		}
		for _, row := range rows {
			if row.PostID != "" {
				result[row.PostID] = struct{}{}
			}
		}
	}

	return result, nil
}

// Put writes the record only if the post id is not already stored.
func (s *DynamoStore) Put(ctx context.Context, record domain.SeenRecord) error {
	item, err := attributevalue.MarshalMap(dynamoItem{
		PostID:  record.PostID,
		Title:   record.Title,
		FoundAt: record.FoundAt.UTC().Format(time.RFC3339),
		Status:  string(record.Status),
		Reason:  record.Reason,
		TTL:     record.ExpiresAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal seen record: %w", err)
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(post_id)"),
	})
	if err != nil {
		var exists *types.ConditionalCheckFailedException
		if errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("put seen %s: %w", record.PostID, err)
	}
	return nil
}
