// Package dynamo persists monthly buckets in a DynamoDB table keyed by
// creator (partition) and period (sort).
package dynamo

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"fanrevenue/internal/bucket"
)

// Attribute names.
const (
	attrCreatorID    = "CreatorID"
	attrPeriod       = "Period"
	attrPayload      = "Payload"
	attrTotalRevenue = "TotalRevenue"
	attrLastModified = "LastModified"
)

// Client is the subset of *dynamodb.Client the repository uses.
type Client interface {
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Repository handles DynamoDB operations for monthly buckets.
type Repository struct {
	client    Client
	tableName string
}

var _ bucket.Repository = (*Repository)(nil)

func NewRepository(client Client, tableName string) *Repository {
	return &Repository{client: client, tableName: tableName}
}

// NewFromRegion builds a repository on the default AWS credential chain.
func NewFromRegion(ctx context.Context, region, tableName string) (*Repository, error) {
	awscfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewRepository(dynamodb.NewFromConfig(awscfg), tableName), nil
}

// Load queries every bucket of the creator, newest period first, following
// pagination.
func (r *Repository) Load(ctx context.Context, creatorID string) ([]bucket.MonthlyBucket, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("#c = :c"),
		ExpressionAttributeNames: map[string]string{
			"#c": attrCreatorID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: creatorID},
		},
		ScanIndexForward: aws.Bool(false),
	}

	out := make([]bucket.MonthlyBucket, 0)
	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query buckets for %s: %w", creatorID, err)
		}
		for _, item := range result.Items {
			b, err := unmarshalBucket(item)
			if err != nil {
				return nil, fmt.Errorf("load buckets for %s: %w", creatorID, err)
			}
			out = append(out, b)
		}
		if len(result.LastEvaluatedKey) == 0 {
			return out, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

// Save puts the bucket item, replacing any previous version.
func (r *Repository) Save(ctx context.Context, b bucket.MonthlyBucket) error {
	item, err := marshalBucket(b)
	if err != nil {
		return err
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put bucket %s: %w", b.Key(), err)
	}
	return nil
}

// Delete removes the bucket item. DynamoDB treats a missing item as success.
func (r *Repository) Delete(ctx context.Context, key bucket.Key) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       itemKey(key),
	})
	if err != nil {
		return fmt.Errorf("delete bucket %s: %w", key, err)
	}
	return nil
}

// Creators scans the partition key of every item. It reads the whole table
// and is meant for startup warmup and resync only.
func (r *Repository) Creators(ctx context.Context) ([]string, error) {
	input := &dynamodb.ScanInput{
		TableName:            aws.String(r.tableName),
		ProjectionExpression: aws.String("#c"),
		ExpressionAttributeNames: map[string]string{
			"#c": attrCreatorID,
		},
	}

	seen := map[string]struct{}{}
	out := make([]string, 0)
	for {
		result, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scan creators: %w", err)
		}
		for _, item := range result.Items {
			attr, ok := item[attrCreatorID].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			if _, dup := seen[attr.Value]; dup {
				continue
			}
			seen[attr.Value] = struct{}{}
			out = append(out, attr.Value)
		}
		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	sort.Strings(out)
	return out, nil
}

func itemKey(k bucket.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrCreatorID: &types.AttributeValueMemberS{Value: k.CreatorID},
		attrPeriod:    &types.AttributeValueMemberS{Value: k.Period()},
	}
}

// marshalBucket stores the tagged snapshot as a binary attribute next to a
// few plain attributes for console browsing.
func marshalBucket(b bucket.MonthlyBucket) (map[string]types.AttributeValue, error) {
	payload, err := bucket.EncodeSnapshot(b)
	if err != nil {
		return nil, err
	}
	item := itemKey(b.Key())
	item[attrPayload] = &types.AttributeValueMemberB{Value: payload}
	item[attrTotalRevenue] = &types.AttributeValueMemberN{Value: strconv.FormatInt(b.Analysis.TotalRevenue, 10)}
	item[attrLastModified] = &types.AttributeValueMemberS{Value: b.LastModified.UTC().Format(time.RFC3339)}
	return item, nil
}

func unmarshalBucket(item map[string]types.AttributeValue) (bucket.MonthlyBucket, error) {
	attr, ok := item[attrPayload].(*types.AttributeValueMemberB)
	if !ok {
		return bucket.MonthlyBucket{}, fmt.Errorf("%w: item without binary %s", bucket.ErrSchemaMismatch, attrPayload)
	}
	return bucket.DecodeSnapshot(attr.Value)
}
