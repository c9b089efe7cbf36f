package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"trendpulse/internal/logging"
	"trendpulse/internal/models"
)

// snapshotPartition is the fixed partition key value. Snapshots form a
// single time-ordered series, so they all share one partition with the
// timestamp as sort key.
const snapshotPartition = "trend-snapshot"

type dynamoItem struct {
	PK        string `dynamodbav:"pk"`
	CreatedAt string `dynamodbav:"created_at"`
	ID        string `dynamodbav:"id"`
	Trends    string `dynamodbav:"trends"`
	Analysis  string `dynamodbav:"analysis"`
}

// DynamoStore persists snapshots to a DynamoDB table. The trend payload is
// stored as a JSON string attribute to keep items well under the item size
// limit and avoid per-record attribute churn.
type DynamoStore struct {
	client *dynamodb.Client
	table  string
	logger *logging.Logger
}

// NewDynamoStore loads the default AWS config chain (env, shared config,
// instance role) and verifies the table exists.
func NewDynamoStore(ctx context.Context, table, region string, logger *logging.Logger) (*DynamoStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	store := &DynamoStore{
		client: dynamodb.NewFromConfig(cfg),
		table:  table,
		logger: logger,
	}

	descCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := store.client.DescribeTable(descCtx, &dynamodb.DescribeTableInput{
		TableName: aws.String(table),
	}); err != nil {
		return nil, fmt.Errorf("describing dynamodb table %q: %w", table, err)
	}

	logger.Info("Connected to dynamodb snapshot store", logging.WithField("table", table))
	return store, nil
}

func (s *DynamoStore) Save(ctx context.Context, snap models.Snapshot) (string, error) {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}

	trends, err := json.Marshal(snap.Trends)
	if err != nil {
		return "", fmt.Errorf("encoding snapshot trends: %w", err)
	}

	item, err := attributevalue.MarshalMap(dynamoItem{
		PK:        snapshotPartition,
		CreatedAt: snap.Timestamp.UTC().Format(time.RFC3339Nano),
		ID:        snap.ID,
		Trends:    string(trends),
		Analysis:  snap.Analysis,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling snapshot item: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return "", fmt.Errorf("writing snapshot item: %w", err)
	}
	return snap.ID, nil
}

func (s *DynamoStore) Latest(ctx context.Context) (models.Snapshot, bool, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: snapshotPartition},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return models.Snapshot{}, false, fmt.Errorf("querying latest snapshot: %w", err)
	}
	if len(out.Items) == 0 {
		return models.Snapshot{}, false, nil
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return models.Snapshot{}, false, fmt.Errorf("unmarshaling snapshot item: %w", err)
	}

	snap := models.Snapshot{ID: item.ID, Analysis: item.Analysis}
	if ts, err := time.Parse(time.RFC3339Nano, item.CreatedAt); err == nil {
		snap.Timestamp = ts
	}
	if err := json.Unmarshal([]byte(item.Trends), &snap.Trends); err != nil {
		return models.Snapshot{}, false, fmt.Errorf("decoding snapshot trends: %w", err)
	}
	return snap, true, nil
}

var _ Store = (*DynamoStore)(nil)
