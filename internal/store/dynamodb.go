// internal/store/dynamodb.go
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/FairForge/kvbench/internal/models"
)

// scanPageLimit caps a single Scan request; DynamoDB pages at 1MB anyway
const scanPageLimit = 10000

// DynamoAPI is the subset of the DynamoDB client the store uses
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// DynamoConfig holds connection settings for a DynamoDB table
type DynamoConfig struct {
	Table     string
	Region    string
	Endpoint  string // optional, e.g. a DAX-compatible proxy or DynamoDB Local
	AccessKey string
	SecretKey string
}

// DynamoStore implements Store on a DynamoDB table keyed by "id"
type DynamoStore struct {
	table     string
	client    DynamoAPI
	logger    *zap.Logger
	pageLimit int32
}

// NewDynamoStore loads AWS configuration and creates a DynamoDB backed store
func NewDynamoStore(ctx context.Context, cfg DynamoConfig, logger *zap.Logger) (*DynamoStore, error) {
	if cfg.Table == "" {
		return nil, errors.New("dynamodb: table name is required")
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewDynamoStoreWithClient(client, cfg.Table, logger), nil
}

// NewDynamoStoreWithClient wraps an existing client
func NewDynamoStoreWithClient(client DynamoAPI, table string, logger *zap.Logger) *DynamoStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DynamoStore{
		table:     table,
		client:    client,
		logger:    logger.With(zap.String("table", table)),
		pageLimit: scanPageLimit,
	}
}

// Table returns the bound table name
func (d *DynamoStore) Table() string {
	return d.table
}

func keyOf(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		PartitionKey: &types.AttributeValueMemberS{Value: key},
	}
}

// Get reads an item with an eventually consistent GetItem
func (d *DynamoStore) Get(ctx context.Context, key string) (models.BenchmarkItem, bool, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key:       keyOf(key),
	})
	if err != nil {
		return models.BenchmarkItem{}, false, &StoreError{Op: OpGet, Key: key, Err: err}
	}
	if len(out.Item) == 0 {
		return models.BenchmarkItem{}, false, nil
	}

	item, err := unmarshalItem(out.Item)
	if err != nil {
		return models.BenchmarkItem{}, false, &StoreError{Op: OpGet, Key: key, Err: err}
	}
	return item, true, nil
}

// Put writes the whole item, replacing any previous version
func (d *DynamoStore) Put(ctx context.Context, item models.BenchmarkItem) error {
	_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      marshalItem(item),
	})
	if err != nil {
		return &StoreError{Op: OpPut, Key: item.ID, Err: err}
	}
	return nil
}

// Delete removes the item under key
func (d *DynamoStore) Delete(ctx context.Context, key string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.table),
		Key:       keyOf(key),
	})
	if err != nil {
		return &StoreError{Op: OpDelete, Key: key, Err: err}
	}
	return nil
}

// ScanKeys pages through the table projecting only the partition key
func (d *DynamoStore) ScanKeys(ctx context.Context, limit int) ([]string, error) {
	var (
		keys      []string
		startKey  map[string]types.AttributeValue
		pageLimit = d.pageLimit
	)

	for {
		if limit > 0 && limit-len(keys) < int(pageLimit) {
			pageLimit = int32(limit - len(keys))
		}

		out, err := d.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:            aws.String(d.table),
			ProjectionExpression: aws.String(PartitionKey),
			Limit:                aws.Int32(pageLimit),
			ExclusiveStartKey:    startKey,
		})
		if err != nil {
			return nil, &StoreError{Op: OpScan, Err: err}
		}

		for _, av := range out.Items {
			if s, ok := av[PartitionKey].(*types.AttributeValueMemberS); ok && strings.TrimSpace(s.Value) != "" {
				keys = append(keys, s.Value)
			}
		}

		d.logger.Debug("scanned page",
			zap.Int("items", len(out.Items)),
			zap.Int("total", len(keys)))

		if len(out.LastEvaluatedKey) == 0 || (limit > 0 && len(keys) >= limit) {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	return keys, nil
}

// EnsureTable creates the benchmark table when it does not exist yet and
// waits until it is active.
func (d *DynamoStore) EnsureTable(ctx context.Context, timeout time.Duration) error {
	_, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(d.table),
	})
	if err == nil {
		d.logger.Info("table already exists")
		return nil
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("describe table %s: %w", d.table, err)
	}

	d.logger.Info("creating table")
	_, err = d.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(d.table),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(PartitionKey), KeyType: types.KeyTypeHash},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(PartitionKey), AttributeType: types.ScalarAttributeTypeS},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create table %s: %w", d.table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(d.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(d.table)}, timeout); err != nil {
		return fmt.Errorf("wait for table %s: %w", d.table, err)
	}
	d.logger.Info("table is active")
	return nil
}

func marshalItem(item models.BenchmarkItem) map[string]types.AttributeValue {
	av := make(map[string]types.AttributeValue, len(item.Attributes)+1)
	av[PartitionKey] = &types.AttributeValueMemberS{Value: item.ID}
	for i, a := range item.Attributes {
		name := models.AttributeName(i)
		if a.Kind == models.AttributeNumber {
			av[name] = &types.AttributeValueMemberN{Value: a.Value}
		} else {
			av[name] = &types.AttributeValueMemberS{Value: a.Value}
		}
	}
	return av
}

func unmarshalItem(av map[string]types.AttributeValue) (models.BenchmarkItem, error) {
	id, ok := av[PartitionKey].(*types.AttributeValueMemberS)
	if !ok {
		return models.BenchmarkItem{}, fmt.Errorf("item has no string %q attribute", PartitionKey)
	}

	byPos := make(map[int]models.Attribute, len(av))
	maxPos := -1
	for name, value := range av {
		pos, ok := models.AttributePosition(name)
		if !ok || pos >= len(av) {
			continue
		}
		switch v := value.(type) {
		case *types.AttributeValueMemberS:
			byPos[pos] = models.Text(v.Value)
		case *types.AttributeValueMemberN:
			byPos[pos] = models.Attribute{Kind: models.AttributeNumber, Value: v.Value}
		default:
			return models.BenchmarkItem{}, fmt.Errorf("attribute %s has unsupported type %T", name, value)
		}
		if pos > maxPos {
			maxPos = pos
		}
	}

	item := models.BenchmarkItem{ID: id.Value}
	if maxPos >= 0 {
		item.Attributes = make([]models.Attribute, maxPos+1)
		for pos, a := range byPos {
			item.Attributes[pos] = a
		}
	}
	return item, nil
}
