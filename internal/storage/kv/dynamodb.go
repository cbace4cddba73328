package kv

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"go.uber.org/zap"

	"github.com/spec-kit/records-service/internal/domain"
	"github.com/spec-kit/records-service/internal/storage"
	apperrors "github.com/spec-kit/records-service/pkg/util"
)

// DynamoAPI is the subset of *dynamodb.Client the store calls.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

const tableActiveTimeout = 2 * time.Minute

// DynamoStore keeps one DynamoDB item per record, hashed on the schema key.
type DynamoStore[T any] struct {
	schema domain.Schema[T]
	conn   *storage.Conn[DynamoAPI]
	table  string
	logger *zap.Logger

	// WaitTimeout bounds how long Initialize waits for a new table.
	WaitTimeout time.Duration
}

var _ storage.Store[struct{}] = (*DynamoStore[struct{}])(nil)

// NewDynamoStore builds a store; the client is created on first use.
func NewDynamoStore[T any](schema domain.Schema[T], dial storage.DialFunc[DynamoAPI], table string, logger *zap.Logger) *DynamoStore[T] {
	return &DynamoStore[T]{
		schema:      schema,
		conn:        storage.NewConn(dial, nil),
		table:       table,
		logger:      logger.With(zap.String("table", table), zap.String("backend", "dynamodb")),
		WaitTimeout: tableActiveTimeout,
	}
}

// Initialize creates the table with on-demand billing when it does not exist
// and waits until it is active.
func (s *DynamoStore[T]) Initialize(ctx context.Context) error {
	client, gen, err := s.conn.Get(ctx)
	if err != nil {
		return err
	}

	_, err = client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err == nil {
		s.logger.Info("table ready")
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return s.fail(ctx, gen, "initialize", err)
	}

	keyField := s.schema.KeyField()
	_, err = client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(s.table),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(keyField), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(keyField), KeyType: types.KeyTypeHash},
		},
	})
	var inUse *types.ResourceInUseException
	if err != nil && !errors.As(err, &inUse) {
		return s.fail(ctx, gen, "initialize", err)
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}, s.WaitTimeout); err != nil {
		return s.fail(ctx, gen, "initialize", err)
	}
	s.logger.Info("table created")
	return nil
}

func (s *DynamoStore[T]) Create(ctx context.Context, record T) (T, error) {
	var zero T
	client, gen, err := s.conn.Get(ctx)
	if err != nil {
		return zero, err
	}
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return zero, apperrors.NewInternalError(fmt.Errorf("encode %s: %w", s.schema.Resource(), err))
	}
	_, err = client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.table),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#k)"),
		ExpressionAttributeNames: map[string]string{"#k": s.schema.KeyField()},
	})
	if err != nil {
		if isConditionFailed(err) {
			return zero, apperrors.NewConflict(fmt.Sprintf("%s already exists", s.schema.Resource()), err)
		}
		return zero, s.fail(ctx, gen, "create", err)
	}
	return record, nil
}

func (s *DynamoStore[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var zero T
	client, gen, err := s.conn.Get(ctx)
	if err != nil {
		return zero, false, err
	}
	return s.get(ctx, client, gen, id)
}

func (s *DynamoStore[T]) get(ctx context.Context, client DynamoAPI, gen uint64, id string) (T, bool, error) {
	var zero T
	out, err := client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return zero, false, s.fail(ctx, gen, "get", err)
	}
	if len(out.Item) == 0 {
		return zero, false, nil
	}
	record, err := s.decode(out.Item)
	if err != nil {
		return zero, false, err
	}
	return record, true, nil
}

func (s *DynamoStore[T]) List(ctx context.Context) ([]T, error) {
	client, gen, err := s.conn.Get(ctx)
	if err != nil {
		return nil, err
	}
	records := []T{}
	paginator := dynamodb.NewScanPaginator(client, &dynamodb.ScanInput{
		TableName:      aws.String(s.table),
		ConsistentRead: aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, s.fail(ctx, gen, "list", err)
		}
		for _, item := range page.Items {
			record, err := s.decode(item)
			if err != nil {
				return nil, err
			}
			records = append(records, record)
		}
	}
	sort.SliceStable(records, func(i, j int) bool { return s.schema.Less(records[i], records[j]) })
	return records, nil
}

// Update reads the stored record, merges and writes it back on the condition
// that it still exists.
func (s *DynamoStore[T]) Update(ctx context.Context, id string, record T) (T, bool, error) {
	var zero T
	client, gen, err := s.conn.Get(ctx)
	if err != nil {
		return zero, false, err
	}
	stored, found, err := s.get(ctx, client, gen, id)
	if err != nil || !found {
		return zero, false, err
	}

	merged := s.schema.Merge(stored, record)
	item, err := attributevalue.MarshalMap(merged)
	if err != nil {
		return zero, false, apperrors.NewInternalError(fmt.Errorf("encode %s: %w", s.schema.Resource(), err))
	}
	_, err = client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.table),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_exists(#k)"),
		ExpressionAttributeNames: map[string]string{"#k": s.schema.KeyField()},
	})
	if err != nil {
		if isConditionFailed(err) {
			return zero, false, nil
		}
		return zero, false, s.fail(ctx, gen, "update", err)
	}
	return merged, true, nil
}

func (s *DynamoStore[T]) Delete(ctx context.Context, id string) (bool, error) {
	client, gen, err := s.conn.Get(ctx)
	if err != nil {
		return false, err
	}
	out, err := client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.table),
		Key:          s.key(id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, s.fail(ctx, gen, "delete", err)
	}
	return len(out.Attributes) > 0, nil
}

func (s *DynamoStore[T]) Close() error {
	return s.conn.Close()
}

func (s *DynamoStore[T]) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		s.schema.KeyField(): &types.AttributeValueMemberS{Value: id},
	}
}

func (s *DynamoStore[T]) decode(item map[string]types.AttributeValue) (T, error) {
	var record T
	if err := attributevalue.UnmarshalMap(item, &record); err != nil {
		return record, apperrors.NewBackendError(fmt.Errorf("decode %s: %w", s.schema.Resource(), err))
	}
	return record, nil
}

func (s *DynamoStore[T]) fail(ctx context.Context, gen uint64, op string, err error) error {
	wrapped := fmt.Errorf("%s %s: %w", op, s.table, err)
	if ctx.Err() != nil {
		return apperrors.NewUnavailable(wrapped)
	}
	if isDynamoUnavailable(err) {
		s.logger.Warn("backend unreachable; dropping client", zap.String("op", op), zap.Error(err))
		return s.conn.Observe(ctx, gen, apperrors.NewUnavailable(wrapped))
	}
	return apperrors.NewBackendError(wrapped)
}

func isConditionFailed(err error) bool {
	var condErr *types.ConditionalCheckFailedException
	return errors.As(err, &condErr)
}

func isDynamoUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var sendErr *smithyhttp.RequestSendError
	if errors.As(err, &sendErr) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ProvisionedThroughputExceededException", "ThrottlingException",
			"RequestLimitExceeded", "ServiceUnavailable", "InternalServerError":
			return true
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
