package store

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/lightgrid/lightgrid-services-uploads/apperrors"
	"github.com/lightgrid/lightgrid-services-uploads/models"
	"github.com/lightgrid/lightgrid-services-uploads/retries"
)

// DynamoDbFileStore persists StoredFile records. The table is keyed by
// file_id and carries two GSIs: content_hash-index (dedup lookup) and
// owner_id-index (listing).
type DynamoDbFileStore struct {
	client    *dynamodb.Client
	tableName string
}

func NewDynamoDbFileStore(client *dynamodb.Client, tableName string) *DynamoDbFileStore {
	return &DynamoDbFileStore{
		client:    client,
		tableName: tableName,
	}
}

// isRetriableLookupError keeps not-found results out of the retry loop;
// a dedup miss is the common case, not a transient fault.
func isRetriableLookupError(err error) bool {
	if errors.Is(err, apperrors.ErrFileNotFound) {
		return false
	}
	return retries.IsRetriableDbError(err)
}

func (s *DynamoDbFileStore) IsReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	return retries.Retry(
		ctx,
		retries.HealthAttempts,
		retries.HealthBaseDelay,
		func() error {
			_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
				TableName: aws.String(s.tableName),
			})
			return err
		},
		retries.IsRetriableDbError,
	)
}

func (s *DynamoDbFileStore) Name() string {
	return "FileStore[files]"
}

func (s *DynamoDbFileStore) Create(ctx context.Context, file models.StoredFile) error {
	fileItem, err := attributevalue.MarshalMap(file)
	if err != nil {
		return err
	}

	// A guard item keyed by the content hash makes hash uniqueness a
	// transactional write condition instead of a read-then-write race.
	// The guard carries no content_hash or owner_id attribute, so it
	// never surfaces in either GSI.
	guardItem := map[string]types.AttributeValue{
		"file_id":     &types.AttributeValueMemberS{Value: "hash#" + file.ContentHash},
		"ref_file_id": &types.AttributeValueMemberS{Value: file.FileID},
	}

	err = retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
				TransactItems: []types.TransactWriteItem{
					{Put: &types.Put{
						TableName:           aws.String(s.tableName),
						Item:                fileItem,
						ConditionExpression: aws.String("attribute_not_exists(file_id)"),
					}},
					{Put: &types.Put{
						TableName:           aws.String(s.tableName),
						Item:                guardItem,
						ConditionExpression: aws.String("attribute_not_exists(file_id)"),
					}},
				},
			})
			return err
		},
		retries.IsRetriableDbError,
	)
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			return &ContentHashConflictError{ContentHash: file.ContentHash}
		}
		return err
	}
	return nil
}

func (s *DynamoDbFileStore) GetByID(ctx context.Context, fileID string) (*models.StoredFile, error) {
	var file models.StoredFile

	err := retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
				TableName: aws.String(s.tableName),
				Key: map[string]types.AttributeValue{
					"file_id": &types.AttributeValueMemberS{Value: fileID},
				},
			})
			if err != nil {
				return err
			}

			if out.Item == nil {
				return apperrors.ErrFileNotFound
			}

			return attributevalue.UnmarshalMap(out.Item, &file)
		},
		isRetriableLookupError,
	)
	if err != nil {
		return nil, err
	}

	return &file, nil
}

func (s *DynamoDbFileStore) GetByHash(ctx context.Context, contentHash string) (*models.StoredFile, error) {
	var file models.StoredFile

	err := retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			out, err := s.client.Query(ctx, &dynamodb.QueryInput{
				TableName:              aws.String(s.tableName),
				IndexName:              aws.String("content_hash-index"),
				KeyConditionExpression: aws.String("content_hash = :h"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":h": &types.AttributeValueMemberS{Value: contentHash},
				},
				Limit: aws.Int32(1),
			})
			if err != nil {
				return err
			}

			if len(out.Items) == 0 {
				return apperrors.ErrFileNotFound
			}

			return attributevalue.UnmarshalMap(out.Items[0], &file)
		},
		isRetriableLookupError,
	)
	if err != nil {
		return nil, err
	}

	return &file, nil
}

func (s *DynamoDbFileStore) ListByOwner(ctx context.Context, ownerID string) ([]models.StoredFile, error) {
	var files []models.StoredFile

	err := retries.Retry(
		ctx,
		retries.DefaultAttempts,
		retries.DefaultBaseDelay,
		func() error {
			out, err := s.client.Query(ctx, &dynamodb.QueryInput{
				TableName:              aws.String(s.tableName),
				IndexName:              aws.String("owner_id-index"),
				KeyConditionExpression: aws.String("owner_id = :o"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":o": &types.AttributeValueMemberS{Value: ownerID},
				},
			})
			if err != nil {
				return err
			}

			return attributevalue.UnmarshalListOfMaps(out.Items, &files)
		},
		retries.IsRetriableDbError,
	)
	if err != nil {
		return nil, err
	}

	return files, nil
}
