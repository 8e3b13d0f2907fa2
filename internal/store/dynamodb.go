package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoMetadataStore implements MetadataStore on a DynamoDB table keyed by
// video_id.
type DynamoMetadataStore struct {
	client *dynamodb.Client
	table  string
}

// videoItem is the DynamoDB item layout for one record.
type videoItem struct {
	VideoID      string `dynamodbav:"video_id"`
	Name         string `dynamodbav:"name"`
	Size         int64  `dynamodbav:"size"`
	Length       int64  `dynamodbav:"length"`
	CreationDate string `dynamodbav:"creation_date"`
	Status       string `dynamodbav:"processing_status"`
}

func NewDynamoMetadataStore(client *dynamodb.Client, table string) *DynamoMetadataStore {
	return &DynamoMetadataStore{client: client, table: table}
}

// EnsureTable creates the backing table if it does not exist yet.
func (s *DynamoMetadataStore) EnsureTable(ctx context.Context) error {
	_, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("video_id"), KeyType: types.KeyTypeHash},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("video_id"), AttributeType: types.ScalarAttributeTypeS},
		},
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(1),
			WriteCapacityUnits: aws.Int64(1),
		},
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return nil
		}
		return fmt.Errorf("failed to create the table: %w", err)
	}
	return nil
}

func (s *DynamoMetadataStore) Create(ctx context.Context, record VideoRecord) error {
	item, err := attributevalue.MarshalMap(videoItem{
		VideoID:      record.VideoID,
		Name:         record.Name,
		Size:         record.Size,
		Length:       record.Length,
		CreationDate: record.CreationDate,
		Status:       record.Status,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal the item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(video_id)"),
	})
	if err != nil {
		var failed *types.ConditionalCheckFailedException
		if errors.As(err, &failed) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to put the item: %w", err)
	}
	return nil
}

func (s *DynamoMetadataStore) Get(ctx context.Context, videoID string) (VideoRecord, error) {
	output, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"video_id": &types.AttributeValueMemberS{Value: videoID},
		},
	})
	if err != nil {
		return VideoRecord{}, fmt.Errorf("failed to get the item: %w", err)
	}
	if output.Item == nil {
		return VideoRecord{}, ErrNotFound
	}

	var item videoItem
	if err := attributevalue.UnmarshalMap(output.Item, &item); err != nil {
		return VideoRecord{}, fmt.Errorf("failed to unmarshal the item: %w", err)
	}
	return VideoRecord{
		VideoID:      item.VideoID,
		Name:         item.Name,
		Size:         item.Size,
		Length:       item.Length,
		CreationDate: item.CreationDate,
		Status:       item.Status,
	}, nil
}

func (s *DynamoMetadataStore) UpdateTerminal(ctx context.Context, videoID string, status string, length int64) error {
	// Single UpdateItem so status and length change atomically. The existence
	// condition makes an update against a deleted record report ErrNotFound
	// instead of resurrecting it.
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"video_id": &types.AttributeValueMemberS{Value: videoID},
		},
		UpdateExpression:    aws.String("SET processing_status = :s, #l = :l"),
		ConditionExpression: aws.String("attribute_exists(video_id)"),
		ExpressionAttributeNames: map[string]string{
			"#l": "length",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: status},
			":l": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", length)},
		},
	})
	if err != nil {
		var failed *types.ConditionalCheckFailedException
		if errors.As(err, &failed) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update the item: %w", err)
	}
	return nil
}

func (s *DynamoMetadataStore) Delete(ctx context.Context, videoID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"video_id": &types.AttributeValueMemberS{Value: videoID},
		},
		ConditionExpression: aws.String("attribute_exists(video_id)"),
	})
	if err != nil {
		var failed *types.ConditionalCheckFailedException
		if errors.As(err, &failed) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete the item: %w", err)
	}
	return nil
}
