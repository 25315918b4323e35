package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type settingsItem struct {
	Key       string            `dynamodbav:"settings_key"`
	Values    map[string]string `dynamodbav:"values"`
	UpdatedAt string            `dynamodbav:"updated_at"`
}

// DynamoStore keeps all settings as a single DynamoDB item.
type DynamoStore struct {
	client DynamoAPI
	table  string
	key    string
}

func NewDynamoStore(client DynamoAPI, table, key string) *DynamoStore {
	return &DynamoStore{client: client, table: table, key: key}
}

func (s *DynamoStore) itemKey() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"settings_key": &types.AttributeValueMemberS{Value: s.key},
	}
}

func (s *DynamoStore) GetValues(ctx context.Context) (map[string]string, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.itemKey(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get settings item: %w", err)
	}
	if len(out.Item) == 0 {
		return map[string]string{}, nil
	}

	var item settingsItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to decode settings item: %w", err)
	}
	if item.Values == nil {
		item.Values = map[string]string{}
	}
	return item.Values, nil
}

// PutValues merges values into the stored item.
func (s *DynamoStore) PutValues(ctx context.Context, values map[string]string) error {
	current, err := s.GetValues(ctx)
	if err != nil {
		return err
	}
	for k, v := range values {
		current[k] = v
	}

	av, err := attributevalue.MarshalMap(settingsItem{
		Key:       s.key,
		Values:    current,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to encode settings item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put settings item: %w", err)
	}
	return nil
}
