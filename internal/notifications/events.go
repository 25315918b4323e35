package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

const eventTypeIssued = "certificate.issued"

// SNSAPI is the subset of the SNS client used by Publisher.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher announces certificate events on an SNS topic.
type Publisher struct {
	client   SNSAPI
	topicARN string
}

func NewPublisher(client SNSAPI, topicARN string) *Publisher {
	return &Publisher{client: client, topicARN: topicARN}
}

func (p *Publisher) PublishIssued(ctx context.Context, event IssuedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(eventTypeIssued),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventTypeIssued, err)
	}
	return nil
}
