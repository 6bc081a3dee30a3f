package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"AptScanner/internal/ports"
)

// maxSubjectLen is SNS's limit for email subjects.
const maxSubjectLen = 99

// PublishAPI is the slice of the SNS client used here.
type PublishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher sends digests to an SNS topic.
type Publisher struct {
	api      PublishAPI
	topicARN string
}

var _ ports.Notifier = (*Publisher)(nil)

// NewPublisher binds the client to a topic.
func NewPublisher(api PublishAPI, topicARN string) *Publisher {
	return &Publisher{api: api, topicARN: topicARN}
}

// Publish posts one message to the topic.
func (p *Publisher) Publish(ctx context.Context, subject, message string) error {
	if p.topicARN == "" {
		return fmt.Errorf("sns publisher misconfigured: empty topic arn")
	}

	if len(subject) > maxSubjectLen {
		subject = subject[:maxSubjectLen]
	}

	_, err := p.api.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
