package sms

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSPublisher abstracts the AWS SNS Publish call for testability.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSender sends SMS via AWS SNS direct-to-phone publishing.
type SNSSender struct {
	publisher SNSPublisher
	senderID  string
}

// NewSNSSender creates an SNSSender with the given publisher. senderID is
// optional and is sent as the AWS.SNS.SMS.SenderID attribute.
func NewSNSSender(publisher SNSPublisher, senderID string) *SNSSender {
	return &SNSSender{publisher: publisher, senderID: senderID}
}

// SNSClientConfig carries what is needed to build a real SNS client.
type SNSClientConfig struct {
	Region      string
	EndpointURL string // LocalStack in dev
	AccessKeyID string
	SecretKey   string
}

// NewSNSClient loads the default AWS config and returns an SNS client.
func NewSNSClient(ctx context.Context, cfg SNSClientConfig) (*sns.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sns: load AWS config: %w", err)
	}
	var clientOpts []func(*sns.Options)
	if cfg.EndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		})
	}
	return sns.NewFromConfig(awsCfg, clientOpts...), nil
}

func (p *SNSSender) Send(ctx context.Context, to, body string) (*SendResult, error) {
	in := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(body),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
		},
	}
	if p.senderID != "" {
		in.MessageAttributes["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType: aws.String("String"), StringValue: aws.String(p.senderID),
		}
	}
	out, err := p.publisher.Publish(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("sns: publish: %w", err)
	}
	return &SendResult{MessageID: aws.ToString(out.MessageId), Status: "sent"}, nil
}
