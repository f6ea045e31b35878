package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNS rejects messages above 256KB and subjects above 100 characters.
const (
	maxSNSMessageBytes = 256 * 1024
	maxSNSSubjectChars = 100
)

func NewSNSNotifier(ctx context.Context, appConfig AppConfig) (Notifier, error) {
	cfg, cfgErr := loadAWSConfig(ctx, appConfig)
	if cfgErr != nil {
		return nil, cfgErr
	}
	snsClient := &SNSClient{sns.NewFromConfig(cfg)}
	return &SNSNotifier{Client: snsClient, Topic: appConfig.SNSTopic}, nil
}

type SNSClientIface interface {
	PublishMessage(ctx context.Context, msg *sns.PublishInput) error
}

type SNSClient struct {
	Client *sns.Client
}

func (s *SNSClient) PublishMessage(ctx context.Context, msg *sns.PublishInput) error {
	_, publishErr := s.Client.Publish(ctx, msg)
	return publishErr
}

type SNSNotifier struct {
	Client SNSClientIface
	Topic  string
}

// NotifySyncResults publishes one message listing every failed item. Clean
// runs publish nothing.
func (s *SNSNotifier) NotifySyncResults(ctx context.Context, appConfig AppConfig, result *SyncResult) error {
	failures := result.SortedFailures()
	if len(failures) == 0 {
		return nil
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Uploaded: %d\nDeleted: %d\nSkipped: %d\nFailed: %d\n\n", result.Uploaded, result.Deleted, result.Skipped, result.Failed)
	for i, failure := range failures {
		entry := fmt.Sprintf("Action: %s\nKey: %s\nError: %s\n\n", failure.Op, failure.Path, failure.Err)
		if body.Len()+len(entry) > maxSNSMessageBytes-128 {
			fmt.Fprintf(&body, "... and %d more failures\n", len(failures)-i)
			break
		}
		body.WriteString(entry)
	}

	snsPublishReq := &sns.PublishInput{
		Message:  aws.String(body.String()),
		TopicArn: aws.String(s.Topic),
		Subject:  aws.String(snsSubject(appConfig)),
	}
	return s.Client.PublishMessage(ctx, snsPublishReq)
}

func snsSubject(appConfig AppConfig) string {
	subject := []rune(fmt.Sprintf("Sync Errors: %s -> %s", appConfig.LocalFolder, appConfig.BucketName))
	if len(subject) > maxSNSSubjectChars {
		subject = append(subject[:maxSNSSubjectChars-3], []rune("...")...)
	}
	return string(subject)
}
