package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3Client struct {
	Client   *s3.Client
	Uploader *manager.Uploader
}

// loadAWSConfig resolves region and credentials through the SDK default chain
// (environment, shared config files, instance role). Static keys from the
// app config, when present, replace the chain.
func loadAWSConfig(ctx context.Context, appConfig AppConfig) (aws.Config, error) {
	opts := make([]func(*config.LoadOptions) error, 0)
	if appConfig.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(appConfig.Profile))
	}
	if appConfig.Region != "" {
		opts = append(opts, config.WithRegion(appConfig.Region))
	}
	if appConfig.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(appConfig.AccessKeyID, appConfig.SecretAccessKey, appConfig.SessionToken),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return cfg, fmt.Errorf("Error loading aws config: %w", err)
	}

	if cfg.Credentials == nil {
		return cfg, ErrNoCredentials
	}
	if _, credErr := cfg.Credentials.Retrieve(ctx); credErr != nil {
		return cfg, fmt.Errorf("%w: %w", ErrNoCredentials, credErr)
	}

	return cfg, nil
}

func NewS3BucketClient(ctx context.Context, appConfig AppConfig) (*S3Client, error) {
	cfg, err := loadAWSConfig(ctx, appConfig)
	if err != nil {
		return nil, err
	}

	awsS3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if appConfig.Endpoint != "" {
			o.BaseEndpoint = aws.String(appConfig.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3Client(awsS3Client, appConfig.PartSizeMB), nil
}

// NewS3Client wraps an SDK client. Files smaller than partSizeMB are sent as a
// single PutObject so their ETag stays a plain MD5 of the content.
func NewS3Client(client *s3.Client, partSizeMB int) *S3Client {
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		if partSizeMB > 0 {
			u.PartSize = int64(partSizeMB) * 1024 * 1024
		}
	})

	return &S3Client{Client: client, Uploader: uploader}
}

func (s *S3Client) ListPage(ctx context.Context, bucket, prefix, token string) (ObjectPage, error) {
	listParams := &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		MaxKeys: aws.Int32(1000),
	}
	if prefix != "" {
		listParams.Prefix = aws.String(prefix)
	}
	if token != "" {
		listParams.ContinuationToken = aws.String(token)
	}

	output, listErr := s.Client.ListObjectsV2(ctx, listParams)
	if listErr != nil {
		return ObjectPage{}, listErr
	}

	page := ObjectPage{Objects: make([]ObjectInfo, 0, len(output.Contents))}
	for _, object := range output.Contents {
		page.Objects = append(page.Objects, ObjectInfo{
			Key:  aws.ToString(object.Key),
			Size: aws.ToInt64(object.Size),
			ETag: aws.ToString(object.ETag),
		})
	}
	if aws.ToBool(output.IsTruncated) {
		page.NextToken = aws.ToString(output.NextContinuationToken)
	}

	return page, nil
}

func (s *S3Client) UploadFile(ctx context.Context, bucket, key string, file *os.File, contentType string) error {
	putReq := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   file,
	}
	if contentType != "" {
		putReq.ContentType = aws.String(contentType)
	}

	_, putErr := s.Uploader.Upload(ctx, putReq)
	return putErr
}

func (s *S3Client) DeleteObjects(ctx context.Context, bucket string, keys []string) ([]DeleteFailure, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if len(keys) > maxDeleteBatch {
		return nil, fmt.Errorf("delete batch of %d keys exceeds %d", len(keys), maxDeleteBatch)
	}

	objects := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
	}

	delReq := &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	}
	output, delErr := s.Client.DeleteObjects(ctx, delReq)
	if delErr != nil {
		return nil, delErr
	}

	failures := make([]DeleteFailure, 0, len(output.Errors))
	for _, objErr := range output.Errors {
		failures = append(failures, DeleteFailure{
			Key: aws.ToString(objErr.Key),
			Err: fmt.Errorf("%s: %s", aws.ToString(objErr.Code), aws.ToString(objErr.Message)),
		})
	}

	return failures, nil
}
