package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

var (
	ErrBucketNotFound = errors.New("bucket not found")
	ErrAccessDenied   = errors.New("access denied")
	ErrNoCredentials  = errors.New("no credentials could be resolved")
	ErrCancelled      = errors.New("sync cancelled")
)

// ScanError is returned when the local root cannot be walked at all.
type ScanError struct {
	Root string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Root, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// RemoteListError is returned when the bucket listing fails. It is always
// fatal to the run.
type RemoteListError struct {
	Bucket string
	Prefix string
	Err    error
}

func (e *RemoteListError) Error() string {
	if e.Prefix != "" {
		return fmt.Sprintf("list s3://%s/%s: %v", e.Bucket, e.Prefix, e.Err)
	}
	return fmt.Sprintf("list s3://%s: %v", e.Bucket, e.Err)
}

func (e *RemoteListError) Unwrap() error {
	return e.Err
}

type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// classifyRemoteError tags SDK errors with one of the sentinel causes above so
// callers can use errors.Is. Unrecognized errors are returned untouched.
func classifyRemoteError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket":
			return fmt.Errorf("%w: %w", ErrBucketNotFound, err)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "InvalidToken":
			return fmt.Errorf("%w: %w", ErrAccessDenied, err)
		}
	}

	var httpErr *smithyhttp.ResponseError
	if errors.As(err, &httpErr) {
		switch httpErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", ErrBucketNotFound, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %w", ErrAccessDenied, err)
		}
	}

	return err
}
