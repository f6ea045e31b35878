package main

import (
	"errors"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
)

func TestClassifyRemoteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect error
	}{
		{"missing bucket", &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "nope"}, ErrBucketNotFound},
		{"denied", &smithy.GenericAPIError{Code: "AccessDenied", Message: "nope"}, ErrAccessDenied},
		{"bad key", &smithy.GenericAPIError{Code: "InvalidAccessKeyId", Message: "nope"}, ErrAccessDenied},
		{"expired", &smithy.GenericAPIError{Code: "ExpiredToken", Message: "nope"}, ErrAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := classifyRemoteError(tt.err)
			assert.ErrorIs(t, classified, tt.expect)

			var apiErr smithy.APIError
			assert.True(t, errors.As(classified, &apiErr))
		})
	}
}

func TestClassifyRemoteErrorPassesThroughUnknown(t *testing.T) {
	networkErr := errors.New("dial tcp: connection refused")

	classified := classifyRemoteError(networkErr)

	assert.Equal(t, networkErr, classified)
	assert.NotErrorIs(t, classified, ErrAccessDenied)
	assert.NotErrorIs(t, classified, ErrBucketNotFound)
	assert.Nil(t, classifyRemoteError(nil))
}

func TestFatalErrorsUnwrap(t *testing.T) {
	listErr := &RemoteListError{Bucket: "b", Prefix: "backup/", Err: classifyRemoteError(&smithy.GenericAPIError{Code: "NoSuchBucket"})}
	assert.ErrorIs(t, listErr, ErrBucketNotFound)
	assert.Contains(t, listErr.Error(), "s3://b/backup/")

	scanErr := &ScanError{Root: "/nowhere", Err: errors.New("boom")}
	assert.Equal(t, "scan /nowhere: boom", scanErr.Error())
}
