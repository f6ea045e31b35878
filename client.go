package main

import (
	"context"
	"os"
)

// maxDeleteBatch is the largest key count S3 accepts in one DeleteObjects call.
const maxDeleteBatch = 1000

type ObjectInfo struct {
	Key  string
	Size int64
	ETag string
}

// ObjectPage is one page of a bucket listing. An empty NextToken marks the
// last page.
type ObjectPage struct {
	Objects   []ObjectInfo
	NextToken string
}

type DeleteFailure struct {
	Key string
	Err error
}

// BucketClient is the storage primitive set the sync engine runs on. It does
// not retry, page or batch on its own; callers decide that.
type BucketClient interface {
	ListPage(ctx context.Context, bucket, prefix, token string) (ObjectPage, error)
	UploadFile(ctx context.Context, bucket, key string, file *os.File, contentType string) error
	// DeleteObjects removes up to maxDeleteBatch keys. A non-nil error means the
	// whole call failed; per-key failures are returned in the slice.
	DeleteObjects(ctx context.Context, bucket string, keys []string) ([]DeleteFailure, error)
}
