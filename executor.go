package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gabriel-vasile/mimetype"
	log "github.com/sirupsen/logrus"
)

const DefaultThreads = 5

type ExecutorConfig struct {
	Bucket  string
	Prefix  string
	Threads int
	DryRun  bool
}

// Executor applies a SyncPlan: uploads first on a bounded pool, then deletes
// in batches once every upload has finished one way or the other.
type Executor struct {
	client BucketClient
	config ExecutorConfig
}

func NewExecutor(client BucketClient, config ExecutorConfig) *Executor {
	if config.Threads <= 0 {
		config.Threads = DefaultThreads
	}
	config.Prefix = normalizePrefix(config.Prefix)
	return &Executor{client: client, config: config}
}

func (e *Executor) Execute(ctx context.Context, plan SyncPlan) *SyncResult {
	startTime := time.Now()
	result := NewSyncResult(e.config.DryRun)
	result.AddSkipped(plan.Skipped)
	defer func() { result.Duration = time.Since(startTime) }()

	if e.config.DryRun {
		e.simulate(plan, result)
		return result
	}

	if len(plan.Uploads) > 0 {
		log.Info(fmt.Sprintf("%d files will be uploaded using %d workers", len(plan.Uploads), e.config.Threads))
	}
	pool := newWorkerPool(ctx, e.config.Threads)
	submitted := 0
	for _, action := range plan.Uploads {
		action := action
		if !pool.Submit(func(ctx context.Context) {
			size, uploadErr := e.uploadFile(ctx, action)
			result.AddUploadResult(action.Path, size, uploadErr)
		}) {
			break
		}
		submitted++
	}
	pool.Wait()

	if ctx.Err() != nil {
		notStarted := len(plan.Uploads) - submitted + pool.Dropped()
		log.Warn(fmt.Sprintf("Sync cancelled: %d uploads not started, deletions skipped", notStarted))
		result.Cancelled = true
		return result
	}

	e.deleteObjects(ctx, plan.Deletes, result)
	if ctx.Err() != nil {
		result.Cancelled = true
	}

	return result
}

func (e *Executor) simulate(plan SyncPlan, result *SyncResult) {
	for _, action := range plan.Uploads {
		log.Info(fmt.Sprintf("[dry-run] would upload %s to s3://%s/%s", action.LocalPath, e.config.Bucket, action.Path.Key(e.config.Prefix)))
		result.AddUploadResult(action.Path, action.Size, nil)
	}
	for _, action := range plan.Deletes {
		log.Info(fmt.Sprintf("[dry-run] would delete s3://%s/%s", e.config.Bucket, action.Path.Key(e.config.Prefix)))
		result.AddDeleteResult(action.Path, nil)
	}
}

func (e *Executor) uploadFile(ctx context.Context, action SyncAction) (int64, error) {
	fd, fileErr := os.Open(action.LocalPath)
	if fileErr != nil {
		log.Warn(fmt.Sprintf("Error opening %s: %s", action.LocalPath, fileErr))
		return 0, fileErr
	}
	defer fd.Close()

	size := action.Size
	if info, statErr := fd.Stat(); statErr == nil {
		size = info.Size()
	}

	contentType := ""
	if mtype, detectErr := mimetype.DetectReader(fd); detectErr == nil {
		contentType = mtype.String()
	}
	if _, seekErr := fd.Seek(0, io.SeekStart); seekErr != nil {
		return 0, fmt.Errorf("rewind %s: %w", action.LocalPath, seekErr)
	}

	key := action.Path.Key(e.config.Prefix)
	uploadErr := e.client.UploadFile(ctx, e.config.Bucket, key, fd, contentType)
	if uploadErr != nil {
		log.Warn(fmt.Sprintf("Error uploading %s: %s", key, uploadErr))
		return 0, uploadErr
	}

	log.Info(fmt.Sprintf("Uploaded file %s as key %s", action.LocalPath, key))
	return size, nil
}

func (e *Executor) deleteObjects(ctx context.Context, actions []SyncAction, result *SyncResult) {
	for start := 0; start < len(actions); start += maxDeleteBatch {
		if ctx.Err() != nil {
			log.Warn("Sync cancelled: remaining deletions skipped")
			return
		}

		end := start + maxDeleteBatch
		if end > len(actions) {
			end = len(actions)
		}
		batch := actions[start:end]

		keys := make([]string, 0, len(batch))
		pathsByKey := make(map[string]RelPath, len(batch))
		for _, action := range batch {
			key := action.Path.Key(e.config.Prefix)
			keys = append(keys, key)
			pathsByKey[key] = action.Path
		}

		failures, batchErr := e.client.DeleteObjects(ctx, e.config.Bucket, keys)
		if batchErr != nil {
			log.Warn(fmt.Sprintf("Error deleting batch of %d objects: %s", len(keys), batchErr))
			for _, action := range batch {
				result.AddDeleteResult(action.Path, batchErr)
			}
			continue
		}

		failed := make(map[RelPath]error, len(failures))
		for _, f := range failures {
			if path, ok := pathsByKey[f.Key]; ok {
				failed[path] = f.Err
			}
		}
		for _, action := range batch {
			delErr := failed[action.Path]
			if delErr != nil {
				log.Warn(fmt.Sprintf("Error deleting %s: %s", action.Path.Key(e.config.Prefix), delErr))
			} else {
				log.Info(fmt.Sprintf("Deleted %s from bucket %s", action.Path.Key(e.config.Prefix), e.config.Bucket))
			}
			result.AddDeleteResult(action.Path, delErr)
		}
	}
}
