package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var ErrSyncInProgress = errors.New("Unable to acquire sync lock")

// Syncer runs scan, list, plan and execute for one local folder and bucket
// prefix. Nothing is kept between runs.
type Syncer struct {
	client   BucketClient
	config   AppConfig
	notifier Notifier
	excludes *ExcludeList

	// replaced in tests
	scan scanFunc
	list listFunc

	lock sync.Mutex
}

func NewSyncer(client BucketClient, appConfig AppConfig, notifier Notifier) *Syncer {
	return &Syncer{
		client:   client,
		config:   appConfig,
		notifier: notifier,
		excludes: NewExcludeList(appConfig.Exclude),
		scan:     ScanLocal,
		list:     ListRemote,
	}
}

// Sync performs one run. Scan and listing failures are returned before any
// remote call that mutates state; per-item failures are reported in the
// result only. A cancelled run returns its partial result and ErrCancelled.
func (s *Syncer) Sync(ctx context.Context) (*SyncResult, error) {
	if !s.lock.TryLock() {
		log.Warn("Another sync routine is already running. Skipping.")
		return nil, ErrSyncInProgress
	}
	defer s.lock.Unlock()

	log.Info(fmt.Sprintf("Sync starting for %s.", s.config.LocalFolder))
	syncStartTime := time.Now()

	localFiles, scanFailures, scanErr := s.scan(ctx, s.config.LocalFolder, s.excludes)
	if scanErr != nil {
		log.Warn(fmt.Sprintf("listLocalFilesErr: %s", scanErr))
		return nil, cancelledOr(ctx, scanErr)
	}
	log.Info(fmt.Sprintf("Found %d local files (%d unreadable)", len(localFiles), len(scanFailures)))

	bucketFiles, listErr := s.list(ctx, s.client, s.config.BucketName, s.config.Prefix, s.excludes)
	if listErr != nil {
		return nil, cancelledOr(ctx, listErr)
	}
	log.Info(fmt.Sprintf("Found %d objects in s3://%s/%s", len(bucketFiles), s.config.BucketName, normalizePrefix(s.config.Prefix)))

	shieldUnreadable(bucketFiles, scanFailures)
	plan := PlanSync(s.config.LocalFolder, localFiles, bucketFiles)
	log.Info(fmt.Sprintf("Plan: %d to upload, %d to delete, %d up to date", len(plan.Uploads), len(plan.Deletes), plan.Skipped))

	executor := NewExecutor(s.client, ExecutorConfig{
		Bucket:  s.config.BucketName,
		Prefix:  s.config.Prefix,
		Threads: s.config.Threads,
		DryRun:  s.config.DryRun,
	})
	result := executor.Execute(ctx, plan)
	result.AddFailures(scanFailures...)
	result.Duration = time.Since(syncStartTime)
	log.Info(fmt.Sprintf("Sync complete for %s. Took %s", s.config.LocalFolder, result.Duration.String()))

	if s.notifier != nil {
		if notifyErr := s.notifier.NotifySyncResults(ctx, s.config, result); notifyErr != nil {
			log.Warn(fmt.Sprintf("Error sending sync notification: %s", notifyErr))
		}
	}

	if result.Cancelled {
		return result, ErrCancelled
	}
	return result, nil
}

// shieldUnreadable drops remote entries at or below any path the scanner could
// not read, so a local read error never turns into a remote delete.
func shieldUnreadable(remote Inventory, failures []ItemFailure) {
	for _, failure := range failures {
		for path := range remote {
			if string(path) == failure.Path || strings.HasPrefix(string(path), failure.Path+"/") {
				log.Warn(fmt.Sprintf("%s could not be read locally, leaving remote copy untouched", path))
				delete(remote, path)
			}
		}
	}
}

func cancelledOr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return err
}
