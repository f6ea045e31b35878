package main

import (
	"sort"
	"sync"
	"time"
)

const (
	OpScan   = "scan"
	OpUpload = "upload"
	OpDelete = "delete"
)

// ItemFailure is one path that could not be scanned, uploaded or deleted.
// Path is a plain string because scan failures can name entries that are not
// valid RelPaths; upload and delete failures always hold RelPath.String().
type ItemFailure struct {
	Path string
	Op   string
	Err  error
}

// SyncResult accumulates the outcome of one run. Upload workers write to it
// concurrently, so every mutation goes through the lock.
type SyncResult struct {
	Uploaded      int
	Deleted       int
	Skipped       int
	Failed        int
	BytesUploaded int64
	Failures      []ItemFailure
	DryRun        bool
	Cancelled     bool
	Duration      time.Duration

	lock sync.Mutex
}

func NewSyncResult(dryRun bool) *SyncResult {
	return &SyncResult{
		Failures: make([]ItemFailure, 0),
		DryRun:   dryRun,
	}
}

func (r *SyncResult) AddUploadResult(path RelPath, size int64, result error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if result != nil {
		r.addFailure(ItemFailure{Path: path.String(), Op: OpUpload, Err: result})
		return
	}
	r.Uploaded++
	r.BytesUploaded += size
}

func (r *SyncResult) AddDeleteResult(path RelPath, result error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if result != nil {
		r.addFailure(ItemFailure{Path: path.String(), Op: OpDelete, Err: result})
		return
	}
	r.Deleted++
}

func (r *SyncResult) AddFailures(failures ...ItemFailure) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, f := range failures {
		r.addFailure(f)
	}
}

func (r *SyncResult) AddSkipped(n int) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.Skipped += n
}

func (r *SyncResult) addFailure(f ItemFailure) {
	r.Failed++
	r.Failures = append(r.Failures, f)
}

// SortedFailures returns a copy of the failures ordered by path then op.
func (r *SyncResult) SortedFailures() []ItemFailure {
	r.lock.Lock()
	defer r.lock.Unlock()
	failures := make([]ItemFailure, len(r.Failures))
	copy(failures, r.Failures)
	sort.Slice(failures, func(i, j int) bool {
		if failures[i].Path != failures[j].Path {
			return failures[i].Path < failures[j].Path
		}
		return failures[i].Op < failures[j].Op
	})
	return failures
}

func (r *SyncResult) HasFailures() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.Failed > 0
}
