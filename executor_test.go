package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadAction(t *testing.T, root, rel string) SyncAction {
	t.Helper()
	path, err := NewRelPath(rel)
	require.NoError(t, err)
	return SyncAction{Kind: ActionUpload, Path: path, LocalPath: localFilePath(root, path)}
}

func deleteAction(t *testing.T, rel string) SyncAction {
	t.Helper()
	path, err := NewRelPath(rel)
	require.NoError(t, err)
	return SyncAction{Kind: ActionDelete, Path: path}
}

func TestExecuteUploadsThenDeletes(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"b.txt": "hello", "dir/c.json": `{"a":1}`})
	client := NewMockClient(nil)
	plan := SyncPlan{
		Uploads: []SyncAction{uploadAction(t, root, "b.txt"), uploadAction(t, root, "dir/c.json")},
		Deletes: []SyncAction{deleteAction(t, "old.txt")},
		Skipped: 3,
	}

	executor := NewExecutor(client, ExecutorConfig{Bucket: "bucket", Prefix: "backup", Threads: 2})
	result := executor.Execute(context.Background(), plan)

	assert.Equal(t, 2, result.Uploaded)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 3, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, int64(12), result.BytesUploaded)
	assert.False(t, result.Cancelled)

	require.Len(t, client.UploadRequests, 2)
	bodies := map[string]string{}
	for _, req := range client.UploadRequests {
		assert.Equal(t, "bucket", req.Bucket)
		bodies[req.Key] = string(req.Body)
	}
	assert.Equal(t, map[string]string{"backup/b.txt": "hello", "backup/dir/c.json": `{"a":1}`}, bodies)
	require.Len(t, client.DeleteRequests, 1)
	assert.Equal(t, "backup/old.txt", client.DeleteRequests[0].Key)
	assert.Equal(t, "delete-batch", client.Events[len(client.Events)-1])
}

func TestExecuteSetsContentType(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"page.html": "<html><body>hi</body></html>"})
	client := NewMockClient(nil)

	NewExecutor(client, ExecutorConfig{Bucket: "bucket"}).Execute(context.Background(), SyncPlan{
		Uploads: []SyncAction{uploadAction(t, root, "page.html")},
	})

	require.Len(t, client.UploadRequests, 1)
	assert.Contains(t, client.UploadRequests[0].ContentType, "text/html")
	assert.Equal(t, "<html><body>hi</body></html>", string(client.UploadRequests[0].Body))
}

func TestExecuteDryRunNeverMutates(t *testing.T) {
	client := NewMockClient(nil)
	plan := SyncPlan{
		Uploads: []SyncAction{
			{Kind: ActionUpload, Path: "missing-on-disk.txt", LocalPath: "/definitely/not/here", Size: 7},
		},
		Deletes: []SyncAction{deleteAction(t, "c.txt"), deleteAction(t, "d.txt")},
		Skipped: 1,
	}

	result := NewExecutor(client, ExecutorConfig{Bucket: "bucket", DryRun: true}).Execute(context.Background(), plan)

	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.Uploaded)
	assert.Equal(t, 2, result.Deleted)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 0, client.MutatingCalls())
}

func TestExecuteIsolatesUploadFailures(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{}
	plan := SyncPlan{}
	for i := 0; i < 10; i++ {
		rel := fmt.Sprintf("file-%d.txt", i)
		files[rel] = rel
		plan.Uploads = append(plan.Uploads, uploadAction(t, root, rel))
	}
	writeTree(t, root, files)
	plan.Deletes = []SyncAction{deleteAction(t, "gone.txt")}

	client := NewMockClient(nil)
	client.UploadErrs["file-3.txt"] = errors.New("connection reset by peer")

	result := NewExecutor(client, ExecutorConfig{Bucket: "bucket", Threads: 3}).Execute(context.Background(), plan)

	assert.Equal(t, 9, result.Uploaded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Deleted)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "file-3.txt", result.Failures[0].Path)
	assert.Equal(t, OpUpload, result.Failures[0].Op)
	assert.ErrorContains(t, result.Failures[0].Err, "connection reset")
	assert.Len(t, client.UploadRequests, 9)
}

func TestExecuteMissingLocalFileIsItemFailure(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"ok.txt": "hello"})
	client := NewMockClient(nil)

	result := NewExecutor(client, ExecutorConfig{Bucket: "bucket"}).Execute(context.Background(), SyncPlan{
		Uploads: []SyncAction{uploadAction(t, root, "ok.txt"), uploadAction(t, root, "vanished.txt")},
	})

	assert.Equal(t, 1, result.Uploaded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, "vanished.txt", result.Failures[0].Path)
}

func TestExecuteNeverDeletesWhileUploadsInFlight(t *testing.T) {
	root := t.TempDir()
	plan := SyncPlan{}
	files := map[string]string{}
	for i := 0; i < 20; i++ {
		rel := fmt.Sprintf("f%02d", i)
		files[rel] = rel
		plan.Uploads = append(plan.Uploads, uploadAction(t, root, rel))
		plan.Deletes = append(plan.Deletes, deleteAction(t, "orphan-"+rel))
	}
	writeTree(t, root, files)

	client := NewMockClient(nil)
	client.UploadHook = func(string) { time.Sleep(2 * time.Millisecond) }

	result := NewExecutor(client, ExecutorConfig{Bucket: "bucket", Threads: 4}).Execute(context.Background(), plan)

	assert.False(t, client.DeletedEarly)
	assert.LessOrEqual(t, client.InFlightMax, 4)
	assert.Equal(t, 20, result.Uploaded)
	assert.Equal(t, 20, result.Deleted)
	for i, event := range client.Events {
		if event == "delete-batch" {
			assert.Equal(t, 20, i, "every upload must finish before the first delete")
			break
		}
	}
}

func TestExecuteBatchesDeletes(t *testing.T) {
	plan := SyncPlan{}
	for i := 0; i < 2500; i++ {
		plan.Deletes = append(plan.Deletes, deleteAction(t, fmt.Sprintf("orphan-%04d", i)))
	}
	client := NewMockClient(nil)
	client.DeleteErrs["orphan-0042"] = errors.New("AccessDenied: nope")

	result := NewExecutor(client, ExecutorConfig{Bucket: "bucket"}).Execute(context.Background(), plan)

	assert.Equal(t, []string{"delete-batch", "delete-batch", "delete-batch"}, client.Events)
	assert.Equal(t, 2499, result.Deleted)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, "orphan-0042", result.Failures[0].Path)
	assert.Equal(t, OpDelete, result.Failures[0].Op)
}

func TestExecuteWholeBatchDeleteFailureRecordsEveryKey(t *testing.T) {
	client := NewMockClient(nil)
	client.DeleteErr = errors.New("service unavailable")

	result := NewExecutor(client, ExecutorConfig{Bucket: "bucket"}).Execute(context.Background(), SyncPlan{
		Deletes: []SyncAction{deleteAction(t, "a"), deleteAction(t, "b")},
	})

	assert.Equal(t, 0, result.Deleted)
	assert.Equal(t, 2, result.Failed)
	assert.Len(t, result.Failures, 2)
}

func TestExecuteCancelledSkipsDeletes(t *testing.T) {
	root := t.TempDir()
	plan := SyncPlan{Deletes: []SyncAction{deleteAction(t, "orphan.txt")}}
	files := map[string]string{}
	for i := 0; i < 10; i++ {
		rel := fmt.Sprintf("f%d", i)
		files[rel] = rel
		plan.Uploads = append(plan.Uploads, uploadAction(t, root, rel))
	}
	writeTree(t, root, files)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var once sync.Once
	client := NewMockClient(nil)
	client.UploadHook = func(string) { once.Do(cancel) }

	result := NewExecutor(client, ExecutorConfig{Bucket: "bucket", Threads: 1}).Execute(ctx, plan)

	assert.True(t, result.Cancelled)
	assert.Equal(t, 0, result.Deleted)
	assert.Empty(t, client.DeleteRequests)
	assert.NotContains(t, client.Events, "delete-batch")
	assert.Less(t, result.Uploaded, 10)
}
