package main

import (
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	log "github.com/sirupsen/logrus"
)

type ActionKind int

const (
	ActionUpload ActionKind = iota
	ActionDelete
)

func (k ActionKind) String() string {
	switch k {
	case ActionUpload:
		return "upload"
	case ActionDelete:
		return "delete"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

// SyncAction is a single step of a plan. LocalPath is only set for uploads.
type SyncAction struct {
	Kind      ActionKind
	Path      RelPath
	LocalPath string
	Size      int64
}

type SyncPlan struct {
	Uploads []SyncAction
	Deletes []SyncAction
	Skipped int
}

func (p SyncPlan) Empty() bool {
	return len(p.Uploads) == 0 && len(p.Deletes) == 0
}

// PlanSync compares the two inventories and decides what has to change
// remotely. It does no I/O; localRoot is only used to fill in LocalPath.
func PlanSync(localRoot string, local, remote Inventory) SyncPlan {
	plan := SyncPlan{
		Uploads: make([]SyncAction, 0),
		Deletes: make([]SyncAction, 0),
	}

	localKeys := mapset.NewThreadUnsafeSetWithSize[RelPath](len(local))
	for _, path := range local.Keys() {
		localKeys.Add(path)
		localRecord := local[path]
		remoteRecord, ok := remote[path]

		switch {
		case !ok:
			log.Debug(fmt.Sprintf("%s missing remotely, will upload", path))
		case remoteRecord.ContentHash == "":
			log.Debug(fmt.Sprintf("%s has no comparable remote hash, will upload", path))
		case remoteRecord.ContentHash != localRecord.ContentHash:
			log.Debug(fmt.Sprintf("%s has been modified, will update", path))
		default:
			log.Debug(fmt.Sprintf("%s is in sync, no action required", path))
			plan.Skipped++
			continue
		}

		plan.Uploads = append(plan.Uploads, SyncAction{
			Kind:      ActionUpload,
			Path:      path,
			LocalPath: localFilePath(localRoot, path),
			Size:      localRecord.Size,
		})
	}

	remoteKeys := mapset.NewThreadUnsafeSetWithSize[RelPath](len(remote))
	for path := range remote {
		remoteKeys.Add(path)
	}
	orphaned := remoteKeys.Difference(localKeys).ToSlice()
	sort.Slice(orphaned, func(i, j int) bool { return orphaned[i] < orphaned[j] })
	for _, path := range orphaned {
		log.Debug(fmt.Sprintf("%s is orphaned remotely, will delete", path))
		plan.Deletes = append(plan.Deletes, SyncAction{
			Kind: ActionDelete,
			Path: path,
			Size: remote[path].Size,
		})
	}

	return plan
}
