package main

import "context"

// Notifier reports the outcome of a run somewhere outside the process log.
type Notifier interface {
	NotifySyncResults(ctx context.Context, appConfig AppConfig, result *SyncResult) error
}
