package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"
)

// runScheduled runs syncer on the cron expression until ctx is done. A run
// still in progress when the next tick fires is not doubled up.
func runScheduled(ctx context.Context, syncer *Syncer, expression string, report func(*SyncResult, error)) error {
	scheduler := gocron.NewScheduler(time.Local)
	_, jobErr := scheduler.Cron(expression).SingletonMode().Do(func() {
		result, syncErr := syncer.Sync(ctx)
		report(result, syncErr)
	})
	if jobErr != nil {
		return &ConfigError{Field: "schedule", Err: jobErr}
	}

	log.Info(fmt.Sprintf("Scheduled sync with expression %q", expression))
	scheduler.StartAsync()
	<-ctx.Done()
	log.Info("Stopping scheduler")
	scheduler.Stop()
	return nil
}
