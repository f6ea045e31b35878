package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	exitOK        = 0
	exitFatal     = 1
	exitFailures  = 2
	exitCancelled = 130
)

func printSummary(w io.Writer, result *SyncResult) {
	uploadVerb, deleteVerb := "Uploaded", "Deleted"
	if result.DryRun {
		uploadVerb, deleteVerb = "Would upload", "Would delete"
		fmt.Fprintln(w, "Dry run, no changes were made.")
	}
	fmt.Fprintf(w, "%s: %d (%s)\n", uploadVerb, result.Uploaded, humanize.Bytes(uint64(result.BytesUploaded)))
	fmt.Fprintf(w, "%s: %d\n", deleteVerb, result.Deleted)
	fmt.Fprintf(w, "Up to date: %d\n", result.Skipped)
	fmt.Fprintf(w, "Failed: %d\n", result.Failed)
	for _, failure := range result.SortedFailures() {
		fmt.Fprintf(w, "  %s %s: %s\n", failure.Op, failure.Path, failure.Err)
	}
	if result.Cancelled {
		fmt.Fprintln(w, "Run was cancelled before completion.")
	}
	fmt.Fprintf(w, "Took %s\n", result.Duration.Round(time.Millisecond))
}

func exitCode(result *SyncResult, err error) int {
	switch {
	case errors.Is(err, ErrCancelled):
		return exitCancelled
	case err != nil:
		return exitFatal
	case result != nil && result.HasFailures():
		return exitFailures
	}
	return exitOK
}
