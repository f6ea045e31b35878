package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCmd(code *int) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "s3foldersync",
		Short:         "Mirror a local folder into an S3 bucket prefix",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, configErr := loadAppConfig(cmd)
			if configErr != nil {
				return configErr
			}
			setupLogging(appConfig.Verbose)
			*code = runSync(cmd.Context(), appConfig, cmd.OutOrStdout())
			return nil
		},
	}

	flags := rootCmd.Flags()
	flags.SortFlags = false
	flags.String("localFolder", "", "Local folder to mirror (required)")
	flags.String("bucketName", "", "Destination bucket (required)")
	flags.String("prefix", "", "Key prefix inside the bucket")
	flags.Bool("dryRun", false, "Log planned actions without changing the bucket")
	flags.Int("threads", DefaultThreads, "Number of concurrent uploads")
	flags.String("configFile", "", "Configuration file (yaml, toml or json)")
	flags.StringArray("exclude", nil, "Gitignore style pattern to exclude, may be repeated")
	flags.String("region", "", "Bucket region")
	flags.String("profile", "", "Shared config profile")
	flags.String("endpoint", "", "Custom S3 endpoint, enables path style addressing")
	flags.Int("partSizeMB", 64, "Multipart part size in MiB")
	flags.String("snsTopic", "", "SNS topic ARN for failure reports")
	flags.String("schedule", "", "Cron expression, keeps running and syncs on every tick")
	flags.Bool("verbose", false, "Enable debug logging")
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string) int {
	code := exitOK
	rootCmd := newRootCmd(&code)
	rootCmd.SetArgs(args)
	if cmdErr := rootCmd.ExecuteContext(ctx); cmdErr != nil {
		log.Error(cmdErr)
		return exitFatal
	}
	return code
}

// loadAppConfig layers the config file and environment under any flag set
// on the command line, then validates the result.
func loadAppConfig(cmd *cobra.Command) (AppConfig, error) {
	files := make([]string, 0, 1)
	if configFile, _ := cmd.Flags().GetString("configFile"); configFile != "" {
		files = append(files, configFile)
	}
	appConfig, loadErr := LoadConfig(files...)
	if loadErr != nil {
		return appConfig, loadErr
	}
	if flagErr := applyFlags(cmd, &appConfig); flagErr != nil {
		return appConfig, flagErr
	}
	return appConfig, appConfig.Validate()
}

func applyFlags(cmd *cobra.Command, appConfig *AppConfig) error {
	flags := cmd.Flags()
	var err error
	stringFlags := map[string]*string{
		"localFolder": &appConfig.LocalFolder,
		"bucketName":  &appConfig.BucketName,
		"prefix":      &appConfig.Prefix,
		"region":      &appConfig.Region,
		"profile":     &appConfig.Profile,
		"endpoint":    &appConfig.Endpoint,
		"snsTopic":    &appConfig.SNSTopic,
		"schedule":    &appConfig.Schedule,
	}
	for name, target := range stringFlags {
		if flags.Changed(name) {
			if *target, err = flags.GetString(name); err != nil {
				return err
			}
		}
	}
	boolFlags := map[string]*bool{
		"dryRun":  &appConfig.DryRun,
		"verbose": &appConfig.Verbose,
	}
	for name, target := range boolFlags {
		if flags.Changed(name) {
			if *target, err = flags.GetBool(name); err != nil {
				return err
			}
		}
	}
	intFlags := map[string]*int{
		"threads":    &appConfig.Threads,
		"partSizeMB": &appConfig.PartSizeMB,
	}
	for name, target := range intFlags {
		if flags.Changed(name) {
			if *target, err = flags.GetInt(name); err != nil {
				return err
			}
		}
	}
	if flags.Changed("exclude") {
		if appConfig.Exclude, err = flags.GetStringArray("exclude"); err != nil {
			return err
		}
	}
	return nil
}

func setupLogging(verbose bool) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
}

func runSync(ctx context.Context, appConfig AppConfig, out io.Writer) int {
	log.Info("Starting sync with config:")
	for _, line := range appConfig.ConfigStringArray() {
		log.Info(line)
	}

	s3Client, clientErr := NewS3BucketClient(ctx, appConfig)
	if clientErr != nil {
		log.Error(fmt.Sprintf("Error creating s3 client: %s", clientErr))
		return exitFatal
	}

	var notifier Notifier
	if appConfig.SNSTopic != "" {
		snsNotifier, snsErr := NewSNSNotifier(ctx, appConfig)
		if snsErr != nil {
			log.Error(fmt.Sprintf("Error creating sns client: %s", snsErr))
			return exitFatal
		}
		notifier = snsNotifier
	}

	syncer := NewSyncer(s3Client, appConfig, notifier)
	if appConfig.Schedule != "" {
		scheduleErr := runScheduled(ctx, syncer, appConfig.Schedule, func(result *SyncResult, syncErr error) {
			report(out, result, syncErr)
		})
		if scheduleErr != nil {
			log.Error(scheduleErr)
			return exitFatal
		}
		return exitOK
	}

	result, syncErr := syncer.Sync(ctx)
	return report(out, result, syncErr)
}

func report(out io.Writer, result *SyncResult, syncErr error) int {
	if result != nil {
		printSummary(out, result)
	}
	if syncErr != nil && !errors.Is(syncErr, ErrCancelled) {
		log.Error(fmt.Sprintf("Sync failed: %s", syncErr))
	}
	return exitCode(result, syncErr)
}
