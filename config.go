package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jinzhu/configor"
)

var errRequired = errors.New("required but not set")

// AppConfig is loaded from an optional config file and S3SYNC_* environment
// variables; command line flags override both.
type AppConfig struct {
	LocalFolder string
	BucketName  string
	Prefix      string
	DryRun      bool
	Threads     int `default:"5"`
	Exclude     []string

	Region          string
	Profile         string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PartSizeMB      int `default:"64"`

	SNSTopic string
	Schedule string
	Verbose  bool
}

func LoadConfig(files ...string) (AppConfig, error) {
	var appConfig AppConfig
	for _, file := range files {
		// configor silently skips missing files
		if _, statErr := os.Stat(file); statErr != nil {
			return appConfig, &ConfigError{Field: "configFile", Err: statErr}
		}
	}
	loader := configor.New(&configor.Config{ENVPrefix: "S3SYNC"})
	if configErr := loader.Load(&appConfig, files...); configErr != nil {
		return appConfig, &ConfigError{Field: "configFile", Err: configErr}
	}
	return appConfig, nil
}

func (c AppConfig) Validate() error {
	if c.LocalFolder == "" {
		return &ConfigError{Field: "localFolder", Err: errRequired}
	}
	if c.BucketName == "" {
		return &ConfigError{Field: "bucketName", Err: errRequired}
	}
	if c.Threads <= 0 {
		return &ConfigError{Field: "threads", Err: fmt.Errorf("must be a positive integer, got %d", c.Threads)}
	}
	if c.PartSizeMB < 5 {
		return &ConfigError{Field: "partSizeMB", Err: fmt.Errorf("must be at least 5, got %d", c.PartSizeMB)}
	}
	if c.AccessKeyID != "" && c.SecretAccessKey == "" {
		return &ConfigError{Field: "secretAccessKey", Err: errRequired}
	}
	return nil
}

func (c AppConfig) ConfigStringArray() []string {
	configStrArr := make([]string, 0)
	configStrArr = append(configStrArr, fmt.Sprintf("  - LocalFolder: %s", c.LocalFolder))
	configStrArr = append(configStrArr, fmt.Sprintf("  - Destination: s3://%s/%s", c.BucketName, normalizePrefix(c.Prefix)))
	configStrArr = append(configStrArr, fmt.Sprintf("  - Concurrent Uploads: %d", c.Threads))
	configStrArr = append(configStrArr, fmt.Sprintf("  - DryRun: %t", c.DryRun))

	if c.Region != "" {
		configStrArr = append(configStrArr, fmt.Sprintf("  - Region: %s", c.Region))
	}
	if c.Profile != "" {
		configStrArr = append(configStrArr, fmt.Sprintf("  - Profile: %s", c.Profile))
	}
	if c.Endpoint != "" {
		configStrArr = append(configStrArr, fmt.Sprintf("  - Endpoint: %s", c.Endpoint))
	}
	if c.AccessKeyID != "" {
		configStrArr = append(configStrArr, "  - Credentials: static keys from config")
	}
	if c.SNSTopic != "" {
		configStrArr = append(configStrArr, fmt.Sprintf("  - SNSTopic: %s", c.SNSTopic))
	}
	if c.Schedule != "" {
		configStrArr = append(configStrArr, fmt.Sprintf("  - Schedule: %s", c.Schedule))
	}
	if len(c.Exclude) > 0 {
		configStrArr = append(configStrArr, "Excluded Patterns:")
		for _, pattern := range c.Exclude {
			configStrArr = append(configStrArr, fmt.Sprintf("  - %s", pattern))
		}
	}

	return configStrArr
}
