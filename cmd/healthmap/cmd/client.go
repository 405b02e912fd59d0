package cmd

import (
	"time"

	"github.com/spf13/viper"

	"github.com/agentstation/healthmap"
	"github.com/agentstation/healthmap/pkg/sources"
)

// Viper keys for the client configuration. Each maps to a
// HEALTHMAP_-prefixed environment variable and a .healthmap.yaml key.
const (
	keyStoreDir      = "store_dir"
	keyDirectoryFile = "directory_file"
	keyJobTimeout    = "job_timeout"
	keyRetryAttempts = "retry_attempts"
	keyRetryDelay    = "retry_delay"
)

// sourceFileKeys maps each source to its fixture-file config key.
var sourceFileKeys = map[sources.ID]string{
	sources.RosterID:  "roster_file",
	sources.DocsID:    "docs_file",
	sources.ReposID:   "repos_file",
	sources.TrafficID: "traffic_file",
}

// newClient builds a Healthmap instance from the loaded configuration.
// Sources without a configured fixture file are simply not registered.
func newClient() (healthmap.Healthmap, error) {
	var opts []healthmap.Option

	if dir := viper.GetString(keyStoreDir); dir != "" {
		opts = append(opts, healthmap.WithStoreDir(dir))
	}
	if path := viper.GetString(keyDirectoryFile); path != "" {
		opts = append(opts, healthmap.WithDirectoryFile(path))
	}
	if timeout := viper.GetDuration(keyJobTimeout); timeout > 0 {
		opts = append(opts, healthmap.WithJobTimeout(timeout))
	}
	if attempts := viper.GetInt(keyRetryAttempts); attempts > 0 {
		delay := viper.GetDuration(keyRetryDelay)
		if delay <= 0 {
			delay = 10 * time.Second
		}
		opts = append(opts, healthmap.WithRetry(attempts, delay))
	}

	var srcs []sources.Source
	for _, id := range sources.SyncOrder() {
		if path := viper.GetString(sourceFileKeys[id]); path != "" {
			srcs = append(srcs, sources.NewFileSource(id, path))
		}
	}
	if len(srcs) > 0 {
		opts = append(opts, healthmap.WithSources(srcs...))
	}

	return healthmap.New(opts...)
}
