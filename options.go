package healthmap

import (
	"time"

	"github.com/agentstation/healthmap/pkg/identity"
	"github.com/agentstation/healthmap/pkg/sources"
	"github.com/agentstation/healthmap/pkg/store"
)

// Option is a function that configures a Healthmap instance.
type Option func(*config) error

// config collects the settings applied by options before wiring.
type config struct {
	store         store.Store
	storeDir      string
	directory     identity.Directory
	directoryPath string
	sources       []sources.Source

	jobTimeout    time.Duration
	maxAttempts   int
	retryDelay    time.Duration
	historyLimit  int
	minConfidence identity.Tier
}

func newConfig() *config {
	return &config{
		minConfidence: identity.TierMedium,
	}
}

// WithStore uses the given store instead of the default in-memory one.
func WithStore(st store.Store) Option {
	return func(c *config) error {
		c.store = st
		return nil
	}
}

// WithStoreDir persists jobs, conflicts, and application records as YAML
// files under dir.
func WithStoreDir(dir string) Option {
	return func(c *config) error {
		c.storeDir = dir
		return nil
	}
}

// WithDirectory uses the given identity directory for resolution.
func WithDirectory(dir identity.Directory) Option {
	return func(c *config) error {
		c.directory = dir
		return nil
	}
}

// WithDirectoryFile loads the identity directory from a YAML file.
func WithDirectoryFile(path string) Option {
	return func(c *config) error {
		c.directoryPath = path
		return nil
	}
}

// WithSources registers the source adapters to sync from.
func WithSources(srcs ...sources.Source) Option {
	return func(c *config) error {
		c.sources = append(c.sources, srcs...)
		return nil
	}
}

// WithJobTimeout overrides the per-job timeout.
func WithJobTimeout(d time.Duration) Option {
	return func(c *config) error {
		c.jobTimeout = d
		return nil
	}
}

// WithRetry configures how many times a full sync tries a failing source
// and the fixed delay between attempts.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(c *config) error {
		c.maxAttempts = maxAttempts
		c.retryDelay = delay
		return nil
	}
}

// WithHistoryLimit bounds the in-memory job history.
func WithHistoryLimit(n int) Option {
	return func(c *config) error {
		c.historyLimit = n
		return nil
	}
}

// WithMinConfidence sets the minimum confidence tier for an occupant
// match to take effect.
func WithMinConfidence(tier identity.Tier) Option {
	return func(c *config) error {
		c.minConfidence = tier
		return nil
	}
}
