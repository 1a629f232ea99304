package domain

// Site describes the published list site.
type Site struct {
	Title       string
	Description string
	URL         string
}

// Config is the fully resolved configuration.
type Config struct {
	// Sources lists tracked repositories in configuration order.
	Sources []Source

	// Site is passed through for downstream stages.
	Site Site

	// Tracker tunes the reconciliation driver.
	Tracker TrackerConfig

	// Scheduler tunes the watch loop.
	Scheduler SchedulerConfig

	// BadgeConcurrency caps parallel star lookups per file.
	BadgeConcurrency int

	// MockBadges disables star lookups.
	MockBadges bool

	// MetricsFile is where run metrics are written, if set.
	MetricsFile string

	// GitHubToken authenticates API calls. Empty means anonymous.
	GitHubToken string

	// Path is the file the configuration was loaded from.
	Path string
}

// Source returns the configured source with the given identifier.
func (c *Config) Source(id string) (Source, bool) {
	for _, s := range c.Sources {
		if s.Identifier == id {
			return s, true
		}
	}
	return Source{}, false
}
