package file

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/awesometrack/internal/core/domain"
	"github.com/custodia-labs/awesometrack/internal/logger"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "config.yml"

// IndexFile is the document tracked when a source lists no files.
const IndexFile = "README.md"

// TokenEnvVars are read in order for the GitHub token.
var TokenEnvVars = []string{"GITHUB_TOKEN", "PERSONAL_GITHUB_TOKEN"}

type rawConfig struct {
	Sources             rawSources  `yaml:"sources"`
	FileMinUpdatedHours float64     `yaml:"file_min_updated_hours"`
	Site                domain.Site `yaml:"site"`
	Tracker             rawTracker  `yaml:"tracker"`
}

type rawTracker struct {
	DataDir          string `yaml:"data_dir"`
	ReposDir         string `yaml:"repos_dir"`
	Concurrency      int    `yaml:"concurrency"`
	BadgeConcurrency int    `yaml:"badge_concurrency"`
	AnomalyThreshold int    `yaml:"anomaly_threshold"`
	MockBadges       bool   `yaml:"mock_badges"`
	Schedule         string `yaml:"schedule"`
	MetricsFile      string `yaml:"metrics_file"`
}

type rawSource struct {
	Category      string   `yaml:"category"`
	DefaultBranch string   `yaml:"default_branch"`
	URL           string   `yaml:"url"`
	Files         rawFiles `yaml:"files"`
}

type rawFile struct {
	Index              *bool       `yaml:"index"`
	Name               string      `yaml:"name"`
	Options            *rawOptions `yaml:"options"`
	IDStrategy         string      `yaml:"id_strategy"`
	CategoryExclusions []string    `yaml:"category_exclusions"`
}

type rawOptions struct {
	Type            string `yaml:"type"`
	MinHeadingLevel int    `yaml:"min_heading_level"`
	MaxHeadingLevel int    `yaml:"max_heading_level"`
	HeadingLevel    int    `yaml:"heading_level"`
	IsParseCategory *bool  `yaml:"is_parse_category"`
}

type namedSource struct {
	id     string
	source *rawSource
}

// rawSources keeps sources in document order.
type rawSources []namedSource

func (s *rawSources) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: sources must be a mapping", value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		entry := namedSource{id: key.Value}
		if val.Tag != "!!null" {
			entry.source = &rawSource{}
			if err := decodeStrict(val, entry.source); err != nil {
				return fmt.Errorf("source %s: %w", key.Value, err)
			}
		}
		*s = append(*s, entry)
	}
	return nil
}

type namedFile struct {
	path string
	file rawFile
}

// rawFiles accepts a single path or a mapping of path to file options.
type rawFiles []namedFile

func (f *rawFiles) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Value != "" {
			*f = rawFiles{{path: value.Value}}
		}
		return nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(value.Content); i += 2 {
			key, val := value.Content[i], value.Content[i+1]
			entry := namedFile{path: key.Value}
			if val.Tag != "!!null" {
				if err := decodeStrict(val, &entry.file); err != nil {
					return fmt.Errorf("file %s: %w", key.Value, err)
				}
			}
			*f = append(*f, entry)
		}
		return nil
	default:
		return fmt.Errorf("line %d: files must be a path or a mapping", value.Line)
	}
}

// decodeStrict decodes a node rejecting unknown keys. Node.Decode does not
// inherit the decoder's KnownFields setting.
func decodeStrict(node *yaml.Node, v any) error {
	data, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(v)
}

// Load reads and resolves the configuration at path.
func Load(configPath string) (*domain.Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	cfg, err := Parse(data, strings.EqualFold(filepath.Ext(configPath), ".toml"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	cfg.Path = configPath

	base := filepath.Dir(configPath)
	cfg.Tracker.DataDir = resolveDir(base, cfg.Tracker.DataDir)
	cfg.Tracker.ReposDir = resolveDir(base, cfg.Tracker.ReposDir)
	if cfg.MetricsFile != "" {
		cfg.MetricsFile = resolveDir(base, cfg.MetricsFile)
	}
	return cfg, nil
}

// Parse resolves configuration bytes. TOML is converted to the YAML shape
// first so both formats share one decoder; TOML tables have no order, so
// their sources come out sorted by identifier.
func Parse(data []byte, isTOML bool) (*domain.Config, error) {
	if isTOML {
		var generic map[string]any
		if err := toml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
		}
		converted, err := yaml.Marshal(generic)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
		}
		data = converted
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	return resolve(raw)
}

func resolve(raw rawConfig) (*domain.Config, error) {
	tracker := domain.DefaultTrackerConfig()
	if raw.FileMinUpdatedHours > 0 {
		tracker.RefreshWindow = time.Duration(raw.FileMinUpdatedHours * float64(time.Hour))
	}
	if raw.Tracker.DataDir != "" {
		tracker.DataDir = raw.Tracker.DataDir
	}
	if raw.Tracker.ReposDir != "" {
		tracker.ReposDir = raw.Tracker.ReposDir
	}
	if raw.Tracker.Concurrency > 0 {
		tracker.Concurrency = raw.Tracker.Concurrency
	}
	if raw.Tracker.AnomalyThreshold > 0 {
		tracker.AnomalyThreshold = raw.Tracker.AnomalyThreshold
	}

	scheduler := domain.DefaultSchedulerConfig()
	if raw.Tracker.Schedule != "" {
		scheduler.Spec = raw.Tracker.Schedule
	}

	cfg := &domain.Config{
		Site:             raw.Site,
		Tracker:          tracker,
		Scheduler:        scheduler,
		BadgeConcurrency: raw.Tracker.BadgeConcurrency,
		MockBadges:       raw.Tracker.MockBadges,
		MetricsFile:      raw.Tracker.MetricsFile,
		GitHubToken:      tokenFromEnv(),
	}

	seen := make(map[string]bool, len(raw.Sources))
	for _, entry := range raw.Sources {
		if seen[entry.id] {
			return nil, fmt.Errorf("%w: duplicate source %s", domain.ErrInvalidConfig, entry.id)
		}
		seen[entry.id] = true

		source, err := resolveSource(entry.id, entry.source)
		if err != nil {
			return nil, err
		}
		cfg.Sources = append(cfg.Sources, source)
	}
	return cfg, nil
}

func resolveSource(id string, raw *rawSource) (domain.Source, error) {
	source := domain.Source{Identifier: id}
	if raw == nil {
		raw = &rawSource{}
	}
	source.Category = raw.Category
	source.DefaultBranch = raw.DefaultBranch
	source.URL = raw.URL

	files := raw.Files
	if len(files) == 0 {
		files = rawFiles{{path: IndexFile}}
	}

	defaultName := titleCase(source.Repo())
	hasIndex := false
	for _, f := range files {
		tracked, err := resolveFile(id, f, len(files) == 1, defaultName)
		if err != nil {
			return domain.Source{}, err
		}
		hasIndex = hasIndex || tracked.Index
		source.Files = append(source.Files, tracked)
	}
	if !hasIndex {
		return domain.Source{}, fmt.Errorf("%w: source %s has no index file", domain.ErrInvalidConfig, id)
	}

	if err := source.Validate(); err != nil {
		return domain.Source{}, err
	}
	return source, nil
}

func resolveFile(sourceID string, f namedFile, only bool, defaultName string) (domain.TrackedFile, error) {
	tracked := domain.TrackedFile{
		Path:       strings.TrimPrefix(path.Clean(f.path), "/"),
		IDStrategy: domain.IDDefault,
		Options: domain.ParseOptions{
			Format:        domain.FormatList,
			ParseCategory: true,
		},
	}
	tracked.Index = only || (f.file.Index != nil && *f.file.Index)

	switch {
	case f.file.Name != "":
		tracked.Name = f.file.Name
	case tracked.Index:
		tracked.Name = defaultName
	default:
		tracked.Name = fmt.Sprintf("%s (%s)", defaultName, tracked.Path)
	}

	if o := f.file.Options; o != nil {
		if o.Type != "" {
			tracked.Options.Format = domain.Format(o.Type)
		}
		tracked.Options.MinHeadingLevel = o.MinHeadingLevel
		tracked.Options.MaxHeadingLevel = o.MaxHeadingLevel
		tracked.Options.HeadingLevel = o.HeadingLevel
		if o.IsParseCategory != nil {
			tracked.Options.ParseCategory = *o.IsParseCategory
		}
	}
	tracked.Options.CategoryExclusions = f.file.CategoryExclusions

	switch domain.IDStrategy(f.file.IDStrategy) {
	case "", domain.IDDefault:
	case domain.IDFirstLink:
		tracked.IDStrategy = domain.IDFirstLink
	default:
		return domain.TrackedFile{}, fmt.Errorf("%w: %s/%s unknown id_strategy %q",
			domain.ErrInvalidConfig, sourceID, tracked.Path, f.file.IDStrategy)
	}

	if tracked.Options.Format == domain.FormatHeading && tracked.Options.HeadingLevel == 0 {
		return domain.TrackedFile{}, fmt.Errorf("%w: %s/%s heading format needs heading_level",
			domain.ErrInvalidConfig, sourceID, tracked.Path)
	}
	return tracked, nil
}

// Watch calls onChange with the reloaded configuration whenever the file at
// configPath is written. Invalid intermediate states are logged and skipped.
// It blocks until ctx is cancelled.
func Watch(ctx context.Context, configPath string, onChange func(*domain.Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Editors replace files on save, so watch the directory.
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", configPath, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			cfg, err := Load(configPath)
			if err != nil {
				logger.Warn("config reload: %v", err)
				continue
			}
			logger.Info("config %s reloaded (%d sources)", configPath, len(cfg.Sources))
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher: %v", err)
		}
	}
}

func tokenFromEnv() string {
	for _, name := range TokenEnvVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func resolveDir(base, dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}

var titleCaser = cases.Title(language.English)

// titleCase turns "awesome-go" into "Awesome Go".
func titleCase(s string) string {
	return titleCaser.String(strings.ReplaceAll(s, "-", " "))
}
