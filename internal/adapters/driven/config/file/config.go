package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/driveindex/internal/core/domain"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Environment variables that override the file.
const (
	EnvDatabaseURL     = "DATABASE_URL"
	EnvCollection      = "VECTORSTORE_COLLECTION_NAME"
	EnvOpenAIKey       = "OPENAI_API_KEY"
	EnvBucket          = "S3_BUCKET_NAME"
	EnvAWSRegion       = "AWS_REGION"
	EnvCredentialsFile = "GOOGLE_CREDENTIALS_FILE"
	EnvTokenFile       = "GOOGLE_TOKEN_FILE"
)

// Config is the complete driveindex configuration.
type Config struct {
	Source    SourceConfig
	Pipeline  domain.PipelineSettings
	Metadata  StoreConfig
	Vector    VectorConfig
	Blob      BlobConfig
	Embedding EmbeddingConfig
	Analyzer  AnalyzerConfig
	Scheduler SchedulerConfig
}

// SourceConfig configures Drive access.
type SourceConfig struct {
	// CredentialsFile is a service account key or OAuth client secret.
	CredentialsFile string
	// TokenFile holds a stored user token for OAuth client credentials.
	TokenFile string
	// RequestsPerSecond throttles Drive API calls.
	RequestsPerSecond float64
}

// StoreConfig selects the metadata store.
type StoreConfig struct {
	Driver  string
	DSN     string
	DataDir string
}

// VectorConfig selects the vector index. An empty driver follows the
// metadata store.
type VectorConfig struct {
	Driver     string
	DSN        string
	Collection string
}

// BlobConfig configures the S3 image bucket.
type BlobConfig struct {
	Bucket        string
	Region        string
	Endpoint      string
	PublicBaseURL string
}

// EmbeddingConfig configures the embedding service. A missing API key
// disables embeddings.
type EmbeddingConfig struct {
	Model     string
	APIKey    string
	BaseURL   string
	BatchSize int
}

// AnalyzerConfig configures the document analyzer.
type AnalyzerConfig struct {
	Model     string
	APIKey    string
	BaseURL   string
	PromptDir string
}

// SchedulerConfig configures unattended runs.
type SchedulerConfig struct {
	Interval time.Duration
	LockFile string
}

// Loader reads configuration from a TOML file, .env files and the process
// environment. Precedence is environment, then .env, then file, then defaults.
type Loader struct {
	// Path is the TOML file. Empty means DefaultConfigPath.
	Path string
	// EnvFiles are .env files to read. Missing files are skipped.
	EnvFiles []string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load reads path with ./.env and the process environment applied.
func Load(path string) (*Config, error) {
	return Loader{Path: path, EnvFiles: []string{".env"}}.Load()
}

// Load builds the configuration.
func (l Loader) Load() (*Config, error) {
	store, err := NewConfigStore(l.Path)
	if err != nil {
		return nil, err
	}

	dotenv := make(map[string]string)
	for _, f := range l.EnvFiles {
		values, err := godotenv.Read(f)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		for k, v := range values {
			if _, ok := dotenv[k]; !ok {
				dotenv[k] = v
			}
		}
	}

	lookup := l.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := func(key, fallback string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		if v, ok := dotenv[key]; ok && v != "" {
			return v
		}
		return fallback
	}

	return build(store, env)
}

func build(s *ConfigStore, env func(key, fallback string) string) (*Config, error) {
	cfg := &Config{Pipeline: domain.DefaultPipelineSettings()}
	p := &cfg.Pipeline

	// [source]
	p.Roots = s.GetStringSlice("source.roots")
	if platform := s.GetString("source.platform"); platform != "" {
		p.Platform = platform
	}
	cfg.Source = SourceConfig{
		CredentialsFile:   expandHome(env(EnvCredentialsFile, s.GetString("source.credentials_file"))),
		TokenFile:         expandHome(env(EnvTokenFile, s.GetString("source.token_file"))),
		RequestsPerSecond: s.GetFloat("source.requests_per_second"),
	}

	// [pipeline]
	if s.Has("pipeline.max_file_size_mb") {
		p.MaxFileSize = int64(s.GetInt("pipeline.max_file_size_mb")) * 1024 * 1024
	}
	if s.Has("pipeline.chunk_size") {
		p.ChunkSize = s.GetInt("pipeline.chunk_size")
	}
	if s.Has("pipeline.chunk_overlap") {
		p.ChunkOverlap = s.GetInt("pipeline.chunk_overlap")
	}
	if s.Has("pipeline.max_images") {
		p.MaxImages = s.GetInt("pipeline.max_images")
	}
	if types := s.GetStringSlice("pipeline.supported_types"); len(types) > 0 {
		p.SupportedTypes = types
	}
	p.WorkDir = expandHome(s.GetString("pipeline.work_dir"))

	var err error
	if p.AnalysisTimeout, err = durationOr(s, "pipeline.analysis_timeout", p.AnalysisTimeout); err != nil {
		return nil, err
	}

	// [retry]
	if s.Has("retry.max_attempts") {
		p.Retry.MaxAttempts = s.GetInt("retry.max_attempts")
	}
	if p.Retry.BaseDelay, err = durationOr(s, "retry.base_delay", p.Retry.BaseDelay); err != nil {
		return nil, err
	}
	if p.Retry.MaxDelay, err = durationOr(s, "retry.max_delay", p.Retry.MaxDelay); err != nil {
		return nil, err
	}

	// [metadata] and [vector]
	dsn := env(EnvDatabaseURL, s.GetString("metadata.dsn"))
	cfg.Metadata = StoreConfig{
		Driver:  s.GetString("metadata.driver"),
		DSN:     dsn,
		DataDir: expandHome(s.GetString("metadata.data_dir")),
	}
	if cfg.Metadata.Driver == "" {
		cfg.Metadata.Driver = DriverSQLite
		if dsn != "" {
			cfg.Metadata.Driver = DriverPostgres
		}
	}
	cfg.Vector = VectorConfig{
		Driver:     s.GetString("vector.driver"),
		DSN:        s.GetString("vector.dsn"),
		Collection: env(EnvCollection, s.GetString("vector.collection")),
	}
	if cfg.Vector.Driver == "" {
		cfg.Vector.Driver = cfg.Metadata.Driver
	}
	if cfg.Vector.DSN == "" {
		cfg.Vector.DSN = cfg.Metadata.DSN
	}
	if cfg.Vector.Collection == "" {
		cfg.Vector.Collection = domain.DefaultCollection
	}

	// [blob]
	cfg.Blob = BlobConfig{
		Bucket:        env(EnvBucket, s.GetString("blob.bucket")),
		Region:        env(EnvAWSRegion, s.GetString("blob.region")),
		Endpoint:      s.GetString("blob.endpoint"),
		PublicBaseURL: s.GetString("blob.public_base_url"),
	}

	// OPENAI_API_KEY serves both [embedding] and [analyzer].
	apiKey := env(EnvOpenAIKey, "")
	cfg.Embedding = EmbeddingConfig{
		Model:     s.GetString("embedding.model"),
		APIKey:    firstNonEmpty(apiKey, s.GetString("embedding.api_key")),
		BaseURL:   s.GetString("embedding.base_url"),
		BatchSize: s.GetInt("embedding.batch_size"),
	}
	cfg.Analyzer = AnalyzerConfig{
		Model:     s.GetString("analyzer.model"),
		APIKey:    firstNonEmpty(apiKey, s.GetString("analyzer.api_key")),
		BaseURL:   s.GetString("analyzer.base_url"),
		PromptDir: expandHome(s.GetString("analyzer.prompt_dir")),
	}
	if prompt := s.GetString("analyzer.prompt"); prompt != "" {
		p.Prompt = prompt
	}

	// [scheduler]
	cfg.Scheduler = SchedulerConfig{LockFile: expandHome(s.GetString("scheduler.lock_file"))}
	if cfg.Scheduler.Interval, err = durationOr(s, "scheduler.interval", domain.DefaultIngestionInterval); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration is complete enough to run the pipeline.
func (c *Config) Validate() error {
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	for _, d := range []string{c.Metadata.Driver, c.Vector.Driver} {
		if d != DriverSQLite && d != DriverPostgres {
			return fmt.Errorf("%w: unknown storage driver %q", domain.ErrInvalidInput, d)
		}
	}
	switch {
	case c.Metadata.Driver == DriverPostgres && c.Metadata.DSN == "":
		return fmt.Errorf("%w: postgres metadata store needs %s", domain.ErrInvalidInput, EnvDatabaseURL)
	case c.Vector.Driver == DriverPostgres && c.Vector.DSN == "":
		return fmt.Errorf("%w: postgres vector index needs a dsn", domain.ErrInvalidInput)
	case c.Blob.Bucket == "":
		return fmt.Errorf("%w: no image bucket configured (%s)", domain.ErrInvalidInput, EnvBucket)
	case c.Analyzer.APIKey == "":
		return fmt.Errorf("%w: analyzer needs %s", domain.ErrInvalidInput, EnvOpenAIKey)
	case c.Source.CredentialsFile == "":
		return fmt.Errorf("%w: no Google credentials configured (%s)", domain.ErrInvalidInput, EnvCredentialsFile)
	case c.Scheduler.Interval <= 0:
		return fmt.Errorf("%w: scheduler interval must be positive", domain.ErrInvalidInput)
	}
	return nil
}

// SchedulerSettings returns the scheduler configuration for the ingestion task.
func (c *Config) SchedulerSettings() domain.SchedulerConfig {
	sc := domain.DefaultSchedulerConfig()
	sc.TaskConfigs[domain.TaskIDIngestion] = domain.TaskConfig{Enabled: true, Interval: c.Scheduler.Interval}
	return sc
}

// LockPath returns the run lock file, defaulting to ~/.driveindex/run.lock.
func (c *Config) LockPath() (string, error) {
	if c.Scheduler.LockFile != "" {
		return c.Scheduler.LockFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".driveindex", "run.lock"), nil
}

func durationOr(s *ConfigStore, key string, fallback time.Duration) (time.Duration, error) {
	if !s.Has(key) {
		return fallback, nil
	}
	d, err := s.GetDuration(key)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return d, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
