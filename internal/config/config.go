// Package config loads the reportsync configuration: defaults, then an
// optional YAML file, then environment overrides, validated against an
// embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Config is the full process configuration.
type Config struct {
	Cloud CloudConfig `yaml:"cloud" json:"cloud"`
	Edge  EdgeConfig  `yaml:"edge" json:"edge"`
	Log   LogConfig   `yaml:"log" json:"log"`
}

// CloudConfig configures the Sync Transport server and Version Store.
type CloudConfig struct {
	Listen        string        `yaml:"listen" json:"listen"`
	DBPath        string        `yaml:"db_path" json:"db_path"`
	PublicKeyPath string        `yaml:"public_key_path" json:"public_key_path"`
	AppendTimeout time.Duration `yaml:"append_timeout" json:"append_timeout"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	TokenLeeway   time.Duration `yaml:"token_leeway" json:"token_leeway"`
}

// EdgeConfig configures an edge node.
type EdgeConfig struct {
	User           string        `yaml:"user" json:"user"`
	DBPath         string        `yaml:"db_path" json:"db_path"`
	PrivateKeyPath string        `yaml:"private_key_path" json:"private_key_path"`
	CloudURL       string        `yaml:"cloud_url" json:"cloud_url"`
	TokenTTL       time.Duration `yaml:"token_ttl" json:"token_ttl"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	SyncSchedule   string        `yaml:"sync_schedule" json:"sync_schedule"` // cron spec; empty disables
}

// LogConfig configures slog output.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug|info|warn|error
	Format string `yaml:"format" json:"format"` // text|json
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Cloud: CloudConfig{
			Listen:        ":8443",
			DBPath:        "/app/data/cloud_db.sqlite",
			PublicKeyPath: "keys/public.pem",
			AppendTimeout: 5 * time.Second,
			MaxBodyBytes:  64 << 10,
		},
		Edge: EdgeConfig{
			DBPath:         "/app/data/edge_db.sqlite",
			PrivateKeyPath: "private.pem",
			CloudURL:       "http://cloud:8443",
			TokenTTL:       30 * time.Minute,
			RequestTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Env variables that override file values.
const (
	EnvListenAddr     = "LISTEN_ADDR"
	EnvCloudDBPath    = "CLOUD_DB_PATH"
	EnvPublicKeyPath  = "PUBLIC_KEY_PATH"
	EnvPrivateKeyPath = "PRIVATE_KEY_PATH"
	EnvCloudURL       = "CLOUD_URL"
	EnvEdgeUser       = "EDGE_USER"
	EnvEdgeDBPath     = "EDGE_DB_PATH"
)

// LookupEnv matches os.LookupEnv. Tests pass a map-backed lookup.
type LookupEnv func(key string) (string, bool)

// Load builds the configuration from defaults, the YAML file at path (if
// non-empty), and the environment, then validates it.
func Load(path string, env LookupEnv) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		defer f.Close()
		if err := cfg.decode(f); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if env == nil {
		env = os.LookupEnv
	}
	cfg.applyEnv(env)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode overlays YAML onto cfg. Unknown keys are rejected so typos surface.
func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(env LookupEnv) {
	overrides := []struct {
		key string
		dst *string
	}{
		{EnvListenAddr, &c.Cloud.Listen},
		{EnvCloudDBPath, &c.Cloud.DBPath},
		{EnvPublicKeyPath, &c.Cloud.PublicKeyPath},
		{EnvPrivateKeyPath, &c.Edge.PrivateKeyPath},
		{EnvCloudURL, &c.Edge.CloudURL},
		{EnvEdgeUser, &c.Edge.User},
		{EnvEdgeDBPath, &c.Edge.DBPath},
	}
	for _, o := range overrides {
		if v, ok := env(o.key); ok && v != "" {
			*o.dst = v
		}
	}
}

// Validate checks the configuration against the embedded CUE schema and
// parses the edge sync schedule.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	value := ctx.Encode(c)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := schema.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Edge.SyncSchedule != "" {
		if _, err := ParseSchedule(c.Edge.SyncSchedule); err != nil {
			return fmt.Errorf("invalid config: edge.sync_schedule: %w", err)
		}
	}
	return nil
}

// RequireEdgeUser reports an error if no edge identity is configured.
// Only edge commands need one.
func (c *Config) RequireEdgeUser() error {
	if c.Edge.User == "" {
		return fmt.Errorf("invalid config: edge.user is required (set %s)", EnvEdgeUser)
	}
	return nil
}

// scheduleParser accepts standard five-field specs, an optional leading
// seconds field, and descriptors such as "@every 30s".
var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule parses an edge sync schedule.
func ParseSchedule(spec string) (cron.Schedule, error) {
	return scheduleParser.Parse(spec)
}

// YAML renders the configuration as YAML, for `config show`.
func (c *Config) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}
