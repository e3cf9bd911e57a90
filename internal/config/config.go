package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// Storage selects and configures the blob backend. The backend is chosen once
// here; callers only ever see the gateway interface.
type Storage struct {
	Backend string `toml:"backend"` // "local" or "s3"

	// Local backend
	Root string `toml:"root"`

	// S3-compatible backend
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Region    string `toml:"region"`
	UseSSL    bool   `toml:"use_ssl"`

	// Retention windows in hours per namespace.
	UploadRetentionHours     int `toml:"upload_retention_hours"`
	ProcessingRetentionHours int `toml:"processing_retention_hours"`
	ResultRetentionHours     int `toml:"result_retention_hours"`
}

// Pipeline contains worker-pool and sweep timing configuration.
type Pipeline struct {
	Workers            int `toml:"workers"`
	QueuePollInterval  int `toml:"queue_poll_interval"`  // seconds
	ErrorRetryInterval int `toml:"error_retry_interval"` // seconds
	HeartbeatInterval  int `toml:"heartbeat_interval"`   // seconds
	TransientRetries   int `toml:"transient_retries"`

	// Stuck-job ceiling: hard ceiling = base + slope * expected job minutes.
	// The soft warning threshold sits at two thirds of the hard ceiling.
	SweepInterval      int     `toml:"sweep_interval"`       // seconds
	StuckBaseMinutes   int     `toml:"stuck_base_minutes"`   // floor for trivial jobs
	StuckMinutesFactor float64 `toml:"stuck_minutes_factor"` // per expected input minute
}

// Crop contains adaptive crop engine tuning.
type Crop struct {
	SampleInterval      int     `toml:"sample_interval"` // frames between detector samples
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	PersonWeight        float64 `toml:"person_weight"`
	ObjectWeight        float64 `toml:"object_weight"`
	MaxStepPx           float64 `toml:"max_step_px"`
	SmoothingFactor     float64 `toml:"smoothing_factor"`
}

// Segmenter contains content segmenter bounds.
type Segmenter struct {
	MinSeconds  float64 `toml:"min_seconds"`
	MaxSeconds  float64 `toml:"max_seconds"`
	MaxSegments int     `toml:"max_segments"`
}

// Story contains synthetic-generation defaults.
type Story struct {
	MaxScenes       int     `toml:"max_scenes"`
	CharLimitMin    int     `toml:"char_limit_min"`
	CharLimitMax    int     `toml:"char_limit_max"`
	MaxSceneSeconds float64 `toml:"max_scene_seconds"`

	// Unit costs accumulated on generative jobs, in cents.
	TextCostCents  float64 `toml:"text_cost_cents"`
	ImageCostCents float64 `toml:"image_cost_cents"`
	VoiceCostCents float64 `toml:"voice_cost_cents"`
}

// Tools names the external binaries the toolchain shells out to.
type Tools struct {
	FFmpeg      string `toml:"ffmpeg"`
	FFprobe     string `toml:"ffprobe"`
	Transcriber string `toml:"transcriber"` // word-level JSON on stdout
	Detector    string `toml:"detector"`    // detection JSON on stdout
}

// Gateway configures the HTTP service backing the generative contracts.
type Gateway struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration object.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Storage   Storage   `toml:"storage"`
	Pipeline  Pipeline  `toml:"pipeline"`
	Crop      Crop      `toml:"crop"`
	Segmenter Segmenter `toml:"segmenter"`
	Story     Story     `toml:"story"`
	Tools     Tools     `toml:"tools"`
	Gateway   Gateway   `toml:"gateway"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the conventional config file location.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "clipforge.toml"
	}
	return filepath.Join(home, ".config", "clipforge", "config.toml")
}

// Load reads configuration from path, falling back to defaults when the file
// does not exist. It returns the config, the resolved path, and whether a
// file was actually read.
func Load(path string) (*Config, string, bool, error) {
	resolved := strings.TrimSpace(path)
	if resolved == "" {
		resolved = DefaultConfigPath()
	}

	cfg := Default()
	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg.applyDerived()
			return cfg, resolved, false, nil
		}
		return nil, resolved, false, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, resolved, true, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDerived()
	if err := cfg.Validate(); err != nil {
		return nil, resolved, true, err
	}
	return cfg, resolved, true, nil
}

// WriteSample writes the embedded sample config to path.
func WriteSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// Sample returns the embedded sample config text.
func Sample() string { return sampleConfig }

// EnsureDirectories creates the directories the daemon needs.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.WorkDir, c.Paths.LogDir}
	if c.Storage.Backend == "local" && c.Storage.Root != "" {
		dirs = append(dirs, c.Storage.Root)
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) applyDerived() {
	if c.Storage.Root == "" {
		c.Storage.Root = filepath.Join(c.Paths.DataDir, "blobs")
	}
}
