// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"firestige.xyz/pktgraph/internal/checksum"
)

// GlobalConfig maps to the `pktgraph:` root key in YAML.
type GlobalConfig struct {
	Log       LogConfig     `mapstructure:"log"`
	Metrics   MetricsConfig `mapstructure:"metrics"`
	Control   ControlConfig `mapstructure:"control"`
	Diag      DiagConfig    `mapstructure:"diag"`
	Checksum  string        `mapstructure:"checksum"` // fast | portable
	Source    SourceConfig  `mapstructure:"source"`
	Runner    RunnerConfig  `mapstructure:"runner"`
	Graph     GraphConfig   `mapstructure:"graph"`
	GraphFile string        `mapstructure:"graph_file"` // overrides the inline graph
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level"`   // trace / debug / info / warn / error
	Format  string           `mapstructure:"format"`  // text / json
	Pattern string           `mapstructure:"pattern"` // text only, e.g. "%time [%level] %msg %field"
	Time    string           `mapstructure:"time"`    // Go time layout
	Outputs LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig contains log destinations besides stdout.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// ─── Metrics & control ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ControlConfig contains the local handler socket settings.
type ControlConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Socket  string `mapstructure:"socket"`
}

// DiagConfig sizes the diagnostics queue. Lines beyond it are dropped.
type DiagConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

// ─── Source & runner ───

// SourceConfig selects where packets come from.
type SourceConfig struct {
	Type string           `mapstructure:"type"` // pcap | gen
	Pcap PcapSourceConfig `mapstructure:"pcap"`
	Gen  GenSourceConfig  `mapstructure:"gen"`
}

// PcapSourceConfig reads a capture file.
type PcapSourceConfig struct {
	Path        string `mapstructure:"path"`
	SkipNonIPv4 bool   `mapstructure:"skip_non_ipv4"`
}

// GenSourceConfig synthesizes IPv4/UDP packets.
type GenSourceConfig struct {
	Count        int      `mapstructure:"count"`
	Sources      []string `mapstructure:"sources"`
	Destination  string   `mapstructure:"destination"`
	PayloadSize  int      `mapstructure:"payload_size"`
	CorruptEvery int      `mapstructure:"corrupt_every"` // 0 = never
}

// RunnerConfig sizes the source-to-graph channel.
type RunnerConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

// ─── Loading ───

type configRoot struct {
	PktGraph GlobalConfig `mapstructure:"pktgraph"`
}

// Load loads configuration from file.
// The YAML file uses `pktgraph:` as root key; env vars use the PKTGRAPH_ prefix
// (e.g. PKTGRAPH_LOG_LEVEL).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.PktGraph

	if cfg.GraphFile != "" && !filepath.IsAbs(cfg.GraphFile) {
		cfg.GraphFile = filepath.Join(filepath.Dir(path), cfg.GraphFile)
	}

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pktgraph.log.level", "info")
	v.SetDefault("pktgraph.log.format", "text")
	v.SetDefault("pktgraph.log.outputs.file.enabled", false)
	v.SetDefault("pktgraph.log.outputs.file.path", "/var/log/pktgraph/pktgraph.log")
	v.SetDefault("pktgraph.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("pktgraph.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("pktgraph.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("pktgraph.log.outputs.file.rotation.compress", true)

	v.SetDefault("pktgraph.metrics.enabled", false)
	v.SetDefault("pktgraph.metrics.listen", ":9091")
	v.SetDefault("pktgraph.metrics.path", "/metrics")

	v.SetDefault("pktgraph.control.enabled", true)
	v.SetDefault("pktgraph.control.socket", "/var/run/pktgraph.sock")

	v.SetDefault("pktgraph.diag.queue_size", 1024)
	v.SetDefault("pktgraph.checksum", string(checksum.ModeFast))

	v.SetDefault("pktgraph.source.type", "gen")
	v.SetDefault("pktgraph.source.gen.count", 1000)
	v.SetDefault("pktgraph.source.gen.destination", "10.0.0.254")
	v.SetDefault("pktgraph.source.gen.payload_size", 32)

	v.SetDefault("pktgraph.runner.buffer_size", 1024)
}

// ValidateAndApplyDefaults validates configuration and fills runtime defaults.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be trace/debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}

	mode, err := checksum.ParseMode(cfg.Checksum)
	if err != nil {
		return err
	}
	cfg.Checksum = string(mode)

	if cfg.Diag.QueueSize <= 0 {
		cfg.Diag.QueueSize = 1024
	}
	if cfg.Runner.BufferSize <= 0 {
		cfg.Runner.BufferSize = 1024
	}

	switch cfg.Source.Type {
	case "pcap":
		if cfg.Source.Pcap.Path == "" {
			return fmt.Errorf("source.pcap.path is required when source.type=pcap")
		}
	case "gen":
		if cfg.Source.Gen.Count < 0 {
			return fmt.Errorf("source.gen.count must be >= 0, got %d", cfg.Source.Gen.Count)
		}
		if len(cfg.Source.Gen.Sources) == 0 {
			cfg.Source.Gen.Sources = []string{"10.0.0.1"}
		}
		if cfg.Source.Gen.PayloadSize < 0 {
			return fmt.Errorf("source.gen.payload_size must be >= 0, got %d", cfg.Source.Gen.PayloadSize)
		}
	default:
		return fmt.Errorf("unsupported source.type: %s (must be pcap/gen)", cfg.Source.Type)
	}

	if cfg.GraphFile != "" {
		g, err := ParseGraphFile(cfg.GraphFile)
		if err != nil {
			return err
		}
		cfg.Graph = *g
	}
	return cfg.Graph.Validate()
}
