package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ebrunet/dispatchcore/core/metrics"
	"github.com/ebrunet/dispatchcore/core/pipeline"
	"github.com/ebrunet/dispatchcore/infra/mqtt"
)

// Config is the service-level configuration.
type Config struct {
	Rules    RulesConfig      `json:"rules"`
	Pipeline pipeline.Options `json:"pipeline"`
	Metrics  metrics.Config   `json:"metrics"`
	Logging  LoggingConfig    `json:"logging"`
	MQTT     mqtt.Config      `json:"mqtt"`
}

// RulesConfig locates the declarative rule sources.
type RulesConfig struct {
	// Path is the rule source file holding trigger and hard rules.
	Path string `json:"path"`
	// HardRulesPath optionally holds hard rules in a separate file.
	HardRulesPath string `json:"hard_rules_path"`
}

// Validate checks that a rule source is configured.
func (c RulesConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("rules.path must be set")
	}
	return nil
}

// Load reads the configuration file (yaml or json by extension) and applies
// K_ / __ environment overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Pipeline.SetDefaults()
	cfg.Logging.SetDefaults()
	if err := cfg.Rules.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
