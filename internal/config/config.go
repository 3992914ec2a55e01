package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "500ms" parse.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds every tunable of the service. Secrets stay in the
// environment; the YAML file carries the rest.
type Config struct {
	Port string `yaml:"port"`

	Detector DetectorConfig `yaml:"detector"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Buyback  BuybackConfig  `yaml:"buyback"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

type DetectorConfig struct {
	Model string `yaml:"model"`
}

type CatalogConfig struct {
	BaseURL           string   `yaml:"base_url"`
	PreferredLanguage string   `yaml:"preferred_language"`
	MaxResults        int      `yaml:"max_results"`
	RequestDelay      Duration `yaml:"request_delay"`
}

type BuybackConfig struct {
	BaseURL              string   `yaml:"base_url"`
	RequestDelay         Duration `yaml:"request_delay"`
	MaxRequestsPerMinute int      `yaml:"max_requests_per_minute"`

	// Token comes from BOEKENBALIE_API_TOKEN, never from the file.
	Token string `yaml:"-"`
}

type PipelineConfig struct {
	LookupDelay Duration `yaml:"lookup_delay"`
	ProbeDelay  Duration `yaml:"probe_delay"`
}

func Default() Config {
	return Config{
		Port: "8888",
		Detector: DetectorConfig{
			Model: "gemini-2.5-flash",
		},
		Catalog: CatalogConfig{
			PreferredLanguage: "nl",
			MaxResults:        10,
			RequestDelay:      Duration(500 * time.Millisecond),
		},
		Buyback: BuybackConfig{
			RequestDelay:         Duration(500 * time.Millisecond),
			MaxRequestsPerMinute: 60,
		},
		Pipeline: PipelineConfig{
			LookupDelay: Duration(300 * time.Millisecond),
			ProbeDelay:  Duration(100 * time.Millisecond),
		},
	}
}

// Load reads an optional YAML config file over the defaults and applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return cfg, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	if token := os.Getenv("BOEKENBALIE_API_TOKEN"); token != "" {
		cfg.Buyback.Token = token
	}

	return cfg, nil
}
