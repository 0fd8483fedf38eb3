package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Env var names the AWS SDK credential chain reads. The credentials file is
// applied to the environment rather than passed to the session directly so
// that externally provided credentials keep working without a file.
const (
	EnvAccessKeyID     = "AWS_ACCESS_KEY_ID"
	EnvSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
)

// Config describes one pipeline run: where to read raw song and log data
// from, where to write the star-schema tables, and how to reach S3 when
// either side lives there.
type Config struct {
	InputPath       string `yaml:"input_path"`
	OutputPath      string `yaml:"output_path"`
	Region          string `yaml:"region"`
	CredentialsFile string `yaml:"credentials_file"`
	Workers         int    `yaml:"workers"`
}

// Load reads the YAML pipeline config and fills in defaults.
func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.InputPath == "" {
		return nil, fmt.Errorf("config %s: input_path is required", path)
	}
	if cfg.OutputPath == "" {
		return nil, fmt.Errorf("config %s: output_path is required", path)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU() * 2
	}

	return cfg, nil
}

// IsS3 reports whether a configured path addresses remote object storage.
func IsS3(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// NeedsCredentials reports whether any configured path requires S3 access.
func (c *Config) NeedsCredentials() bool {
	return IsS3(c.InputPath) || IsS3(c.OutputPath)
}

// LoadCredentials applies the KEY=VALUE credentials file (two fields: access
// key id and secret) to the process environment, then verifies that both
// fields are present whenever the run touches S3. A missing or incomplete
// credential set is fatal at startup; nothing is retried.
func (c *Config) LoadCredentials() error {
	if c.CredentialsFile != "" {
		if err := godotenv.Overload(c.CredentialsFile); err != nil {
			return fmt.Errorf("failed to load credentials file %s: %w", c.CredentialsFile, err)
		}
	}

	if !c.NeedsCredentials() {
		return nil
	}
	if os.Getenv(EnvAccessKeyID) == "" || os.Getenv(EnvSecretAccessKey) == "" {
		return fmt.Errorf("s3 paths configured but %s/%s are not set", EnvAccessKeyID, EnvSecretAccessKey)
	}
	return nil
}
