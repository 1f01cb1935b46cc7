package engine

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ostinato-db/ostinato"
	"github.com/ostinato-db/ostinato/dialect"
)

// Config describes a database connection. Values may reference
// environment variables with $VAR or ${VAR} syntax; they are expanded
// at load time, after any .env file in the working directory has been
// applied.
type Config struct {
	Dialect    string            `yaml:"dialect"`
	DSN        string            `yaml:"dsn"`
	LogQueries bool              `yaml:"log_queries"`
	Nodes      map[string]string `yaml:"nodes,omitempty"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	// A missing .env file is not an error; explicit environment wins.
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ostinato.NewConfigError("read engine config %q: %v", path, err)
	}
	return ParseConfig(raw)
}

// ParseConfig decodes YAML config bytes and expands environment
// references.
func ParseConfig(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, ostinato.NewConfigError("parse engine config: %v", err)
	}
	cfg.DSN = os.ExpandEnv(cfg.DSN)
	for name, dsn := range cfg.Nodes {
		cfg.Nodes[name] = os.ExpandEnv(dsn)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config names a supported dialect and a DSN.
func (c *Config) Validate() error {
	if !dialect.Supported(c.Dialect) {
		return dialect.Unrecognized(c.Dialect)
	}
	if c.DSN == "" {
		return ostinato.NewConfigError("engine config for %s has an empty dsn", c.Dialect)
	}
	return nil
}
