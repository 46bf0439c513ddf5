// Package config loads the optional zipimport.yaml settings file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/upk240z/zipimport/pkg/zipimport"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// AuthConfig holds cloud authentication settings for PostgreSQL destinations.
// Secrets (the Azure client secret) are read from the environment only.
type AuthConfig struct {
	Method         string `yaml:"method,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
}

// FileConfig mirrors zipimport.yaml. Zero values mean "not set".
type FileConfig struct {
	Connection  string     `yaml:"connection,omitempty"`
	Table       string     `yaml:"table,omitempty"`
	Mode        string     `yaml:"mode,omitempty"`
	BatchSize   int        `yaml:"batch_size,omitempty"`
	OnMalformed string     `yaml:"on_malformed,omitempty"`
	Auth        AuthConfig `yaml:"auth,omitempty"`
}

// DefaultPath returns the config file looked up in dir when none is named.
func DefaultPath(dir string) string {
	return filepath.Join(dir, zipimport.DefaultConfigFileName)
}

// Load reads and parses the config file at path. Unknown keys are rejected.
func Load(path string) (*FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("read %s: %w: %w", path, zipimport.ErrInvalidConfig, err)
	}
	defer f.Close()

	var cfg FileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("parse %s: %w: %w", path, zipimport.ErrInvalidConfig, err)
	}
	return &cfg, nil
}
