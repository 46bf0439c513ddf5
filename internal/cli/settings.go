package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/upk240z/zipimport/internal/config"
	"github.com/upk240z/zipimport/pkg/zipimport"
)

// Environment variables read by the importer.
const (
	EnvConnection     = "ZIPIMPORT_CONNECTION"
	EnvDatabaseURL    = "DATABASE_URL"
	EnvMySQLURI       = "MYSQL_URI"
	EnvTable          = "TABLE_NAME"
	EnvMode           = "ZIPIMPORT_MODE"
	EnvBatchSize      = "ZIPIMPORT_BATCH_SIZE"
	EnvOnMalformed    = "ZIPIMPORT_ON_MALFORMED"
	EnvAuthMethod     = "ZIPIMPORT_AUTH_METHOD"
	EnvAWSRegion      = "AWS_REGION"
	EnvGoogleInstance = "ZIPIMPORT_GOOGLE_INSTANCE"
	EnvAzureTenantID  = "AZURE_TENANT_ID"
	EnvAzureClientID  = "AZURE_CLIENT_ID"
	EnvAzureSecret    = "AZURE_CLIENT_SECRET"
)

// DefaultEnvFile is loaded from the working directory when present.
const DefaultEnvFile = ".env"

// importFlags holds the command-line flag values.
type importFlags struct {
	connection  string
	table       string
	mode        string
	batchSize   int
	onMalformed string
	configPath  string
	envFiles    []string
}

// loadEnvFiles loads ./.env without overriding the process environment,
// then every --env-file in order, each overriding what came before.
func loadEnvFiles(envFiles []string) error {
	if _, err := os.Stat(DefaultEnvFile); err == nil {
		if err := godotenv.Load(DefaultEnvFile); err != nil {
			return fmt.Errorf("load %s: %w: %w", DefaultEnvFile, zipimport.ErrInvalidConfig, err)
		}
	}
	for _, f := range envFiles {
		if err := godotenv.Overload(f); err != nil {
			return fmt.Errorf("load env file %s: %w: %w", f, zipimport.ErrInvalidConfig, err)
		}
	}
	return nil
}

// loadFileConfig reads --config, or zipimport.yaml in the working directory
// when it exists. A missing explicit file is an error.
func loadFileConfig(path string) (*config.FileConfig, error) {
	explicit := path != ""
	if !explicit {
		path = config.DefaultPath(".")
	}

	cfg, err := config.Load(path)
	if errors.Is(err, config.ErrConfigNotFound) {
		if explicit {
			return nil, fmt.Errorf("config file %s not found: %w", path, zipimport.ErrInvalidConfig)
		}
		return &config.FileConfig{}, nil
	}
	return cfg, err
}

// firstNonEmpty returns the first value that is not blank.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// resolveImportConfig merges flags, environment and the config file.
// Precedence: flag > environment > file > default.
func resolveImportConfig(sourcePath string, flags importFlags) (zipimport.ImportConfig, error) {
	file, err := loadFileConfig(flags.configPath)
	if err != nil {
		return zipimport.ImportConfig{}, err
	}

	cfg := zipimport.ImportConfig{
		SourcePath: sourcePath,
		ConnectionString: firstNonEmpty(
			flags.connection,
			os.Getenv(EnvConnection),
			os.Getenv(EnvDatabaseURL),
			os.Getenv(EnvMySQLURI),
			file.Connection,
		),
		Table: firstNonEmpty(flags.table, os.Getenv(EnvTable), file.Table),
	}

	var errs []error

	if cfg.Mode, err = zipimport.ParseMode(firstNonEmpty(flags.mode, os.Getenv(EnvMode), file.Mode)); err != nil {
		errs = append(errs, err)
	}

	if cfg.OnMalformed, err = zipimport.ParseMalformedPolicy(
		firstNonEmpty(flags.onMalformed, os.Getenv(EnvOnMalformed), file.OnMalformed)); err != nil {
		errs = append(errs, err)
	}

	if cfg.BatchSize, err = resolveBatchSize(flags.batchSize, os.Getenv(EnvBatchSize), file.BatchSize); err != nil {
		errs = append(errs, err)
	}

	if cfg.Auth, err = resolveAuth(file.Auth); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return cfg, errors.Join(errs...)
	}
	return cfg, cfg.Validate()
}

func resolveBatchSize(flag int, env string, file int) (int, error) {
	if flag != 0 {
		return flag, nil
	}
	if env = strings.TrimSpace(env); env != "" {
		n, err := strconv.Atoi(env)
		if err != nil {
			return 0, fmt.Errorf("%s=%q is not a number: %w", EnvBatchSize, env, zipimport.ErrInvalidConfig)
		}
		return n, nil
	}
	if file != 0 {
		return file, nil
	}
	return zipimport.DefaultBatchSize, nil
}

// resolveAuth reads cloud auth settings. The Azure client secret comes from
// the environment only.
func resolveAuth(file config.AuthConfig) (zipimport.AuthConfig, error) {
	method, err := zipimport.ParseAuthMethod(firstNonEmpty(os.Getenv(EnvAuthMethod), file.Method))
	if err != nil {
		return zipimport.AuthConfig{}, err
	}
	return zipimport.AuthConfig{
		Method:            method,
		AWSRegion:         firstNonEmpty(os.Getenv(EnvAWSRegion), file.AWSRegion),
		GoogleInstance:    firstNonEmpty(os.Getenv(EnvGoogleInstance), file.GoogleInstance),
		AzureTenantID:     firstNonEmpty(os.Getenv(EnvAzureTenantID), file.AzureTenantID),
		AzureClientID:     firstNonEmpty(os.Getenv(EnvAzureClientID), file.AzureClientID),
		AzureClientSecret: os.Getenv(EnvAzureSecret),
	}, nil
}
