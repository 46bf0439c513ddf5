package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upk240z/zipimport/pkg/zipimport"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := DefaultPath(t.TempDir())
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_AllFields(t *testing.T) {
	path := writeConfig(t, `connection: postgres://importer@db.internal/geo
table: public.zip
mode: batch
batch_size: 500
on_malformed: skip
auth:
  method: aws-iam
  aws_region: ap-northeast-1
  google_instance: proj:asia-northeast1:geo
  azure_tenant_id: tenant
  azure_client_id: client
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://importer@db.internal/geo", cfg.Connection)
	assert.Equal(t, "public.zip", cfg.Table)
	assert.Equal(t, "batch", cfg.Mode)
	assert.Equal(t, 500, cfg.BatchSize)
	assert.Equal(t, "skip", cfg.OnMalformed)
	assert.Equal(t, "aws-iam", cfg.Auth.Method)
	assert.Equal(t, "ap-northeast-1", cfg.Auth.AWSRegion)
	assert.Equal(t, "proj:asia-northeast1:geo", cfg.Auth.GoogleInstance)
	assert.Equal(t, "tenant", cfg.Auth.AzureTenantID)
	assert.Equal(t, "client", cfg.Auth.AzureClientID)
}

func TestLoad_MinimalYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "table: zip\n"))
	require.NoError(t, err)

	assert.Equal(t, "zip", cfg.Table)
	assert.Empty(t, cfg.Connection)
	assert.Zero(t, cfg.BatchSize)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, &FileConfig{}, cfg)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, ErrConfigNotFound))
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "table: [unclosed\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, zipimport.ErrInvalidConfig)
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, "tabel: zip\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, zipimport.ErrInvalidConfig)
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("work", "zipimport.yaml"), DefaultPath("work"))
}
