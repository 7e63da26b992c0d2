package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSecrets(t *testing.T) {
	t.Setenv("WBMS_SECRETS_CODE_SALT", "salt-a")
	t.Setenv("WBMS_SECRETS_CODE_PEPPER", "pepper-a")
	t.Setenv("WBMS_SECRETS_PATIENT_SALT", "salt-b")
	t.Setenv("WBMS_SECRETS_PATIENT_PEPPER", "pepper-b")
}

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	setSecrets(t)
	t.Setenv("WBMS_SERVER_PORT", "9090")
	t.Setenv("WBMS_DOCUMENTS_FILE_NUMBERING", "count")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "count", cfg.Documents.FileNumbering)
	assert.Equal(t, "CHMC", cfg.Documents.CodePrefix)
	assert.Equal(t, 12*time.Hour, cfg.JWT.TokenExpiry)
	assert.Equal(t, "salt-a", cfg.Secrets.Code().Salt)
	assert.Equal(t, "pepper-b", cfg.Secrets.Patient().Pepper)
}

func TestLoadConfigReadsYAML(t *testing.T) {
	setSecrets(t)
	dir := t.TempDir()
	yml := []byte("database:\n  host: db.internal\n  port: 6543\nconverter:\n  backend: soffice\n  max_concurrent: 2\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), yml, 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "soffice", cfg.Converter.Backend)
	assert.Equal(t, 2, cfg.Converter.MaxConcurrent)
	assert.Equal(t, "host=db.internal port=6543 user=wbms password= dbname=wbms sslmode=disable", cfg.Database.DSN())
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}

func TestValidateRejectsUnknownModes(t *testing.T) {
	setSecrets(t)
	t.Setenv("WBMS_CONVERTER_BACKEND", "word")

	_, err := LoadConfig(t.TempDir())
	assert.ErrorContains(t, err, "converter.backend")
}
