package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env here
	t.Setenv("ADMIN_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "channel.db", cfg.DBFile)
	assert.Equal(t, ":8080", cfg.APIAddr)
	assert.Equal(t, "localhost:8081", cfg.AdminAddr)
	assert.Equal(t, "uploads", cfg.UploadsPath)
	assert.Equal(t, "admin", cfg.AdminUser)
	assert.Equal(t, int64(64_000_000), cfg.MaxUploadSize)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ADMIN_PASSWORD", "secret")
	t.Setenv("UPLOADS_PATH", "/srv/music")
	t.Setenv("MAX_UPLOAD_SIZE", "10MiB")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/music", cfg.UploadsPath)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadSize)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"Missing password", map[string]string{"ADMIN_PASSWORD": ""}},
		{"Bad size", map[string]string{"ADMIN_PASSWORD": "x", "MAX_UPLOAD_SIZE": "lots"}},
		{"Zero size", map[string]string{"ADMIN_PASSWORD": "x", "MAX_UPLOAD_SIZE": "0"}},
		{"Empty uploads", map[string]string{"ADMIN_PASSWORD": "x", "UPLOADS_PATH": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
