package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", "does-not-exist.env")
	t.Setenv("APP_URL", "https://files.example.com/")
	t.Setenv("JWT_TTL", "90m")
	t.Setenv("MAX_FOLDER_DEPTH", "not-a-number")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://files.example.com", cfg.AppURL)
	assert.Equal(t, 90*time.Minute, cfg.JWTTTL)
	assert.Equal(t, 64, cfg.MaxFolderDepth)
	assert.Equal(t, "file-pod-bucket", cfg.S3.BucketName)
	assert.True(t, cfg.S3.UsePathStyle)
	assert.False(t, cfg.IsProduction())
}

func TestLoadTrustedProxies(t *testing.T) {
	t.Setenv("ENV_FILE", "does-not-exist.env")
	t.Setenv("TRUSTED_PROXIES", "")
	assert.Empty(t, Load().TrustedProxies)

	t.Setenv("TRUSTED_PROXIES", " 10.0.0.0/8, ,127.0.0.1 ")
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, Load().TrustedProxies)
}

func TestCorsConfigSplitsOrigins(t *testing.T) {
	opts := CorsConfig(" http://a.test, ,http://b.test ")
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, opts.AllowedOrigins)
	assert.True(t, opts.AllowCredentials)
}
