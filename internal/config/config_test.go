package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REDIS_DB", "")
	t.Setenv("APP_TIMEZONE", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("UPLOADS_MAX_BYTES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr = %q, want %q", cfg.App.Addr(), "0.0.0.0:8080")
	}
	if cfg.App.Location != time.UTC {
		t.Errorf("Location = %v, want UTC", cfg.App.Location)
	}
	if cfg.Uploads.MaxBytes != MaxPhotoBytes {
		t.Errorf("Uploads.MaxBytes = %d, want %d", cfg.Uploads.MaxBytes, MaxPhotoBytes)
	}
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "first")
	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded with non-numeric REDIS_DB")
	}
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("REDIS_DB", "0")
	t.Setenv("APP_TIMEZONE", "Mars/Olympus_Mons")
	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded with unknown APP_TIMEZONE")
	}
}

func TestMalformedIntFallsBack(t *testing.T) {
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "soon")
	if got := getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30); got != 30 {
		t.Errorf("getEnvAsInt = %d, want 30", got)
	}
}

func TestRequestTimeout(t *testing.T) {
	tests := []struct {
		seconds int
		want    time.Duration
	}{
		{0, 0},
		{-5, 0},
		{15, 15 * time.Second},
	}
	for _, tt := range tests {
		got := AppConfig{RequestTimeoutSeconds: tt.seconds}.RequestTimeout()
		if got != tt.want {
			t.Errorf("RequestTimeout(%d) = %v, want %v", tt.seconds, got, tt.want)
		}
	}
}
