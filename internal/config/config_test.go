package config

import (
	"log/slog"
	"testing"
	"time"
)

// setEnvs устанавливает переменные окружения на время теста.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

// minimalEnvs возвращает минимальный набор обязательных переменных.
func minimalEnvs() map[string]string {
	return map[string]string{
		"FS_DB_HOST":      "localhost",
		"FS_DB_NAME":      "fileshare",
		"FS_DB_USER":      "fileshare",
		"FS_DB_PASSWORD":  "secret",
		"FS_KEYCLOAK_URL": "https://keycloak.kryukov.lan",
	}
}

func TestLoad_MinimalConfig(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	// Проверяем значения по умолчанию
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, ожидается 8080", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидается Info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидается json", cfg.LogFormat)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, ожидается 5432", cfg.DBPort)
	}
	if cfg.DBSSLMode != "disable" {
		t.Errorf("DBSSLMode = %q, ожидается disable", cfg.DBSSLMode)
	}
	if cfg.DataDir != "./data" {
		t.Errorf("DataDir = %q, ожидается ./data", cfg.DataDir)
	}
	if cfg.KeycloakRealm != "fileshare" {
		t.Errorf("KeycloakRealm = %q, ожидается fileshare", cfg.KeycloakRealm)
	}
	if cfg.CacheSize != 1024 {
		t.Errorf("CacheSize = %d, ожидается 1024", cfg.CacheSize)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %v, ожидается 5m", cfg.CacheTTL)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, ожидается 5s", cfg.ShutdownTimeout)
	}
}

func TestLoad_JWTDerivedFromKeycloakURL(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	wantIssuer := "https://keycloak.kryukov.lan/realms/fileshare"
	if cfg.JWTIssuer != wantIssuer {
		t.Errorf("JWTIssuer = %q, ожидается %q", cfg.JWTIssuer, wantIssuer)
	}

	wantJWKS := "https://keycloak.kryukov.lan/realms/fileshare/protocol/openid-connect/certs"
	if cfg.JWTJWKSURL != wantJWKS {
		t.Errorf("JWTJWKSURL = %q, ожидается %q", cfg.JWTJWKSURL, wantJWKS)
	}
}

func TestLoad_TrailingSlashTrimmed(t *testing.T) {
	envs := minimalEnvs()
	envs["FS_KEYCLOAK_URL"] = "https://keycloak.kryukov.lan/"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if cfg.KeycloakURL != "https://keycloak.kryukov.lan" {
		t.Errorf("KeycloakURL = %q, trailing slash не убран", cfg.KeycloakURL)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	envs := minimalEnvs()
	delete(envs, "FS_DB_HOST")
	setEnvs(t, envs)
	// t.Setenv не умеет удалять переменные — ставим пустую
	t.Setenv("FS_DB_HOST", "")

	if _, err := Load(); err == nil {
		t.Fatal("ожидалась ошибка при отсутствии FS_DB_HOST")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"некорректный порт", "FS_PORT", "not-a-number"},
		{"порт вне диапазона", "FS_PORT", "70000"},
		{"некорректный уровень логов", "FS_LOG_LEVEL", "verbose"},
		{"некорректный формат логов", "FS_LOG_FORMAT", "xml"},
		{"некорректный ssl mode", "FS_DB_SSL_MODE", "maybe"},
		{"некорректный TTL", "FS_CACHE_TTL", "пять минут"},
		{"отрицательный размер кэша", "FS_CACHE_SIZE", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnvs(t, minimalEnvs())
			t.Setenv(tt.key, tt.val)

			if _, err := Load(); err == nil {
				t.Errorf("ожидалась ошибка для %s=%q", tt.key, tt.val)
			}
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{
		DBHost: "db", DBPort: 5433, DBName: "fs",
		DBUser: "u", DBPassword: "p", DBSSLMode: "require",
	}

	want := "host=db port=5433 dbname=fs user=u password=p sslmode=require"
	if got := cfg.DatabaseDSN(); got != want {
		t.Errorf("DatabaseDSN() = %q, ожидается %q", got, want)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"Warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := parseLogLevel(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseLogLevel(%q): ожидалась ошибка", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseLogLevel(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, ожидается %v", tt.in, got, tt.want)
		}
	}
}
