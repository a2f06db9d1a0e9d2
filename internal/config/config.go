// Package config reads the process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"

	"github.com/spf13/cast"
)

type Config struct {
	// Library.
	LibraryRoot   string
	IgnorePattern *regexp.Regexp

	// Catalog service.
	CatalogURL    string
	CatalogAPIKey string

	// Queue database.
	PostgresURL string

	// Watch-status broker.
	RabbitURL string

	// Metadata upstreams. "disabled" turns one off.
	TMDBToken  string
	TVDBApikey string
	TVDBPin    string

	// Simkl autosync; empty disables the service.
	SimklClientID string

	// Admin API.
	ListenAddr string
	JWKSURL    string
	JWTIssuer  string

	// Optional cron spec for periodic full rescans.
	RescanCron string
}

func get(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func Load() (*Config, error) {
	cfg := &Config{
		LibraryRoot:   get("SCANNER_LIBRARY_ROOT", "/video"),
		CatalogURL:    get("KYOO_URL", "http://api:3567/api"),
		CatalogAPIKey: os.Getenv("KYOO_APIKEY"),
		TMDBToken:     os.Getenv("THEMOVIEDB_API_ACCESS_TOKEN"),
		TVDBApikey:    os.Getenv("TVDB_APIKEY"),
		TVDBPin:       os.Getenv("TVDB_PIN"),
		SimklClientID: os.Getenv("OIDC_SIMKL_CLIENTID"),
		ListenAddr:    get("SCANNER_ADDR", ":4389"),
		JWKSURL:       os.Getenv("JWKS_URL"),
		JWTIssuer:     os.Getenv("JWT_ISSUER"),
		RescanCron:    os.Getenv("SCANNER_RESCAN_CRON"),
	}

	if pattern := os.Getenv("LIBRARY_IGNORE_PATTERN"); pattern != "" {
		rx, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("config: LIBRARY_IGNORE_PATTERN: %w", err)
		}
		cfg.IgnorePattern = rx
	}

	cfg.PostgresURL = postgresURL()
	cfg.RabbitURL = rabbitURL()
	return cfg, nil
}

// postgresURL prefers the single POSTGRES_URL and falls back to the libpq
// PG* variables.
func postgresURL() string {
	if u := os.Getenv("POSTGRES_URL"); u != "" {
		return u
	}
	user := get("PGUSER", "kyoo")
	pass := os.Getenv("PGPASSWORD")
	host := get("PGHOST", "postgres")
	port := cast.ToInt(get("PGPORT", "5432"))
	dbname := get("PGDATABASE", "kyoo")
	sslmode := get("PGSSLMODE", "disable")

	auth := url.User(user)
	if pass != "" {
		auth = url.UserPassword(user, pass)
	}
	return fmt.Sprintf("postgres://%s@%s:%d/%s?sslmode=%s",
		auth.String(), host, port, dbname, sslmode)
}

func rabbitURL() string {
	if u := os.Getenv("RABBITMQ_URL"); u != "" {
		return u
	}
	user := get("RABBITMQ_DEFAULT_USER", "guest")
	pass := get("RABBITMQ_DEFAULT_PASS", "guest")
	host := get("RABBITMQ_HOST", "rabbitmq")
	port := cast.ToInt(get("RABBITMQ_PORT", "5672"))
	return fmt.Sprintf("amqp://%s@%s:%d/",
		url.UserPassword(user, pass).String(), host, port)
}
