package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	// Postgres ist optional: ohne DB_HOST laufen Bookmarks und Snapshot im Speicher.
	DBHost     string `envconfig:"DB_HOST"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"journal"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Veröffentlichter CSV-Export der Katalog-Tabelle
	SheetCSVURL  string        `envconfig:"SHEET_CSV_URL" required:"true"`
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"15s"`

	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"*/15 * * * *"`

	// Apps-Script-Backend für Login und Dashboards
	AppsScriptURL     string        `envconfig:"APPS_SCRIPT_URL"`
	AppsScriptTimeout time.Duration `envconfig:"APPS_SCRIPT_TIMEOUT" default:"10s"`

	// Unpaywall-API für fehlende PDF-Links; leer = deaktiviert
	UnpaywallBaseURL string `envconfig:"UNPAYWALL_BASE_URL" default:"https://api.unpaywall.org/v2"`
	UnpaywallEmail   string `envconfig:"UNPAYWALL_EMAIL"`

	// S3-Archiv der Roh-CSV; leerer Bucket = deaktiviert
	S3Key       string `envconfig:"S3_KEY"`
	S3Secret    string `envconfig:"S3_SECRET"`
	S3URL       string `envconfig:"S3_URL"`
	S3Region    string `envconfig:"S3_REGION" default:"eu-central-1"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	ArchiveKeep int    `envconfig:"ARCHIVE_KEEP" default:"10"`

	LogDevelopment bool `envconfig:"LOG_DEVELOPMENT" default:"false"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// DatabaseEnabled meldet, ob eine Postgres-Verbindung konfiguriert ist.
func (c *Config) DatabaseEnabled() bool {
	return c.DBHost != ""
}

// ArchiveEnabled meldet, ob Roh-Snapshots nach S3 archiviert werden.
func (c *Config) ArchiveEnabled() bool {
	return c.S3Bucket != "" && c.S3URL != ""
}

// EnrichmentEnabled meldet, ob fehlende PDF-Links über Unpaywall ergänzt werden.
func (c *Config) EnrichmentEnabled() bool {
	return c.UnpaywallEmail != ""
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
