// Package config loads service configuration from the environment and
// an optional collections file.
//
// A .env file in the working directory is loaded first when present;
// explicit environment variables always win. The watched collections
// come from a TOML file or, for small setups, a single COLLECTIONS
// variable.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/northgate-labs/docsync/internal/core/domain"
)

// Config is the full service configuration.
type Config struct {
	// LogMode selects log output: "prod" for JSON, anything else for
	// development console output.
	LogMode string `env:"LOG_MODE" envDefault:"dev"`

	// DataDir holds the cursor database. Empty uses ~/.docsync/data.
	DataDir string `env:"DATA_DIR"`

	// ListenAddr is the webhook server bind address.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// WebhookClientState is the shared secret validated on every
	// notification.
	WebhookClientState string `env:"WEBHOOK_CLIENT_STATE"`

	// SyncInterval is the scheduled full-sync period.
	SyncInterval time.Duration `env:"SYNC_INTERVAL" envDefault:"15m"`

	// CollectionsFile points at a TOML file listing watched collections.
	CollectionsFile string `env:"COLLECTIONS_FILE"`

	// CollectionsSpec is an inline alternative to CollectionsFile:
	// comma-separated "siteID|driveID" or "siteID|driveID|name" entries.
	CollectionsSpec string `env:"COLLECTIONS"`

	Graph     GraphConfig
	Search    SearchConfig
	Embedding EmbeddingConfig
	OCR       OCRConfig
	Chunking  ChunkingConfig

	// Collections is resolved from CollectionsFile or CollectionsSpec.
	Collections []domain.Collection `env:"-"`
}

// GraphConfig configures the Microsoft Graph client.
type GraphConfig struct {
	TenantID          string  `env:"GRAPH_TENANT_ID"`
	ClientID          string  `env:"GRAPH_CLIENT_ID"`
	ClientSecret      string  `env:"GRAPH_CLIENT_SECRET"`
	RequestsPerSecond float64 `env:"GRAPH_REQUESTS_PER_SECOND" envDefault:"10"`
}

// SearchConfig configures the Azure AI Search index store.
type SearchConfig struct {
	Endpoint  string `env:"SEARCH_ENDPOINT"`
	APIKey    string `env:"SEARCH_API_KEY"`
	IndexName string `env:"SEARCH_INDEX" envDefault:"documents"`
}

// EmbeddingConfig configures the Azure OpenAI embedding service.
type EmbeddingConfig struct {
	Endpoint   string `env:"AOAI_ENDPOINT"`
	APIKey     string `env:"AOAI_API_KEY"`
	Deployment string `env:"AOAI_DEPLOYMENT" envDefault:"text-embedding-3-small"`
	Dimensions int    `env:"AOAI_DIMENSIONS" envDefault:"1536"`
	BatchSize  int    `env:"AOAI_BATCH_SIZE" envDefault:"16"`
}

// OCRConfig configures the optional Document Intelligence client.
// Both fields empty disables OCR routing.
type OCRConfig struct {
	Endpoint string `env:"DOCINTEL_ENDPOINT"`
	APIKey   string `env:"DOCINTEL_API_KEY"`
}

// ChunkingConfig configures the chunker budgets.
type ChunkingConfig struct {
	ChunkTokens   int `env:"CHUNK_TOKENS" envDefault:"512"`
	OverlapTokens int `env:"CHUNK_OVERLAP_TOKENS" envDefault:"128"`
}

// collectionsFile is the TOML layout of the collections file.
type collectionsFile struct {
	Collections []struct {
		SiteID  string `toml:"site_id"`
		DriveID string `toml:"drive_id"`
		Name    string `toml:"name"`
	} `toml:"collections"`
}

// Load reads configuration from the environment, resolving collections.
func Load() (*Config, error) {
	// Missing .env is fine; explicit environment wins either way
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	collections, err := resolveCollections(cfg.CollectionsFile, cfg.CollectionsSpec)
	if err != nil {
		return nil, err
	}
	cfg.Collections = collections

	return cfg, nil
}

// resolveCollections loads from the TOML file when set, otherwise parses
// the inline spec.
func resolveCollections(file, spec string) ([]domain.Collection, error) {
	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read collections file: %w", err)
		}
		var parsed collectionsFile
		if err := toml.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("parse collections file: %w", err)
		}
		collections := make([]domain.Collection, 0, len(parsed.Collections))
		for _, c := range parsed.Collections {
			if c.SiteID == "" || c.DriveID == "" {
				return nil, fmt.Errorf("collections file: site_id and drive_id are required")
			}
			collections = append(collections, domain.Collection{
				SiteID:  c.SiteID,
				DriveID: c.DriveID,
				Name:    c.Name,
			})
		}
		return collections, nil
	}

	if spec == "" {
		return nil, nil
	}

	var collections []domain.Collection
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, "|")
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid collection entry %q, want siteID|driveID", entry)
		}
		coll := domain.Collection{SiteID: parts[0], DriveID: parts[1]}
		if len(parts) > 2 {
			coll.Name = parts[2]
		}
		collections = append(collections, coll)
	}
	return collections, nil
}
