// Package providers assembles the configured provider adapters in priority
// order, skipping providers whose credentials are absent.
package providers

import (
	"fmt"
	"os"
	"time"

	"earshot/internal/config"
	"earshot/internal/discovery"
	"earshot/internal/providers/jamendo"
	"earshot/internal/providers/musicbrainz"
	"earshot/internal/providers/spotify"
	"earshot/internal/providers/youtubeapi"
	"earshot/internal/providers/ytdlp"
)

// Registry holds the active provider set. Unconfigured lists providers
// skipped for missing credentials or disabled by configuration; the discovery
// coordinator folds them into not-found remediation hints.
type Registry struct {
	Providers    []discovery.Provider
	Unconfigured []string

	// YtDLP is exposed separately because retrieval reuses it for downloads.
	YtDLP *ytdlp.Client
}

// Build constructs the registry from configuration, preserving the configured
// provider order. Unknown provider names were rejected at config validation,
// so they are a programming error here.
func Build(cfg *config.Config) (*Registry, error) {
	registry := &Registry{}

	for _, name := range cfg.Discovery.Providers {
		switch name {
		case "ytdlp":
			client, err := ytdlp.New(cfg.YtDLP.Binary, cfg.YtDLP.SearchTimeoutSec)
			if err != nil {
				return nil, fmt.Errorf("build ytdlp provider: %w", err)
			}
			registry.YtDLP = client
			registry.Providers = append(registry.Providers, client)

		case "youtube_api":
			if !cfg.YouTube.Enabled {
				registry.Unconfigured = append(registry.Unconfigured, name)
				continue
			}
			apiKey := os.Getenv(cfg.YouTube.APIKeyEnv)
			if apiKey == "" {
				registry.Unconfigured = append(registry.Unconfigured, name)
				continue
			}
			registry.Providers = append(registry.Providers,
				youtubeapi.New(apiKey, seconds(cfg.YouTube.RequestTimeoutSec)))

		case "musicbrainz":
			registry.Providers = append(registry.Providers,
				musicbrainz.New(seconds(cfg.Discovery.ProviderTimeoutSec)))

		case "spotify":
			if !cfg.Spotify.Enabled {
				registry.Unconfigured = append(registry.Unconfigured, name)
				continue
			}
			clientID := os.Getenv(cfg.Spotify.ClientIDEnv)
			clientSecret := os.Getenv(cfg.Spotify.ClientSecretEnv)
			if clientID == "" || clientSecret == "" {
				registry.Unconfigured = append(registry.Unconfigured, name)
				continue
			}
			registry.Providers = append(registry.Providers,
				spotify.New(clientID, clientSecret, cfg.Spotify.Market, seconds(cfg.Spotify.RequestTimeoutSec)))

		case "jamendo":
			if !cfg.Jamendo.Enabled {
				registry.Unconfigured = append(registry.Unconfigured, name)
				continue
			}
			clientID := os.Getenv(cfg.Jamendo.ClientIDEnv)
			if clientID == "" {
				registry.Unconfigured = append(registry.Unconfigured, name)
				continue
			}
			registry.Providers = append(registry.Providers,
				jamendo.New(clientID, seconds(cfg.Jamendo.RequestTimeoutSec)))

		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
	}

	return registry, nil
}

func seconds(value int) time.Duration {
	return time.Duration(value) * time.Second
}
