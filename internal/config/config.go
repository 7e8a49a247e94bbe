// MIT License
//
// Copyright (c) 2025 Mike Lane
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrGitHubTokenNotSet is returned when GITHUB_PAT is not configured.
var ErrGitHubTokenNotSet = errors.New("GITHUB_PAT environment variable not set")

// Config is the service configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Webhook     WebhookConfig     `koanf:"webhook"`
	GitHub      GitHubConfig      `koanf:"github"`
	PullRequest PullRequestConfig `koanf:"pullrequest"`
	Log         LogConfig         `koanf:"log"`
}

// ServerConfig is where the HTTP listener binds.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// WebhookConfig controls how deliveries are received and handed to handlers.
type WebhookConfig struct {
	Path        string `koanf:"path"`
	MaxBodySize string `koanf:"max_body_size"`
	Async       bool   `koanf:"async"`
	Workers     int    `koanf:"workers"`
	// Secret is the shared HMAC secret. Read it through SecretProvider.
	Secret string `koanf:"secret"`
}

// GitHubConfig holds GitHub API credentials. An empty Token disables enrichment.
type GitHubConfig struct {
	Token  string `koanf:"token"`
	APIURL string `koanf:"api_url"`
}

// PullRequestConfig is the per-repository pull request rate limit.
type PullRequestConfig struct {
	RateLimit  int           `koanf:"rate_limit"`
	RateWindow time.Duration `koanf:"rate_window"`
}

// LogConfig sets the zap logger level and mode.
type LogConfig struct {
	Level       string `koanf:"level"`
	Development bool   `koanf:"development"`
}

// envAliases maps the variable names GitHub integrations conventionally use.
var envAliases = map[string]string{
	"GITHUB_WEBHOOK_SECRET": "webhook.secret",
	"GITHUB_PAT":            "github.token",
	"GITHUB_API_URL":        "github.api_url",
}

// Load builds the configuration from defaults, then any YAML files that
// exist, then the environment.
func Load(configPaths ...string) (*Config, error) {
	k := koanf.New(".")

	_ = k.Load(confmap.Provider(map[string]any{
		"server.host":             "0.0.0.0",
		"server.port":             5000,
		"webhook.path":            "/webhook/github",
		"webhook.max_body_size":   "25MB",
		"webhook.async":           true,
		"webhook.workers":         4,
		"pullrequest.rate_limit":  10,
		"pullrequest.rate_window": "1m",
		"log.level":               "info",
		"log.development":         false,
	}, "."), nil)

	for _, path := range configPaths {
		if path == "" {
			continue
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// REVIEWD_WEBHOOK_MAX_BODY_SIZE -> webhook.max_body_size
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

func envKey(name string) string {
	if key, ok := envAliases[name]; ok {
		return key
	}
	rest, ok := strings.CutPrefix(name, "REVIEWD_")
	if !ok {
		return ""
	}
	section, key, ok := strings.Cut(strings.ToLower(rest), "_")
	if !ok {
		return ""
	}
	return section + "." + key
}

// GitHubToken returns the GitHub personal access token.
func (c *Config) GitHubToken() (string, error) {
	if c.GitHub.Token == "" {
		return "", ErrGitHubTokenNotSet
	}
	return c.GitHub.Token, nil
}

// SecretProvider returns a provider that reads the webhook secret on first use.
func (c *Config) SecretProvider() *SecretProvider {
	return NewSecretProvider(func() (string, bool) {
		return c.Webhook.Secret, c.Webhook.Secret != ""
	})
}

// MaxBodySize returns webhook.max_body_size in bytes.
func (c *Config) MaxBodySize() (int64, error) {
	return ParseByteSize(c.Webhook.MaxBodySize)
}

// ParseByteSize parses sizes like "25MB", "512KB" or "1048576".
func ParseByteSize(size string) (int64, error) {
	s := strings.ToUpper(strings.TrimSpace(size))
	if s == "" {
		return 0, errors.New("empty size")
	}

	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		factor int64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	} {
		if trimmed, ok := strings.CutSuffix(s, unit.suffix); ok {
			s = strings.TrimSpace(trimmed)
			multiplier = unit.factor
			break
		}
	}

	value, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", size, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("invalid size %q: must be positive", size)
	}
	if value > (1<<63-1)/multiplier {
		return 0, fmt.Errorf("invalid size %q: too large", size)
	}
	return value * multiplier, nil
}
