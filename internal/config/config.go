package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/littl3hero/studentio-backend/internal/logger"
)

// Config holds the optional file-backed settings: search platform URL
// templates used when building material links, and per-agent model
// overrides. Everything has a usable default so the file is optional.
type Config struct {
	Search struct {
		// Platform name (lowercased) -> URL template with one %s for the
		// escaped query.
		Platforms map[string]string `yaml:"platforms"`
		// Platforms used for the deterministic fallback links, in order.
		FallbackPlatforms []string `yaml:"fallback_platforms"`
	} `yaml:"search"`

	Models struct {
		Orchestrator string `yaml:"orchestrator"`
		Curator      string `yaml:"curator"`
		Examiner     string `yaml:"examiner"`
		Materials    string `yaml:"materials"`
	} `yaml:"models"`
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Search.Platforms = map[string]string{
		"youtube":     "https://www.youtube.com/results?search_query=%s",
		"khanacademy": "https://www.khanacademy.org/search?page_search_query=%s",
		"wikipedia":   "https://en.wikipedia.org/w/index.php?search=%s",
	}
	cfg.Search.FallbackPlatforms = []string{"youtube", "khanacademy"}
	return cfg
}

// Load reads the YAML file at STUDENTIO_CONFIG (or the given path when
// non-empty). A missing or unreadable file yields the defaults.
func Load(path string, log *logger.Logger) *Config {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv("STUDENTIO_CONFIG"))
	}
	if path == "" {
		return cfg
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if log != nil {
			log.Warn("Config file not readable, using defaults", "path", path, "error", err)
		}
		return cfg
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		if log != nil {
			log.Warn("Config file not parseable, using defaults", "path", path, "error", err)
		}
		return cfg
	}
	for name, tmpl := range fileCfg.Search.Platforms {
		name = strings.ToLower(strings.TrimSpace(name))
		tmpl = strings.TrimSpace(tmpl)
		if name == "" || !strings.Contains(tmpl, "%s") {
			continue
		}
		cfg.Search.Platforms[name] = tmpl
	}
	if len(fileCfg.Search.FallbackPlatforms) > 0 {
		cfg.Search.FallbackPlatforms = fileCfg.Search.FallbackPlatforms
	}
	cfg.Models = fileCfg.Models
	return cfg
}

// SearchURL builds a search link for the given platform and query. Unknown
// platforms fall back to a generic web search. The query is always escaped
// here; callers must never pass through model-provided URLs.
func (c *Config) SearchURL(platform, query string) string {
	tmpl, ok := c.Search.Platforms[strings.ToLower(strings.TrimSpace(platform))]
	if !ok {
		tmpl = "https://duckduckgo.com/?q=%s"
	}
	return fmt.Sprintf(tmpl, url.QueryEscape(strings.TrimSpace(query)))
}
