package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

const (
	ProviderGitLab = "gitlab"
	ProviderGitHub = "github"

	DefaultConfigPath = "./config/config.yaml"
)

// Config stores exporter runtime configuration.
type Config struct {
	Main     MainConfig `yaml:"main"`
	Projects []Project  `yaml:"gitProjects"`
}

// MainConfig mirrors the "config.main" section of the config file.
type MainConfig struct {
	Provider        string  `yaml:"provider"`
	GitlabURL       string  `yaml:"gitlabUrl"`
	GithubAPIURL    string  `yaml:"githubApiUrl"`
	Token           string  `yaml:"-" masq:"secret"`
	LogLevel        string  `yaml:"logLevel"`
	LogJSON         bool    `yaml:"logJson"`
	PollingSeconds  int     `yaml:"pollingTimeoutSec"`
	RCTagPattern    string  `yaml:"releaseCandidateTagPattern"`
	RelTagPattern   string  `yaml:"releaseTagPattern"`
	ExporterPort    int     `yaml:"exporterPort"`
	ExporterAddress string  `yaml:"exporterAddress"`
	Workers         int     `yaml:"workers"`
	FetchTimeoutSec int     `yaml:"fetchTimeoutSec"`
	Selection       string  `yaml:"selection"`
	RunToken        string  `yaml:"runToken" masq:"secret"`
	RateLimitRPS    float64 `yaml:"rateLimitRps"`
	RateLimitBurst  int     `yaml:"rateLimitBurst"`
	// PollInterval is derived from PollingSeconds or TAG_EXPORTER_POLL_INTERVAL.
	PollInterval time.Duration `yaml:"-"`
}

// Project is one managed source-control project.
type Project struct {
	Name string `yaml:"name"`
	Path string `yaml:"gitProjectPath"`
}

type document struct {
	Config Config `yaml:"config"`
}

// Addr returns the metrics endpoint bind address.
func (c *MainConfig) Addr() string {
	return c.ExporterAddress + ":" + strconv.Itoa(c.ExporterPort)
}

// FetchTimeout returns the per-project fetch timeout.
func (c *MainConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

// Load reads the YAML config file at path, applies defaults and environment
// overrides, then validates the result.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "config file not found", goerr.V("path", path))
	}

	return Parse(raw)
}

// Parse builds a Config from YAML content.
func Parse(raw []byte) (*Config, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, goerr.Wrap(err, "failed to parse config file")
	}

	cfg := &doc.Config
	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	m := &c.Main
	if m.Provider == "" {
		m.Provider = ProviderGitLab
	}
	m.Provider = strings.ToLower(m.Provider)
	if m.LogLevel == "" {
		m.LogLevel = "info"
	}
	if m.PollingSeconds == 0 {
		m.PollingSeconds = 60
	}
	if m.ExporterPort == 0 {
		m.ExporterPort = 9090
	}
	if m.ExporterAddress == "" {
		m.ExporterAddress = "0.0.0.0"
	}
	if m.Workers == 0 {
		m.Workers = 20
	}
	if m.FetchTimeoutSec == 0 {
		m.FetchTimeoutSec = 90
	}
	if m.Selection == "" {
		m.Selection = "first"
	}
	if m.RateLimitRPS == 0 {
		m.RateLimitRPS = 20
	}
	if m.RateLimitBurst == 0 {
		m.RateLimitBurst = 40
	}
	m.PollInterval = time.Duration(m.PollingSeconds) * time.Second
}

func (c *Config) applyEnv() error {
	m := &c.Main

	switch m.Provider {
	case ProviderGitHub:
		m.Token = getEnv("GITHUB_TOKEN", "")
	default:
		m.Token = getEnv("GITLAB_API_TOKEN", "")
	}

	m.LogLevel = strings.ToLower(getEnv("TAG_EXPORTER_LOG_LEVEL", m.LogLevel))
	m.ExporterAddress = getEnv("TAG_EXPORTER_ADDR", m.ExporterAddress)

	if v := getEnv("TAG_EXPORTER_PORT", ""); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return goerr.Wrap(err, "invalid TAG_EXPORTER_PORT", goerr.V("value", v))
		}
		m.ExporterPort = port
	}

	if v := getEnv("TAG_EXPORTER_POLL_INTERVAL", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return goerr.Wrap(err, "invalid TAG_EXPORTER_POLL_INTERVAL", goerr.V("value", v))
		}
		m.PollInterval = d
	}

	return nil
}

// Validate checks the configuration for values the exporter cannot run with.
func (c *Config) Validate() error {
	m := &c.Main

	switch m.Provider {
	case ProviderGitLab:
		if m.GitlabURL == "" {
			return goerr.New("gitlabUrl is required for the gitlab provider")
		}
	case ProviderGitHub:
	default:
		return goerr.New("unknown provider", goerr.V("provider", m.Provider))
	}

	if m.RCTagPattern == "" || m.RelTagPattern == "" {
		return goerr.New("releaseCandidateTagPattern and releaseTagPattern are required")
	}
	for _, p := range []string{m.RCTagPattern, m.RelTagPattern} {
		if _, err := regexp.Compile(p); err != nil {
			return goerr.Wrap(err, "invalid tag pattern", goerr.V("pattern", p))
		}
	}

	if m.PollInterval <= 0 {
		return goerr.New("polling interval must be positive", goerr.V("interval", m.PollInterval.String()))
	}
	if m.Workers <= 0 {
		return goerr.New("workers must be positive", goerr.V("workers", m.Workers))
	}
	if m.FetchTimeoutSec <= 0 {
		return goerr.New("fetchTimeoutSec must be positive", goerr.V("fetchTimeoutSec", m.FetchTimeoutSec))
	}
	if m.ExporterPort < 1 || m.ExporterPort > 65535 {
		return goerr.New("exporterPort out of range", goerr.V("port", m.ExporterPort))
	}
	if m.RateLimitRPS <= 0 || m.RateLimitBurst <= 0 {
		return goerr.New("rate limit must be positive",
			goerr.V("rps", m.RateLimitRPS),
			goerr.V("burst", m.RateLimitBurst),
		)
	}

	switch strings.ToLower(m.Selection) {
	case "first", "highest":
	default:
		return goerr.New("unknown selection policy", goerr.V("selection", m.Selection))
	}

	for i, p := range c.Projects {
		if strings.TrimSpace(p.Path) == "" {
			return goerr.New("gitProjectPath is required", goerr.V("index", i), goerr.V("name", p.Name))
		}
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
