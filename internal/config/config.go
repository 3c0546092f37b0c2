package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/clima/internal/traffic"
)

const (
	ProviderNetwork = "network"
	ProviderStatic  = "static"

	defaultWeatherAPIURL   = "https://api.openweathermap.org/data/2.5/weather"
	defaultLocationNetwork = "http://ip-api.com/json/?fields=status,message,lat,lon,city"
)

// Config holds service configuration loaded from YAML, .env and the environment.
type Config struct {
	ServerPort string

	WeatherAPIKey     string
	WeatherAPIURL     string
	WeatherAPITimeout time.Duration // 0: no fetch timeout

	RequestTimeout time.Duration // 0: no per-request deadline

	LocationPermissionGranted bool
	LocationProvider          string // "network" or "static"
	LocationNetworkURL        string
	LocationPollInterval      time.Duration
	LocationLookupTimeout     time.Duration
	LocationTimeout           time.Duration // 0: wait for a fix indefinitely
	LocationStaticLat         float64
	LocationStaticLon         float64

	RateLimitRPS   int
	RateLimitBurst int

	ShutdownTimeout time.Duration
	InFlightTimeout time.Duration

	CityMaxLength int

	DegradedWindow   time.Duration
	DegradedErrorPct int
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"weather_api"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Location struct {
		PermissionGranted *bool  `yaml:"permission_granted"`
		Provider          string `yaml:"provider"`
		NetworkURL        string `yaml:"network_url"`
		PollInterval      string `yaml:"poll_interval"`
		LookupTimeout     string `yaml:"lookup_timeout"`
		Timeout           string `yaml:"timeout"`
		Static            struct {
			Lat float64 `yaml:"lat"`
			Lon float64 `yaml:"lon"`
		} `yaml:"static"`
	} `yaml:"location"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout         string `yaml:"timeout"`
		InFlightTimeout string `yaml:"in_flight_timeout"`
	} `yaml:"shutdown"`

	Validation struct {
		CityMaxLength int `yaml:"city_max_length"`
	} `yaml:"validation"`

	Health struct {
		DegradedWindow   string `yaml:"degraded_window"`
		DegradedErrorPct int    `yaml:"degraded_error_pct"`
	} `yaml:"health"`
}

type secretsFile struct {
	WeatherAPIKey string `yaml:"weather_api_key"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml.
// A .env file in the working directory is loaded first; variables already set win.
// API key comes from WEATHER_API_KEY env or secrets file. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	if err := godotenv.Load(filepath.Join(cwd, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.WeatherAPIKey, err = loadAPIKey(cwd)
	if err != nil {
		return nil, err
	}
	if cfg.WeatherAPIKey == "" {
		return nil, fmt.Errorf("WEATHER_API_KEY required (set env, .env or config/secrets.yaml weather_api_key)")
	}

	cfg.WeatherAPIURL = fc.WeatherAPI.URL
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = defaultWeatherAPIURL
	}
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 5*time.Second)
	cfg.RequestTimeout = parseDurationOrZero(fc.Request.Timeout, 20*time.Second)

	cfg.LocationPermissionGranted = true
	if fc.Location.PermissionGranted != nil {
		cfg.LocationPermissionGranted = *fc.Location.PermissionGranted
	}
	cfg.LocationProvider = strings.TrimSpace(strings.ToLower(os.Getenv("LOCATION_PROVIDER")))
	if cfg.LocationProvider == "" {
		cfg.LocationProvider = strings.TrimSpace(strings.ToLower(fc.Location.Provider))
	}
	if cfg.LocationProvider == "" {
		cfg.LocationProvider = ProviderNetwork
	}
	cfg.LocationNetworkURL = fc.Location.NetworkURL
	if cfg.LocationNetworkURL == "" {
		cfg.LocationNetworkURL = defaultLocationNetwork
	}
	cfg.LocationPollInterval = parseDuration(fc.Location.PollInterval, 30*time.Second)
	cfg.LocationLookupTimeout = parseDuration(fc.Location.LookupTimeout, 5*time.Second)
	cfg.LocationTimeout = parseDurationOrZero(fc.Location.Timeout, 10*time.Second)
	cfg.LocationStaticLat = fc.Location.Static.Lat
	cfg.LocationStaticLon = fc.Location.Static.Lon

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 100
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 250
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.InFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)

	cfg.CityMaxLength = fc.Validation.CityMaxLength
	if cfg.CityMaxLength <= 0 {
		cfg.CityMaxLength = 100
	}

	cfg.DegradedWindow = parseDuration(fc.Health.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = fc.Health.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 50
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadAPIKey(cwd string) (string, error) {
	if key := os.Getenv("WEATHER_API_KEY"); key != "" {
		return key, nil
	}
	data, err := os.ReadFile(filepath.Join(cwd, "config", "secrets.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read secrets file: %w", err)
	}
	var sec secretsFile
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return "", fmt.Errorf("parse secrets file: %w", err)
	}
	return sec.WeatherAPIKey, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// An explicit zero is kept; it disables the corresponding timeout.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation. RequestTimeout is raised above the
// sum of the location and fetch timeouts, so a stage deadline fires before the
// request deadline.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout < 0 {
		return fmt.Errorf("weather_api.timeout must not be negative")
	}
	if cfg.RequestTimeout < 0 {
		return fmt.Errorf("request.timeout must not be negative")
	}
	if cfg.LocationTimeout < 0 {
		return fmt.Errorf("location.timeout must not be negative")
	}
	if floor := cfg.LocationTimeout + cfg.WeatherAPITimeout; cfg.RequestTimeout > 0 && floor > 0 && cfg.RequestTimeout <= floor {
		cfg.RequestTimeout = floor + time.Second
	}
	if cfg.DegradedWindow > traffic.Retention {
		return fmt.Errorf("health.degraded_window must be at most %s, got %s", traffic.Retention, cfg.DegradedWindow)
	}
	switch cfg.LocationProvider {
	case ProviderNetwork:
	case ProviderStatic:
		if cfg.LocationStaticLat < -90 || cfg.LocationStaticLat > 90 || cfg.LocationStaticLon < -180 || cfg.LocationStaticLon > 180 {
			return fmt.Errorf("location.static coordinates out of range: %v,%v", cfg.LocationStaticLat, cfg.LocationStaticLon)
		}
	default:
		return fmt.Errorf("location.provider must be network or static, got %q", cfg.LocationProvider)
	}
	return nil
}
