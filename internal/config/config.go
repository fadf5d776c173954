// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Thresholds are the detection gates used by the risk analyzers.
// Each analyzer compares forecasted values against these; a value on the
// wrong side of its gate produces a risk, anything else produces nothing.
type Thresholds struct {
	SupplierLeadTimeMultiplier float64 // forecast/historical ratio above this flags a supplier
	CapacityUtilization        float64 // fraction of capacity above this flags a plant
	DowntimeIncrease           float64 // fractional downtime growth above this flags a plant
	DemandVolatility           float64 // interval width / yhat above this flags a SKU
	TransitTimeMultiplier      float64 // forecast/baseline ratio above this flags a route
	WeatherSeverity            float64 // severity index (0-10) above this flags a region
	TariffIncrease             float64 // fractional tariff growth above this flags trade risk
	PortCongestion             float64 // congestion index above this flags a port region
	FuelPriceIncrease          float64 // fractional fuel price growth above this flags cost risk
	GeopoliticalRisk           float64 // risk index (0-10) above this flags a region
}

// PriorityBoundaries map risk scores to priorities. Each bound is
// inclusive on the low side: a score equal to Critical is CRITICAL.
type PriorityBoundaries struct {
	Critical float64
	High     float64
	Medium   float64
}

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Database settings. Empty DatabaseURL disables the analysis archive.
	DatabaseURL string

	// Dataset settings.
	DataDir string

	// Forecast settings.
	MinHorizonDays     int
	MaxHorizonDays     int
	DefaultHorizonDays int
	MinDataPoints      int

	// Risk settings.
	Thresholds           Thresholds
	Priorities           PriorityBoundaries
	DefaultRiskThreshold float64 // minimum score a risk needs to appear in results
	MaxMitigatedRisks    int     // top-N risks that get mitigation strategies

	// Groq settings.
	GroqAPIKey      string
	GroqBaseURL     string
	GroqModel       string
	GroqTemperature float64
	GroqMaxTokens   int
	GroqMaxRetries  int

	// Cache settings.
	CacheSize int
	CacheTTL  time.Duration

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel            string
	MaxRequestBodyBytes int64
}

// Load reads configuration from environment variables with sensible
// defaults. Malformed values are collected and reported together rather
// than silently replaced, so a typo in one variable surfaces at startup.
func Load() (Config, error) {
	var errs []error
	e := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var cfg Config
	var err error

	cfg.Port, err = envInt("YOSOKU_PORT", 8080)
	e(err)
	cfg.ReadTimeout, err = envDuration("YOSOKU_READ_TIMEOUT", 30*time.Second)
	e(err)
	cfg.WriteTimeout, err = envDuration("YOSOKU_WRITE_TIMEOUT", 120*time.Second)
	e(err)
	cfg.DatabaseURL = envStr("DATABASE_URL", "")
	cfg.DataDir = envStr("YOSOKU_DATA_DIR", "data")
	cfg.MinHorizonDays, err = envInt("YOSOKU_MIN_HORIZON_DAYS", 30)
	e(err)
	cfg.MaxHorizonDays, err = envInt("YOSOKU_MAX_HORIZON_DAYS", 60)
	e(err)
	cfg.DefaultHorizonDays, err = envInt("YOSOKU_DEFAULT_HORIZON_DAYS", 45)
	e(err)
	cfg.MinDataPoints, err = envInt("YOSOKU_MIN_DATA_POINTS", 30)
	e(err)

	cfg.Thresholds.SupplierLeadTimeMultiplier, err = envFloat("YOSOKU_SUPPLIER_LEAD_TIME_MULTIPLIER", 1.2)
	e(err)
	cfg.Thresholds.CapacityUtilization, err = envFloat("YOSOKU_CAPACITY_UTILIZATION_THRESHOLD", 0.95)
	e(err)
	cfg.Thresholds.DowntimeIncrease, err = envFloat("YOSOKU_DOWNTIME_INCREASE_THRESHOLD", 0.2)
	e(err)
	cfg.Thresholds.DemandVolatility, err = envFloat("YOSOKU_DEMAND_VOLATILITY_THRESHOLD", 0.3)
	e(err)
	cfg.Thresholds.TransitTimeMultiplier, err = envFloat("YOSOKU_TRANSIT_TIME_MULTIPLIER", 1.3)
	e(err)
	cfg.Thresholds.WeatherSeverity, err = envFloat("YOSOKU_WEATHER_SEVERITY_THRESHOLD", 7)
	e(err)
	cfg.Thresholds.TariffIncrease, err = envFloat("YOSOKU_TARIFF_INCREASE_THRESHOLD", 0.1)
	e(err)
	cfg.Thresholds.PortCongestion, err = envFloat("YOSOKU_PORT_CONGESTION_THRESHOLD", 30)
	e(err)
	cfg.Thresholds.FuelPriceIncrease, err = envFloat("YOSOKU_FUEL_PRICE_INCREASE_THRESHOLD", 0.15)
	e(err)
	cfg.Thresholds.GeopoliticalRisk, err = envFloat("YOSOKU_GEOPOLITICAL_RISK_THRESHOLD", 7)
	e(err)

	cfg.Priorities.Critical, err = envFloat("YOSOKU_PRIORITY_CRITICAL", 90)
	e(err)
	cfg.Priorities.High, err = envFloat("YOSOKU_PRIORITY_HIGH", 70)
	e(err)
	cfg.Priorities.Medium, err = envFloat("YOSOKU_PRIORITY_MEDIUM", 50)
	e(err)
	cfg.DefaultRiskThreshold, err = envFloat("YOSOKU_DEFAULT_RISK_THRESHOLD", 50)
	e(err)
	cfg.MaxMitigatedRisks, err = envInt("YOSOKU_MAX_MITIGATED_RISKS", 10)
	e(err)

	cfg.GroqAPIKey = envStr("GROQ_API_KEY", "")
	cfg.GroqBaseURL = envStr("GROQ_BASE_URL", "https://api.groq.com/openai/v1")
	cfg.GroqModel = envStr("GROQ_MODEL", "llama-3.1-8b-instant")
	cfg.GroqTemperature, err = envFloat("GROQ_TEMPERATURE", 0.7)
	e(err)
	cfg.GroqMaxTokens, err = envInt("GROQ_MAX_TOKENS", 2000)
	e(err)
	cfg.GroqMaxRetries, err = envInt("GROQ_MAX_RETRIES", 3)
	e(err)

	cfg.CacheSize, err = envInt("YOSOKU_CACHE_SIZE", 128)
	e(err)
	cfg.CacheTTL, err = envDuration("YOSOKU_CACHE_TTL", 30*time.Minute)
	e(err)

	cfg.OTELEndpoint = envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	cfg.OTELInsecure, err = envBool("OTEL_EXPORTER_OTLP_INSECURE", false)
	e(err)
	cfg.ServiceName = envStr("OTEL_SERVICE_NAME", "yosoku")
	cfg.LogLevel = envStr("YOSOKU_LOG_LEVEL", "info")

	var bodyBytes int
	bodyBytes, err = envInt("YOSOKU_MAX_REQUEST_BODY_BYTES", 1*1024*1024) // 1 MB default
	e(err)
	cfg.MaxRequestBodyBytes = int64(bodyBytes)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: YOSOKU_DATA_DIR is required")
	}
	if c.MinDataPoints <= 0 {
		return fmt.Errorf("config: YOSOKU_MIN_DATA_POINTS must be positive")
	}
	if c.DefaultHorizonDays < c.MinHorizonDays || c.DefaultHorizonDays > c.MaxHorizonDays {
		return fmt.Errorf("config: YOSOKU_DEFAULT_HORIZON_DAYS must be between %d and %d",
			c.MinHorizonDays, c.MaxHorizonDays)
	}
	if !(c.Priorities.Critical > c.Priorities.High && c.Priorities.High > c.Priorities.Medium) {
		return fmt.Errorf("config: priority boundaries must be strictly decreasing")
	}
	if c.DefaultRiskThreshold < 0 || c.DefaultRiskThreshold > 100 {
		return fmt.Errorf("config: YOSOKU_DEFAULT_RISK_THRESHOLD must be in [0, 100]")
	}
	if c.MaxMitigatedRisks < 0 {
		return fmt.Errorf("config: YOSOKU_MAX_MITIGATED_RISKS must not be negative")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("config: YOSOKU_CACHE_SIZE must be positive")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("config: YOSOKU_MAX_REQUEST_BODY_BYTES must be positive")
	}
	return nil
}

// HorizonFor returns the forecast horizon used for a module. Supplier
// lead times move slowly and use the short horizon; demand needs the
// long horizon to expose seasonality; everything else uses the default.
func (c Config) HorizonFor(module string) int {
	switch module {
	case "suppliers":
		return c.MinHorizonDays
	case "demand":
		return c.MaxHorizonDays
	default:
		return c.DefaultHorizonDays
	}
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid number", key, v)
	}
	return f, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}
