package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ResultsDir     string `yaml:"results_dir"`
	SPARQLEndpoint string `yaml:"sparql_endpoint"`

	MaxQueries                    int     `yaml:"max_queries"`
	ClusteringVariant             string  `yaml:"clustering_variant"`
	FusionMethods                 string  `yaml:"fusion_methods"`
	QueryTimeoutSeconds           float64 `yaml:"query_timeout_seconds"`
	MaxResults                    int     `yaml:"max_results"`
	MaxTargetCandidatesPerPattern int     `yaml:"max_target_candidates_per_pattern"`
	BatchPredict                  bool    `yaml:"batch_predict"`
	BatchSize                     int     `yaml:"batch_size"`
	DropBadURIs                   bool    `yaml:"drop_bad_uris"`

	QueryParallelism int    `yaml:"query_parallelism"`
	QueryResultLimit int    `yaml:"query_result_limit"`
	FusionRRFK       int    `yaml:"fusion_rrf_k"`
	CURIEPrefixes    string `yaml:"curie_prefixes"`

	CalibrationQueries           int     `yaml:"calibration_queries"`
	CalibrationFactor            float64 `yaml:"calibration_factor"`
	CalibrationMinTimeoutSeconds float64 `yaml:"calibration_min_timeout_seconds"`
	CalibrationMaxTimeoutSeconds float64 `yaml:"calibration_max_timeout_seconds"`

	SPARQLRetryMaxAttempts          int     `yaml:"sparql_retry_max_attempts"`
	SPARQLRetryInitialBackoffMS     int     `yaml:"sparql_retry_initial_backoff_ms"`
	SPARQLRetryMaxBackoffMS         int     `yaml:"sparql_retry_max_backoff_ms"`
	SPARQLBreakerEnabled            bool    `yaml:"sparql_breaker_enabled"`
	SPARQLBreakerMinRequests        int     `yaml:"sparql_breaker_min_requests"`
	SPARQLBreakerFailureRatio       float64 `yaml:"sparql_breaker_failure_ratio"`
	SPARQLBreakerOpenTimeoutSeconds int     `yaml:"sparql_breaker_open_timeout_seconds"`

	APIHost           string  `yaml:"api_host"`
	APIPort           string  `yaml:"api_port"`
	APIRateLimitRPS   float64 `yaml:"api_rate_limit_rps"`
	APIRateLimitBurst int     `yaml:"api_rate_limit_burst"`
	APIMaxInFlight    int     `yaml:"api_max_in_flight"`
	APIQueueWaitMS    int     `yaml:"api_queue_wait_ms"`
	// APICORSOrigins is a comma-separated allow list; "*" allows any origin
	// and "none" disables CORS headers.
	APICORSOrigins    string  `yaml:"api_cors_origins"`

	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsPort string `yaml:"metrics_port"`

	PostgresDSN string `yaml:"postgres_dsn"`

	NATSURL            string `yaml:"nats_url"`
	NATSRequestSubject string `yaml:"nats_request_subject"`
	NATSResultSubject  string `yaml:"nats_result_subject"`
}

func Load() Config {
	return Config{
		ResultsDir:     mustEnv("RESDIR", ""),
		SPARQLEndpoint: mustEnv("SPARQL_ENDPOINT", "http://localhost:8890/sparql"),

		MaxQueries:                    mustEnvInt("MAX_QUERIES", 100),
		ClusteringVariant:             mustEnv("CLUSTERING_VARIANT", ""),
		FusionMethods:                 mustEnv("FUSION_METHODS", ""),
		QueryTimeoutSeconds:           mustEnvFloat("QUERY_TIMEOUT_SECONDS", 2),
		MaxResults:                    mustEnvInt("MAX_RESULTS", 100),
		MaxTargetCandidatesPerPattern: mustEnvInt("MAX_TARGET_CANDIDATES_PER_PATTERN", 100),
		BatchPredict:                  mustEnvBool("BATCH_PREDICT", false),
		BatchSize:                     mustEnvInt("BATCH_SIZE", 10),
		DropBadURIs:                   mustEnvBool("DROP_BAD_URIS", false),

		QueryParallelism: mustEnvInt("QUERY_PARALLELISM", 8),
		QueryResultLimit: mustEnvInt("QUERY_RESULT_LIMIT", 0),
		FusionRRFK:       mustEnvInt("FUSION_RRF_K", 60),
		CURIEPrefixes:    mustEnv("CURIE_PREFIXES", ""),

		CalibrationQueries:           mustEnvInt("CALIBRATION_QUERIES", 10),
		CalibrationFactor:            mustEnvFloat("CALIBRATION_FACTOR", 10),
		CalibrationMinTimeoutSeconds: mustEnvFloat("CALIBRATION_MIN_TIMEOUT_SECONDS", 1),
		CalibrationMaxTimeoutSeconds: mustEnvFloat("CALIBRATION_MAX_TIMEOUT_SECONDS", 60),

		SPARQLRetryMaxAttempts:          mustEnvInt("SPARQL_RETRY_MAX_ATTEMPTS", 3),
		SPARQLRetryInitialBackoffMS:     mustEnvInt("SPARQL_RETRY_INITIAL_BACKOFF_MS", 200),
		SPARQLRetryMaxBackoffMS:         mustEnvInt("SPARQL_RETRY_MAX_BACKOFF_MS", 2000),
		SPARQLBreakerEnabled:            mustEnvBool("SPARQL_BREAKER_ENABLED", true),
		SPARQLBreakerMinRequests:        mustEnvInt("SPARQL_BREAKER_MIN_REQUESTS", 20),
		SPARQLBreakerFailureRatio:       mustEnvFloat("SPARQL_BREAKER_FAILURE_RATIO", 0.5),
		SPARQLBreakerOpenTimeoutSeconds: mustEnvInt("SPARQL_BREAKER_OPEN_TIMEOUT_SECONDS", 30),

		APIHost:           mustEnv("API_HOST", "0.0.0.0"),
		APIPort:           mustEnv("API_PORT", "8080"),
		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 20),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 40),
		APIMaxInFlight:    mustEnvInt("API_MAX_IN_FLIGHT", 16),
		APIQueueWaitMS:    mustEnvInt("API_QUEUE_WAIT_MS", 250),
		APICORSOrigins:    mustEnv("API_CORS_ORIGINS", "*"),

		LogLevel:    mustEnv("LOG_LEVEL", "info"),
		LogFormat:   mustEnv("LOG_FORMAT", "text"),
		MetricsPort: mustEnv("METRICS_PORT", "9090"),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		NATSURL:            mustEnv("NATS_URL", ""),
		NATSRequestSubject: mustEnv("NATS_REQUEST_SUBJECT", "predictions.request"),
		NATSResultSubject:  mustEnv("NATS_RESULT_SUBJECT", "predictions.result"),
	}
}

// LoadFile starts from Load and overlays the YAML document at path. Keys
// missing from the file keep their environment or default value.
func LoadFile(path string) (Config, error) {
	cfg := Load()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// QueryTimeout is zero when the timeout should be calibrated.
func (c Config) QueryTimeout() time.Duration {
	return seconds(c.QueryTimeoutSeconds)
}

// ChunkSize is the number of input lines handled per dispatch.
func (c Config) ChunkSize() int {
	if !c.BatchPredict || c.BatchSize < 1 {
		return 1
	}
	return c.BatchSize
}

func seconds(v float64) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}

func (c Config) CalibrationMinTimeout() time.Duration {
	return seconds(c.CalibrationMinTimeoutSeconds)
}

func (c Config) CalibrationMaxTimeout() time.Duration {
	return seconds(c.CalibrationMaxTimeoutSeconds)
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
