// Package config loads process configuration with viper/godotenv, adapted
// from the teacher's scripts/demo-data cobra+viper CLI and the struct-tag
// shape of components/ledger/internal/bootstrap/config.go (its lib-commons
// loader is replaced with viper since lib-commons has no source in the
// retrieval pack — see DESIGN.md).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// CommunityMode governs whether operator routes are exposed.
type CommunityMode string

const (
	ModeSingle CommunityMode = "single"
	ModeGlobal CommunityMode = "global"
)

// RateLimitBuckets enumerates the named rate-limit buckets the deployment
// requires; actual enforcement lives in the external HTTP edge, but the
// core owns the configured limits so it can report them to that edge.
type RateLimitBuckets struct {
	Auth     int `mapstructure:"auth" validate:"gte=0"`
	Write    int `mapstructure:"write" validate:"gte=0"`
	ReadAnon int `mapstructure:"read_anon" validate:"gte=0"`
	ReadAuth int `mapstructure:"read_auth" validate:"gte=0"`
}

// Config is the full process configuration.
type Config struct {
	EnvName  string `mapstructure:"env_name"`
	LogLevel string `mapstructure:"log_level"`

	CommunityMode CommunityMode `mapstructure:"community_mode" validate:"required,oneof=single global"`
	OperatorIDs   []string      `mapstructure:"operator_ids"`

	ModerationHoldLabels []string `mapstructure:"moderation_hold_labels"`

	OAuthSessionTTL      time.Duration `mapstructure:"oauth_session_ttl"`
	OAuthAccessTokenTTL  time.Duration `mapstructure:"oauth_access_token_ttl"`
	OAuthStateTTL        time.Duration `mapstructure:"oauth_state_ttl"`
	SessionSecret        string        `mapstructure:"session_secret" validate:"required,min=32"`

	RateLimits RateLimitBuckets `mapstructure:"rate_limits"`

	DirectoryURL       string        `mapstructure:"directory_url" validate:"required,url"`
	DirectoryTimeout   time.Duration `mapstructure:"directory_timeout"`
	UpstreamStreamURL  string        `mapstructure:"upstream_stream_url" validate:"required"`
	UpstreamAdminPass  string        `mapstructure:"upstream_admin_password"`

	PostgresDSN        string `mapstructure:"postgres_dsn" validate:"required"`
	PostgresDBName     string `mapstructure:"postgres_db_name" validate:"required"`
	PostgresMigrations string `mapstructure:"postgres_migrations_path"`

	RedisDSN    string `mapstructure:"redis_dsn" validate:"required"`
	MongoDSN    string `mapstructure:"mongo_dsn" validate:"required"`
	MongoDB     string `mapstructure:"mongo_database" validate:"required"`
	RabbitMQDSN string `mapstructure:"rabbitmq_dsn" validate:"required"`

	CasdoorEndpoint     string `mapstructure:"casdoor_endpoint"`
	CasdoorClientID     string `mapstructure:"casdoor_client_id"`
	CasdoorClientSecret string `mapstructure:"casdoor_client_secret"`
	CasdoorOrg          string `mapstructure:"casdoor_organization"`
	CasdoorApp          string `mapstructure:"casdoor_application"`
	CasdoorRedirectURL  string `mapstructure:"casdoor_redirect_url"`

	OTelCollectorEndpoint string `mapstructure:"otel_collector_endpoint"`
	HTTPAddr              string `mapstructure:"http_addr"`

	ReputationDampingFactor float64       `mapstructure:"reputation_damping_factor"`
	ReputationMaxIterations int           `mapstructure:"reputation_max_iterations"`
	ReputationConvergence   float64       `mapstructure:"reputation_convergence_threshold"`
	CursorDebounceInterval  time.Duration `mapstructure:"cursor_debounce_interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env_name", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("community_mode", string(ModeSingle))
	v.SetDefault("oauth_session_ttl", 7*24*time.Hour)
	v.SetDefault("oauth_access_token_ttl", 15*time.Minute)
	v.SetDefault("oauth_state_ttl", 300*time.Second)
	v.SetDefault("directory_timeout", 5*time.Second)
	v.SetDefault("postgres_migrations_path", "migrations")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("reputation_damping_factor", 0.5)
	v.SetDefault("reputation_max_iterations", 20)
	v.SetDefault("reputation_convergence_threshold", 1e-3)
	v.SetDefault("cursor_debounce_interval", 5*time.Second)
}

// Load reads .env (if present), then environment variables prefixed
// BARAZO_, into a validated Config. Any failure here is a fatal startup
// error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("BARAZO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	for _, key := range []string{
		"env_name", "log_level", "community_mode", "operator_ids", "moderation_hold_labels",
		"oauth_session_ttl", "oauth_access_token_ttl", "oauth_state_ttl", "session_secret",
		"rate_limits.auth", "rate_limits.write", "rate_limits.read_anon", "rate_limits.read_auth",
		"directory_url", "directory_timeout", "upstream_stream_url", "upstream_admin_password",
		"postgres_dsn", "postgres_db_name", "postgres_migrations_path",
		"redis_dsn", "mongo_dsn", "mongo_database", "rabbitmq_dsn",
		"casdoor_endpoint", "casdoor_client_id", "casdoor_client_secret", "casdoor_organization", "casdoor_application", "casdoor_redirect_url",
		"otel_collector_endpoint", "http_addr",
		"reputation_damping_factor", "reputation_max_iterations", "reputation_convergence_threshold",
		"cursor_debounce_interval",
	} {
		_ = v.BindEnv(key)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if raw := v.GetString("operator_ids"); raw != "" && len(cfg.OperatorIDs) == 0 {
		cfg.OperatorIDs = splitAndTrim(raw)
	}

	if raw := v.GetString("moderation_hold_labels"); raw != "" && len(cfg.ModerationHoldLabels) == 0 {
		cfg.ModerationHoldLabels = splitAndTrim(raw)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

// IsOperator reports whether repoID is a configured platform operator.
func (c *Config) IsOperator(repoID string) bool {
	for _, id := range c.OperatorIDs {
		if id == repoID {
			return true
		}
	}

	return false
}
