package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Overpass  OverpassConfig  `mapstructure:"overpass"`
	Elevation ElevationConfig `mapstructure:"elevation"`
	Poster    PosterConfig    `mapstructure:"poster"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type OverpassConfig struct {
	URL            string `mapstructure:"url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type ElevationConfig struct {
	URL     string `mapstructure:"url"`
	Dataset string `mapstructure:"dataset"`
	Cols    int    `mapstructure:"cols"`
}

// PosterConfig holds the geometry and detection policy knobs. The bridge and
// pass thresholds are tunable heuristics, deliberately configuration rather
// than constants.
type PosterConfig struct {
	MarginFraction    float64 `mapstructure:"margin_fraction"`
	MinAreaExtentM    float64 `mapstructure:"min_area_extent_m"`
	AreaToleranceDeg  float64 `mapstructure:"area_tolerance_deg"`
	StitchToleranceM  float64 `mapstructure:"stitch_tolerance_m"`
	StitchMaxGapM     float64 `mapstructure:"stitch_max_gap_m"`
	ClosedTrackM      float64 `mapstructure:"closed_track_m"`
	PassProximityM    float64 `mapstructure:"pass_proximity_m"`
	PassDedupIndexTol int     `mapstructure:"pass_dedup_index_tol"`
	BridgeLengthFrac  float64 `mapstructure:"bridge_length_frac"`
	BridgeMaxAngleDeg float64 `mapstructure:"bridge_max_angle_deg"`
	BridgeMinAspect   float64 `mapstructure:"bridge_min_aspect"`
	BridgeMaxAspect   float64 `mapstructure:"bridge_max_aspect"`
	BridgeMinLengthM  float64 `mapstructure:"bridge_min_length_m"`
	HutRadiusM        float64 `mapstructure:"hut_radius_m"`
	LabelCandidates   int     `mapstructure:"label_candidates"`
	PayloadTTLSeconds int     `mapstructure:"payload_ttl_seconds"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "trailposter")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "trailposter")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.enabled", false)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("overpass.url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.timeout_seconds", 60)
	v.SetDefault("elevation.url", "https://api.opentopodata.org")
	v.SetDefault("elevation.dataset", "srtm90m")
	v.SetDefault("elevation.cols", 64)
	v.SetDefault("poster.margin_fraction", 0.1)
	v.SetDefault("poster.min_area_extent_m", 100.0)
	v.SetDefault("poster.area_tolerance_deg", 1e-5)
	v.SetDefault("poster.stitch_tolerance_m", 50.0)
	v.SetDefault("poster.stitch_max_gap_m", 1000.0)
	v.SetDefault("poster.closed_track_m", 1000.0)
	v.SetDefault("poster.pass_proximity_m", 50.0)
	v.SetDefault("poster.pass_dedup_index_tol", 3)
	v.SetDefault("poster.bridge_length_frac", 0.7)
	v.SetDefault("poster.bridge_max_angle_deg", 25.0)
	v.SetDefault("poster.bridge_min_aspect", 0.1)
	v.SetDefault("poster.bridge_max_aspect", 0.75)
	v.SetDefault("poster.bridge_min_length_m", 40.0)
	v.SetDefault("poster.hut_radius_m", 500.0)
	v.SetDefault("poster.label_candidates", 300)
	v.SetDefault("poster.payload_ttl_seconds", 86400)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: TRAILPOSTER_POSTER_HUT_RADIUS_M → poster.hut_radius_m
	v.SetEnvPrefix("TRAILPOSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Overpass.URL == "" {
		errs = append(errs, "overpass.url is required")
	}
	if c.Elevation.URL == "" {
		errs = append(errs, "elevation.url is required")
	}
	if c.Elevation.Cols < 8 {
		errs = append(errs, "elevation.cols must be at least 8")
	}
	if c.Poster.MarginFraction < 0 || c.Poster.MarginFraction > 1 {
		errs = append(errs, fmt.Sprintf("poster.margin_fraction must be in [0,1], got %g", c.Poster.MarginFraction))
	}
	if c.Poster.BridgeLengthFrac <= 0 || c.Poster.BridgeLengthFrac > 1 {
		errs = append(errs, fmt.Sprintf("poster.bridge_length_frac must be in (0,1], got %g", c.Poster.BridgeLengthFrac))
	}
	if c.Poster.BridgeMaxAngleDeg <= 0 || c.Poster.BridgeMaxAngleDeg >= 90 {
		errs = append(errs, fmt.Sprintf("poster.bridge_max_angle_deg must be in (0,90), got %g", c.Poster.BridgeMaxAngleDeg))
	}
	if c.Poster.PassProximityM <= 0 {
		errs = append(errs, "poster.pass_proximity_m must be positive")
	}
	if c.Poster.HutRadiusM <= 0 {
		errs = append(errs, "poster.hut_radius_m must be positive")
	}
	if c.Poster.LabelCandidates <= 0 {
		errs = append(errs, "poster.label_candidates must be positive")
	}
	if c.Database.Enabled && c.Valkey.Enabled {
		errs = append(errs, "database and valkey payload stores are mutually exclusive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
