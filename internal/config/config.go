package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Camera    CameraConfig    `mapstructure:"camera"`
	Detection DetectionConfig `mapstructure:"detection"`
	OCR       OCRConfig       `mapstructure:"ocr"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type AuthConfig struct {
	// APIToken is the pre-shared secret camera workers send in X-API-Token.
	APIToken string `mapstructure:"api_token"`
	// JWTSecret signs admin bearer tokens.
	JWTSecret     string        `mapstructure:"jwt_secret"`
	JWTExpiration time.Duration `mapstructure:"jwt_expiration"`
	AdminUser     string        `mapstructure:"admin_user"`
	// AdminPasswordHash is a bcrypt hash; the plaintext never appears in config.
	AdminPasswordHash string `mapstructure:"admin_password_hash"`
}

// CameraConfig configures one camera-worker instance.
type CameraConfig struct {
	ID            int64         `mapstructure:"id"`
	StreamURL     string        `mapstructure:"stream_url"`
	WorkerName    string        `mapstructure:"worker_name"`
	ServerURL     string        `mapstructure:"server_url"`
	FrameDelay    time.Duration `mapstructure:"frame_delay"`
	DedupWindow   time.Duration `mapstructure:"dedup_window"`
	SubmitTimeout time.Duration `mapstructure:"submit_timeout"`
}

type DetectionConfig struct {
	// Backend selects the region proposer: cascade, contour or neural.
	Backend        string  `mapstructure:"backend"`
	CascadePath    string  `mapstructure:"cascade_path"`
	ModelPath      string  `mapstructure:"model_path"`
	ModelConfig    string  `mapstructure:"model_config"`
	ClassNames     string  `mapstructure:"class_names"`
	ScoreThreshold float64 `mapstructure:"score_threshold"`
	MaxCandidates  int     `mapstructure:"max_candidates"`
}

type OCRConfig struct {
	Language  string `mapstructure:"language"`
	Whitelist string `mapstructure:"whitelist"`
}

type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
	QoS      byte   `mapstructure:"qos"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PLATEGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "plategate")
	v.SetDefault("database.name", "plategate")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("auth.jwt_expiration", 24*time.Hour)
	v.SetDefault("auth.admin_user", "admin")

	v.SetDefault("camera.worker_name", "camera-worker")
	v.SetDefault("camera.server_url", "http://localhost:8080")
	v.SetDefault("camera.frame_delay", 100*time.Millisecond)
	v.SetDefault("camera.dedup_window", 5*time.Second)
	v.SetDefault("camera.submit_timeout", 5*time.Second)

	v.SetDefault("detection.backend", "cascade")
	v.SetDefault("detection.cascade_path", "models/haarcascade_russian_plate_number.xml")
	v.SetDefault("detection.score_threshold", 0.5)
	v.SetDefault("detection.max_candidates", 10)

	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.whitelist", "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.client_id", "plategate-server")
	v.SetDefault("mqtt.topic", "plategate/gate-events")
	v.SetDefault("mqtt.qos", 1)
}

func (c *Config) Validate() error {
	switch c.Detection.Backend {
	case "cascade", "contour", "neural":
	default:
		return fmt.Errorf("unknown detection backend %q", c.Detection.Backend)
	}
	if c.Detection.Backend == "cascade" && c.Detection.CascadePath == "" {
		return fmt.Errorf("detection.cascade_path is required for the cascade backend")
	}
	if c.Detection.Backend == "neural" && c.Detection.ModelPath == "" {
		return fmt.Errorf("detection.model_path is required for the neural backend")
	}
	if c.Detection.MaxCandidates <= 0 {
		return fmt.Errorf("detection.max_candidates must be positive")
	}
	if c.Camera.DedupWindow <= 0 {
		return fmt.Errorf("camera.dedup_window must be positive")
	}
	if c.Camera.SubmitTimeout <= 0 {
		return fmt.Errorf("camera.submit_timeout must be positive")
	}
	return nil
}
