package conf

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Admission     AdmissionConfig     `mapstructure:"admission"`
	Vendors       VendorsConfig       `mapstructure:"vendors"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Auth          AuthConfig          `mapstructure:"auth"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	MetricsPort     int           `mapstructure:"metrics_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	DBName          string        `mapstructure:"dbname"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// AdmissionConfig 准入链路配置
type AdmissionConfig struct {
	Replay       ReplayConfig       `mapstructure:"replay"`
	Quota        QuotaConfig        `mapstructure:"quota"`
	Backpressure BackpressureConfig `mapstructure:"backpressure"`
	Audit        AuditConfig        `mapstructure:"audit"`
}

// ReplayConfig 重放防护配置
type ReplayConfig struct {
	RetentionWindow time.Duration `mapstructure:"retention_window"`
	StoreTimeout    time.Duration `mapstructure:"store_timeout"`
}

// QuotaConfig 配额配置
type QuotaConfig struct {
	StoreTimeout time.Duration `mapstructure:"store_timeout"`
}

// BackpressureConfig 背压阈值配置
type BackpressureConfig struct {
	LightDepth    int64         `mapstructure:"light_depth"`
	ModerateDepth int64         `mapstructure:"moderate_depth"`
	SevereDepth   int64         `mapstructure:"severe_depth"`
	GaugeTimeout  time.Duration `mapstructure:"gauge_timeout"`
}

// AuditConfig 审计配置
type AuditConfig struct {
	QueueSize    int           `mapstructure:"queue_size"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// VendorsConfig 供应商客户端配置
type VendorsConfig struct {
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	WhatsApp  WhatsAppConfig  `mapstructure:"whatsapp"`
	Twilio    TwilioConfig    `mapstructure:"twilio"`
	KlickTipp KlickTippConfig `mapstructure:"klicktipp"`
}

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	Threshold    float64       `mapstructure:"threshold"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	ResetTimeout time.Duration `mapstructure:"reset_timeout"`
}

// WhatsAppConfig WhatsApp Cloud API 配置
type WhatsAppConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	PhoneNumberID string `mapstructure:"phone_number_id"`
	AccessToken   string `mapstructure:"access_token"`
}

// TwilioConfig Twilio 配置
type TwilioConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	FromNumber string `mapstructure:"from_number"`
}

// KlickTippConfig KlickTipp 配置
type KlickTippConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	OTELEndpoint   string `mapstructure:"otel_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	Environment    string `mapstructure:"environment"`
	EnableTrace    bool   `mapstructure:"enable_trace"`
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTExpiry time.Duration `mapstructure:"jwt_expiry"`
}

// Load 加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 设置配置文件
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("admission-service")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	// 自动从环境变量读取
	v.AutomaticEnv()

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	// 解析配置
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// 从环境变量覆盖敏感配置
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		config.Database.Password = password
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		config.Redis.Password = password
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		config.Kafka.Brokers = strings.Split(brokers, ",")
	}
	if token := os.Getenv("WHATSAPP_ACCESS_TOKEN"); token != "" {
		config.Vendors.WhatsApp.AccessToken = token
	}
	if token := os.Getenv("TWILIO_AUTH_TOKEN"); token != "" {
		config.Vendors.Twilio.AuthToken = token
	}
	if key := os.Getenv("KLICKTIPP_API_KEY"); key != "" {
		config.Vendors.KlickTipp.APIKey = key
	}
	if endpoint := os.Getenv("OTEL_ENDPOINT"); endpoint != "" {
		config.Observability.OTELEndpoint = endpoint
	}

	return &config, nil
}
