package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/wso2/consent-lifecycle-api/internal/system/utils"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabasesConfig     `mapstructure:"database"`
	Tenancy       TenancyConfig       `mapstructure:"tenancy"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	ConsentHandle ConsentHandleConfig `mapstructure:"consent_handle"`
	Dispatch      DispatchConfig      `mapstructure:"dispatch"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Hostname           string        `mapstructure:"hostname"`
	Port               int           `mapstructure:"port"`
	ReadTimeout        time.Duration `mapstructure:"readTimeout"`
	WriteTimeout       time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout        time.Duration `mapstructure:"idleTimeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdownTimeout"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
}

// DatabasesConfig holds all database configurations.
// System is the server-level connection used to discover and provision tenant
// schemas; tenant connections reuse its credentials with their own schema name.
type DatabasesConfig struct {
	System DatabaseConfig `mapstructure:"system"`
}

// DatabaseConfig holds individual database configuration
type DatabaseConfig struct {
	Type            string        `mapstructure:"type"`
	Hostname        string        `mapstructure:"hostname"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// TenancyConfig controls how tenant partitions are named and created.
// ProvisionTenants are created at startup; requests never create schemas.
type TenancyConfig struct {
	DatabasePrefix   string   `mapstructure:"database_prefix"`
	ProvisionTenants []string `mapstructure:"provision_tenants"`
}

// SchedulerConfig controls the consent handle expiry sweep
type SchedulerConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ExpiryCron string `mapstructure:"expiry_cron"`
}

// ConsentHandleConfig holds consent handle issuing configuration
type ConsentHandleConfig struct {
	Validity time.Duration `mapstructure:"validity"`
	// URLTemplate is formatted with the handle id, e.g. https://consent.example.com/capture/%s
	URLTemplate string `mapstructure:"url_template"`
}

// DispatchConfig holds notification and audit dispatch configuration
type DispatchConfig struct {
	Workers        int            `mapstructure:"workers"`
	QueueSize      int            `mapstructure:"queue_size"`
	EnqueueTimeout time.Duration  `mapstructure:"enqueue_timeout"`
	Notification   EndpointConfig `mapstructure:"notification"`
	Audit          EndpointConfig `mapstructure:"audit"`
}

// EndpointConfig describes one outbound HTTP endpoint
type EndpointConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds prometheus exposition configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

var globalConfig *Config

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default configuration lookup order:
		// 1. ./repository/conf/deployment.yaml (production - relative to binary)
		// 2. ./cmd/server/repository/conf/deployment.yaml (development)
		v.SetConfigName("deployment")
		v.SetConfigType("yaml")
		v.AddConfigPath("./repository/conf")
		v.AddConfigPath("./cmd/server/repository/conf")
		v.AddConfigPath("../repository/conf")
		v.AddConfigPath(".")
	}

	// Read from environment variables, e.g. CONSENT_LCM_DATABASE_SYSTEM_PASSWORD
	v.SetEnvPrefix("CONSENT_LCM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	globalConfig = &config
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.hostname", "0.0.0.0")
	v.SetDefault("server.port", 9446)
	v.SetDefault("server.readTimeout", 15*time.Second)
	v.SetDefault("server.writeTimeout", 15*time.Second)
	v.SetDefault("server.idleTimeout", 60*time.Second)
	v.SetDefault("server.shutdownTimeout", 30*time.Second)

	v.SetDefault("database.system.type", "mysql")
	v.SetDefault("database.system.port", 3306)
	v.SetDefault("database.system.max_open_conns", 10)
	v.SetDefault("database.system.max_idle_conns", 5)
	v.SetDefault("database.system.conn_max_lifetime", time.Hour)

	v.SetDefault("tenancy.database_prefix", "consent_tenant_")
	v.SetDefault("tenancy.provision_tenants", []string{})

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.expiry_cron", "@every 1m")

	v.SetDefault("consent_handle.validity", 15*time.Minute)

	v.SetDefault("dispatch.workers", 8)
	v.SetDefault("dispatch.queue_size", 1024)
	v.SetDefault("dispatch.enqueue_timeout", 2*time.Second)
	v.SetDefault("dispatch.notification.timeout", 10*time.Second)
	v.SetDefault("dispatch.audit.timeout", 5*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Database.System.Hostname == "" {
		return fmt.Errorf("database hostname is required")
	}

	if config.Tenancy.DatabasePrefix == "" {
		return fmt.Errorf("tenant database prefix is required")
	}

	if len(config.Tenancy.DatabasePrefix) >= utils.MaxSchemaNameLength {
		return fmt.Errorf("tenant database prefix too long (max %d chars)", utils.MaxSchemaNameLength-1)
	}

	for _, tenantID := range config.Tenancy.ProvisionTenants {
		if err := utils.ValidateTenantIDForPrefix(tenantID, config.Tenancy.DatabasePrefix); err != nil {
			return fmt.Errorf("invalid provision tenant: %w", err)
		}
	}

	if config.Scheduler.Enabled && config.Scheduler.ExpiryCron == "" {
		return fmt.Errorf("expiry cron expression is required when the scheduler is enabled")
	}

	if config.ConsentHandle.Validity <= 0 {
		return fmt.Errorf("consent handle validity must be positive")
	}

	if config.Dispatch.Workers <= 0 {
		return fmt.Errorf("dispatch workers must be positive: %d", config.Dispatch.Workers)
	}

	if config.Dispatch.QueueSize <= 0 {
		return fmt.Errorf("dispatch queue size must be positive: %d", config.Dispatch.QueueSize)
	}

	if config.Dispatch.Notification.Enabled && config.Dispatch.Notification.URL == "" {
		return fmt.Errorf("notification URL is required when notifications are enabled")
	}

	if config.Dispatch.Audit.Enabled && config.Dispatch.Audit.URL == "" {
		return fmt.Errorf("audit URL is required when audit is enabled")
	}

	return nil
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// SetGlobal sets the global configuration (for testing purposes)
func SetGlobal(cfg *Config) {
	globalConfig = cfg
}

// GetDSN returns the database connection string
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		d.User,
		d.Password,
		d.Hostname,
		d.Port,
		d.Database,
	)
}

// ForSchema returns a copy of the configuration pointing at another schema
func (d DatabaseConfig) ForSchema(schema string) DatabaseConfig {
	d.Database = schema
	return d
}

// GetServerAddress returns the server address in host:port format
func (s *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", s.Hostname, s.Port)
}
