package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	State    StateConfig    `mapstructure:"state"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Token    TokenConfig    `mapstructure:"token"`
	Mail     MailConfig     `mapstructure:"mail"`
	Broker   BrokerConfig   `mapstructure:"broker"`
	Event    EventConfig    `mapstructure:"event"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host                    string        `mapstructure:"host"`
	Port                    int           `mapstructure:"port"`
	Mode                    string        `mapstructure:"mode"`
	ReadTimeout             time.Duration `mapstructure:"read_timeout"`
	WriteTimeout            time.Duration `mapstructure:"write_timeout"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	DB              string        `mapstructure:"db"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type StateConfig struct {
	Backend string `mapstructure:"backend"` // "redis" | "memory"
}

type JWTConfig struct {
	SigningKey     string        `mapstructure:"signing_key"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// AdminAccount is a dashboard login. PasswordHash is a bcrypt hash.
type AdminAccount struct {
	Username     string   `mapstructure:"username"`
	PasswordHash string   `mapstructure:"password_hash"`
	Role         string   `mapstructure:"role"` // "admin" | "manager"
	Events       []string `mapstructure:"events"`
}

type AdminConfig struct {
	Accounts []AdminAccount `mapstructure:"accounts"`
}

type TokenConfig struct {
	Secret string `mapstructure:"secret"`
}

type MailConfig struct {
	Provider      string         `mapstructure:"provider"` // "smtp" | "http" | "log"
	FromEmail     string         `mapstructure:"from_email"`
	FromName      string         `mapstructure:"from_name"`
	PublicBaseURL string         `mapstructure:"public_base_url"`
	ManagePath    string         `mapstructure:"manage_path"`
	SendTimeout   time.Duration  `mapstructure:"send_timeout"`
	BulkDelay     time.Duration  `mapstructure:"bulk_delay"`
	SMTP          SMTPConfig     `mapstructure:"smtp"`
	HTTP          MailHTTPConfig `mapstructure:"http"`
}

type SMTPConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	FromEmail     string `mapstructure:"-"`
	FromName      string `mapstructure:"-"`
	UseSTARTTLS   bool   `mapstructure:"use_starttls"`
	SkipTLSVerify bool   `mapstructure:"skip_tls_verify"`
}

// MailHTTPConfig configures a transactional email API that accepts
// {from,to,subject,html} and answers {id}.
type MailHTTPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
}

type BrokerConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URL        string `mapstructure:"url"`
	Exchange   string `mapstructure:"exchange"`
	RoutingKey string `mapstructure:"routing_key"`
}

type EventSeed struct {
	Slug                     string `mapstructure:"slug"`
	Title                    string `mapstructure:"title"`
	HostName                 string `mapstructure:"host_name"`
	Date                     string `mapstructure:"date"`
	Time                     string `mapstructure:"time"`
	Location                 string `mapstructure:"location"`
	Address                  string `mapstructure:"address"`
	PrimaryColor             string `mapstructure:"primary_color"`
	AccentColor              string `mapstructure:"accent_color"`
	IsActive                 bool   `mapstructure:"is_active"`
	EmailConfirmationEnabled bool   `mapstructure:"email_confirmation_enabled"`
}

type EventConfig struct {
	DefaultSlug string      `mapstructure:"default_slug"`
	Timezone    string      `mapstructure:"timezone"`
	Seed        []EventSeed `mapstructure:"seed"`
}

type CORSConfig struct {
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	AllowedMethods   []string      `mapstructure:"allowed_methods"`
	AllowedHeaders   []string      `mapstructure:"allowed_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config.yaml, overlays environment variables, and returns Config.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	// Environment variable override: MAIL_SMTP_HOST -> mail.smtp.host
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	cfg.Mail.SMTP.FromEmail = cfg.Mail.FromEmail
	cfg.Mail.SMTP.FromName = cfg.Mail.FromName
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Token.Secret) == "" {
		return errors.New("token.secret is required")
	}
	if strings.TrimSpace(c.JWT.SigningKey) == "" {
		return errors.New("jwt.signing_key is required")
	}
	for _, a := range c.Admin.Accounts {
		if a.Role != "admin" && a.Role != "manager" {
			return fmt.Errorf("admin account %q: unknown role %q", a.Username, a.Role)
		}
		if a.PasswordHash == "" {
			return fmt.Errorf("admin account %q: password_hash is required", a.Username)
		}
	}
	if c.Broker.Enabled && c.Broker.URL == "" {
		return errors.New("broker.url is required when broker.enabled")
	}
	switch c.Mail.Provider {
	case "smtp":
		if c.Mail.SMTP.Host == "" {
			return errors.New("mail.smtp.host is required for the smtp provider")
		}
	case "http":
		if c.Mail.HTTP.Endpoint == "" {
			return errors.New("mail.http.endpoint is required for the http provider")
		}
	}
	if (c.Mail.Provider == "smtp" || c.Mail.Provider == "http") && strings.TrimSpace(c.Mail.PublicBaseURL) == "" {
		return fmt.Errorf("mail.public_base_url is required for the %s provider", c.Mail.Provider)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.graceful_shutdown_timeout", 10*time.Second)
	v.SetDefault("state.backend", "memory")
	v.SetDefault("jwt.issuer", "rsvphub")
	v.SetDefault("jwt.access_token_ttl", 12*time.Hour)
	v.SetDefault("mail.provider", "log")
	v.SetDefault("mail.manage_path", "/rsvp/manage")
	v.SetDefault("mail.send_timeout", 8*time.Second)
	v.SetDefault("mail.bulk_delay", 600*time.Millisecond)
	v.SetDefault("broker.exchange", "rsvp.lifecycle")
	v.SetDefault("event.timezone", "UTC")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}
