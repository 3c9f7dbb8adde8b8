package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot transport settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"TELEGRAM_BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	File        string `yaml:"file" envconfig:"LOG_FILE"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// MailConfig describes the SMTP relay used to deliver submissions.
type MailConfig struct {
	Host     string `yaml:"host" envconfig:"SMTP_SERVER"`
	Port     int    `yaml:"port" envconfig:"SMTP_PORT"`
	Username string `yaml:"username" envconfig:"SMTP_USERNAME"`
	Sender   string `yaml:"sender" envconfig:"SENDER_EMAIL"`
	Password string `yaml:"password" envconfig:"SENDER_EMAIL_PASSWORD"`
	Receiver string `yaml:"receiver" envconfig:"RECEIVER_EMAIL"`
	// DialTimeoutSeconds bounds the TCP connect; 0 -> default
	DialTimeoutSeconds int `yaml:"dial_timeout_seconds" envconfig:"SMTP_DIAL_TIMEOUT_SECONDS"`
	// TimeoutSeconds bounds the whole SMTP conversation; 0 -> default
	TimeoutSeconds int `yaml:"timeout_seconds" envconfig:"SMTP_TIMEOUT_SECONDS"`
}

// IntakeConfig holds the conversation and submission settings.
type IntakeConfig struct {
	Departments              []string `yaml:"departments" envconfig:"DEPARTMENTS"`
	TempDir                  string   `yaml:"temp_dir" envconfig:"TEMP_DIR"`
	MaxConcurrentSubmissions int      `yaml:"max_concurrent_submissions" envconfig:"MAX_CONCURRENT_SUBMISSIONS"`
}

// HealthConfig enables the HTTP health endpoint when Listen is set.
type HealthConfig struct {
	Listen string `yaml:"listen" envconfig:"HEALTH_LISTEN"`
}

// MessagesConfig overrides user-visible texts. Empty values keep defaults.
type MessagesConfig struct {
	Greeting          string `yaml:"greeting"`
	Chosen            string `yaml:"chosen"`
	NotInList         string `yaml:"not_in_list"`
	OnlyPhotos        string `yaml:"only_photos"`
	MissingCaption    string `yaml:"missing_caption"`
	MissingDepartment string `yaml:"missing_department"`
	Sent              string `yaml:"sent"`
	Failed            string `yaml:"failed"`
	Cancelled         string `yaml:"cancelled"`
	NotStarted        string `yaml:"not_started"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateCommand identifies slash-command messages. They always bypass the rate limit.
	UpdateCommand = "command"
)

const (
	// DefaultSMTPHost is used when no relay host is configured.
	DefaultSMTPHost = "smtp.yandex.ru"
	// DefaultSMTPPort is the submission port with STARTTLS.
	DefaultSMTPPort = 587
	// DefaultMaxConcurrentSubmissions bounds parallel relays.
	DefaultMaxConcurrentSubmissions = 4
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "message": standard messages
// Slash commands such as /start and /cancel are never limited.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the whole application configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Mail      MailConfig      `yaml:"mail"`
	Intake    IntakeConfig    `yaml:"intake"`
	Health    HealthConfig    `yaml:"health"`
	Messages  MessagesConfig  `yaml:"messages"`
}

// Load reads optional .env and YAML files, then overlays environment variables.
// Both paths may be empty; a missing .env file is ignored.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required configuration fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" {
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if err := normalizeIntake(&cfg.Intake); err != nil {
		return err
	}
	if err := normalizeMail(&cfg.Mail); err != nil {
		return err
	}

	allowed := map[string]struct{}{
		UpdateMessage: {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	if cfg.RateLimit.IntervalMS < 0 {
		return fmt.Errorf("rate_limit.interval_ms must be >= 0")
	}
	return nil
}

func normalizeIntake(in *IntakeConfig) error {
	seen := make(map[string]struct{}, len(in.Departments))
	departments := make([]string, 0, len(in.Departments))
	for _, d := range in.Departments {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		departments = append(departments, d)
	}
	if len(departments) == 0 {
		return fmt.Errorf("intake.departments must list at least one department")
	}
	in.Departments = departments

	in.TempDir = strings.TrimSpace(in.TempDir)
	if in.TempDir == "" {
		in.TempDir = os.TempDir()
	}
	if in.MaxConcurrentSubmissions < 0 {
		return fmt.Errorf("intake.max_concurrent_submissions must be >= 0")
	}
	if in.MaxConcurrentSubmissions == 0 {
		in.MaxConcurrentSubmissions = DefaultMaxConcurrentSubmissions
	}
	return nil
}

func normalizeMail(m *MailConfig) error {
	m.Host = strings.TrimSpace(m.Host)
	if m.Host == "" {
		m.Host = DefaultSMTPHost
	}
	if m.Port == 0 {
		m.Port = DefaultSMTPPort
	}
	if m.Port < 0 || m.Port > 65535 {
		return fmt.Errorf("mail.port %d is out of range", m.Port)
	}
	m.Sender = strings.TrimSpace(m.Sender)
	m.Receiver = strings.TrimSpace(m.Receiver)
	m.Username = strings.TrimSpace(m.Username)
	switch {
	case m.Sender == "":
		return fmt.Errorf("mail.sender is required")
	case m.Password == "":
		return fmt.Errorf("mail.password is required")
	case m.Receiver == "":
		return fmt.Errorf("mail.receiver is required")
	}
	if m.Username == "" {
		m.Username = m.Sender
	}
	if m.DialTimeoutSeconds < 0 || m.TimeoutSeconds < 0 {
		return fmt.Errorf("mail timeouts must be >= 0")
	}
	return nil
}
