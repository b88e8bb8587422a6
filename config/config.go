package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBDriver   string `envconfig:"DB_DRIVER" default:"postgres"`
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"reprise"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"reprise"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"reprise.db"`

	HTTPPort         string   `envconfig:"HTTP_PORT" default:"5000"`
	APISecretKey     string   `envconfig:"API_SECRET_KEY"`
	CORSAllowOrigins []string `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://127.0.0.1:3000"`

	// Textgenerierung (Cloze-Vorschläge, Qualitätsurteil, Motif-Extraktion)
	OpenAIAPIKey      string        `envconfig:"OPENAI_API_KEY"`
	OpenAIModel       string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIBaseURL     string        `envconfig:"OPENAI_BASE_URL"`
	LLMTimeout        time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
	ClozeMaxSets      int           `envconfig:"CLOZE_MAX_SETS" default:"3"`
	ClozeQualityCheck bool          `envconfig:"CLOZE_QUALITY_CHECK" default:"false"`

	// Zustellung per Mailgun
	MailgunAPIKey    string        `envconfig:"MAILGUN_API_KEY"`
	MailgunDomain    string        `envconfig:"MAILGUN_DOMAIN"`
	MailgunRecipient string        `envconfig:"MAILGUN_RECIPIENT"`
	MailgunAPIBase   string        `envconfig:"MAILGUN_API_BASE"`
	DeliveryTimeout  time.Duration `envconfig:"DELIVERY_TIMEOUT" default:"30s"`

	RetryBackoff time.Duration `envconfig:"RETRY_BACKOFF" default:"2s"`

	ReprisalBatchSize int           `envconfig:"REPRISAL_BATCH_SIZE" default:"5"`
	ScheduleTolerance time.Duration `envconfig:"SCHEDULE_TOLERANCE" default:"30m"`
	MaskToken         string        `envconfig:"MASK_TOKEN" default:"___"`
	DispatchHours     []int         `envconfig:"DISPATCH_HOURS" default:"8,16"`
	DispatchDays      int           `envconfig:"DISPATCH_DAYS" default:"3"`
	CronSchedule      string        `envconfig:"CRON_SCHEDULE" default:"0 6 * * *"`

	// Optionaler Redis-Lock, damit nie zwei Dispatch-Läufe gleichzeitig laufen
	RedisAddr string        `envconfig:"REDIS_ADDR"`
	LockTTL   time.Duration `envconfig:"LOCK_TTL" default:"5m"`

	// Backups
	BackupS3Endpoint  string `envconfig:"BACKUP_S3_ENDPOINT"`
	BackupS3Region    string `envconfig:"BACKUP_S3_REGION" default:"eu-central-1"`
	BackupS3Bucket    string `envconfig:"BACKUP_S3_BUCKET"`
	BackupS3AccessKey string `envconfig:"BACKUP_S3_ACCESS_KEY"`
	BackupS3SecretKey string `envconfig:"BACKUP_S3_SECRET_KEY"`
	KeepBackups       int    `envconfig:"KEEP_BACKUPS" default:"4"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// GenerationEnabled meldet, ob ein Textgenerator konfiguriert ist.
func (c *Config) GenerationEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// DeliveryEnabled meldet, ob Mailgun vollständig konfiguriert ist.
func (c *Config) DeliveryEnabled() bool {
	return c.MailgunAPIKey != "" && c.MailgunDomain != "" && c.MailgunRecipient != ""
}

// Validate prüft Werte, die envconfig nicht prüfen kann.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want postgres or sqlite)", c.DBDriver)
	}
	if c.ReprisalBatchSize <= 0 {
		return fmt.Errorf("REPRISAL_BATCH_SIZE must be positive, got %d", c.ReprisalBatchSize)
	}
	if c.ScheduleTolerance <= 0 {
		return fmt.Errorf("SCHEDULE_TOLERANCE must be positive, got %s", c.ScheduleTolerance)
	}
	for _, h := range c.DispatchHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("DISPATCH_HOURS contains invalid hour %d", h)
		}
	}
	return nil
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return &c, err
	}
	return &c, c.Validate()
}
