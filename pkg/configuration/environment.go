package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/ledgerdesk/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the given env files from the working directory. When none
// exist there, the nearest parent directory holding a go.mod is tried, so
// tests running inside a package directory pick up the repository's files.
func LoadEnv(envFiles []string) (int, error) {
	existing := existingFiles("", envFiles)
	if len(existing) == 0 {
		if root := moduleRoot(); root != "" {
			existing = existingFiles(root, envFiles)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

func existingFiles(dir string, envFiles []string) []string {
	out := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		path := file
		if dir != "" {
			path = filepath.Join(dir, file)
		}
		if fs.FileExists(path) {
			out = append(out, path)
		}
	}
	return out
}

func moduleRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if fs.FileExists(filepath.Join(dir, "go.mod")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"ledgerdesk"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.Password, d.SSLMode,
	)
}

// SupabaseOptions configures the hosted object storage.
type SupabaseOptions struct {
	URL          string `env:"SUPABASE_URL"`
	ServiceKey   string `env:"SUPABASE_SERVICE_KEY"`
	ImportBucket string `env:"SUPABASE_IMPORT_BUCKET" envDefault:"company-imports"`
	// DocumentsBucket holds files uploaded through the client portal.
	DocumentsBucket string `env:"SUPABASE_DOCUMENTS_BUCKET" envDefault:"client-documents"`
	// LocalPath is used instead of Supabase when URL is empty.
	LocalPath string `env:"STORAGE_LOCAL_PATH" envDefault:"./uploads"`
}

const (
	UploadTriggerEvent   = "event"
	UploadTriggerWebhook = "webhook"
)

type ImportOptions struct {
	BatchSize   int    `env:"IMPORT_BATCH_SIZE" envDefault:"100"`
	Table       string `env:"IMPORT_TABLE" envDefault:"companies"`
	MaxFileSize int64  `env:"IMPORT_MAX_FILE_SIZE" envDefault:"268435456"`
	// UploadTrigger picks what imports files posted to /companies/uploads:
	// "event" runs them in process, "webhook" leaves them to the storage
	// webhook configured on the import bucket.
	UploadTrigger string `env:"IMPORT_UPLOAD_TRIGGER" envDefault:"event"`
}

func (o *ImportOptions) Validate() error {
	// 55 columns per row must stay under the 65535 bind parameter limit.
	if o.BatchSize <= 0 || o.BatchSize > 1000 {
		return fmt.Errorf("IMPORT_BATCH_SIZE must be within 1..1000, got %d", o.BatchSize)
	}
	if strings.TrimSpace(o.Table) == "" {
		return fmt.Errorf("IMPORT_TABLE must not be empty")
	}
	if o.MaxFileSize <= 0 {
		return fmt.Errorf("IMPORT_MAX_FILE_SIZE must be positive, got %d", o.MaxFileSize)
	}
	switch o.UploadTrigger {
	case UploadTriggerEvent, UploadTriggerWebhook:
	default:
		return fmt.Errorf("IMPORT_UPLOAD_TRIGGER must be %q or %q, got %q", UploadTriggerEvent, UploadTriggerWebhook, o.UploadTrigger)
	}
	return nil
}

// RegistryOptions configures the public company registry API.
type RegistryOptions struct {
	BaseURL string        `env:"COMPANIES_HOUSE_URL" envDefault:"https://api.company-information.service.gov.uk"`
	APIKey  string        `env:"COMPANIES_HOUSE_API_KEY"`
	RPS     float64       `env:"COMPANIES_HOUSE_RPS" envDefault:"2"`
	Burst   int           `env:"COMPANIES_HOUSE_BURST" envDefault:"5"`
	Timeout time.Duration `env:"COMPANIES_HOUSE_TIMEOUT" envDefault:"10s"`
}

func (o *RegistryOptions) Validate() error {
	if o.RPS <= 0 {
		return fmt.Errorf("COMPANIES_HOUSE_RPS must be positive, got %v", o.RPS)
	}
	if o.Burst < 1 {
		return fmt.Errorf("COMPANIES_HOUSE_BURST must be at least 1, got %d", o.Burst)
	}
	return nil
}

type OpenAIOptions struct {
	Key         string        `env:"OPENAI_KEY"`
	Model       string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	BaseURL     string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1/"`
	Temperature float64       `env:"OPENAI_TEMPERATURE" envDefault:"0.1"`
	MaxTokens   int64         `env:"OPENAI_MAX_TOKENS" envDefault:"800"`
	CacheTTL    time.Duration `env:"OPENAI_CACHE_TTL" envDefault:"24h"`
}

// MailOptions configures the transactional email API. Token credentials are
// exchanged with the client credentials flow when TokenURL is set; otherwise
// APIKey is sent as a bearer token.
type MailOptions struct {
	Enabled      bool   `env:"EMAIL_ENABLED" envDefault:"false"`
	URL          string `env:"EMAIL_API_URL"`
	APIKey       string `env:"EMAIL_API_KEY"`
	TokenURL     string `env:"EMAIL_TOKEN_URL"`
	ClientID     string `env:"EMAIL_CLIENT_ID"`
	ClientSecret string `env:"EMAIL_CLIENT_SECRET"`
	Scopes       string `env:"EMAIL_SCOPES"`
	From         string `env:"EMAIL_FROM" envDefault:"accounts@example.co.uk"`
}

func (o *MailOptions) Validate() error {
	if !o.Enabled {
		return nil
	}
	if o.URL == "" {
		return fmt.Errorf("EMAIL_API_URL is required when EMAIL_ENABLED=true")
	}
	if o.APIKey == "" && o.TokenURL == "" {
		return fmt.Errorf("either EMAIL_API_KEY or EMAIL_TOKEN_URL is required when EMAIL_ENABLED=true")
	}
	return nil
}

// PostOptions configures the direct mail (printed letter) API.
type PostOptions struct {
	Enabled bool   `env:"POST_ENABLED" envDefault:"false"`
	URL     string `env:"POST_API_URL"`
	APIKey  string `env:"POST_API_KEY"`
	Test    bool   `env:"POST_TEST_MODE" envDefault:"true"`
}

func (o *PostOptions) Validate() error {
	if o.Enabled && (o.URL == "" || o.APIKey == "") {
		return fmt.Errorf("POST_API_URL and POST_API_KEY are required when POST_ENABLED=true")
	}
	return nil
}

type RemindersOptions struct {
	DispatcherEnabled bool          `env:"REMINDERS_DISPATCHER_ENABLED" envDefault:"true"`
	PollInterval      time.Duration `env:"REMINDERS_POLL_INTERVAL" envDefault:"30s"`
	BatchSize         int           `env:"REMINDERS_BATCH_SIZE" envDefault:"50"`
	MaxAttempts       int           `env:"REMINDERS_MAX_ATTEMPTS" envDefault:"8"`
	SendTimeout       time.Duration `env:"REMINDERS_SEND_TIMEOUT" envDefault:"30s"`
	LeadTimes         string        `env:"REMINDERS_LEAD_DAYS" envDefault:"30,7"`
	// SendHour is the UTC hour seeded reminders become due.
	SendHour     int           `env:"REMINDERS_SEND_HOUR" envDefault:"9"`
	SingleActive bool          `env:"REMINDERS_SINGLE_ACTIVE" envDefault:"true"`
	MaxBackoff   time.Duration `env:"REMINDERS_MAX_BACKOFF" envDefault:"1h"`
	Retention    time.Duration `env:"REMINDERS_RETENTION" envDefault:"2160h"`
}

func (o *RemindersOptions) Validate() error {
	if o.BatchSize <= 0 {
		return fmt.Errorf("REMINDERS_BATCH_SIZE must be positive, got %d", o.BatchSize)
	}
	if o.MaxAttempts <= 0 {
		return fmt.Errorf("REMINDERS_MAX_ATTEMPTS must be positive, got %d", o.MaxAttempts)
	}
	if o.SendHour < 0 || o.SendHour > 23 {
		return fmt.Errorf("REMINDERS_SEND_HOUR must be within 0..23, got %d", o.SendHour)
	}
	_, err := o.LeadDays()
	return err
}

// LeadDays parses LeadTimes into whole days before a deadline.
func (o *RemindersOptions) LeadDays() ([]int, error) {
	var out []int
	for _, part := range strings.Split(o.LeadTimes, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid REMINDERS_LEAD_DAYS entry %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}

type LokiOptions struct {
	URL     string `env:"LOKI_URL"`
	AppName string `env:"LOKI_APP_NAME" envDefault:"ledgerdesk"`
	LogPath string `env:"LOG_PATH" envDefault:"./logs/app.log"`
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"ledgerdesk"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type RateLimitOptions struct {
	Enabled   bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	GlobalRPS int    `env:"RATE_LIMIT_GLOBAL_RPS" envDefault:"1000"`
	Storage   string `env:"RATE_LIMIT_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL  string `env:"RATE_LIMIT_REDIS_URL"`
}

// Validate checks the rate limit configuration for errors
func (r *RateLimitOptions) Validate() error {
	if r.GlobalRPS < 0 {
		return fmt.Errorf("rate limit GlobalRPS must be non-negative, got %d", r.GlobalRPS)
	}
	if r.GlobalRPS > 1000000 {
		return fmt.Errorf("rate limit GlobalRPS too high, maximum is 1,000,000, got %d", r.GlobalRPS)
	}
	if r.Storage != "memory" && r.Storage != "redis" {
		return fmt.Errorf("rate limit Storage must be 'memory' or 'redis', got '%s'", r.Storage)
	}
	if r.Storage == "redis" && r.RedisURL == "" {
		return fmt.Errorf("rate limit RedisURL is required when Storage is 'redis'")
	}
	return nil
}

type Configuration struct {
	Database      DatabaseOptions
	Supabase      SupabaseOptions
	Import        ImportOptions
	Registry      RegistryOptions
	OpenAI        OpenAIOptions
	Mail          MailOptions
	Post          PostOptions
	Reminders     RemindersOptions
	Loki          LokiOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions
	RateLimit     RateLimitOptions

	RedisURL         string `env:"REDIS_URL" envDefault:"localhost:6379"`
	MigrationsDir    string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	ServerPort       int    `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	Origin           string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	PageSize         int    `env:"PAGE_SIZE" envDefault:"25"`
	MaxPageSize      int    `env:"MAX_PAGE_SIZE" envDefault:"100"`
	MaxUploadSize    int64  `env:"MAX_UPLOAD_SIZE" envDefault:"33554432"`
	MaxUploadMemory  int64  `env:"MAX_UPLOAD_MEMORY" envDefault:"33554432"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	// Looked up on every request; a random uuidv4 is generated when absent.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	RealIPHeader    string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`
	// WebhookSecret authenticates storage webhooks (X-Webhook-Secret).
	WebhookSecret string `env:"WEBHOOK_SECRET"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	return logging.ParseLevel(c.LogLevel)
}

func (c *Configuration) Scheme() string {
	if c.GoAppEnvironment == Production {
		return "https"
	}
	return "http"
}

func Use() *Configuration {
	return singleton()
}

// Validate runs every option group's validation.
func (c *Configuration) Validate() error {
	validators := []struct {
		name string
		fn   func() error
	}{
		{"import", c.Import.Validate},
		{"registry", c.Registry.Validate},
		{"mail", c.Mail.Validate},
		{"post", c.Post.Validate},
		{"reminders", c.Reminders.Validate},
		{"rate limit", c.RateLimit.Validate},
	}
	for _, v := range validators {
		if err := v.fn(); err != nil {
			return fmt.Errorf("%s configuration error: %w", v.name, err)
		}
	}
	if c.GoAppEnvironment == Production && c.WebhookSecret == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required in production")
	}
	return nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.Loki.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}
	return nil
}

// Unload closes the log file.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
