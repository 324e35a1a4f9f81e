package config

// Config mirrors config.yaml. Keys are snake_case and every key can be
// overridden from the environment with the DENTLAB_ prefix.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	// CasbinDatabase holds the policy tables, apart from domain data.
	CasbinDatabase DatabaseConfig `mapstructure:"casbin_database"`
	Redis          RedisConfig    `mapstructure:"redis"`
	Nats           NatsConfig     `mapstructure:"nats"`
	S3             S3Config       `mapstructure:"s3"`

	Authentication AuthenticationConfig `mapstructure:"authentication"`
	Authorization  AuthorizationConfig  `mapstructure:"authorization"`
	Password       PasswordConfig       `mapstructure:"password"`
	OTP            OTPConfig            `mapstructure:"otp"`

	Email EmailConfig `mapstructure:"email"`
	SMS   SMSConfig   `mapstructure:"sms"`

	Cases         CasesConfig         `mapstructure:"cases"`
	Realtime      RealtimeConfig      `mapstructure:"realtime"`
	Phone         PhoneConfig         `mapstructure:"phone"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ---- HTTP ----

type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Environment    string `mapstructure:"environment"` // production turns on helmet and the limiter
	BasePath       string `mapstructure:"base_path"`
	// Databases are created by "system init" when missing.
	Databases []string      `mapstructure:"databases"`
	CORS      CORSConfig    `mapstructure:"cors"`
	Headers   HeadersConfig `mapstructure:"headers"`
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowOrigins     []string `mapstructure:"allow_origins"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
	ExposeHeaders    []string `mapstructure:"expose_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAgeSeconds    int      `mapstructure:"max_age_seconds"`
}

// HeadersConfig feeds the helmet middleware; empty values keep its defaults.
type HeadersConfig struct {
	XSSProtection             string `mapstructure:"xss_protection"`
	ContentTypeNosniff        string `mapstructure:"content_type_nosniff"`
	XFrameOptions             string `mapstructure:"x_frame_options"`
	ReferrerPolicy            string `mapstructure:"referrer_policy"`
	CrossOriginEmbedderPolicy string `mapstructure:"cross_origin_embedder_policy"`
	CrossOriginOpenerPolicy   string `mapstructure:"cross_origin_opener_policy"`
	CrossOriginResourcePolicy string `mapstructure:"cross_origin_resource_policy"`
	OriginAgentCluster        string `mapstructure:"origin_agent_cluster"`
	XDNSPrefetchControl       string `mapstructure:"x_dns_prefetch_control"`
	XDownloadOptions          string `mapstructure:"x_download_options"`
	XPermittedCrossDomain     string `mapstructure:"x_permitted_cross_domain"`
}

// ---- storage and transport ----

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Pool     struct {
		MaxOpenConns       int `mapstructure:"max_open_conns"`
		MaxIdleConns       int `mapstructure:"max_idle_conns"`
		ConnMaxLifetimeMin int `mapstructure:"conn_max_lifetime_minutes"`
	} `mapstructure:"pool"`
	// Logging reports statements slower than the threshold, and failures.
	Logging struct {
		Enabled              bool `mapstructure:"enabled"`
		SlowQueryThresholdMs int  `mapstructure:"slow_query_threshold_ms"`
	} `mapstructure:"logging"`
}

type RedisConfig struct {
	Addr                string `mapstructure:"addr"`
	DB                  int    `mapstructure:"db"`
	Username            string `mapstructure:"username"`
	Password            string `mapstructure:"password"`
	PoolSize            int    `mapstructure:"pool_size"`
	MinIdleConns        int    `mapstructure:"min_idle_conns"`
	DialTimeoutSeconds  int    `mapstructure:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
}

// NatsConfig with an empty URL keeps realtime fan-out inside the process.
type NatsConfig struct {
	URL string `mapstructure:"url"`
}

// S3Config points at any S3-compatible store (MinIO, Arvan, AWS).
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	PresignTTLSec   int    `mapstructure:"presign_ttl_sec"`
	PublicBaseURL   string `mapstructure:"public_base_url"` // stored URLs start with it
	MaxUploadMB     int    `mapstructure:"max_upload_mb"`
}

// ---- identity ----

type AuthenticationConfig struct {
	DefaultPasswordLength int          `mapstructure:"default_password_length"`
	OTPTTLMinutes         int          `mapstructure:"otp_ttl_minutes"`
	OTPMaxAttempts        int          `mapstructure:"otp_max_attempts"`
	OTPLockoutMinutes     int          `mapstructure:"otp_lockout_minutes"`
	ResetTokenTTLMinutes  int          `mapstructure:"reset_token_ttl_minutes"`
	Paseto                PasetoConfig `mapstructure:"paseto"`
	Cookie                CookieConfig `mapstructure:"cookie"`
}

// PasetoConfig selects v4.local (LocalKeyHex) or v4.public (SecretKeyHex,
// or PublicKeyHex alone for verify-only instances).
type PasetoConfig struct {
	Mode             string `mapstructure:"mode"`
	LocalKeyHex      string `mapstructure:"local_key_hex"`
	SecretKeyHex     string `mapstructure:"secret_key_hex"`
	PublicKeyHex     string `mapstructure:"public_key_hex"`
	Issuer           string `mapstructure:"issuer"`
	Audience         string `mapstructure:"audience"`
	AccessTTLMinutes int    `mapstructure:"access_ttl_minutes"`
	RefreshTTLDays   int    `mapstructure:"refresh_ttl_days"`
}

type CookieConfig struct {
	Domain   string `mapstructure:"domain"`
	Secure   bool   `mapstructure:"secure"`
	SameSite string `mapstructure:"same_site"`
}

type AuthorizationConfig struct {
	CasbinModelPath    string `mapstructure:"casbin_model_path"`
	EnableAudit        bool   `mapstructure:"enable_audit"`
	SuperadminBypass   bool   `mapstructure:"superadmin_bypass"`
	PolicySyncEnabled  bool   `mapstructure:"policy_sync_enabled"`
	HealthCheckEnabled bool   `mapstructure:"health_check_enabled"` // readiness fails after a bad reload
}

// PasswordConfig tunes argon2id. LowMemoryMode swaps in cheaper parameters
// for small containers.
type PasswordConfig struct {
	Algorithm     string `mapstructure:"algorithm"`
	MemoryKiB     uint32 `mapstructure:"memory_kib"`
	Iterations    uint32 `mapstructure:"iterations"`
	Parallelism   uint8  `mapstructure:"parallelism"`
	SaltLength    uint32 `mapstructure:"salt_length"`
	KeyLength     uint32 `mapstructure:"key_length"`
	LowMemoryMode bool   `mapstructure:"low_memory_mode"`
}

type OTPConfig struct {
	DefaultLength int `mapstructure:"default_length"`
	MinLength     int `mapstructure:"min_length"`
	MaxLength     int `mapstructure:"max_length"`
}

// ---- outbound notifications ----

type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	From     string `mapstructure:"from"`
	LoginURL string `mapstructure:"login_url"` // linked from credential mails
	SMTP     struct {
		Host           string `mapstructure:"host"`
		Port           int    `mapstructure:"port"`
		Username       string `mapstructure:"username"`
		Password       string `mapstructure:"password"`
		UseTLS         bool   `mapstructure:"use_tls"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"smtp"`
}

type SMSConfig struct {
	Enabled bool `mapstructure:"enabled"`
	SMSIR   SMSIRConfig `mapstructure:"smsir"`
}

type SMSIRConfig struct {
	APIKey             string `mapstructure:"api_key"`
	SecretKey          string `mapstructure:"secret_key"`
	TemplateID         string `mapstructure:"template_id"`          // reset code
	AssignedTemplateID string `mapstructure:"assigned_template_id"` // technician assignment
}

// ---- lab domain ----

// CasesConfig drives the archival sweeper and case listing rules.
type CasesConfig struct {
	SweepSchedule         string `mapstructure:"sweep_schedule"` // cron spec, minute resolution
	SweepTimezone         string `mapstructure:"sweep_timezone"`
	CompletedArchiveDays  int    `mapstructure:"completed_archive_days"`
	ApprovedArchiveDays   int    `mapstructure:"approved_archive_days"`
	SweepOnArchiveRead    bool   `mapstructure:"sweep_on_archive_read"`
	PublicSearch          bool   `mapstructure:"public_search"`
	NotifyTechnicianBySMS bool   `mapstructure:"notify_technician_by_sms"`
}

type RealtimeConfig struct {
	AllowedOrigins      []string `mapstructure:"allowed_origins"`
	SendBuffer          int      `mapstructure:"send_buffer"`
	PingIntervalSeconds int      `mapstructure:"ping_interval_seconds"`
	PresenceTTLMinutes  int      `mapstructure:"presence_ttl_minutes"`
}

// PhoneConfig is the region used to parse numbers written without a
// country code.
type PhoneConfig struct {
	DefaultRegion string `mapstructure:"default_region"`
}

// ---- observability ----

type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
	Output struct {
		Stdout bool          `mapstructure:"stdout"`
		File   FileLogConfig `mapstructure:"file"`
		Loki   LokiConfig    `mapstructure:"loki"`
	} `mapstructure:"output"`
}

// FileLogConfig is handed to lumberjack.
type FileLogConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type LokiConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Username string `mapstructure:"username"` // basic auth, optional
	Password string `mapstructure:"password"`
}

type ObservabilityConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	Tracing        struct {
		Enabled      bool    `mapstructure:"enabled"`
		OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
		OTLPInsecure bool    `mapstructure:"otlp_insecure"`
		SamplingRate float64 `mapstructure:"sampling_rate"`
	} `mapstructure:"tracing"`
	Metrics struct {
		Enabled bool   `mapstructure:"enabled"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"metrics"`
}
