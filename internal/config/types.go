package config

// Config is the root configuration for the attaché service.
type Config struct {
	OpenAI  OpenAIConfig  `yaml:"openai,omitempty"`
	Google  GoogleConfig  `yaml:"google,omitempty"`
	Mail    MailConfig    `yaml:"mail,omitempty"`
	Server  ServerConfig  `yaml:"server,omitempty"`
	Agent   AgentConfig   `yaml:"agent,omitempty"`
	Ask     AskConfig     `yaml:"ask,omitempty"`
	Store   StoreConfig   `yaml:"store,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// OpenAIConfig selects the model provider backing conversations and media.
type OpenAIConfig struct {
	APIKey         string `yaml:"apiKey,omitempty"` // supports ${ENV_VAR} references
	BaseURL        string `yaml:"baseUrl,omitempty"`
	Model          string `yaml:"model,omitempty"`
	EmbeddingModel string `yaml:"embeddingModel,omitempty"`
}

// GoogleConfig holds the OAuth client used for calendar and Gmail access.
// User tokens themselves live in the database, not in config.
type GoogleConfig struct {
	ClientID     string `yaml:"clientId,omitempty"`
	ClientSecret string `yaml:"clientSecret,omitempty"` // supports ${ENV_VAR} references
}

// MailConfig selects the mail backend.
type MailConfig struct {
	Backend string      `yaml:"backend,omitempty"` // "gmail" | "imap"
	IMAP    *IMAPConfig `yaml:"imap,omitempty"`
}

// IMAPConfig configures the read-only IMAP mail backend.
type IMAPConfig struct {
	Server   string `yaml:"server"`
	Port     int    `yaml:"port,omitempty"`
	Username string `yaml:"username"`
	Password string `yaml:"password,omitempty"` // supports ${ENV_VAR} references
	UseTLS   bool   `yaml:"useTLS,omitempty"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port,omitempty"`
	Bind           string   `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string   `yaml:"customBindHost,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
	AuthToken      string   `yaml:"authToken,omitempty"` // supports ${ENV_VAR} references
}

// AgentConfig bounds the agent loop.
type AgentConfig struct {
	MaxToolRounds      int `yaml:"maxToolRounds,omitempty"`
	TurnTimeoutSeconds int `yaml:"turnTimeoutSeconds,omitempty"`
	PollIntervalMs     int `yaml:"pollIntervalMs,omitempty"`
	ToolTimeoutSeconds int `yaml:"toolTimeoutSeconds,omitempty"`
}

// AskConfig tunes the question-answering router.
type AskConfig struct {
	TopK int `yaml:"topK,omitempty"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
}
