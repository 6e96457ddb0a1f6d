package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so keys and passwords can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.OpenAI.APIKey = expandEnvVars(cfg.OpenAI.APIKey)
	cfg.Google.ClientSecret = expandEnvVars(cfg.Google.ClientSecret)
	cfg.Server.AuthToken = expandEnvVars(cfg.Server.AuthToken)
	if cfg.Mail.IMAP != nil {
		cfg.Mail.IMAP.Password = expandEnvVars(cfg.Mail.IMAP.Password)
	}
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
// Needed after unmarshalling because YAML zeroes absent sections.
func applyDefaults(cfg *Config) {
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-4o"
	}
	if cfg.OpenAI.EmbeddingModel == "" {
		cfg.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.Mail.Backend == "" {
		cfg.Mail.Backend = "gmail"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 18990
	}
	if cfg.Server.Bind == "" {
		cfg.Server.Bind = "loopback"
	}
	if cfg.Agent.MaxToolRounds == 0 {
		cfg.Agent.MaxToolRounds = 5
	}
	if cfg.Agent.TurnTimeoutSeconds == 0 {
		cfg.Agent.TurnTimeoutSeconds = 120
	}
	if cfg.Agent.PollIntervalMs == 0 {
		cfg.Agent.PollIntervalMs = 500
	}
	if cfg.Agent.ToolTimeoutSeconds == 0 {
		cfg.Agent.ToolTimeoutSeconds = 30
	}
	if cfg.Ask.TopK == 0 {
		cfg.Ask.TopK = 5
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// applyEnvOverrides reads ATTACHE_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ATTACHE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ATTACHE_SERVER_BIND"); v != "" {
		cfg.Server.Bind = v
	}
	if v := os.Getenv("ATTACHE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("ATTACHE_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Google.ClientID == "" {
		cfg.Google.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if cfg.Google.ClientSecret == "" {
		cfg.Google.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
}
