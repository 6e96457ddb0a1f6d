package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		OpenAI: OpenAIConfig{
			Model:          "gpt-4o",
			EmbeddingModel: "text-embedding-3-small",
		},
		Mail: MailConfig{
			Backend: "gmail",
		},
		Server: ServerConfig{
			Port: 18990,
			Bind: "loopback",
		},
		Agent: AgentConfig{
			MaxToolRounds:      5,
			TurnTimeoutSeconds: 120,
			PollIntervalMs:     500,
			ToolTimeoutSeconds: 30,
		},
		Ask: AskConfig{
			TopK: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
