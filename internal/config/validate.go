package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "server.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Server.Port),
		})
	}

	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Server.Bind != "" && !slices.Contains(validBinds, cfg.Server.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "server.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Server.Bind),
		})
	}

	validBackends := []string{"gmail", "imap"}
	if cfg.Mail.Backend != "" && !slices.Contains(validBackends, cfg.Mail.Backend) {
		issues = append(issues, ValidationIssue{
			Path:    "mail.backend",
			Message: fmt.Sprintf("must be one of %v, got %q", validBackends, cfg.Mail.Backend),
		})
	}
	if cfg.Mail.Backend == "imap" {
		if cfg.Mail.IMAP == nil {
			issues = append(issues, ValidationIssue{
				Path:    "mail.imap",
				Message: "required when mail.backend is imap",
			})
		} else {
			if cfg.Mail.IMAP.Server == "" {
				issues = append(issues, ValidationIssue{Path: "mail.imap.server", Message: "server is required"})
			}
			if cfg.Mail.IMAP.Username == "" {
				issues = append(issues, ValidationIssue{Path: "mail.imap.username", Message: "username is required"})
			}
		}
	}

	if cfg.Agent.MaxToolRounds < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "agent.maxToolRounds",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Agent.MaxToolRounds),
		})
	}
	if cfg.Agent.TurnTimeoutSeconds < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "agent.turnTimeoutSeconds",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Agent.TurnTimeoutSeconds),
		})
	}

	if cfg.Ask.TopK < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "ask.topK",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Ask.TopK),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	return issues
}
