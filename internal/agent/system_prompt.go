package agent

import (
	"fmt"
	"strings"
	"time"
)

// PromptConfig controls system prompt generation.
type PromptConfig struct {
	ExtraPrompt string
}

// BuildSystemPrompt constructs the assistant's standing instructions.
func BuildSystemPrompt(cfg PromptConfig) string {
	var b strings.Builder

	b.WriteString("You are a virtual executive assistant that helps schedule meetings, ")
	b.WriteString("send and read emails, and manage the calendar using the connected accounts. ")
	b.WriteString("When a user asks you to schedule a meeting, call the 'schedule_meeting' function ")
	b.WriteString("with appropriate parameters. When asked to send an email, call 'send_email'. ")
	b.WriteString("Use 'read_emails', 'read_calendar', and 'edit_calendar' for the corresponding requests. ")
	b.WriteString("Use clear, concise language.\n\n")

	b.WriteString(fmt.Sprintf("Current date: %s\n", time.Now().Format("2006-01-02")))

	if cfg.ExtraPrompt != "" {
		b.WriteString("\n")
		b.WriteString(cfg.ExtraPrompt)
		b.WriteString("\n")
	}

	return b.String()
}
