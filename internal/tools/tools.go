package tools

import "github.com/attache-hq/attache/internal/agent"

// All assembles the full tool set over the given capabilities.
func All(calendar Calendar, sender Sender, inbox Inbox) []agent.Tool {
	return []agent.Tool{
		&ScheduleMeeting{Calendar: calendar},
		&ReadCalendar{Calendar: calendar},
		&EditCalendar{Calendar: calendar},
		&SendEmail{Sender: sender},
		&ReadEmails{Inbox: inbox},
	}
}
