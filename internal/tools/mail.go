package tools

import (
	"context"
	"encoding/json"
	"net/mail"

	"github.com/attache-hq/attache/internal/agent"
)

// EmailSummary is one inbox entry as presented to the model.
type EmailSummary struct {
	Subject string `json:"subject"`
	Snippet string `json:"snippet"`
}

// Sender sends an email and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) (string, error)
}

// Inbox lists unread messages. Both the Gmail and the IMAP backend satisfy it.
type Inbox interface {
	ListUnread(ctx context.Context, maxResults int) ([]EmailSummary, error)
}

const sendEmailSchema = `{
	"type": "object",
	"properties": {
		"recipient": {"type": "string", "description": "Recipient email address"},
		"subject": {"type": "string", "description": "Email subject"},
		"body": {"type": "string", "description": "Email body content"}
	},
	"required": ["recipient", "subject", "body"]
}`

// SendEmail sends a plain-text email on the user's behalf.
type SendEmail struct {
	Sender Sender
}

func (t *SendEmail) Name() string        { return "send_email" }
func (t *SendEmail) Description() string { return "Send an email via the Gmail API." }
func (t *SendEmail) Parameters() json.RawMessage {
	return json.RawMessage(sendEmailSchema)
}

func (t *SendEmail) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Recipient string `json:"recipient"`
		Subject   string `json:"subject"`
		Body      string `json:"body"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, agent.NewArgumentError("parsing arguments: %v", err)
	}
	if in.Recipient == "" || in.Subject == "" || in.Body == "" {
		return nil, agent.NewArgumentError("recipient, subject and body are required")
	}
	if _, err := mail.ParseAddress(in.Recipient); err != nil {
		return nil, agent.NewArgumentError("recipient is not a valid email address: %v", err)
	}

	id, err := t.Sender.Send(ctx, in.Recipient, in.Subject, in.Body)
	if err != nil {
		return nil, err
	}
	return map[string]string{"id": id, "status": "sent"}, nil
}

const readEmailsSchema = `{
	"type": "object",
	"properties": {
		"max_results": {
			"type": "number",
			"description": "Maximum number of emails to return (default is 5)"
		}
	},
	"required": []
}`

// ReadEmails lists unread inbox messages.
type ReadEmails struct {
	Inbox Inbox
}

func (t *ReadEmails) Name() string        { return "read_emails" }
func (t *ReadEmails) Description() string { return "Read unread emails from the Gmail inbox." }
func (t *ReadEmails) Parameters() json.RawMessage {
	return json.RawMessage(readEmailsSchema)
}

func (t *ReadEmails) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	max, err := maxResultsArg(args, 5)
	if err != nil {
		return nil, err
	}
	return t.Inbox.ListUnread(ctx, max)
}
