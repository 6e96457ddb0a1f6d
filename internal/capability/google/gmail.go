package google

import (
	"context"
	"encoding/base64"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/attache-hq/attache/internal/tools"
)

const gmailSelf = "me"

// Gmail implements tools.Sender and tools.Inbox on the Gmail API.
type Gmail struct {
	creds *Credentials
}

// NewGmail creates the Gmail capability.
func NewGmail(creds *Credentials) *Gmail {
	return &Gmail{creds: creds}
}

func (g *Gmail) service(ctx context.Context) (*gmail.Service, error) {
	ts, err := g.creds.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}
	return svc, nil
}

// Send delivers a plain-text email from the connected account.
func (g *Gmail) Send(ctx context.Context, recipient, subject, body string) (string, error) {
	svc, err := g.service(ctx)
	if err != nil {
		return "", err
	}

	raw := fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s",
		recipient, subject, body)
	msg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	}

	sent, err := svc.Users.Messages.Send(gmailSelf, msg).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("sending email: %w", err)
	}
	return sent.Id, nil
}

// ListUnread returns subject and snippet for unread inbox messages.
func (g *Gmail) ListUnread(ctx context.Context, maxResults int) ([]tools.EmailSummary, error) {
	svc, err := g.service(ctx)
	if err != nil {
		return nil, err
	}

	list, err := svc.Users.Messages.List(gmailSelf).
		LabelIds("INBOX", "UNREAD").
		MaxResults(int64(maxResults)).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("listing unread emails: %w", err)
	}

	summaries := make([]tools.EmailSummary, 0, len(list.Messages))
	for _, ref := range list.Messages {
		detail, err := svc.Users.Messages.Get(gmailSelf, ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("fetching email %s: %w", ref.Id, err)
		}

		subject := ""
		if detail.Payload != nil {
			for _, h := range detail.Payload.Headers {
				if h.Name == "Subject" {
					subject = h.Value
					break
				}
			}
		}
		summaries = append(summaries, tools.EmailSummary{
			Subject: subject,
			Snippet: detail.Snippet,
		})
	}
	return summaries, nil
}
