// Package imapmail implements the inbox capability against a plain IMAP
// server, for accounts that are not connected through Google.
package imapmail

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/attache-hq/attache/internal/logging"
	"github.com/attache-hq/attache/internal/tools"
)

// Config holds IMAP connection settings.
type Config struct {
	Server   string
	Port     int
	Username string
	Password string
	UseTLS   bool
}

// Inbox implements tools.Inbox over IMAP. Each call opens a fresh
// connection; the volumes involved do not justify pooling.
type Inbox struct {
	cfg Config
	log *logging.Logger
}

// NewInbox creates an IMAP-backed inbox.
func NewInbox(cfg Config, log *logging.Logger) *Inbox {
	return &Inbox{cfg: cfg, log: log.Sub("imapmail")}
}

func (i *Inbox) connect() (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", i.cfg.Server, i.cfg.Port)

	var c *client.Client
	var err error
	if i.cfg.UseTLS {
		c, err = client.DialTLS(addr, &tls.Config{})
	} else {
		c, err = client.Dial(addr)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}

	if err := c.Login(i.cfg.Username, i.cfg.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	return c, nil
}

// ListUnread fetches envelope data for unseen inbox messages, newest first.
func (i *Inbox) ListUnread(ctx context.Context, maxResults int) ([]tools.EmailSummary, error) {
	c, err := i.connect()
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if _, err := c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("selecting inbox: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("searching unread: %w", err)
	}
	if len(uids) == 0 {
		return []tools.EmailSummary{}, nil
	}
	if len(uids) > maxResults {
		uids = uids[len(uids)-maxResults:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope}, messages)
	}()

	var msgs []*imap.Message
	for msg := range messages {
		msgs = append(msgs, msg)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}

	// Newest first.
	summaries := make([]tools.EmailSummary, 0, len(msgs))
	for j := len(msgs) - 1; j >= 0; j-- {
		msg := msgs[j]
		subject := ""
		snippet := ""
		if msg.Envelope != nil {
			subject = msg.Envelope.Subject
			if len(msg.Envelope.From) > 0 {
				snippet = "From: " + msg.Envelope.From[0].Address()
			}
		}
		summaries = append(summaries, tools.EmailSummary{Subject: subject, Snippet: snippet})
	}

	i.log.Debug().Int("unread", len(summaries)).Msg("listed unread mail")
	return summaries, nil
}
