package google

import (
	"context"
	"fmt"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/attache-hq/attache/internal/tools"
)

const primaryCalendar = "primary"

// Calendar implements tools.Calendar on the Google Calendar API.
type Calendar struct {
	creds *Credentials
}

// NewCalendar creates the calendar capability.
func NewCalendar(creds *Credentials) *Calendar {
	return &Calendar{creds: creds}
}

func (c *Calendar) service(ctx context.Context) (*calendar.Service, error) {
	ts, err := c.creds.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	return svc, nil
}

// CreateEvent inserts a new event into the primary calendar.
func (c *Calendar) CreateEvent(ctx context.Context, event tools.Event) (tools.Event, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return tools.Event{}, err
	}

	location := event.Location
	if location == "" {
		location = "TBD"
	}

	body := &calendar.Event{
		Summary:     event.Title,
		Location:    location,
		Description: "Scheduled by your virtual EA",
		Start:       &calendar.EventDateTime{DateTime: event.Start, TimeZone: "UTC"},
		End:         &calendar.EventDateTime{DateTime: event.End, TimeZone: "UTC"},
		Reminders:   &calendar.EventReminders{UseDefault: true, ForceSendFields: []string{"UseDefault"}},
	}
	for _, email := range event.Attendees {
		body.Attendees = append(body.Attendees, &calendar.EventAttendee{Email: email})
	}

	created, err := svc.Events.Insert(primaryCalendar, body).Context(ctx).Do()
	if err != nil {
		return tools.Event{}, fmt.Errorf("inserting calendar event: %w", err)
	}
	return mapEvent(created), nil
}

// ListUpcoming returns the next events on the primary calendar, soonest first.
func (c *Calendar) ListUpcoming(ctx context.Context, maxResults int) ([]tools.Event, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := svc.Events.List(primaryCalendar).
		TimeMin(now).
		MaxResults(int64(maxResults)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("listing calendar events: %w", err)
	}

	events := make([]tools.Event, 0, len(result.Items))
	for _, item := range result.Items {
		events = append(events, mapEvent(item))
	}
	return events, nil
}

// PatchEvent applies a partial update to an event on the primary calendar.
func (c *Calendar) PatchEvent(ctx context.Context, eventID string, patch tools.EventPatch) (tools.Event, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return tools.Event{}, err
	}

	body := &calendar.Event{}
	if patch.Summary != nil {
		body.Summary = *patch.Summary
	}
	if patch.StartTime != nil {
		body.Start = &calendar.EventDateTime{DateTime: *patch.StartTime, TimeZone: "UTC"}
	}
	if patch.EndTime != nil {
		body.End = &calendar.EventDateTime{DateTime: *patch.EndTime, TimeZone: "UTC"}
	}
	if patch.Location != nil {
		body.Location = *patch.Location
	}

	updated, err := svc.Events.Patch(primaryCalendar, eventID, body).Context(ctx).Do()
	if err != nil {
		return tools.Event{}, fmt.Errorf("patching calendar event: %w", err)
	}
	return mapEvent(updated), nil
}

// mapEvent converts an API event into the tool-facing shape.
func mapEvent(e *calendar.Event) tools.Event {
	out := tools.Event{
		ID:       e.Id,
		Title:    e.Summary,
		Location: e.Location,
		Link:     e.HtmlLink,
	}
	if out.Title == "" {
		out.Title = "No Title"
	}
	if e.Start != nil {
		out.Start = e.Start.DateTime
		if out.Start == "" {
			out.Start = e.Start.Date
		}
	}
	if e.End != nil {
		out.End = e.End.DateTime
		if out.End == "" {
			out.End = e.End.Date
		}
	}
	for _, a := range e.Attendees {
		out.Attendees = append(out.Attendees, a.Email)
	}
	return out
}
