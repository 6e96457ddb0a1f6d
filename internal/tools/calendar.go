// Package tools holds the assistant's tool catalog entries. Each tool pairs
// a JSON-schema definition with argument validation and delegates the actual
// work to a capability interface, so the catalog stays testable without
// live accounts.
package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/attache-hq/attache/internal/agent"
)

// Event is a calendar event as the assistant sees it.
type Event struct {
	ID        string   `json:"id,omitempty"`
	Title     string   `json:"summary"`
	Start     string   `json:"start"`
	End       string   `json:"end,omitempty"`
	Location  string   `json:"location,omitempty"`
	Attendees []string `json:"attendees,omitempty"`
	Link      string   `json:"htmlLink,omitempty"`
}

// EventPatch is a partial update to an existing event. Nil fields are left
// untouched.
type EventPatch struct {
	Summary   *string
	StartTime *string
	EndTime   *string
	Location  *string
}

// Calendar is the calendar capability the tools delegate to.
type Calendar interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	ListUpcoming(ctx context.Context, maxResults int) ([]Event, error)
	PatchEvent(ctx context.Context, eventID string, patch EventPatch) (Event, error)
}

const scheduleMeetingSchema = `{
	"type": "object",
	"properties": {
		"meeting_title": {"type": "string", "description": "Title of the meeting"},
		"start_time": {"type": "string", "description": "Start time in ISO 8601 format"},
		"end_time": {"type": "string", "description": "End time in ISO 8601 format"},
		"attendees": {
			"type": "array",
			"items": {"type": "string"},
			"description": "Optional list of attendee email addresses"
		},
		"location": {"type": "string", "description": "Optional meeting location"}
	},
	"required": ["meeting_title", "start_time", "end_time"]
}`

// ScheduleMeeting creates a calendar event from the model's parameters.
type ScheduleMeeting struct {
	Calendar Calendar
}

func (t *ScheduleMeeting) Name() string        { return "schedule_meeting" }
func (t *ScheduleMeeting) Description() string { return "Schedule a meeting in Google Calendar." }
func (t *ScheduleMeeting) Parameters() json.RawMessage {
	return json.RawMessage(scheduleMeetingSchema)
}

func (t *ScheduleMeeting) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		MeetingTitle string   `json:"meeting_title"`
		StartTime    string   `json:"start_time"`
		EndTime      string   `json:"end_time"`
		Attendees    []string `json:"attendees"`
		Location     string   `json:"location"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, agent.NewArgumentError("parsing arguments: %v", err)
	}
	if in.MeetingTitle == "" || in.StartTime == "" || in.EndTime == "" {
		return nil, agent.NewArgumentError("meeting_title, start_time and end_time are required")
	}
	if _, err := time.Parse(time.RFC3339, in.StartTime); err != nil {
		return nil, agent.NewArgumentError("start_time is not ISO 8601: %v", err)
	}
	if _, err := time.Parse(time.RFC3339, in.EndTime); err != nil {
		return nil, agent.NewArgumentError("end_time is not ISO 8601: %v", err)
	}

	return t.Calendar.CreateEvent(ctx, Event{
		Title:     in.MeetingTitle,
		Start:     in.StartTime,
		End:       in.EndTime,
		Location:  in.Location,
		Attendees: in.Attendees,
	})
}

const readCalendarSchema = `{
	"type": "object",
	"properties": {
		"max_results": {
			"type": "number",
			"description": "Maximum number of events to return (default is 10)"
		}
	},
	"required": []
}`

// ReadCalendar lists upcoming events.
type ReadCalendar struct {
	Calendar Calendar
}

func (t *ReadCalendar) Name() string        { return "read_calendar" }
func (t *ReadCalendar) Description() string { return "Read upcoming events from the Google Calendar." }
func (t *ReadCalendar) Parameters() json.RawMessage {
	return json.RawMessage(readCalendarSchema)
}

func (t *ReadCalendar) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	max, err := maxResultsArg(args, 10)
	if err != nil {
		return nil, err
	}
	return t.Calendar.ListUpcoming(ctx, max)
}

const editCalendarSchema = `{
	"type": "object",
	"properties": {
		"event_id": {"type": "string", "description": "The ID of the event to update"},
		"updates": {
			"type": "object",
			"properties": {
				"summary": {"type": "string", "description": "New title for the event"},
				"start_time": {"type": "string", "description": "New start time in ISO 8601 format"},
				"end_time": {"type": "string", "description": "New end time in ISO 8601 format"},
				"location": {"type": "string", "description": "New location for the event"}
			},
			"required": []
		}
	},
	"required": ["event_id", "updates"]
}`

// EditCalendar applies a partial update to an existing event.
type EditCalendar struct {
	Calendar Calendar
}

func (t *EditCalendar) Name() string        { return "edit_calendar" }
func (t *EditCalendar) Description() string { return "Edit an existing calendar event." }
func (t *EditCalendar) Parameters() json.RawMessage {
	return json.RawMessage(editCalendarSchema)
}

func (t *EditCalendar) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		EventID string `json:"event_id"`
		Updates *struct {
			Summary   *string `json:"summary"`
			StartTime *string `json:"start_time"`
			EndTime   *string `json:"end_time"`
			Location  *string `json:"location"`
		} `json:"updates"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, agent.NewArgumentError("parsing arguments: %v", err)
	}
	if in.EventID == "" {
		return nil, agent.NewArgumentError("event_id is required")
	}
	if in.Updates == nil {
		return nil, agent.NewArgumentError("updates is required")
	}

	return t.Calendar.PatchEvent(ctx, in.EventID, EventPatch{
		Summary:   in.Updates.Summary,
		StartTime: in.Updates.StartTime,
		EndTime:   in.Updates.EndTime,
		Location:  in.Updates.Location,
	})
}

// maxResultsArg extracts the optional max_results number.
func maxResultsArg(args json.RawMessage, def int) (int, error) {
	var in struct {
		MaxResults *float64 `json:"max_results"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return 0, agent.NewArgumentError("parsing arguments: %v", err)
		}
	}
	if in.MaxResults == nil {
		return def, nil
	}
	max := int(*in.MaxResults)
	if max <= 0 {
		return 0, agent.NewArgumentError("max_results must be positive")
	}
	return max, nil
}
