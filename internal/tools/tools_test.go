package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attache-hq/attache/internal/agent"
)

// fakeCalendar records calls and plays back canned responses.
type fakeCalendar struct {
	created   []Event
	patched   map[string]EventPatch
	listErr   error
	upcoming  []Event
	lastMaxed int
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, event Event) (Event, error) {
	f.created = append(f.created, event)
	event.ID = "evt-1"
	return event, nil
}

func (f *fakeCalendar) ListUpcoming(ctx context.Context, maxResults int) ([]Event, error) {
	f.lastMaxed = maxResults
	return f.upcoming, f.listErr
}

func (f *fakeCalendar) PatchEvent(ctx context.Context, eventID string, patch EventPatch) (Event, error) {
	if f.patched == nil {
		f.patched = map[string]EventPatch{}
	}
	f.patched[eventID] = patch
	return Event{ID: eventID}, nil
}

type fakeSender struct {
	to, subject, body string
	err               error
}

func (f *fakeSender) Send(ctx context.Context, recipient, subject, body string) (string, error) {
	f.to, f.subject, f.body = recipient, subject, body
	return "msg-1", f.err
}

type fakeInbox struct {
	summaries []EmailSummary
	lastMax   int
}

func (f *fakeInbox) ListUnread(ctx context.Context, maxResults int) ([]EmailSummary, error) {
	f.lastMax = maxResults
	return f.summaries, nil
}

func isArgumentError(err error) bool {
	var argErr *agent.ArgumentError
	return errors.As(err, &argErr)
}

func TestScheduleMeeting_Valid(t *testing.T) {
	cal := &fakeCalendar{}
	tool := &ScheduleMeeting{Calendar: cal}

	out, err := tool.Invoke(context.Background(), json.RawMessage(`{
		"meeting_title": "Quarterly review",
		"start_time": "2026-09-01T14:00:00Z",
		"end_time": "2026-09-01T15:00:00Z",
		"attendees": ["a@example.com"],
		"location": "Room 4"
	}`))
	require.NoError(t, err)

	event, ok := out.(Event)
	require.True(t, ok)
	assert.Equal(t, "evt-1", event.ID)

	require.Len(t, cal.created, 1)
	assert.Equal(t, "Quarterly review", cal.created[0].Title)
	assert.Equal(t, []string{"a@example.com"}, cal.created[0].Attendees)
	assert.Equal(t, "Room 4", cal.created[0].Location)
}

func TestScheduleMeeting_MissingRequired(t *testing.T) {
	tool := &ScheduleMeeting{Calendar: &fakeCalendar{}}

	_, err := tool.Invoke(context.Background(), json.RawMessage(`{"meeting_title": "No times"}`))
	require.Error(t, err)
	assert.True(t, isArgumentError(err))
}

func TestScheduleMeeting_BadTimestamp(t *testing.T) {
	tool := &ScheduleMeeting{Calendar: &fakeCalendar{}}

	_, err := tool.Invoke(context.Background(), json.RawMessage(`{
		"meeting_title": "Sync",
		"start_time": "tomorrow at noon",
		"end_time": "2026-09-01T15:00:00Z"
	}`))
	require.Error(t, err)
	assert.True(t, isArgumentError(err))
}

func TestReadCalendar_DefaultMax(t *testing.T) {
	cal := &fakeCalendar{upcoming: []Event{{Title: "standup"}}}
	tool := &ReadCalendar{Calendar: cal}

	out, err := tool.Invoke(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 10, cal.lastMaxed)
	assert.Len(t, out, 1)
}

func TestReadCalendar_ExplicitMax(t *testing.T) {
	cal := &fakeCalendar{}
	tool := &ReadCalendar{Calendar: cal}

	_, err := tool.Invoke(context.Background(), json.RawMessage(`{"max_results": 3}`))
	require.NoError(t, err)
	assert.Equal(t, 3, cal.lastMaxed)
}

func TestReadCalendar_NegativeMax(t *testing.T) {
	tool := &ReadCalendar{Calendar: &fakeCalendar{}}

	_, err := tool.Invoke(context.Background(), json.RawMessage(`{"max_results": -1}`))
	require.Error(t, err)
	assert.True(t, isArgumentError(err))
}

func TestEditCalendar_PartialPatch(t *testing.T) {
	cal := &fakeCalendar{}
	tool := &EditCalendar{Calendar: cal}

	_, err := tool.Invoke(context.Background(), json.RawMessage(`{
		"event_id": "evt-9",
		"updates": {"summary": "Renamed", "location": "Offsite"}
	}`))
	require.NoError(t, err)

	patch := cal.patched["evt-9"]
	require.NotNil(t, patch.Summary)
	assert.Equal(t, "Renamed", *patch.Summary)
	require.NotNil(t, patch.Location)
	assert.Equal(t, "Offsite", *patch.Location)
	assert.Nil(t, patch.StartTime)
	assert.Nil(t, patch.EndTime)
}

func TestEditCalendar_MissingUpdates(t *testing.T) {
	tool := &EditCalendar{Calendar: &fakeCalendar{}}

	_, err := tool.Invoke(context.Background(), json.RawMessage(`{"event_id": "evt-9"}`))
	require.Error(t, err)
	assert.True(t, isArgumentError(err))
}

func TestSendEmail_Valid(t *testing.T) {
	sender := &fakeSender{}
	tool := &SendEmail{Sender: sender}

	out, err := tool.Invoke(context.Background(), json.RawMessage(`{
		"recipient": "boss@example.com",
		"subject": "Update",
		"body": "All on track."
	}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"id": "msg-1", "status": "sent"}, out)
	assert.Equal(t, "boss@example.com", sender.to)
}

func TestSendEmail_BadAddress(t *testing.T) {
	tool := &SendEmail{Sender: &fakeSender{}}

	_, err := tool.Invoke(context.Background(), json.RawMessage(`{
		"recipient": "not an address",
		"subject": "x",
		"body": "y"
	}`))
	require.Error(t, err)
	assert.True(t, isArgumentError(err))
}

func TestReadEmails_DefaultMax(t *testing.T) {
	inbox := &fakeInbox{summaries: []EmailSummary{{Subject: "hello"}}}
	tool := &ReadEmails{Inbox: inbox}

	out, err := tool.Invoke(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 5, inbox.lastMax)
	assert.Len(t, out, 1)
}

func TestAll_RegistersCleanly(t *testing.T) {
	catalog := agent.NewCatalog()
	for _, tool := range All(&fakeCalendar{}, &fakeSender{}, &fakeInbox{}) {
		require.NoError(t, catalog.Register(tool))
	}
	assert.Equal(t, 5, catalog.Len())

	names := make([]string, 0, 5)
	for _, spec := range catalog.Specs() {
		names = append(names, spec.Name)
	}
	assert.Equal(t, []string{"edit_calendar", "read_calendar", "read_emails", "schedule_meeting", "send_email"}, names)
}
