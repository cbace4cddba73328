package domain

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ticketNow = time.Date(2024, 3, 1, 10, 30, 0, 123456789, time.FixedZone("CET", 3600))

func TestTicketDecodeDefaults(t *testing.T) {
	ticket, err := TicketSchema{}.Decode(map[string]any{"title": "  Fix login  "}, ticketNow)
	require.NoError(t, err)

	_, parseErr := uuid.Parse(ticket.TicketID)
	assert.NoError(t, parseErr)
	assert.Equal(t, "Fix login", ticket.Title)
	assert.Equal(t, TicketStatusToDo, ticket.Status)
	assert.Equal(t, TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, 0, ticket.Position)
	assert.Equal(t, []string{}, ticket.Tags)
	assert.Nil(t, ticket.Description)
	assert.Nil(t, ticket.DueDate)

	want := time.Date(2024, 3, 1, 9, 30, 0, 123456000, time.UTC)
	assert.True(t, want.Equal(ticket.CreatedAt))
	assert.Equal(t, time.UTC, ticket.CreatedAt.Location())
	assert.Equal(t, ticket.CreatedAt, ticket.UpdatedAt)
}

func TestTicketDecodeIgnoresClientTimestamps(t *testing.T) {
	ticket, err := TicketSchema{}.Decode(map[string]any{
		"title":      "t",
		"created_at": "1999-01-01T00:00:00Z",
		"updated_at": "1999-01-01T00:00:00Z",
	}, ticketNow)
	require.NoError(t, err)
	assert.Equal(t, 2024, ticket.CreatedAt.Year())
	assert.Equal(t, 2024, ticket.UpdatedAt.Year())
}

func TestTicketDecodeKeepsClientID(t *testing.T) {
	ticket, err := TicketSchema{}.Decode(map[string]any{"ticket_id": " abc ", "title": "t"}, ticketNow)
	require.NoError(t, err)
	assert.Equal(t, "abc", ticket.TicketID)

	ticket, err = TicketSchema{}.Decode(map[string]any{"ticket_id": "", "title": "t"}, ticketNow)
	require.NoError(t, err)
	assert.NotEmpty(t, ticket.TicketID)
}

func TestTicketDecodeFullSubmission(t *testing.T) {
	ticket, err := TicketSchema{}.Decode(map[string]any{
		"title":       "Deploy",
		"description": "roll out v2",
		"status":      "doing",
		"priority":    "critical",
		"position":    json.Number("3"),
		"due_date":    "2024-05-01",
		"tags":        []any{"ops", "release"},
	}, ticketNow)
	require.NoError(t, err)

	require.NotNil(t, ticket.Description)
	assert.Equal(t, "roll out v2", *ticket.Description)
	assert.Equal(t, TicketStatusDoing, ticket.Status)
	assert.Equal(t, TicketPriorityCritical, ticket.Priority)
	assert.Equal(t, 3, ticket.Position)
	require.NotNil(t, ticket.DueDate)
	assert.Equal(t, "2024-05-01", *ticket.DueDate)
	assert.Equal(t, []string{"ops", "release"}, ticket.Tags)
}

func TestTicketDecodeRules(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value any
		rule  string
	}{
		{"long title", "title", strings.Repeat("x", 256), RuleMaxLength},
		{"blank title", "title", " ", RuleMinLength},
		{"unknown status", "status", "todo", RuleEnum},
		{"abbreviated priority", "priority", "critic", RuleEnum},
		{"fractional position", "position", 2.5, RuleInteger},
		{"fractional number position", "position", json.Number("2.5"), RuleInteger},
		{"string position", "position", "3", RuleType},
		{"huge position", "position", 1e20, RuleInteger},
		{"huge number position", "position", json.Number("1e20"), RuleInteger},
		{"position above column range", "position", json.Number("3000000000"), RuleInteger},
		{"position below column range", "position", int64(-3000000000), RuleInteger},
		{"bad due date", "due_date", "2024-13-01", RuleFormat},
		{"free text due date", "due_date", "tomorrow", RuleFormat},
		{"non string tags", "tags", []any{"ok", 1}, RuleType},
		{"tags not a list", "tags", "ops", RuleType},
		{"numeric description", "description", 7, RuleType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := map[string]any{"title": "t", tt.field: tt.value}
			_, err := TicketSchema{}.Decode(fields, ticketNow)
			assert.Equal(t, map[string]string{tt.field: tt.rule}, rulesByField(t, err))
		})
	}
}

func TestTicketDecodeIntegralPositions(t *testing.T) {
	for _, v := range []any{4, int64(4), 4.0, json.Number("4"), json.Number("4.0")} {
		ticket, err := TicketSchema{}.Decode(map[string]any{"title": "t", "position": v}, ticketNow)
		require.NoError(t, err)
		assert.Equal(t, 4, ticket.Position)
	}
}

func TestTicketDecodePositionBounds(t *testing.T) {
	for _, v := range []any{json.Number("2147483647"), json.Number("-2147483648"), float64(math.MaxInt32)} {
		_, err := TicketSchema{}.Decode(map[string]any{"title": "t", "position": v}, ticketNow)
		require.NoError(t, err, "position %v", v)
	}
}

func TestTicketDecodeAcceptsTimestampDueDate(t *testing.T) {
	ticket, err := TicketSchema{}.Decode(map[string]any{"title": "t", "due_date": "2024-05-01T12:00:00Z"}, ticketNow)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T12:00:00Z", *ticket.DueDate)
}

func TestTicketDecodeUpdate(t *testing.T) {
	ticket, err := TicketSchema{}.DecodeUpdate("t-1", map[string]any{
		"ticket_id":  "other",
		"title":      "t",
		"created_at": "1999-01-01T00:00:00Z",
	}, ticketNow)
	require.NoError(t, err)
	assert.Equal(t, "t-1", ticket.TicketID)
	assert.Equal(t, 2024, ticket.UpdatedAt.Year())
}

func TestTicketMergeKeepsCreation(t *testing.T) {
	created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	stored := Ticket{TicketID: "a", CreatedAt: created, UpdatedAt: created}
	incoming := Ticket{TicketID: "b", Title: "new", CreatedAt: ticketNow, UpdatedAt: ticketNow}

	merged := TicketSchema{}.Merge(stored, incoming)
	assert.Equal(t, "a", merged.TicketID)
	assert.Equal(t, created, merged.CreatedAt)
	assert.Equal(t, ticketNow, merged.UpdatedAt)
	assert.Equal(t, "new", merged.Title)
}

func TestTicketOrdering(t *testing.T) {
	s := TicketSchema{}
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	assert.True(t, s.Less(Ticket{Position: 1, CreatedAt: late}, Ticket{Position: 2, CreatedAt: early}))
	assert.True(t, s.Less(Ticket{Position: 1, CreatedAt: early}, Ticket{Position: 1, CreatedAt: late}))
	assert.True(t, s.Less(Ticket{TicketID: "a", CreatedAt: early}, Ticket{TicketID: "b", CreatedAt: early}))
	assert.False(t, s.Less(Ticket{TicketID: "a", CreatedAt: early}, Ticket{TicketID: "a", CreatedAt: early}))
}

func TestTimestampTextSortsChronologically(t *testing.T) {
	a := FormatTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	b := FormatTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 1000, time.UTC))
	assert.Len(t, a, len(b))
	assert.Less(t, a, b)

	parsed, err := ParseTimestamp(b)
	require.NoError(t, err)
	assert.Equal(t, 1000, parsed.Nanosecond())
}
