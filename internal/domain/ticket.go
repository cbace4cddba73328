package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TicketStatus enumerates workflow columns for tickets.
type TicketStatus string

const (
	TicketStatusToDo    TicketStatus = "to do"
	TicketStatusDoing   TicketStatus = "doing"
	TicketStatusDone    TicketStatus = "done"
	TicketStatusBlocked TicketStatus = "blocked"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

var (
	TicketStatuses   = []TicketStatus{TicketStatusToDo, TicketStatusDoing, TicketStatusDone, TicketStatusBlocked}
	TicketPriorities = []TicketPriority{TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical}
)

const (
	ticketTitleMaxLen = 255
	dateLayout        = "2006-01-02"

	// TimestampLayout is the fixed-width ISO-8601 form used when timestamps are
	// stored as text, so lexical order matches chronological order.
	TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Ticket is a work item ordered on a board by position.
type Ticket struct {
	TicketID    string         `json:"ticket_id" dynamodbav:"ticket_id"`
	Title       string         `json:"title" dynamodbav:"title"`
	Description *string        `json:"description" dynamodbav:"description"`
	Status      TicketStatus   `json:"status" dynamodbav:"status"`
	Priority    TicketPriority `json:"priority" dynamodbav:"priority"`
	Position    int            `json:"position" dynamodbav:"position"`
	CreatedAt   time.Time      `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" dynamodbav:"updated_at"`
	DueDate     *string        `json:"due_date" dynamodbav:"due_date"`
	Tags        []string       `json:"tags" dynamodbav:"tags"`
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts TimestampLayout or any RFC 3339 value.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// TicketSchema describes ticket records.
type TicketSchema struct{}

var _ Schema[Ticket] = TicketSchema{}

func (TicketSchema) Resource() string { return "ticket" }

func (TicketSchema) KeyField() string { return "ticket_id" }

func (TicketSchema) NormalizeKey(id string) string { return strings.TrimSpace(id) }

func (TicketSchema) Key(t Ticket) string { return t.TicketID }

// Decode validates a ticket submission, filling server-assigned fields.
// Client supplied timestamps are ignored.
func (TicketSchema) Decode(fields map[string]any, now time.Time) (Ticket, error) {
	v := newValidator(fields)
	now = normalizeTime(now)
	ticket := Ticket{CreatedAt: now, UpdatedAt: now, Tags: []string{}}

	if id, ok := v.optionalString("ticket_id"); ok && id != nil {
		ticket.TicketID = strings.TrimSpace(*id)
	}
	if ticket.TicketID == "" {
		ticket.TicketID = uuid.NewString()
	}

	ticket.Title = v.text("title", ticketTitleMaxLen)
	if desc, ok := v.optionalString("description"); ok {
		ticket.Description = desc
	}

	statuses := make([]string, len(TicketStatuses))
	for i, s := range TicketStatuses {
		statuses[i] = string(s)
	}
	ticket.Status = TicketStatus(v.enum("status", statuses, string(TicketStatusToDo)))

	priorities := make([]string, len(TicketPriorities))
	for i, p := range TicketPriorities {
		priorities[i] = string(p)
	}
	ticket.Priority = TicketPriority(v.enum("priority", priorities, string(TicketPriorityMedium)))

	ticket.Position = v.integer("position", 0)

	if due, ok := v.optionalString("due_date"); ok && due != nil {
		trimmed := strings.TrimSpace(*due)
		if !isDate(trimmed) {
			v.fail("due_date", RuleFormat, "must be an ISO-8601 date (YYYY-MM-DD) or RFC 3339 timestamp")
		}
		ticket.DueDate = &trimmed
	}

	ticket.Tags = v.stringList("tags")

	if err := v.err(); err != nil {
		return Ticket{}, err
	}
	return ticket, nil
}

// DecodeUpdate decodes a replacement body; the path id always wins and the
// body's timestamps are dropped.
func (s TicketSchema) DecodeUpdate(id string, fields map[string]any, now time.Time) (Ticket, error) {
	body := withoutFields(fields, "ticket_id", "created_at", "updated_at")
	body["ticket_id"] = id
	return s.Decode(body, now)
}

// Merge keeps identity and creation time of the stored ticket.
func (TicketSchema) Merge(stored, incoming Ticket) Ticket {
	incoming.TicketID = stored.TicketID
	incoming.CreatedAt = stored.CreatedAt
	return incoming
}

// Less orders tickets by position, then creation time, then id.
func (TicketSchema) Less(a, b Ticket) bool {
	if a.Position != b.Position {
		return a.Position < b.Position
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.TicketID < b.TicketID
}

func isDate(s string) bool {
	if _, err := time.Parse(dateLayout, s); err == nil {
		return true
	}
	_, err := time.Parse(time.RFC3339Nano, s)
	return err == nil
}

// integer reads a whole number that fits the 32-bit position column.
func (v *validator) integer(name string, def int) int {
	raw, ok := v.lookup(name)
	if !ok {
		return def
	}
	var f float64
	switch n := raw.(type) {
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			f = float64(i)
		} else if parsed, err := n.Float64(); err == nil {
			f = parsed
		} else {
			v.fail(name, RuleInteger, "must be an integer")
			return def
		}
	default:
		v.fail(name, RuleType, "must be an integer")
		return def
	}
	if math.IsInf(f, 0) || f != math.Trunc(f) {
		v.fail(name, RuleInteger, "must be an integer")
		return def
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		v.fail(name, RuleInteger, fmt.Sprintf("must be between %d and %d", math.MinInt32, math.MaxInt32))
		return def
	}
	return int(f)
}

func (v *validator) stringList(name string) []string {
	raw, ok := v.lookup(name)
	if !ok {
		return []string{}
	}
	switch list := raw.(type) {
	case []string:
		return append([]string{}, list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, el := range list {
			s, ok := el.(string)
			if !ok {
				v.fail(name, RuleType, "must be a list of strings")
				return []string{}
			}
			out = append(out, s)
		}
		return out
	default:
		v.fail(name, RuleType, "must be a list of strings")
		return []string{}
	}
}
