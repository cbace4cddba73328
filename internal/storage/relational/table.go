package relational

import (
	"encoding/json"
	"fmt"

	"github.com/spec-kit/records-service/internal/domain"
)

// Scanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Table maps one record type onto one table. Columns lists every column with
// the key first; Values returns the record's values in the same order.
// Mutable lists the columns an update may write.
type Table[T any] struct {
	Name    string
	Key     string
	Columns []string
	Mutable []string
	OrderBy string
	Values  func(T) []any
	Scan    func(Scanner) (T, error)
}

// ItemTable stores personnel records.
var ItemTable = Table[domain.Item]{
	Name:    "items",
	Key:     "id",
	Columns: []string{"id", "name", "surname", "phone", "role"},
	Mutable: []string{"name", "surname", "phone", "role"},
	OrderBy: "id",
	Values: func(item domain.Item) []any {
		return []any{item.ID, item.Name, item.Surname, item.Phone, string(item.Role)}
	},
	Scan: func(row Scanner) (domain.Item, error) {
		var (
			item domain.Item
			role string
		)
		if err := row.Scan(&item.ID, &item.Name, &item.Surname, &item.Phone, &role); err != nil {
			return domain.Item{}, err
		}
		item.Role = domain.Role(role)
		return item, nil
	},
}

// TicketTable stores tickets. Tags are kept as JSON text and timestamps as
// ISO-8601 text.
var TicketTable = Table[domain.Ticket]{
	Name: "tickets",
	Key:  "ticket_id",
	Columns: []string{
		"ticket_id", "title", "description", "status", "priority",
		"position", "created_at", "updated_at", "due_date", "tags",
	},
	Mutable: []string{
		"title", "description", "status", "priority",
		"position", "updated_at", "due_date", "tags",
	},
	OrderBy: "position ASC, created_at ASC, ticket_id ASC",
	Values: func(t domain.Ticket) []any {
		return []any{
			t.TicketID,
			t.Title,
			t.Description,
			string(t.Status),
			string(t.Priority),
			t.Position,
			domain.FormatTimestamp(t.CreatedAt),
			domain.FormatTimestamp(t.UpdatedAt),
			t.DueDate,
			encodeTags(t.Tags),
		}
	},
	Scan: func(row Scanner) (domain.Ticket, error) {
		var (
			t                    domain.Ticket
			status, priority     string
			createdAt, updatedAt string
			tags                 string
		)
		if err := row.Scan(
			&t.TicketID,
			&t.Title,
			&t.Description,
			&status,
			&priority,
			&t.Position,
			&createdAt,
			&updatedAt,
			&t.DueDate,
			&tags,
		); err != nil {
			return domain.Ticket{}, err
		}
		t.Status = domain.TicketStatus(status)
		t.Priority = domain.TicketPriority(priority)

		var err error
		if t.CreatedAt, err = domain.ParseTimestamp(createdAt); err != nil {
			return domain.Ticket{}, fmt.Errorf("decode created_at: %w", err)
		}
		if t.UpdatedAt, err = domain.ParseTimestamp(updatedAt); err != nil {
			return domain.Ticket{}, fmt.Errorf("decode updated_at: %w", err)
		}
		if t.Tags, err = decodeTags(tags); err != nil {
			return domain.Ticket{}, err
		}
		return t, nil
	},
}

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func decodeTags(raw string) ([]string, error) {
	tags := []string{}
	if raw == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}
