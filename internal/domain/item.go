package domain

import (
	"regexp"
	"strings"
	"time"
)

// Role enumerates the job positions a personnel record may hold.
type Role string

const (
	RoleDeveloper      Role = "developer"
	RoleAdministrative Role = "administrative"
	RoleNotary         Role = "notary"
	RoleSales          Role = "sales"
)

// Roles lists every accepted role.
var Roles = []Role{RoleDeveloper, RoleAdministrative, RoleNotary, RoleSales}

const (
	itemNameMaxLen    = 100
	itemSurnameMaxLen = 150
	itemIDLen         = 9
)

var (
	itemIDPattern = regexp.MustCompile(`^\d{8}[A-Z]$`)
	phonePattern  = regexp.MustCompile(`^\+?\d{9,15}$`)
	phoneNoise    = regexp.MustCompile(`[()\s-]`)
)

// Item is a personnel record keyed by a national ID.
type Item struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Surname string  `json:"surname"`
	Phone   *string `json:"phone"`
	Role    Role    `json:"role"`
}

// NormalizeItemID trims and uppercases a national ID.
func NormalizeItemID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// CleanPhone strips spaces, hyphens and parentheses. It never fails.
func CleanPhone(phone string) string {
	return phoneNoise.ReplaceAllString(phone, "")
}

// ItemSchema describes personnel records.
type ItemSchema struct{}

var _ Schema[Item] = ItemSchema{}

func (ItemSchema) Resource() string { return "item" }

func (ItemSchema) KeyField() string { return "id" }

func (ItemSchema) NormalizeKey(id string) string { return NormalizeItemID(id) }

func (ItemSchema) Key(item Item) string { return item.ID }

// Decode validates and normalizes a personnel submission.
func (ItemSchema) Decode(fields map[string]any, _ time.Time) (Item, error) {
	v := newValidator(fields)
	var item Item

	if id, ok := v.requiredString("id"); ok {
		item.ID = NormalizeItemID(id)
		switch {
		case len(item.ID) != itemIDLen:
			v.fail("id", RuleLength, "must be exactly 9 characters (8 digits and 1 letter, e.g. 12345678A)")
		case !itemIDPattern.MatchString(item.ID):
			v.fail("id", RulePattern, "must be 8 digits followed by 1 letter (e.g. 12345678A)")
		}
	}

	item.Name = v.text("name", itemNameMaxLen)
	item.Surname = v.text("surname", itemSurnameMaxLen)

	if phone, ok := v.optionalString("phone"); ok && phone != nil {
		cleaned := CleanPhone(*phone)
		if !phonePattern.MatchString(cleaned) {
			v.fail("phone", RulePattern, `must contain 9 to 15 digits with an optional leading "+"`)
		}
		item.Phone = &cleaned
	}

	allowed := make([]string, len(Roles))
	for i, r := range Roles {
		allowed[i] = string(r)
	}
	item.Role = Role(v.enum("role", allowed, ""))

	if err := v.err(); err != nil {
		return Item{}, err
	}
	return item, nil
}

// DecodeUpdate decodes a replacement body; the path id always wins.
func (s ItemSchema) DecodeUpdate(id string, fields map[string]any, now time.Time) (Item, error) {
	body := withoutFields(fields, "id", "created_at")
	body["id"] = id
	return s.Decode(body, now)
}

// Merge keeps the stored identity.
func (ItemSchema) Merge(stored, incoming Item) Item {
	incoming.ID = stored.ID
	return incoming
}

// Less orders personnel records by id.
func (ItemSchema) Less(a, b Item) bool { return a.ID < b.ID }
