package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Roles known to the backend.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account statuses as reported by the users endpoint.
const (
	StatusActive              = "active"
	StatusInactive            = "inactive"
	StatusPendingDeactivation = "pending_deactivation"
	StatusPendingDeletion     = "pending_deletion"
)

// Category names that drive income/expense aggregation.
const (
	CategoryIncome  = "income"
	CategoryExpense = "expense"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
)

type (
	// Ref is a populated reference: the backend embeds {_id, name} instead of a bare id.
	// A bare string id is accepted too.
	Ref struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
	}

	Transaction struct {
		ID          string `json:"_id"`
		UserID      string `json:"user_id"`
		Date        string `json:"date"`
		Amount      Money  `json:"amount"`
		Description string `json:"description"`
		Category    Ref    `json:"category_id"`
		SubCategory Ref    `json:"subcategory_id"`
	}

	// Category is a transaction type (Income, Expense, ...).
	Category struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
	}

	SubCategory struct {
		ID          string `json:"_id"`
		Name        string `json:"name"`
		UserID      string `json:"user_id"`
		Category    Ref    `json:"category_id"`
		Description string `json:"description"`
	}

	User struct {
		ID           string `json:"_id"`
		Username     string `json:"username"`
		Email        string `json:"email"`
		FirstName    string `json:"firstName"`
		LastName     string `json:"lastName"`
		Status       string `json:"status"`
		Role         Ref    `json:"role"`
		ProfileImage string `json:"profile_image"`
	}

	Role struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
	}

	// TransactionReport dates are DD/MM/YYYY; GeneratedAt is "DD/MM/YYYY HH:MM[:SS]".
	TransactionReport struct {
		ID          string `json:"_id"`
		ReportName  string `json:"report_name"`
		StartDate   string `json:"start_date"`
		EndDate     string `json:"end_date"`
		GeneratedAt string `json:"generated_at"`
		FileURL     string `json:"report_file_url"`
	}

	UserReport struct {
		ID          string `json:"_id"`
		ReportName  string `json:"report_name"`
		GeneratedAt string `json:"generated_at"`
		FileURL     string `json:"report_file_url"`
	}
)

// UnmarshalJSON accepts an object, a bare id string or null.
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}
	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	}
	type plain Ref
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Ref(p)
	return nil
}

// DisplayName is what lists show for the user.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// IsIncome reports whether the transaction's type is Income, case-insensitively.
func (t Transaction) IsIncome() bool {
	return strings.EqualFold(t.Category.Name, CategoryIncome)
}

// Field accessors below back the list filters. Unknown fields report ok=false.

func (t Transaction) Key() string { return t.ID }

func (t Transaction) Text(field string) (string, bool) {
	switch field {
	case "_id", "id":
		return t.ID, t.ID != ""
	case "description":
		return t.Description, true
	case "category_id":
		return t.Category.ID, t.Category.ID != ""
	case "category":
		return t.Category.Name, t.Category.Name != ""
	case "subcategory_id":
		return t.SubCategory.ID, t.SubCategory.ID != ""
	case "subcategory":
		return t.SubCategory.Name, t.SubCategory.Name != ""
	case "date":
		return t.Date, t.Date != ""
	}
	return "", false
}

func (t Transaction) Time(field string) (time.Time, bool) {
	if field != "date" {
		return time.Time{}, false
	}
	d, err := ParseDate(t.Date)
	return d, err == nil
}

func (c Category) Key() string { return c.ID }

func (c Category) Text(field string) (string, bool) {
	switch field {
	case "_id", "id":
		return c.ID, c.ID != ""
	case "name":
		return c.Name, c.Name != ""
	}
	return "", false
}

func (c Category) Time(string) (time.Time, bool) { return time.Time{}, false }

func (s SubCategory) Key() string { return s.ID }

func (s SubCategory) Text(field string) (string, bool) {
	switch field {
	case "_id", "id":
		return s.ID, s.ID != ""
	case "name":
		return s.Name, s.Name != ""
	case "category_id":
		return s.Category.ID, s.Category.ID != ""
	case "category":
		return s.Category.Name, s.Category.Name != ""
	case "user_id":
		return s.UserID, s.UserID != ""
	case "type":
		return s.Type(), true
	case "description":
		n := s.Note()
		return n, n != ""
	}
	return "", false
}

func (s SubCategory) Time(string) (time.Time, bool) { return time.Time{}, false }

// Type is the lowercased name of the parent transaction type, or "unknown".
func (s SubCategory) Type() string {
	if s.Category.Name == "" {
		return "unknown"
	}
	return strings.ToLower(s.Category.Name)
}

// Note is the description without the backend's "(Userdefined)" or
// "(Admindefined)" origin marker.
func (s SubCategory) Note() string {
	d := strings.TrimSpace(s.Description)
	for _, marker := range []string{"(Userdefined)", "(Admindefined)"} {
		if rest, ok := strings.CutPrefix(d, marker); ok {
			return strings.TrimSpace(rest)
		}
	}
	return d
}

func (u User) Key() string { return u.ID }

func (u User) Text(field string) (string, bool) {
	switch field {
	case "_id", "id":
		return u.ID, u.ID != ""
	case "username":
		return u.Username, u.Username != ""
	case "email":
		return u.Email, u.Email != ""
	case "firstName":
		return u.FirstName, u.FirstName != ""
	case "lastName":
		return u.LastName, u.LastName != ""
	case "status":
		return u.Status, u.Status != ""
	case "role":
		return u.Role.Name, u.Role.Name != ""
	}
	return "", false
}

func (u User) Time(string) (time.Time, bool) { return time.Time{}, false }

func (r TransactionReport) Key() string { return r.ID }

func (r TransactionReport) Text(field string) (string, bool) {
	switch field {
	case "_id", "id":
		return r.ID, r.ID != ""
	case "report_name":
		return r.ReportName, r.ReportName != ""
	case "generated_time":
		return clockPart(r.GeneratedAt)
	}
	return "", false
}

func (r TransactionReport) Time(field string) (time.Time, bool) {
	var raw string
	switch field {
	case "start_date":
		raw = r.StartDate
	case "end_date":
		raw = r.EndDate
	case "generated_at":
		raw = r.GeneratedAt
	default:
		return time.Time{}, false
	}
	d, err := ParseDate(raw)
	return d, err == nil
}

func (r UserReport) Key() string { return r.ID }

func (r UserReport) Text(field string) (string, bool) {
	switch field {
	case "_id", "id":
		return r.ID, r.ID != ""
	case "report_name":
		return r.ReportName, r.ReportName != ""
	case "generated_time":
		return clockPart(r.GeneratedAt)
	}
	return "", false
}

func (r UserReport) Time(field string) (time.Time, bool) {
	if field != "generated_at" {
		return time.Time{}, false
	}
	d, err := ParseDate(r.GeneratedAt)
	return d, err == nil
}

// clockPart returns "HH:MM" out of "DD/MM/YYYY HH:MM[:SS]".
func clockPart(stamp string) (string, bool) {
	_, clock, ok := strings.Cut(strings.TrimSpace(stamp), " ")
	if !ok {
		return "", false
	}
	parts := strings.Split(clock, ":")
	if len(parts) < 2 {
		return "", false
	}
	return parts[0] + ":" + parts[1], true
}
