package services

import (
	"context"
	"fmt"
	"net/url"

	"finboard/internal/core"
	"finboard/internal/filter"
	"finboard/internal/report"
)

// UserSchema: one select both picks the search field and orders the list.
var UserSchema = filter.Schema{
	Exact:       map[string]string{"role": "role", "status": "status"},
	Defaults:    map[string]string{"role": core.RoleUser, "status": filter.All},
	QueryParam:  "search",
	FieldParam:  "field",
	QueryFields: []string{"username", "email", "firstName", "lastName"},
	SortParam:   "field",
	Sortable:    []string{"username", "firstName", "lastName", "email"},
}

type UserPage struct {
	Filter   filter.Parsed
	Users    []core.User
	Total    int
	Roles    []core.Role
	Statuses []core.StatusCount
}

// UserService backs the admin user list and its chart.
type UserService struct {
	api API
}

func NewUserService(api API) *UserService {
	return &UserService{api: api}
}

func (s *UserService) List(ctx context.Context, values url.Values) (UserPage, error) {
	parsed, perr := UserSchema.Parse(values)
	page := UserPage{Filter: parsed}

	all, err := s.api.Users(ctx)
	if err != nil {
		return page, fmt.Errorf("fetch users: %w", err)
	}
	page.Total = len(all)
	page.Statuses = core.CountUserStatuses(all)

	roles, err := s.api.Roles(ctx)
	if err != nil {
		return page, fmt.Errorf("fetch roles: %w", err)
	}
	page.Roles = roles

	if perr != nil {
		page.Users = all
		return page, perr
	}
	page.Users = filter.Apply(all, parsed.Criteria)
	if parsed.SortBy != "" {
		filter.Sort(page.Users, parsed.SortBy, false)
	}
	return page, nil
}

// Chart counts users per status.
func (s *UserService) Chart(ctx context.Context) ([]core.StatusCount, error) {
	all, err := s.api.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}
	return core.CountUserStatuses(all), nil
}

// Deactivate schedules an account's deactivation on behalf of an admin.
func (s *UserService) Deactivate(ctx context.Context, userID string) (string, error) {
	msg, err := s.api.DeactivateUser(ctx, userID, core.RoleAdmin, "")
	if err != nil {
		return "", fmt.Errorf("deactivate user: %w", err)
	}
	return orDefault(msg.Message, "Deactivation scheduled"), nil
}

// Activate re-enables an account. The backend may refuse with status false.
func (s *UserService) Activate(ctx context.Context, emailOrUsername string) (string, bool, error) {
	msg, err := s.api.ActivateUser(ctx, emailOrUsername)
	if err != nil {
		return "", false, fmt.Errorf("activate user: %w", err)
	}
	ok := msg.Status == nil || *msg.Status
	if ok {
		return orDefault(msg.Message, "Account activated"), true, nil
	}
	return orDefault(msg.Message, "Account not activated"), false, nil
}

func (s *UserService) Delete(ctx context.Context, userID string) (string, error) {
	msg, err := s.api.DeleteUser(ctx, userID, core.RoleAdmin, "")
	if err != nil {
		return "", fmt.Errorf("delete user: %w", err)
	}
	return orDefault(msg.Message, "Deletion scheduled"), nil
}

func (s *UserService) CancelDeletion(ctx context.Context, userID string) error {
	if err := s.api.CancelUserDeletion(ctx, userID); err != nil {
		return fmt.Errorf("cancel deletion: %w", err)
	}
	return nil
}

// ReportRequest describes an export of the filtered user list.
func (s *UserService) ReportRequest(page UserPage) report.Request {
	rows := make([][]string, 0, len(page.Users))
	for _, u := range page.Users {
		rows = append(rows, []string{u.Username, u.FirstName, u.LastName, u.Email, u.Role.Name, u.Status})
	}
	return report.Request{
		Kind:     report.KindUsers,
		Criteria: page.Filter.Criteria,
		Table: report.Table{
			Title:  "Users",
			Header: []string{"Username", "First name", "Last name", "Email", "Role", "Status"},
			Rows:   rows,
		},
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
