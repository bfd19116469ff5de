package resource

import (
	"context"
	"net/url"

	"finboard/internal/core"
)

// Credentials is the login form.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=5"`
}

// LoginResult is the login response. Role may be absent, in which case the
// account is a plain user.
type LoginResult struct {
	Message string     `json:"message"`
	User    *LoginUser `json:"user"`
}

type LoginUser struct {
	ID   string    `json:"_id"`
	Role *core.Ref `json:"role"`
}

// Message is the generic {"message": ...} envelope of mutations.
type Message struct {
	Message string `json:"message"`
	Status  *bool  `json:"status,omitempty"`
}

// ReportFile carries a generated artifact URL.
type ReportFile struct {
	Message string `json:"message"`
	FileURL string `json:"report_file_url"`
}

// UserReportFilter is the admin user export request.
type UserReportFilter struct {
	SelectedRole   string `json:"selectedRole"`
	SelectedStatus string `json:"selectedStatus"`
	SearchTerm     string `json:"searchTerm"`
}

func (c *Client) Login(ctx context.Context, cred Credentials) (LoginResult, error) {
	var out LoginResult
	err := c.Post(ctx, "/users/login/", cred, &out)
	return out, err
}

func (c *Client) Profile(ctx context.Context, userID string) (core.User, error) {
	var out core.User
	err := c.Get(ctx, "/user/profile/"+url.PathEscape(userID), nil, &out)
	return out, err
}

// TransactionsByUser lists a user's transactions; year "" or "all" means every year.
func (c *Client) TransactionsByUser(ctx context.Context, userID, year string) ([]core.Transaction, error) {
	var q url.Values
	if year != "" && year != "all" {
		q = url.Values{"year": {year}}
	}
	var out []core.Transaction
	err := c.Get(ctx, "/getTransactionByUserId/"+url.PathEscape(userID), q, &out)
	return out, err
}

func (c *Client) Categories(ctx context.Context) ([]core.Category, error) {
	var out []core.Category
	err := c.Get(ctx, "/getAllCategories", nil, &out)
	return out, err
}

// AllCategories as a category id lists the subcategories of every type.
const AllCategories = "all"

// SubCategories lists the subcategories of a type visible to the user. An empty roleID is left out.
func (c *Client) SubCategories(ctx context.Context, categoryID, userID, roleID string) ([]core.SubCategory, error) {
	q := url.Values{"user_id": {userID}}
	if roleID != "" {
		q.Set("role_id", roleID)
	}
	var out []core.SubCategory
	err := c.Get(ctx, "/getSubCategoryByCategoryId/"+url.PathEscape(categoryID), q, &out)
	return out, err
}

func (c *Client) DeleteSubCategory(ctx context.Context, id string) error {
	return c.Delete(ctx, "/deleteSubCategory/"+url.PathEscape(id), nil, nil)
}

func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return c.Delete(ctx, "/deleteCategory/"+url.PathEscape(id), nil, nil)
}

func (c *Client) DeleteSelectedCategories(ctx context.Context, ids []string) error {
	return c.Post(ctx, "/delete-selected-categories", map[string][]string{"category_ids": ids}, nil)
}

func (c *Client) DeleteAllCategories(ctx context.Context) error {
	return c.Delete(ctx, "/delete-all-categories", nil, nil)
}

func (c *Client) Users(ctx context.Context) ([]core.User, error) {
	var out []core.User
	err := c.Get(ctx, "/users/", nil, &out)
	return out, err
}

func (c *Client) Roles(ctx context.Context) ([]core.Role, error) {
	var out []core.Role
	err := c.Get(ctx, "/roles/", nil, &out)
	return out, err
}

// DeactivateUser schedules deactivation. Admins pass role "admin" and no password.
func (c *Client) DeactivateUser(ctx context.Context, userID, role, password string) (Message, error) {
	var out Message
	body := map[string]string{"password": password}
	if role != "" {
		body["role"] = role
	}
	err := c.Put(ctx, "/user/deactivate/"+url.PathEscape(userID), body, &out)
	return out, err
}

func (c *Client) ActivateUser(ctx context.Context, emailOrUsername string) (Message, error) {
	var out Message
	body := map[string]string{"email_or_username": emailOrUsername, "password": "", "role": core.RoleAdmin}
	err := c.Post(ctx, "/users/activate", body, &out)
	return out, err
}

// DeleteUser schedules deletion.
func (c *Client) DeleteUser(ctx context.Context, userID, role, password string) (Message, error) {
	var out Message
	body := map[string]string{"password": password}
	if role != "" {
		body["role"] = role
	}
	err := c.Delete(ctx, "/user/delete/"+url.PathEscape(userID), body, &out)
	return out, err
}

func (c *Client) CancelUserDeletion(ctx context.Context, userID string) error {
	return c.Put(ctx, "/user/cancel-delete/"+url.PathEscape(userID), nil, nil)
}

func (c *Client) TransactionReports(ctx context.Context, userID string) ([]core.TransactionReport, error) {
	var out struct {
		Reports []core.TransactionReport `json:"reports"`
	}
	err := c.Get(ctx, "/getAllTransactionReports/"+url.PathEscape(userID), nil, &out)
	return out.Reports, err
}

func (c *Client) DeleteTransactionReport(ctx context.Context, id string) error {
	return c.Delete(ctx, "/transaction-reports/"+url.PathEscape(id), nil, nil)
}

// GenerateTransactionReport asks the backend to export the user's transactions.
// Dates in params are already DD/MM/YYYY.
func (c *Client) GenerateTransactionReport(ctx context.Context, userID string, params url.Values) (ReportFile, error) {
	var out ReportFile
	err := c.PostQuery(ctx, "/transaction-reports/generate/"+url.PathEscape(userID), params, &out)
	return out, err
}

func (c *Client) UserReports(ctx context.Context) ([]core.UserReport, error) {
	var out struct {
		Reports []core.UserReport `json:"reports"`
	}
	err := c.Get(ctx, "/user-reports", nil, &out)
	return out.Reports, err
}

func (c *Client) DeleteUserReport(ctx context.Context, id string) error {
	return c.Delete(ctx, "/user-reports/"+url.PathEscape(id), nil, nil)
}

func (c *Client) DeleteAllUserReports(ctx context.Context) error {
	return c.Delete(ctx, "/user-reports", nil, nil)
}

func (c *Client) GenerateUserReport(ctx context.Context, f UserReportFilter) (ReportFile, error) {
	var out ReportFile
	err := c.Post(ctx, "/user-reports/generate", f, &out)
	return out, err
}

// LatestUserReport returns the most recent admin export.
func (c *Client) LatestUserReport(ctx context.Context) (ReportFile, error) {
	var out ReportFile
	err := c.Get(ctx, "/user-reports/latest", nil, &out)
	return out, err
}
