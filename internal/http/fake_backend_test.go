package http

import (
	"context"
	"net/url"
	"slices"
	"sync"

	"finboard/internal/core"
	"finboard/internal/resource"
)

// fakeBackend is an in-memory REST backend.
type fakeBackend struct {
	mu sync.Mutex

	loginUser *resource.LoginUser
	loginErr  error

	user         core.User
	profileErr   error
	transactions []core.Transaction
	categories   []core.Category
	categoryErr  error
	subs         []core.SubCategory
	users        []core.User
	txReports    []core.TransactionReport
	userReports  []core.UserReport

	selectedDeletes [][]string
	deleteAllHits   int
	subDeletes      []string
	subRoleID       string
	deactivated     []string
	reportURL       string
	reportParams    url.Values
}

var _ Backend = (*fakeBackend)(nil)

func (f *fakeBackend) Login(_ context.Context, cred resource.Credentials) (resource.LoginResult, error) {
	if f.loginErr != nil {
		return resource.LoginResult{}, f.loginErr
	}
	return resource.LoginResult{Message: "ok", User: f.loginUser}, nil
}

func (f *fakeBackend) Profile(context.Context, string) (core.User, error) {
	if f.profileErr != nil {
		return core.User{}, f.profileErr
	}
	return f.user, nil
}

func (f *fakeBackend) TransactionsByUser(context.Context, string, string) ([]core.Transaction, error) {
	return slices.Clone(f.transactions), nil
}

func (f *fakeBackend) Categories(context.Context) ([]core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.categoryErr != nil {
		return nil, f.categoryErr
	}
	return slices.Clone(f.categories), nil
}

func (f *fakeBackend) SubCategories(_ context.Context, categoryID, _, roleID string) ([]core.SubCategory, error) {
	if categoryID != resource.AllCategories {
		return []core.SubCategory{{ID: "s1", Name: "Food"}}, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subRoleID = roleID
	return slices.Clone(f.subs), nil
}

func (f *fakeBackend) DeleteSubCategory(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subDeletes = append(f.subDeletes, id)
	f.subs = slices.DeleteFunc(f.subs, func(sc core.SubCategory) bool { return sc.ID == id })
	return nil
}

func (f *fakeBackend) DeleteCategory(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categories = slices.DeleteFunc(f.categories, func(c core.Category) bool { return c.ID == id })
	return nil
}

func (f *fakeBackend) DeleteSelectedCategories(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selectedDeletes = append(f.selectedDeletes, slices.Clone(ids))
	f.categories = slices.DeleteFunc(f.categories, func(c core.Category) bool { return slices.Contains(ids, c.ID) })
	return nil
}

func (f *fakeBackend) DeleteAllCategories(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteAllHits++
	f.categories = nil
	return nil
}

func (f *fakeBackend) Users(context.Context) ([]core.User, error) {
	return slices.Clone(f.users), nil
}

func (f *fakeBackend) Roles(context.Context) ([]core.Role, error) {
	return []core.Role{{ID: "r1", Name: core.RoleUser}, {ID: "r2", Name: core.RoleAdmin}}, nil
}

func (f *fakeBackend) DeactivateUser(_ context.Context, userID, _, _ string) (resource.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivated = append(f.deactivated, userID)
	return resource.Message{}, nil
}

func (f *fakeBackend) ActivateUser(context.Context, string) (resource.Message, error) {
	return resource.Message{Message: "Account activated"}, nil
}

func (f *fakeBackend) DeleteUser(context.Context, string, string, string) (resource.Message, error) {
	return resource.Message{}, nil
}

func (f *fakeBackend) CancelUserDeletion(context.Context, string) error { return nil }

func (f *fakeBackend) TransactionReports(context.Context, string) ([]core.TransactionReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.txReports), nil
}

func (f *fakeBackend) DeleteTransactionReport(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txReports = slices.DeleteFunc(f.txReports, func(r core.TransactionReport) bool { return r.ID == id })
	return nil
}

func (f *fakeBackend) UserReports(context.Context) ([]core.UserReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.userReports), nil
}

func (f *fakeBackend) DeleteUserReport(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userReports = slices.DeleteFunc(f.userReports, func(r core.UserReport) bool { return r.ID == id })
	return nil
}

func (f *fakeBackend) DeleteAllUserReports(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userReports = nil
	return nil
}

func (f *fakeBackend) GenerateTransactionReport(_ context.Context, _ string, params url.Values) (resource.ReportFile, error) {
	f.reportParams = params
	return resource.ReportFile{FileURL: f.reportURL}, nil
}

func (f *fakeBackend) GenerateUserReport(context.Context, resource.UserReportFilter) (resource.ReportFile, error) {
	return resource.ReportFile{FileURL: f.reportURL}, nil
}

func (f *fakeBackend) LatestUserReport(context.Context) (resource.ReportFile, error) {
	return resource.ReportFile{FileURL: f.reportURL}, nil
}
