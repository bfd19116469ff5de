package services

import (
	"context"
	"slices"
	"sync"

	"finboard/internal/core"
	"finboard/internal/resource"
)

// fakeAPI is an in-memory backend.
type fakeAPI struct {
	mu sync.Mutex

	users        []core.User
	roles        []core.Role
	transactions map[string][]core.Transaction // by year, "" for all
	categories   []core.Category
	subs         map[string][]core.SubCategory
	txReports    []core.TransactionReport
	userReports  []core.UserReport

	deleted       []string
	deleteAllHits int
	failDelete    map[string]error
	failFetch     error
	lastPassword  string
	lastRoleID    string
	activateMsg   resource.Message
}

func (f *fakeAPI) Profile(_ context.Context, userID string) (core.User, error) {
	if f.failFetch != nil {
		return core.User{}, f.failFetch
	}
	for _, u := range f.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return core.User{}, &resource.Failure{Kind: resource.KindServer, Status: 404, Message: "not found"}
}

func (f *fakeAPI) TransactionsByUser(_ context.Context, _, year string) ([]core.Transaction, error) {
	if f.failFetch != nil {
		return nil, f.failFetch
	}
	return slices.Clone(f.transactions[year]), nil
}

func (f *fakeAPI) Categories(context.Context) ([]core.Category, error) {
	if f.failFetch != nil {
		return nil, f.failFetch
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.categories), nil
}

func (f *fakeAPI) SubCategories(_ context.Context, categoryID, _, roleID string) ([]core.SubCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRoleID = roleID
	return slices.Clone(f.subs[categoryID]), nil
}

func (f *fakeAPI) DeleteSubCategory(_ context.Context, id string) error {
	return f.remove(id)
}

func (f *fakeAPI) DeleteCategory(_ context.Context, id string) error {
	return f.remove(id)
}

func (f *fakeAPI) DeleteSelectedCategories(_ context.Context, ids []string) error {
	for _, id := range ids {
		if err := f.remove(id); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeAPI) DeleteAllCategories(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteAllHits++
	f.categories = nil
	return nil
}

func (f *fakeAPI) Users(context.Context) ([]core.User, error) {
	if f.failFetch != nil {
		return nil, f.failFetch
	}
	return slices.Clone(f.users), nil
}

func (f *fakeAPI) Roles(context.Context) ([]core.Role, error) {
	return slices.Clone(f.roles), nil
}

func (f *fakeAPI) DeactivateUser(_ context.Context, userID, _, password string) (resource.Message, error) {
	f.lastPassword = password
	return resource.Message{Message: "deactivation scheduled for " + userID}, nil
}

func (f *fakeAPI) ActivateUser(context.Context, string) (resource.Message, error) {
	return f.activateMsg, nil
}

func (f *fakeAPI) DeleteUser(_ context.Context, _, _, password string) (resource.Message, error) {
	f.lastPassword = password
	return resource.Message{}, nil
}

func (f *fakeAPI) CancelUserDeletion(_ context.Context, userID string) error {
	return f.remove(userID)
}

func (f *fakeAPI) TransactionReports(context.Context, string) ([]core.TransactionReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.txReports), nil
}

func (f *fakeAPI) DeleteTransactionReport(_ context.Context, id string) error {
	return f.remove(id)
}

func (f *fakeAPI) UserReports(context.Context) ([]core.UserReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.userReports), nil
}

func (f *fakeAPI) DeleteUserReport(_ context.Context, id string) error {
	return f.remove(id)
}

func (f *fakeAPI) DeleteAllUserReports(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteAllHits++
	f.userReports = nil
	return nil
}

// remove drops id from every collection and records the call.
func (f *fakeAPI) remove(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failDelete[id]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	f.categories = slices.DeleteFunc(f.categories, func(c core.Category) bool { return c.ID == id })
	f.txReports = slices.DeleteFunc(f.txReports, func(r core.TransactionReport) bool { return r.ID == id })
	f.userReports = slices.DeleteFunc(f.userReports, func(r core.UserReport) bool { return r.ID == id })
	for k, subs := range f.subs {
		f.subs[k] = slices.DeleteFunc(subs, func(sc core.SubCategory) bool { return sc.ID == id })
	}
	return nil
}

var _ API = (*fakeAPI)(nil)
