// Package services holds the logic behind each list page: fetch from the
// backend, narrow with the request's filters, and describe the destructive
// actions the page offers.
package services

import (
	"context"

	"finboard/internal/core"
	"finboard/internal/resource"
)

// API is the backend surface the pages use. *resource.Client implements it.
type API interface {
	Profile(ctx context.Context, userID string) (core.User, error)
	TransactionsByUser(ctx context.Context, userID, year string) ([]core.Transaction, error)
	Categories(ctx context.Context) ([]core.Category, error)
	SubCategories(ctx context.Context, categoryID, userID, roleID string) ([]core.SubCategory, error)
	DeleteSubCategory(ctx context.Context, id string) error
	DeleteCategory(ctx context.Context, id string) error
	DeleteSelectedCategories(ctx context.Context, ids []string) error
	DeleteAllCategories(ctx context.Context) error
	Users(ctx context.Context) ([]core.User, error)
	Roles(ctx context.Context) ([]core.Role, error)
	DeactivateUser(ctx context.Context, userID, role, password string) (resource.Message, error)
	ActivateUser(ctx context.Context, emailOrUsername string) (resource.Message, error)
	DeleteUser(ctx context.Context, userID, role, password string) (resource.Message, error)
	CancelUserDeletion(ctx context.Context, userID string) error
	TransactionReports(ctx context.Context, userID string) ([]core.TransactionReport, error)
	DeleteTransactionReport(ctx context.Context, id string) error
	UserReports(ctx context.Context) ([]core.UserReport, error)
	DeleteUserReport(ctx context.Context, id string) error
	DeleteAllUserReports(ctx context.Context) error
}

var _ API = (*resource.Client)(nil)

// Keys returns the ids of records, in order.
func Keys[T interface{ Key() string }](items []T) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Key())
	}
	return out
}
