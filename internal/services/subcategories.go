package services

import (
	"context"
	"fmt"
	"net/url"

	"finboard/internal/core"
	"finboard/internal/filter"
	"finboard/internal/resource"
	"finboard/internal/selection"
	"finboard/internal/session"
)

// SubCategorySchema: free text over name and description, narrowed by the
// parent type ("income", "expense", ...).
var SubCategorySchema = filter.Schema{
	Exact:       map[string]string{"type": "type"},
	Defaults:    map[string]string{"type": filter.All},
	QueryParam:  "search",
	QueryFields: []string{"name", "description"},
	SortParam:   "sort",
	Sortable:    []string{"name", "type"},
}

type SubCategoryPage struct {
	Filter        filter.Parsed
	SubCategories []core.SubCategory
	Types         []string
	Total         int
}

// SubCategoryService backs the subcategory lists. Users see their own and the
// shared ones; admins also pass their role so the backend lists every
// admin-defined subcategory.
type SubCategoryService struct {
	api API
}

func NewSubCategoryService(api API) *SubCategoryService {
	return &SubCategoryService{api: api}
}

func (s *SubCategoryService) fetch(ctx context.Context, sess session.Session) ([]core.SubCategory, error) {
	var roleID string
	if sess.Role == core.RoleAdmin {
		roleID = sess.RoleID
	}
	subs, err := s.api.SubCategories(ctx, resource.AllCategories, sess.UserID, roleID)
	if err != nil {
		return nil, fmt.Errorf("fetch subcategories: %w", err)
	}
	return subs, nil
}

func (s *SubCategoryService) List(ctx context.Context, sess session.Session, values url.Values) (SubCategoryPage, error) {
	parsed, perr := SubCategorySchema.Parse(values)
	page := SubCategoryPage{Filter: parsed}

	all, err := s.fetch(ctx, sess)
	if err != nil {
		return page, err
	}
	page.Total = len(all)
	page.Types = subCategoryTypes(all)
	if perr != nil {
		page.SubCategories = all
		return page, perr
	}
	page.SubCategories = filter.Apply(all, parsed.Criteria)
	if parsed.SortBy != "" {
		filter.Sort(page.SubCategories, parsed.SortBy, values.Get("order") == "desc")
	}
	return page, nil
}

// subCategoryTypes lists the distinct parent types, in first-seen order.
func subCategoryTypes(subs []core.SubCategory) []string {
	seen := make(map[string]bool)
	var out []string
	for _, sc := range subs {
		if t := sc.Type(); !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Resource: the backend has no bulk endpoint for subcategories, so both
// actions delete the rows one request at a time.
func (s *SubCategoryService) Resource(sess session.Session, values url.Values, into *SubCategoryPage) selection.Resource {
	return selection.Resource{
		Name:    "subcategories",
		Scope:   selection.AllVisible,
		Deleter: selection.EachDeleter{Delete: s.api.DeleteSubCategory},
		Refetch: func(ctx context.Context) ([]string, error) {
			page, err := s.List(ctx, sess, values)
			*into = page
			if err != nil {
				return nil, err
			}
			return Keys(page.SubCategories), nil
		},
	}
}

func (s *SubCategoryService) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteSubCategory(ctx, id); err != nil {
		return fmt.Errorf("delete subcategory: %w", err)
	}
	return nil
}
