package services

import (
	"context"
	"fmt"
	"net/url"

	"finboard/internal/core"
	"finboard/internal/filter"
	"finboard/internal/selection"
)

var CategorySchema = filter.Schema{
	QueryParam:  "search",
	QueryFields: []string{"name"},
	SortParam:   "sort",
	Sortable:    []string{"name"},
}

type CategoryPage struct {
	Filter     filter.Parsed
	Categories []core.Category
	Total      int
}

// CategoryService backs the admin transaction type list.
type CategoryService struct {
	api API
}

func NewCategoryService(api API) *CategoryService {
	return &CategoryService{api: api}
}

func (s *CategoryService) List(ctx context.Context, values url.Values) (CategoryPage, error) {
	parsed, perr := CategorySchema.Parse(values)
	page := CategoryPage{Filter: parsed}

	all, err := s.api.Categories(ctx)
	if err != nil {
		return page, fmt.Errorf("fetch categories: %w", err)
	}
	page.Total = len(all)
	if perr != nil {
		page.Categories = all
		return page, perr
	}
	page.Categories = filter.Apply(all, parsed.Criteria)
	if parsed.SortBy != "" {
		filter.Sort(page.Categories, parsed.SortBy, values.Get("order") == "desc")
	}
	return page, nil
}

// Resource: "Delete All" empties the whole collection through the backend's
// delete-all endpoint, whatever the search shows.
func (s *CategoryService) Resource(values url.Values, into *CategoryPage) selection.Resource {
	return selection.Resource{
		Name:  "categories",
		Scope: selection.AllCollection,
		Deleter: selection.Funcs{
			Selected: s.api.DeleteSelectedCategories,
			All:      s.api.DeleteAllCategories,
		},
		Refetch: func(ctx context.Context) ([]string, error) {
			page, err := s.List(ctx, values)
			*into = page
			if err != nil {
				return nil, err
			}
			return Keys(page.Categories), nil
		},
	}
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}
