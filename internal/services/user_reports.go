package services

import (
	"context"
	"fmt"
	"net/url"

	"finboard/internal/core"
	"finboard/internal/filter"
	"finboard/internal/selection"
)

// UserReportSchema filters by generation day and "HH:MM" time.
var UserReportSchema = filter.Schema{
	Dates: []filter.DateParam{
		{Param: "generated_date", Field: "generated_at", Bound: filter.On},
	},
	Exact:     map[string]string{"generated_time": "generated_time"},
	SortParam: "sort",
	Sortable:  []string{"report_name", "generated_at"},
}

type UserReportPage struct {
	Filter  filter.Parsed
	Reports []core.UserReport
	Total   int
}

type UserReportService struct {
	api API
}

func NewUserReportService(api API) *UserReportService {
	return &UserReportService{api: api}
}

func (s *UserReportService) List(ctx context.Context, values url.Values) (UserReportPage, error) {
	parsed, perr := UserReportSchema.Parse(values)
	page := UserReportPage{Filter: parsed}

	all, err := s.api.UserReports(ctx)
	if err != nil {
		return page, fmt.Errorf("fetch user reports: %w", err)
	}
	page.Total = len(all)
	if perr != nil {
		page.Reports = all
		return page, perr
	}
	page.Reports = filter.Apply(all, parsed.Criteria)
	if parsed.SortBy != "" {
		filter.Sort(page.Reports, parsed.SortBy, values.Get("order") == "desc")
	}
	return page, nil
}

// Resource: the admin "Delete All" clears every user report on the backend.
func (s *UserReportService) Resource(values url.Values, into *UserReportPage) selection.Resource {
	each := selection.EachDeleter{Delete: s.api.DeleteUserReport}
	return selection.Resource{
		Name:  "user reports",
		Scope: selection.AllCollection,
		Deleter: selection.Funcs{
			Selected: each.DeleteSelected,
			All:      s.api.DeleteAllUserReports,
		},
		Refetch: func(ctx context.Context) ([]string, error) {
			page, err := s.List(ctx, values)
			*into = page
			if err != nil {
				return nil, err
			}
			return Keys(page.Reports), nil
		},
	}
}

func (s *UserReportService) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteUserReport(ctx, id); err != nil {
		return fmt.Errorf("delete user report: %w", err)
	}
	return nil
}
