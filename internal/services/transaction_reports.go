package services

import (
	"context"
	"fmt"
	"net/url"

	"finboard/internal/core"
	"finboard/internal/filter"
	"finboard/internal/selection"
	"finboard/internal/session"
)

// TransactionReportSchema: a report matches when it starts on or after
// start_date, ends on or before end_date and was generated on generated_date.
var TransactionReportSchema = filter.Schema{
	Dates: []filter.DateParam{
		{Param: "start_date", Field: "start_date", Bound: filter.From},
		{Param: "end_date", Field: "end_date", Bound: filter.To},
		{Param: "generated_date", Field: "generated_at", Bound: filter.On},
	},
	SortParam: "sort",
	Sortable:  []string{"report_name", "generated_at"},
}

type TransactionReportPage struct {
	Filter  filter.Parsed
	Reports []core.TransactionReport
	Total   int
}

type TransactionReportService struct {
	api API
}

func NewTransactionReportService(api API) *TransactionReportService {
	return &TransactionReportService{api: api}
}

func (s *TransactionReportService) fetch(ctx context.Context, sess session.Session) ([]core.TransactionReport, error) {
	reports, err := s.api.TransactionReports(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("fetch transaction reports: %w", err)
	}
	return reports, nil
}

func (s *TransactionReportService) List(ctx context.Context, sess session.Session, values url.Values) (TransactionReportPage, error) {
	parsed, perr := TransactionReportSchema.Parse(values)
	page := TransactionReportPage{Filter: parsed}

	all, err := s.fetch(ctx, sess)
	if err != nil {
		return page, err
	}
	page.Total = len(all)
	if perr != nil {
		page.Reports = all
		return page, perr
	}
	page.Reports = filter.Apply(all, withGeneratedInRange(parsed.Criteria))
	if parsed.SortBy != "" {
		filter.Sort(page.Reports, parsed.SortBy, values.Get("order") == "desc")
	}
	return page, nil
}

// withGeneratedInRange adds "generated within [start, end]" when both bounds are set.
func withGeneratedInRange(c filter.Criteria) filter.Criteria {
	var from, to filter.DateRange
	for _, r := range c.Dates {
		switch r.Field {
		case "start_date":
			from = r
		case "end_date":
			to = r
		}
	}
	if from.From.IsZero() || to.To.IsZero() {
		return c
	}
	out := c
	out.Dates = append(append([]filter.DateRange(nil), c.Dates...),
		filter.DateRange{Field: "generated_at", From: from.From, To: to.To})
	return out
}

// Resource describes bulk deletion. Reports belong to the user, so "Delete All"
// removes exactly the visible ones, one request each. Refetch re-lists with
// values and leaves the fresh page in into.
func (s *TransactionReportService) Resource(sess session.Session, values url.Values, into *TransactionReportPage) selection.Resource {
	return selection.Resource{
		Name:    "transaction reports",
		Scope:   selection.AllVisible,
		Deleter: selection.EachDeleter{Delete: s.api.DeleteTransactionReport},
		Refetch: func(ctx context.Context) ([]string, error) {
			page, err := s.List(ctx, sess, values)
			*into = page
			if err != nil {
				return nil, err
			}
			return Keys(page.Reports), nil
		},
	}
}

func (s *TransactionReportService) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteTransactionReport(ctx, id); err != nil {
		return fmt.Errorf("delete transaction report: %w", err)
	}
	return nil
}
