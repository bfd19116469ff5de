package report

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"finboard/internal/resource"
)

// Backend is the part of the resource client the API generator calls.
type Backend interface {
	GenerateTransactionReport(ctx context.Context, userID string, params url.Values) (resource.ReportFile, error)
	GenerateUserReport(ctx context.Context, f resource.UserReportFilter) (resource.ReportFile, error)
	LatestUserReport(ctx context.Context) (resource.ReportFile, error)
}

// APIGenerator asks the backend to build the file.
type APIGenerator struct {
	backend Backend
}

func NewAPIGenerator(b Backend) *APIGenerator {
	return &APIGenerator{backend: b}
}

func (g *APIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	switch req.Kind {
	case KindTransactions:
		if req.TargetID == "" {
			return "", errors.New("transaction report needs a user id")
		}
		out, err := g.backend.GenerateTransactionReport(ctx, req.TargetID, req.Params)
		if err != nil {
			return "", err
		}
		return out.FileURL, nil

	case KindUsers:
		out, err := g.backend.GenerateUserReport(ctx, userFilter(req))
		if err != nil {
			return "", err
		}
		if out.FileURL != "" {
			return out.FileURL, nil
		}
		// the export endpoint only acknowledges; the file is published as "latest"
		latest, err := g.backend.LatestUserReport(ctx)
		if err != nil {
			return "", fmt.Errorf("latest user report: %w", err)
		}
		return latest.FileURL, nil
	}
	return "", fmt.Errorf("unknown report kind %q", req.Kind)
}

func userFilter(req Request) resource.UserReportFilter {
	f := resource.UserReportFilter{
		SelectedRole:   req.Criteria.Exact["role"],
		SelectedStatus: req.Criteria.Exact["status"],
		SearchTerm:     req.Criteria.Query,
	}
	if f.SelectedRole == "" {
		f.SelectedRole = "all"
	}
	if f.SelectedStatus == "" {
		f.SelectedStatus = "all"
	}
	return f
}

var _ Generator = (*APIGenerator)(nil)
