// Package report triggers report generation and remembers the resulting
// download link per profile.
package report

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"finboard/internal/filter"
	"finboard/internal/log"
)

// Kind names an export. Links are stored per kind.
type Kind string

const (
	KindTransactions Kind = "transactions"
	KindUsers        Kind = "users"
)

var (
	// ErrNoReport is returned by Download before any successful trigger.
	ErrNoReport = errors.New("no report generated in this session")
	// ErrNoURL is returned when a generator succeeded without producing a link.
	ErrNoURL = errors.New("report generated without a download url")
)

// Table is the filtered content of the page, for generators that render rows themselves.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// Request is one generation call.
type Request struct {
	Kind Kind
	// TargetID is the entity the report is about, the user id for transaction exports.
	TargetID string
	Criteria filter.Criteria
	// Params is Criteria in wire form.
	Params url.Values
	Table  Table
}

// Generator produces a report and returns its absolute URL.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// LinkStore keeps the latest link per profile and kind.
type LinkStore interface {
	SaveLink(ctx context.Context, profile, kind, url string) error
	// Link returns "" when nothing is stored.
	Link(ctx context.Context, profile, kind string) (string, error)
	DropLinks(ctx context.Context, profile string) error
}

// Outcome is the result of a trigger.
type Outcome struct {
	OK      bool
	FileURL string
}

type Trigger struct {
	gen    Generator
	links  LinkStore
	logger *log.Logger
}

func NewTrigger(gen Generator, links LinkStore, logger *log.Logger) *Trigger {
	if logger == nil {
		logger = log.Discard()
	}
	return &Trigger{gen: gen, links: links, logger: logger.WithComponent(log.ComponentReport)}
}

// Trigger generates a report for criteria. enc serializes the criteria; dates
// leave in DD/MM/YYYY order.
func (t *Trigger) Trigger(ctx context.Context, profile string, req Request, enc Encoding) (Outcome, error) {
	req.Params = enc.Encode(req.Criteria)

	fileURL, err := t.gen.Generate(ctx, req)
	if err != nil {
		t.logger.WarnContext(ctx, "Report generation failed",
			log.FieldProfile, profile,
			"kind", string(req.Kind),
			log.FieldError, err.Error())
		return Outcome{}, fmt.Errorf("generate %s report: %w", req.Kind, err)
	}
	if fileURL == "" {
		return Outcome{}, ErrNoURL
	}
	if err := t.links.SaveLink(ctx, profile, string(req.Kind), fileURL); err != nil {
		return Outcome{}, fmt.Errorf("store report link: %w", err)
	}

	t.logger.InfoContext(ctx, "Report generated",
		log.FieldProfile, profile,
		"kind", string(req.Kind),
		log.FieldReportURL, fileURL)
	return Outcome{OK: true, FileURL: fileURL}, nil
}

// Download returns the stored link or ErrNoReport.
func (t *Trigger) Download(ctx context.Context, profile string, kind Kind) (string, error) {
	link, err := t.links.Link(ctx, profile, string(kind))
	if err != nil {
		return "", fmt.Errorf("load report link: %w", err)
	}
	if link == "" {
		return "", ErrNoReport
	}
	return link, nil
}

// Available reports whether Download would succeed. Lookup errors count as unavailable.
func (t *Trigger) Available(ctx context.Context, profile string, kind Kind) bool {
	link, err := t.links.Link(ctx, profile, string(kind))
	return err == nil && link != ""
}

// Forget drops every link of profile.
func (t *Trigger) Forget(ctx context.Context, profile string) error {
	return t.links.DropLinks(ctx, profile)
}
