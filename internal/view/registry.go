// Package view keeps per-page state between a full page render and the HTMX
// partial requests issued from it.
package view

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"finboard/internal/cache"
	"finboard/internal/log"
	"finboard/internal/notify"
	"finboard/internal/selection"
)

// Page names a screen that owns instance state.
type Page string

const (
	PageTransactions       Page = "transactions"
	PageTransactionReports Page = "transaction-reports"
	PageCategories         Page = "categories"
	PageSubCategories      Page = "subcategories"
	PageUserReports        Page = "user-reports"
	PageUsers              Page = "users"
	PageProfile            Page = "profile"
)

var (
	ErrNotFound = errors.New("view instance not found")
	// ErrForeign is returned when an instance id is presented by another profile or page.
	ErrForeign = errors.New("view instance belongs to another page")
)

// Instance is the state of one mounted page.
type Instance struct {
	ID        string
	Profile   string
	Page      Page
	CreatedAt time.Time

	Selection *selection.Controller
	Once      *notify.Once
	Tracker   *Tracker
}

func newInstance(profile string, page Page, now time.Time) *Instance {
	return &Instance{
		ID:        uuid.NewString(),
		Profile:   profile,
		Page:      page,
		CreatedAt: now,
		Selection: selection.NewController(),
		Once:      notify.NewOnce(),
		Tracker:   NewTracker(),
	}
}

// Registry holds instances in an LRU with sliding TTL, so an idle page
// eventually loses its selection and latches.
type Registry struct {
	items  *cache.LRUCache[*Instance]
	logger *log.Logger
	now    func() time.Time
}

const DefaultCapacity = 4096

// NewRegistry creates a registry; capacity <= 0 uses DefaultCapacity.
func NewRegistry(capacity int, ttl time.Duration, logger *log.Logger) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentView)
	r := &Registry{logger: logger, now: time.Now}
	r.items = cache.NewLRUCache[*Instance](capacity, ttl,
		cache.WithSlidingExpiry[*Instance](),
		cache.WithEvictHook(func(id string, inst *Instance) {
			logger.Debug("View instance evicted",
				log.FieldView, id,
				log.FieldProfile, inst.Profile,
				"page", string(inst.Page))
		}),
	)
	return r
}

// Open creates the instance for a fresh page render.
func (r *Registry) Open(profile string, page Page) *Instance {
	inst := newInstance(profile, page, r.now())
	r.items.Set(inst.ID, inst)
	return inst
}

// Lookup returns the instance id for profile and page.
func (r *Registry) Lookup(id, profile string, page Page) (*Instance, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	inst, ok := r.items.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	if inst.Profile != profile || inst.Page != page {
		return nil, ErrForeign
	}
	return inst, nil
}

// Resolve is Lookup that opens a fresh instance when the old one expired.
// fresh is true when the caller must re-render the whole list.
func (r *Registry) Resolve(id, profile string, page Page) (inst *Instance, fresh bool) {
	inst, err := r.Lookup(id, profile, page)
	if err == nil {
		return inst, false
	}
	return r.Open(profile, page), true
}

// DropProfile removes every instance of profile, typically after its session
// was cleared.
func (r *Registry) DropProfile(profile string) int {
	return r.items.DeleteFunc(func(_ string, inst *Instance) bool {
		return inst.Profile == profile
	})
}

// CleanExpired lets the sweeper drop idle instances.
func (r *Registry) CleanExpired() int { return r.items.CleanExpired() }

func (r *Registry) Size() int { return r.items.Size() }

var _ cache.Cleaner = (*Registry)(nil)
