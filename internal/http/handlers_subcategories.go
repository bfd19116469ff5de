package http

import (
	"net/http"
	"net/url"

	"finboard/internal/selection"
	"finboard/internal/services"
	"finboard/internal/view"
)

// subCategoryListing serves both the user and the admin subcategory list; the
// routes differ only by prefix.
func (s *Server) subCategoryListing(r *http.Request) listing {
	sess := s.currentSession(r)
	l := listing{
		page:    view.PageSubCategories,
		name:    "subcategories",
		title:   "Categories",
		active:  "subcategories",
		tmpl:    "subcategories.html",
		partial: "subcategory-list",
		base:    "/ui/categories",
		fetch: func(r *http.Request, values url.Values) (any, []string, error) {
			page, err := s.subs.List(r.Context(), sess, values)
			return page, services.Keys(page.SubCategories), err
		},
		bulk: func(r *http.Request, values url.Values) (selection.Resource, func() any) {
			var page services.SubCategoryPage
			return s.subs.Resource(sess, values, &page), func() any { return page }
		},
		remove: s.subs.Delete,
	}
	if sess.IsAdmin() {
		l.title = "All admin subcategories"
		l.base = "/ui/admin/subcategories"
	}
	return l
}

func (s *Server) handleSubCategoryPage(w http.ResponseWriter, r *http.Request) {
	s.listPage(w, r, s.subCategoryListing(r))
}

func (s *Server) handleSubCategoryList(w http.ResponseWriter, r *http.Request) {
	s.listPartial(w, r, s.subCategoryListing(r))
}

func (s *Server) handleSubCategoryToggle(w http.ResponseWriter, r *http.Request) {
	s.listToggle(w, r, s.subCategoryListing(r))
}

func (s *Server) handleSubCategoryBulkDelete(w http.ResponseWriter, r *http.Request) {
	s.listBulkDelete(w, r, s.subCategoryListing(r))
}

func (s *Server) handleSubCategoryDelete(w http.ResponseWriter, r *http.Request) {
	s.listDelete(w, r, s.subCategoryListing(r))
}
