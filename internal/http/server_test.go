package http

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/core"
	"finboard/internal/guard"
	"finboard/internal/middleware/ratelimit"
	"finboard/internal/notify"
	"finboard/internal/report"
	"finboard/internal/resource"
	"finboard/internal/session"
	"finboard/internal/session/memory"
	"finboard/internal/view"
)

type harness struct {
	t       *testing.T
	srv     *Server
	api     *fakeBackend
	store   *session.Store
	cookie  *http.Cookie
	profile string
}

func newHarness(t *testing.T, api *fakeBackend) *harness {
	t.Helper()
	return newHarnessWithPolicy(t, api, guard.MismatchToLogin)
}

func newHarnessWithPolicy(t *testing.T, api *fakeBackend, policy guard.MismatchPolicy) *harness {
	t.Helper()
	mem := memory.New()
	store := session.NewStore(mem, nil)
	profiles := session.NewProfiles("test-signing-key", time.Hour, false)

	srv, err := NewServer(":0", Deps{
		Backend:  api,
		Sessions: store,
		Profiles: profiles,
		Reports:  report.NewTrigger(report.NewAPIGenerator(api), mem, nil),
		Views:    view.NewRegistry(0, time.Minute, nil),
		Notes:    notify.NewChannel(0),
		Policy:   policy,
		Submit:   ratelimit.NewLimiter(ratelimit.Config{PerSecond: 100, Burst: 100, IdleTTL: time.Minute}),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	token, profile, err := profiles.Issue()
	require.NoError(t, err)
	return &harness{
		t:       t,
		srv:     srv,
		api:     api,
		store:   store,
		cookie:  &http.Cookie{Name: session.CookieName, Value: token},
		profile: profile,
	}
}

func (h *harness) signIn(role string) {
	h.t.Helper()
	require.NoError(h.t, h.store.Set(context.Background(), h.profile, session.Session{UserID: "u1", Role: role, RoleID: "r-" + role}))
}

func (h *harness) do(method, target string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	h.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	req.AddCookie(h.cookie)
	rec := httptest.NewRecorder()
	h.srv.Handler.ServeHTTP(rec, req)
	return rec
}

var viewIDPattern = regexp.MustCompile(`id="view-id" name="view" value="([^"]+)"`)

func viewID(t *testing.T, body string) string {
	t.Helper()
	m := viewIDPattern.FindStringSubmatch(body)
	require.Len(t, m, 2, "page carries no view id")
	return m[1]
}

func TestGuard_UserOnAdminRouteRedirectsToLogin(t *testing.T) {
	h := newHarness(t, &fakeBackend{})
	h.signIn(core.RoleUser)

	rec := h.do(http.MethodGet, "/admin/users", nil, false)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestGuard_AnonymousPartialGetsHXRedirect(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	rec := h.do(http.MethodGet, "/ui/transactions", nil, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("HX-Redirect"))
}

func TestGuard_HomePolicy(t *testing.T) {
	h := newHarnessWithPolicy(t, &fakeBackend{}, guard.MismatchToHome)
	h.signIn(core.RoleAdmin)

	rec := h.do(http.MethodGet, "/transactions", nil, false)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestLogin_StoresSessionAndRedirects(t *testing.T) {
	api := &fakeBackend{loginUser: &resource.LoginUser{ID: "u42", Role: &core.Ref{ID: "r2", Name: core.RoleAdmin}}}
	h := newHarness(t, api)

	rec := h.do(http.MethodPost, "/login", url.Values{"email": {"ada@example.com"}, "password": {"secret"}}, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("HX-Redirect"))
	sess, err := h.store.Get(context.Background(), h.profile)
	require.NoError(t, err)
	assert.Equal(t, session.Session{UserID: "u42", Role: core.RoleAdmin, RoleID: "r2"}, sess)
}

func TestLogin_MissingRoleMeansUser(t *testing.T) {
	h := newHarness(t, &fakeBackend{loginUser: &resource.LoginUser{ID: "u7"}})

	h.do(http.MethodPost, "/login", url.Values{"email": {"bob@example.com"}, "password": {"secret"}}, true)

	sess, err := h.store.Get(context.Background(), h.profile)
	require.NoError(t, err)
	assert.Equal(t, core.RoleUser, sess.Role)
}

func TestLogin_ValidationIsInline(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	rec := h.do(http.MethodPost, "/login", url.Values{"email": {"ada@example.com"}, "password": {"abc"}}, true)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Password must be at least 5 characters long")
	assert.Empty(t, rec.Header().Get("HX-Trigger"))
}

func TestLogin_BackendRejectionNotifies(t *testing.T) {
	h := newHarness(t, &fakeBackend{loginErr: &resource.Failure{Kind: resource.KindServer, Status: 400, Message: "bad credentials"}})

	rec := h.do(http.MethodPost, "/login", url.Values{"email": {"ada@example.com"}, "password": {"secret"}}, true)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("HX-Trigger"), "Error logging in. Please check your credentials.")
	sess, _ := h.store.Get(context.Background(), h.profile)
	assert.False(t, sess.Authenticated())
}

func TestLogout_ClearsSession(t *testing.T) {
	h := newHarness(t, &fakeBackend{})
	h.signIn(core.RoleUser)

	rec := h.do(http.MethodPost, "/logout", nil, true)

	assert.Equal(t, "/login", rec.Header().Get("HX-Redirect"))
	sess, _ := h.store.Get(context.Background(), h.profile)
	assert.True(t, sess.IsZero())
}

func categoryAPI() *fakeBackend {
	return &fakeBackend{categories: []core.Category{
		{ID: "1", Name: "Income"}, {ID: "2", Name: "Expense"}, {ID: "3", Name: "Savings"}, {ID: "4", Name: "Gifts"},
	}}
}

func TestCategories_DeleteSelectedTargetsExactlySelection(t *testing.T) {
	api := categoryAPI()
	h := newHarness(t, api)
	h.signIn(core.RoleAdmin)

	page := h.do(http.MethodGet, "/admin/categories", nil, false)
	require.Equal(t, http.StatusOK, page.Code)
	id := viewID(t, page.Body.String())
	assert.Contains(t, page.Body.String(), "Delete All")

	for _, c := range []string{"2", "4"} {
		rec := h.do(http.MethodPost, "/ui/admin/categories/toggle/"+c, url.Values{"view": {id}}, true)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := h.do(http.MethodPost, "/ui/admin/categories/toggle/4", url.Values{"view": {id}}, true)
	assert.Contains(t, rec.Body.String(), "Delete Selected (1)")
	h.do(http.MethodPost, "/ui/admin/categories/toggle/4", url.Values{"view": {id}}, true)

	rec = h.do(http.MethodPost, "/ui/admin/categories/bulk-delete", url.Values{"view": {id}}, true)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, api.selectedDeletes, 1)
	assert.ElementsMatch(t, []string{"2", "4"}, api.selectedDeletes[0])
	assert.Zero(t, api.deleteAllHits)
	assert.Contains(t, rec.Header().Get("HX-Trigger"), EventShowNotification)
	assert.Contains(t, rec.Body.String(), "Income")
	assert.NotContains(t, rec.Body.String(), "Gifts")
	assert.Contains(t, rec.Body.String(), "Delete All")
}

func TestCategories_EmptySelectionDeletesCollection(t *testing.T) {
	api := categoryAPI()
	h := newHarness(t, api)
	h.signIn(core.RoleAdmin)
	id := viewID(t, h.do(http.MethodGet, "/admin/categories", nil, false).Body.String())

	rec := h.do(http.MethodPost, "/ui/admin/categories/bulk-delete", url.Values{"view": {id}}, true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, api.deleteAllHits)
	assert.Empty(t, api.selectedDeletes)
	assert.Contains(t, rec.Body.String(), "No transaction types")
}

func TestCategories_SearchNarrowsList(t *testing.T) {
	h := newHarness(t, categoryAPI())
	h.signIn(core.RoleAdmin)

	rec := h.do(http.MethodGet, "/ui/admin/categories?search=in", nil, true)

	body := rec.Body.String()
	assert.Contains(t, body, "Income")
	assert.NotContains(t, body, "Expense")
}

func subCategoryAPI() *fakeBackend {
	income := core.Ref{ID: "c-in", Name: "Income"}
	expense := core.Ref{ID: "c-ex", Name: "Expense"}
	return &fakeBackend{subs: []core.SubCategory{
		{ID: "s1", Name: "Salary", Category: income, Description: "(Admindefined) Monthly pay"},
		{ID: "s2", Name: "Groceries", Category: expense, Description: "(Userdefined) Food"},
		{ID: "s3", Name: "Fuel", Category: expense},
	}}
}

func TestSubCategories_UserDeletesOne(t *testing.T) {
	api := subCategoryAPI()
	h := newHarness(t, api)
	h.signIn(core.RoleUser)

	page := h.do(http.MethodGet, "/categories", nil, false)
	require.Equal(t, http.StatusOK, page.Code)
	body := page.Body.String()
	assert.Contains(t, body, "Monthly pay")
	assert.NotContains(t, body, "(Admindefined)")
	assert.Contains(t, body, "(No description)")
	assert.Empty(t, api.subRoleID)
	id := viewID(t, body)

	rec := h.do(http.MethodPost, "/ui/categories/delete/s2", url.Values{"view": {id}}, true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"s2"}, api.subDeletes)
	assert.NotContains(t, rec.Body.String(), "Groceries")
	assert.Contains(t, rec.Header().Get("HX-Trigger"), "Deleted successfully")
}

func TestSubCategories_AdminDeletesAllVisible(t *testing.T) {
	api := subCategoryAPI()
	h := newHarness(t, api)
	h.signIn(core.RoleAdmin)

	page := h.do(http.MethodGet, "/admin/subcategories?type=expense", nil, false)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "All admin subcategories")
	assert.Equal(t, "r-admin", api.subRoleID)
	id := viewID(t, page.Body.String())

	rec := h.do(http.MethodPost, "/ui/admin/subcategories/bulk-delete", url.Values{"view": {id}, "type": {"expense"}}, true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.ElementsMatch(t, []string{"s2", "s3"}, api.subDeletes)
	require.Len(t, api.subs, 1)
	assert.Equal(t, "s1", api.subs[0].ID)
}

func TestSubCategories_UserCannotOpenAdminList(t *testing.T) {
	h := newHarness(t, subCategoryAPI())
	h.signIn(core.RoleUser)

	rec := h.do(http.MethodGet, "/admin/subcategories", nil, false)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestBackendUnauthorizedClearsSession(t *testing.T) {
	api := categoryAPI()
	api.categoryErr = &resource.Failure{Kind: resource.KindServer, Status: http.StatusUnauthorized, Message: "Unauthorized"}
	h := newHarness(t, api)
	h.signIn(core.RoleAdmin)

	rec := h.do(http.MethodGet, "/ui/admin/categories", nil, true)

	assert.Equal(t, "/login", rec.Header().Get("HX-Redirect"))
	sess, _ := h.store.Get(context.Background(), h.profile)
	assert.False(t, sess.Authenticated())
	assert.Equal(t, 1, h.srv.notes.Pending(h.profile))
}

func TestTransactions_FilterErrorIsInline(t *testing.T) {
	h := newHarness(t, &fakeBackend{transactions: []core.Transaction{{ID: "t1", Date: "2024-03-01", Description: "rent"}}})
	h.signIn(core.RoleUser)

	rec := h.do(http.MethodGet, "/ui/transactions?start_date=2024-05-01&end_date=2024-01-01", nil, true)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "end date is before start date")
	assert.Contains(t, rec.Body.String(), "rent")
}

func TestTransactionReports_InvalidFilterBlocksBulkDelete(t *testing.T) {
	api := &fakeBackend{txReports: []core.TransactionReport{
		{ID: "r1", ReportName: "January", StartDate: "2025-01-01", EndDate: "2025-01-31"},
		{ID: "r2", ReportName: "February", StartDate: "2025-02-01", EndDate: "2025-02-28"},
		{ID: "r3", ReportName: "March", StartDate: "2025-03-01", EndDate: "2025-03-31"},
	}}
	h := newHarness(t, api)
	h.signIn(core.RoleUser)
	id := viewID(t, h.do(http.MethodGet, "/transaction-reports", nil, false).Body.String())

	rec := h.do(http.MethodPost, "/ui/transaction-reports/bulk-delete",
		url.Values{"view": {id}, "start_date": {"2025-02-31"}}, true)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid filter")
	assert.Len(t, api.txReports, 3, "nothing was deleted")
	assert.Empty(t, rec.Header().Get("HX-Trigger"))
	assert.Zero(t, h.srv.notes.Pending(h.profile), "validation stays inline")
}

func TestTransactionReports_BulkDeleteRemovesVisibleOnly(t *testing.T) {
	api := &fakeBackend{txReports: []core.TransactionReport{
		{ID: "r1", ReportName: "January", StartDate: "2025-01-01", EndDate: "2025-01-31"},
		{ID: "r2", ReportName: "February", StartDate: "2025-02-01", EndDate: "2025-02-28"},
		{ID: "r3", ReportName: "March", StartDate: "2025-03-01", EndDate: "2025-03-31"},
	}}
	h := newHarness(t, api)
	h.signIn(core.RoleUser)
	id := viewID(t, h.do(http.MethodGet, "/transaction-reports", nil, false).Body.String())

	rec := h.do(http.MethodPost, "/ui/transaction-reports/bulk-delete",
		url.Values{"view": {id}, "start_date": {"2025-02-01"}}, true)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, api.txReports, 1)
	assert.Equal(t, "r1", api.txReports[0].ID)
	assert.Contains(t, rec.Header().Get("HX-Trigger"), "All transaction reports deleted successfully")
}

func TestTransactionReport_DownloadDisabledUntilGenerated(t *testing.T) {
	api := &fakeBackend{reportURL: "https://files.example.com/r1.xlsx"}
	h := newHarness(t, api)
	h.signIn(core.RoleUser)

	rec := h.do(http.MethodGet, "/transactions/report/download", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	page := h.do(http.MethodGet, "/transactions", nil, false)
	assert.Contains(t, page.Body.String(), `title="Generate a report first"`)

	rec = h.do(http.MethodPost, "/transactions/report", url.Values{"start_date": {"2024-02-01"}, "end_date": {"2024-02-29"}}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/transactions/report/download"`)
	assert.Equal(t, "01/02/2024", api.reportParams.Get("start_date"))
	assert.Equal(t, "29/02/2024", api.reportParams.Get("end_date"))

	rec = h.do(http.MethodGet, "/transactions/report/download", nil, false)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://files.example.com/r1.xlsx", rec.Header().Get("Location"))

	// a new sign-in starts without a report
	require.NoError(t, h.store.Clear(context.Background(), h.profile))
	h.signIn(core.RoleUser)
	rec = h.do(http.MethodGet, "/transactions/report/download", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfile_FetchFailureNotifiedOncePerPage(t *testing.T) {
	api := &fakeBackend{profileErr: &resource.Failure{Kind: resource.KindServer, Status: 500, Message: "profile service down"}}
	h := newHarness(t, api)
	h.signIn(core.RoleUser)

	page := h.do(http.MethodGet, "/profile", nil, false)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "profile service down")
	id := viewID(t, page.Body.String())

	for range 3 {
		rec := h.do(http.MethodGet, "/ui/profile?view="+id, nil, true)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Header().Get("HX-Trigger"), "profile service down")
	}

	// a second mount has its own latch
	again := h.do(http.MethodGet, "/profile", nil, false)
	assert.Contains(t, again.Body.String(), "profile service down")
}

func TestProfileDelete_RequiresPasswordAndSignsOut(t *testing.T) {
	h := newHarness(t, &fakeBackend{})
	h.signIn(core.RoleUser)

	rec := h.do(http.MethodPost, "/profile/delete", url.Values{}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = h.do(http.MethodPost, "/profile/delete", url.Values{"password": {"secret"}}, true)
	assert.Equal(t, "/login", rec.Header().Get("HX-Redirect"))
	sess, _ := h.store.Get(context.Background(), h.profile)
	assert.True(t, sess.IsZero())
}

func TestUserAction_Deactivate(t *testing.T) {
	api := &fakeBackend{users: []core.User{{ID: "u9", Username: "zed", Status: core.StatusActive}}}
	h := newHarness(t, api)
	h.signIn(core.RoleAdmin)

	rec := h.do(http.MethodPost, "/ui/admin/users/u9/deactivate", url.Values{}, true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"u9"}, api.deactivated)
	assert.Contains(t, rec.Header().Get("HX-Trigger"), "Deactivation scheduled")
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	rec := h.do(http.MethodGet, "/healthz", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = h.do(http.MethodGet, "/readyz", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/metrics", nil, false)
	assert.Contains(t, rec.Body.String(), "logins_total 0")
	assert.Contains(t, rec.Body.String(), "view_instances")
}

func TestSessionEvents_StreamsClear(t *testing.T) {
	h := newHarness(t, &fakeBackend{})
	h.signIn(core.RoleUser)

	ts := httptest.NewServer(h.srv.Handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/ui/session-events", nil)
	require.NoError(t, err)
	req.AddCookie(h.cookie)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	// wait for the stream preamble so the subscription is in place
	for l := range lines {
		if strings.HasPrefix(l, "retry:") {
			break
		}
	}
	require.NoError(t, h.store.Clear(context.Background(), h.profile))

	var event, data string
	for l := range lines {
		if strings.HasPrefix(l, "event: ") && event == "" {
			event = strings.TrimPrefix(l, "event: ")
		}
		if strings.HasPrefix(l, "data: ") && event != "" {
			data = strings.TrimPrefix(l, "data: ")
			break
		}
	}
	assert.Equal(t, EventSessionChanged, event)
	assert.JSONEq(t, `{"authenticated":false,"role":""}`, data)
}
