package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"journal-desk/config"
	"journal-desk/models"
	"journal-desk/providers"
	"journal-desk/providers/appscript"
	"journal-desk/services"
	"journal-desk/storage"
)

const routesCSV = `issue_id,volume,number,year,issue_title,article_id,article_title,authors,abstract,keywords
v1n1,1,1,2023,Founding Issue,1,Islamic Finance Today,"Aisha Khan, Lecturer, a@k.org",Banks & <markets>,finance;banking
v2n1,2,1,2024,Second Issue,2,Water Rights,Omar,Rivers and law,law
v2n2,2,2,2024,Third Issue,3,Islamic Art,Lina,Patterns,art
`

type staticProvider struct {
	text string
	err  error
}

func (p *staticProvider) Name() string { return "static" }

func (p *staticProvider) Fetch(ctx context.Context) (string, error) {
	return p.text, p.err
}

type fakeAuth struct {
	res *appscript.Result
	err error
}

func (f *fakeAuth) Login(ctx context.Context, creds appscript.Credentials) (*appscript.Result, error) {
	return f.res, f.err
}

func (f *fakeAuth) Dashboard(ctx context.Context, email string) (*appscript.Result, error) {
	return f.res, f.err
}

type testServer struct {
	router   *gin.Engine
	provider *staticProvider
	catalog  *services.CatalogService
	auth     *fakeAuth
}

func newTestServer(t *testing.T, cfg *config.Config, load bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	provider := &staticProvider{text: routesCSV}
	catalog := services.NewCatalogService(provider, "", zap.NewNop())
	if load {
		_, err := catalog.Reload(context.Background())
		require.NoError(t, err)
	}
	auth := &fakeAuth{}
	router := newRouter(cfg, catalog, storage.NewMemoryStore(), auth, zap.NewNop())
	return &testServer{router: router, provider: provider, catalog: catalog, auth: auth}
}

func (s *testServer) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &config.Config{}, false)
	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["catalog_loaded"])
}

func TestCatalogNotLoaded(t *testing.T) {
	s := newTestServer(t, &config.Config{}, false)
	w := s.do(http.MethodGet, "/issues", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestIssues_SortAndFilter(t *testing.T) {
	s := newTestServer(t, &config.Config{}, true)

	w := s.do(http.MethodGet, "/issues", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Issues []issueSummary `json:"issues"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Issues, 3)
	assert.Equal(t, "v2n2", resp.Issues[0].ID)
	assert.Equal(t, "v1n1", resp.Issues[2].ID)

	w = s.do(http.MethodGet, "/issues?sort=oldest&year=2024", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Issues, 2)
	assert.Equal(t, "v2n1", resp.Issues[0].ID)

	w = s.do(http.MethodGet, "/issues?year=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIssueAndArticleLookup(t *testing.T) {
	s := newTestServer(t, &config.Config{}, true)

	w := s.do(http.MethodGet, "/issues/v1n1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var issue models.Issue
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &issue))
	require.Len(t, issue.Articles, 1)
	assert.Equal(t, "Aisha Khan", issue.Articles[0].Authors[0].Name)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/issues/nope", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/articles/2", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/articles/99", "", nil).Code)
}

func TestSearch_WithHighlight(t *testing.T) {
	s := newTestServer(t, &config.Config{}, true)

	w := s.do(http.MethodGet, "/search?q=islamic&highlight=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Count   int         `json:"count"`
		Results []searchHit `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, 3, resp.Results[0].Article.ID)
	assert.Equal(t, `<span class="search-highlight">Islamic</span> Art`, resp.Results[0].TitleHTML)

	w = s.do(http.MethodGet, "/search?q=banks&highlight=1", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, `<span class="search-highlight">Banks</span> &amp; &lt;markets&gt;`, resp.Results[0].AbstractHTML)

	w = s.do(http.MethodGet, "/search?volume=2", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Empty(t, resp.Results[0].TitleHTML)
}

func TestCitations(t *testing.T) {
	s := newTestServer(t, &config.Config{}, true)

	w := s.do(http.MethodGet, "/articles/1/citation", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Aisha Khan (2023). Islamic Finance Today. Founding Issue, Vol. 1(1).", decode(t, w)["reference"])

	w = s.do(http.MethodGet, "/issues/v2n2/references", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"Lina (2024). Islamic Art. Third Issue, Vol. 2(2)."}, decode(t, w)["references"])

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/issues/ghost/references", "", nil).Code)
}

func TestFacets(t *testing.T) {
	s := newTestServer(t, &config.Config{}, true)
	w := s.do(http.MethodGet, "/facets", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var f services.Facets
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &f))
	assert.Equal(t, []int{2024, 2023}, f.Years)
	assert.Equal(t, []int{2, 1}, f.Volumes)
}

func TestReload_RequiresKeyAndMapsErrors(t *testing.T) {
	s := newTestServer(t, &config.Config{APISecretKey: "secret"}, true)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/catalog/reload", "", nil).Code)

	key := map[string]string{"X-API-KEY": "secret"}
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/catalog/reload", "", key).Code)

	s.provider.err = &providers.NetworkError{Kind: providers.KindTimeout}
	w := s.do(http.MethodPost, "/catalog/reload", "", key)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, "timeout", decode(t, w)["error"])

	s.provider.err = nil
	s.provider.text = "issue_id"
	w = s.do(http.MethodPost, "/catalog/reload", "", key)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "malformed_input", decode(t, w)["error"])

	// alter Stand bleibt sichtbar
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/issues/v1n1", "", nil).Code)
}

func TestBookmarks(t *testing.T) {
	s := newTestServer(t, &config.Config{}, true)

	w := s.do(http.MethodGet, "/bookmarks", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sessionID := w.Header().Get("X-Session-ID")
	userID := w.Header().Get("X-User-ID")
	_, err := uuid.Parse(sessionID)
	require.NoError(t, err)
	_, err = uuid.Parse(userID)
	require.NoError(t, err)

	h := map[string]string{"X-Session-ID": sessionID}
	w = s.do(http.MethodPost, "/bookmarks", `{"issue_id":"v2n1"}`, h)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, userID, w.Header().Get("X-User-ID"))

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/bookmarks", `{"issue_id":"ghost"}`, h).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/bookmarks", `{}`, h).Code)

	w = s.do(http.MethodGet, "/bookmarks", "", h)
	var list struct {
		Bookmarks []struct {
			IssueID string        `json:"issue_id"`
			Issue   *issueSummary `json:"issue"`
		} `json:"bookmarks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Bookmarks, 1)
	assert.Equal(t, "v2n1", list.Bookmarks[0].IssueID)
	require.NotNil(t, list.Bookmarks[0].Issue)
	assert.Equal(t, "Second Issue", list.Bookmarks[0].Issue.Title)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/bookmarks/v2n1", "", h).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/bookmarks/v2n1", "", h).Code)
}

func TestAuth_LoginViews(t *testing.T) {
	s := newTestServer(t, &config.Config{}, false)
	s.auth.res = &appscript.Result{
		User: models.User{Name: "Ben", Email: "ben@x.org", Role: models.RoleMember, Team: "north"},
		Dashboard: models.Dashboard{
			Summary: map[string]int{"present": 2},
			Records: []models.AttendanceRecord{
				{Member: "Ben", Team: "north", Status: "present"},
				{Member: "Ana", Team: "north", Status: "absent"},
			},
		},
	}

	w := s.do(http.MethodPost, "/auth/login", `{"email":"ben@x.org","password":"pw"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		View models.DashboardView `json:"view"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.RoleMember, resp.View.User.Role)
	require.Len(t, resp.View.Records, 1)
	assert.Nil(t, resp.View.Summary)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/auth/login", `{"email":"ben@x.org"}`, nil).Code)
}

func TestAuth_ErrorMapping(t *testing.T) {
	s := newTestServer(t, &config.Config{}, false)

	s.auth.err = &appscript.BackendError{Message: "invalid password"}
	w := s.do(http.MethodPost, "/auth/login", `{"email":"a@b","password":"x"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid password", decode(t, w)["error"])

	s.auth.err = &providers.NetworkError{Kind: providers.KindHTTPStatus, StatusCode: 500}
	w = s.do(http.MethodPost, "/auth/dashboard", `{"email":"a@b"}`, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	s.auth.err = appscript.ErrNotConfigured
	w = s.do(http.MethodPost, "/auth/dashboard", `{"email":"a@b"}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
