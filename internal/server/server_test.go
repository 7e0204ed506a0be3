package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watanabekazunori/tonarino/internal/competitor"
	"github.com/watanabekazunori/tonarino/internal/model"
	"github.com/watanabekazunori/tonarino/internal/report"
	"github.com/watanabekazunori/tonarino/pkg/google"
	"github.com/watanabekazunori/tonarino/pkg/sheets"
)

const testSecret = "test-secret"

type harness struct {
	places  *fakePlaces
	finder  *fakeFinder
	runner  *fakeRunner
	store   *fakeStore
	sheets  *fakeSheets
	handler http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		places: &fakePlaces{resp: &google.SearchResponse{}},
		finder: &fakeFinder{result: &competitor.Result{Competitors: []model.Competitor{}, Rank: 1, Total: 1, SearchRadius: competitor.SearchRadius}},
		runner: &fakeRunner{},
		store:  &fakeStore{reports: map[string]model.ReportRecord{}},
		sheets: &fakeSheets{},
	}
	s := New(Config{Auth: AuthConfig{Secret: testSecret}}, Deps{
		Places:      h.places,
		Competitors: h.finder,
		Reports:     h.runner,
		Store:       h.store,
		Sheets:      h.sheets,
	})
	s.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	s.background = func(f func()) { f() }
	h.handler = s.Handler()
	return h
}

func (h *harness) do(t *testing.T, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func signToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func bearer(t *testing.T, sub string) map[string]string {
	t.Helper()
	tok := signToken(t, testSecret, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	return map[string]string{"Authorization": "Bearer " + tok}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodGet, "/health", "", nil)

	rec := h.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tonarino_http_requests_total")
}

func TestSearch(t *testing.T) {
	h := newHarness(t)
	for i := range 7 {
		h.places.resp.Results = append(h.places.resp.Results, google.Place{
			PlaceID:          "p" + string(rune('a'+i)),
			Name:             "店",
			FormattedAddress: "東京都渋谷区",
			Rating:           4.1,
			UserRatingsTotal: 10,
			Geometry:         google.Geometry{Location: google.LatLng{Lat: 35.6, Lng: 139.7}},
		})
	}

	rec := h.do(t, http.MethodGet, "/api/search?q=一蘭", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"一蘭 飲食店"}, h.places.queries)

	var body struct {
		Results []searchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 5)
	assert.Equal(t, "pa", body.Results[0].PlaceID)
	assert.Equal(t, 35.6, body.Results[0].Lat)
	assert.Equal(t, []string{}, body.Results[0].Types)
}

func TestSearch_MissingQuery(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/api/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Query is required", decodeBody(t, rec)["error"])
	assert.Empty(t, h.places.queries)
}

func TestSearch_UpstreamFailure(t *testing.T) {
	h := newHarness(t)
	h.places.err = errors.New("boom")

	rec := h.do(t, http.MethodGet, "/api/search?q=x", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Search failed", decodeBody(t, rec)["error"])
}

func TestCompetitors(t *testing.T) {
	h := newHarness(t)
	body := `{"place_id":"p1","name":"一蘭 渋谷店","lat":35.6595,"lng":"139.7005","types":"restaurant, food,"}`

	rec := h.do(t, http.MethodPost, "/api/competitors", body, map[string]string{
		"X-Forwarded-For": "203.0.113.7",
		"User-Agent":      "agent/1.0",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, h.finder.calls, 1)
	assert.Equal(t, competitor.Self{
		PlaceID: "p1",
		Name:    "一蘭 渋谷店",
		Lat:     35.6595,
		Lng:     139.7005,
		Types:   []string{"restaurant", "food"},
	}, h.finder.calls[0])

	require.Len(t, h.store.searches, 1)
	logged := h.store.searches[0]
	assert.Equal(t, "一蘭 渋谷店", logged.Query)
	assert.Equal(t, "203.0.113.7", logged.IP)
	assert.Equal(t, "agent/1.0", logged.UserAgent)

	require.Len(t, h.sheets.rows, 1)
	assert.Equal(t, sheets.SheetSearches, h.sheets.rows[0].SheetName)

	out := decodeBody(t, rec)
	assert.Equal(t, float64(1), out["rank"])
	assert.Equal(t, float64(competitor.SearchRadius), out["searchRadius"])
	assert.Equal(t, []any{}, out["competitors"])
}

func TestCompetitors_RealIPFallback(t *testing.T) {
	h := newHarness(t)
	body := `{"place_id":"p1","name":"n","lat":35,"lng":139,"query":"らーめん"}`

	rec := h.do(t, http.MethodPost, "/api/competitors", body, map[string]string{"X-Real-Ip": "198.51.100.1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, h.store.searches, 1)
	assert.Equal(t, "198.51.100.1", h.store.searches[0].IP)
	assert.Equal(t, "らーめん", h.store.searches[0].Query)
}

func TestCompetitors_LoggingFailuresAreIgnored(t *testing.T) {
	h := newHarness(t)
	h.store.saveErr = errors.New("db down")
	h.sheets.err = errors.New("webhook down")

	rec := h.do(t, http.MethodPost, "/api/competitors", `{"place_id":"p1","name":"n","lat":35,"lng":139}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, h.finder.calls, 1)
}

func TestCompetitors_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing place id", `{"name":"n","lat":35,"lng":139}`},
		{"latitude out of range", `{"place_id":"p1","lat":95,"lng":139}`},
		{"bad coordinate", `{"place_id":"p1","lat":"north","lng":139}`},
		{"not json", `place_id=p1`},
		{"coordinates missing", `{"place_id":"p1","name":"n"}`},
		{"latitude null", `{"place_id":"p1","lat":null,"lng":139}`},
		{"longitude empty string", `{"place_id":"p1","lat":35,"lng":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			rec := h.do(t, http.MethodPost, "/api/competitors", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, h.finder.calls)
			assert.Empty(t, h.store.searches)
		})
	}
}

func TestCompetitors_ExplicitZeroCoordinates(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/competitors", `{"place_id":"p1","name":"n","lat":0,"lng":"0"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, h.finder.calls, 1)
	assert.Zero(t, h.finder.calls[0].Lat)
	assert.Zero(t, h.finder.calls[0].Lng)
}

func TestCompetitors_DiscoveryFailure(t *testing.T) {
	h := newHarness(t)
	h.finder.err = errors.New("unexpected")

	rec := h.do(t, http.MethodPost, "/api/competitors", `{"place_id":"p1","name":"n","lat":35,"lng":139}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to get competitors", decodeBody(t, rec)["error"])
}

func TestCreateReport(t *testing.T) {
	h := newHarness(t)
	h.runner.rec = &model.ReportRecord{ID: "r1", UserID: "user-1", PlaceID: "p1"}

	rec := h.do(t, http.MethodPost, "/api/report", `{"place_id":"p1","competitors":["c1","c2"]}`, bearer(t, "user-1"))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, h.runner.calls, 1)
	assert.Equal(t, report.Request{UserID: "user-1", PlaceID: "p1", CompetitorIDs: []string{"c1", "c2"}}, h.runner.calls[0])

	out := decodeBody(t, rec)
	rep, ok := out["report"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "r1", rep["id"])
}

func TestCreateReport_Errors(t *testing.T) {
	t.Run("missing place id", func(t *testing.T) {
		h := newHarness(t)
		rec := h.do(t, http.MethodPost, "/api/report", `{"competitors":[]}`, bearer(t, "u"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, h.runner.calls)
	})
	t.Run("invalid input from runner", func(t *testing.T) {
		h := newHarness(t)
		h.runner.err = eris.Wrap(report.ErrInvalidInput, "user id is required")
		rec := h.do(t, http.MethodPost, "/api/report", `{"place_id":"p1"}`, bearer(t, "u"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("generation failure", func(t *testing.T) {
		h := newHarness(t)
		h.runner.err = errors.New("self lookup failed")
		rec := h.do(t, http.MethodPost, "/api/report", `{"place_id":"p1"}`, bearer(t, "u"))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Failed to generate report", decodeBody(t, rec)["error"])
	})
}

func TestReportRoutes_RequireAuth(t *testing.T) {
	expired := signToken(t, testSecret, jwt.RegisteredClaims{
		Subject:   "u",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	wrongKey := signToken(t, "other-secret", jwt.RegisteredClaims{Subject: "u"})
	noSubject := signToken(t, testSecret, jwt.RegisteredClaims{})

	tests := []struct {
		name   string
		header map[string]string
	}{
		{"no header", nil},
		{"not bearer", map[string]string{"Authorization": "Basic abc"}},
		{"empty token", map[string]string{"Authorization": "Bearer "}},
		{"garbage", map[string]string{"Authorization": "Bearer not.a.jwt"}},
		{"expired", map[string]string{"Authorization": "Bearer " + expired}},
		{"wrong key", map[string]string{"Authorization": "Bearer " + wrongKey}},
		{"no subject", map[string]string{"Authorization": "Bearer " + noSubject}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			rec := h.do(t, http.MethodGet, "/api/report", "", tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Unauthorized", decodeBody(t, rec)["error"])

			rec = h.do(t, http.MethodPost, "/api/report", `{"place_id":"p1"}`, tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Empty(t, h.runner.calls)
		})
	}
}

func TestGetReports(t *testing.T) {
	h := newHarness(t)
	h.store.reports["r1"] = model.ReportRecord{ID: "r1", UserID: "u1", PlaceID: "p1"}
	h.store.reports["r2"] = model.ReportRecord{ID: "r2", UserID: "u2", PlaceID: "p2"}

	rec := h.do(t, http.MethodGet, "/api/report", "", bearer(t, "u1"))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Reports []model.ReportRecord `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Reports, 1)
	assert.Equal(t, "r1", list.Reports[0].ID)

	rec = h.do(t, http.MethodGet, "/api/report?id=r1", "", bearer(t, "u1"))
	require.Equal(t, http.StatusOK, rec.Code)
	var one struct {
		Report model.ReportRecord `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &one))
	assert.Equal(t, "p1", one.Report.PlaceID)
}

func TestGetReports_EmptyList(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/api/report", "", bearer(t, "nobody"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reports":[]}`, rec.Body.String())
}

func TestGetReports_NotOwned(t *testing.T) {
	h := newHarness(t)
	h.store.reports["r2"] = model.ReportRecord{ID: "r2", UserID: "u2"}

	rec := h.do(t, http.MethodGet, "/api/report?id=r2", "", bearer(t, "u1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetReports_StoreFailure(t *testing.T) {
	h := newHarness(t)
	h.store.listErr = errors.New("db down")

	rec := h.do(t, http.MethodGet, "/api/report", "", bearer(t, "u1"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to fetch reports", decodeBody(t, rec)["error"])
}

func TestInquiry(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/api/inquiry", `{"name":"山田","email":"a@example.com","message":"質問です"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	require.Len(t, h.sheets.rows, 1)
	row := h.sheets.rows[0]
	assert.Equal(t, sheets.SheetInquiries, row.SheetName)
	assert.Equal(t, []any{"2025-03-01T09:00:00.000Z", "山田", "a@example.com", "", "質問です"}, row.Values)
}

func TestInquiry_Errors(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		h := newHarness(t)
		rec := h.do(t, http.MethodPost, "/api/inquiry", `{"name":"山田","email":"a@example.com"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, h.sheets.rows)
	})
	t.Run("sheets failure", func(t *testing.T) {
		h := newHarness(t)
		h.sheets.err = errors.New("webhook down")
		rec := h.do(t, http.MethodPost, "/api/inquiry", `{"name":"a","email":"b","message":"c"}`, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "送信に失敗しました", decodeBody(t, rec)["error"])
	})
}

func TestRegister_AlwaysSucceeds(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		sheetErr error
		wantRows int
	}{
		{"ok", `{"userName":"山田","email":"a@example.com","challenge":"集客","challengeOther":"SNS"}`, nil, 1},
		{"sheets failure", `{"userName":"山田"}`, errors.New("down"), 0},
		{"bad body", `{`, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.sheets.err = tt.sheetErr
			rec := h.do(t, http.MethodPost, "/api/sheets/register", tt.body, nil)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"success":true}`, rec.Body.String())
			assert.Len(t, h.sheets.rows, tt.wantRows)
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodOptions, "/api/competitors", "", map[string]string{
		"Origin":                        "https://example.com",
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusOf(eris.Wrap(competitor.ErrInvalidInput, "x")))
	assert.Equal(t, http.StatusBadRequest, statusOf(eris.Wrap(report.ErrInvalidInput, "x")))
	assert.Equal(t, http.StatusNotFound, statusOf(storeNotFound("r")))
	assert.Equal(t, http.StatusInternalServerError, statusOf(errors.New("x")))
}
