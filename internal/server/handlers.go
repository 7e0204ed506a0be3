package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/watanabekazunori/tonarino/internal/competitor"
	"github.com/watanabekazunori/tonarino/internal/model"
	"github.com/watanabekazunori/tonarino/internal/report"
	"github.com/watanabekazunori/tonarino/pkg/sheets"
)

const (
	searchSuffix     = " 飲食店"
	maxSearchResults = 5
	sheetsTimeout    = 10 * time.Second
)

type searchResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	Lat              float64  `json:"lat"`
	Lng              float64  `json:"lng"`
	Types            []string `json:"types"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}

	resp, err := s.deps.Places.TextSearch(r.Context(), q+searchSuffix)
	if err != nil {
		s.fail(w, r, eris.Wrap(err, "server: text search"), "Search failed")
		return
	}

	results := make([]searchResult, 0, maxSearchResults)
	for _, p := range resp.Results {
		if len(results) == maxSearchResults {
			break
		}
		types := p.Types
		if types == nil {
			types = []string{}
		}
		results = append(results, searchResult{
			PlaceID:          p.PlaceID,
			Name:             p.Name,
			FormattedAddress: p.FormattedAddress,
			Rating:           p.Rating,
			UserRatingsTotal: p.UserRatingsTotal,
			Lat:              p.Geometry.Location.Lat,
			Lng:              p.Geometry.Location.Lng,
			Types:            types,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// coordinate accepts a JSON number or a numeric string. Absent, null, and
// empty values leave it unset.
type coordinate struct {
	value float64
	set   bool
}

func (c *coordinate) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*c = coordinate{}
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return eris.Wrapf(competitor.ErrInvalidInput, "bad coordinate %q", string(data))
	}
	*c = coordinate{value: v, set: true}
	return nil
}

type competitorsRequest struct {
	PlaceID string     `json:"place_id"`
	Name    string     `json:"name"`
	Lat     coordinate `json:"lat"`
	Lng     coordinate `json:"lng"`
	Query   string     `json:"query"`
	Types   string     `json:"types"` // comma-separated
}

// validate rejects requests without both coordinates.
func (req competitorsRequest) validate() error {
	if !req.Lat.set || !req.Lng.set {
		return eris.Wrap(competitor.ErrInvalidInput, "lat and lng are required")
	}
	return nil
}

func (req competitorsRequest) self() competitor.Self {
	var types []string
	for _, t := range strings.Split(req.Types, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	return competitor.Self{
		PlaceID: strings.TrimSpace(req.PlaceID),
		Name:    req.Name,
		Lat:     req.Lat.value,
		Lng:     req.Lng.value,
		Types:   types,
	}
}

func (s *Server) handleCompetitors(w http.ResponseWriter, r *http.Request) {
	var req competitorsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing parameters")
		return
	}
	if err := req.validate(); err != nil {
		s.fail(w, r, err, "")
		return
	}
	self := req.self()
	if err := self.Validate(); err != nil {
		s.fail(w, r, err, "")
		return
	}

	s.logSearch(r, req)

	result, err := s.deps.Competitors.Discover(r.Context(), self)
	if err != nil {
		s.fail(w, r, err, "Failed to get competitors")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// logSearch records the request in the store and the search sheet. Both
// are best effort.
func (s *Server) logSearch(r *http.Request, req competitorsRequest) {
	query := req.Query
	if query == "" {
		query = req.Name
	}
	entry := &model.SearchLog{
		Query:     query,
		PlaceID:   req.PlaceID,
		PlaceName: req.Name,
		Lat:       req.Lat.value,
		Lng:       req.Lng.value,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	}

	if s.deps.Store != nil {
		if err := s.deps.Store.SaveSearch(r.Context(), entry); err != nil {
			s.log.Warn("search log insert failed", zap.String("place_id", req.PlaceID), zap.Error(err))
		}
	}

	row := sheets.Search{
		Query:     entry.Query,
		PlaceName: entry.PlaceName,
		PlaceID:   entry.PlaceID,
		Lat:       entry.Lat,
		Lng:       entry.Lng,
		IP:        entry.IP,
		UserAgent: entry.UserAgent,
	}.Row(s.now())
	s.appendAsync(r.Context(), row)
}

// clientIP prefers the proxy headers the deployment sets.
func clientIP(r *http.Request) string {
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		return v
	}
	return r.Header.Get("X-Real-Ip")
}

func (s *Server) appendAsync(ctx context.Context, row sheets.Row) {
	if s.deps.Sheets == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.background(func() {
		ctx, cancel := context.WithTimeout(ctx, sheetsTimeout)
		defer cancel()
		if err := s.deps.Sheets.Append(ctx, row); err != nil {
			s.log.Warn("sheets append failed", zap.String("sheet", row.SheetName), zap.Error(err))
		}
	})
}

type reportRequest struct {
	PlaceID     string   `json:"place_id"`
	Competitors []string `json:"competitors"`
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.PlaceID) == "" {
		writeError(w, http.StatusBadRequest, "place_id is required")
		return
	}

	rec, err := s.deps.Reports.Run(r.Context(), report.Request{
		UserID:        UserID(r.Context()),
		PlaceID:       req.PlaceID,
		CompetitorIDs: req.Competitors,
	})
	if err != nil {
		s.fail(w, r, err, "Failed to generate report")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": rec})
}

func (s *Server) handleGetReports(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	if id := r.URL.Query().Get("id"); id != "" {
		rec, err := s.deps.Store.GetReport(r.Context(), id, userID)
		if err != nil {
			s.fail(w, r, err, "Failed to fetch reports")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"report": rec})
		return
	}

	reports, err := s.deps.Store.ListReports(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err, "Failed to fetch reports")
		return
	}
	if reports == nil {
		reports = []model.ReportRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func (s *Server) handleInquiry(w http.ResponseWriter, r *http.Request) {
	var req sheets.Inquiry
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "必須項目が入力されていません")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "必須項目が入力されていません")
		return
	}
	if s.deps.Sheets == nil {
		writeError(w, http.StatusInternalServerError, "送信に失敗しました")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), sheetsTimeout)
	defer cancel()
	if err := s.deps.Sheets.Append(ctx, req.Row(s.now())); err != nil {
		s.log.Error("inquiry append failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "送信に失敗しました")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req sheets.Registration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Warn("registration body unreadable", zap.Error(err))
	} else {
		s.appendAsync(r.Context(), req.Row(s.now()))
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
