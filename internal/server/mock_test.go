package server

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/watanabekazunori/tonarino/internal/competitor"
	"github.com/watanabekazunori/tonarino/internal/model"
	"github.com/watanabekazunori/tonarino/internal/report"
	"github.com/watanabekazunori/tonarino/internal/store"
	"github.com/watanabekazunori/tonarino/pkg/google"
	"github.com/watanabekazunori/tonarino/pkg/sheets"
)

type fakePlaces struct {
	resp    *google.SearchResponse
	err     error
	queries []string
}

func (f *fakePlaces) TextSearch(_ context.Context, query string) (*google.SearchResponse, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeFinder struct {
	result *competitor.Result
	err    error
	calls  []competitor.Self
}

func (f *fakeFinder) Discover(_ context.Context, self competitor.Self) (*competitor.Result, error) {
	f.calls = append(f.calls, self)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeRunner struct {
	rec   *model.ReportRecord
	err   error
	calls []report.Request
}

func (f *fakeRunner) Run(_ context.Context, req report.Request) (*model.ReportRecord, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.rec, nil
}

type fakeStore struct {
	searches  []model.SearchLog
	saveErr   error
	reports   map[string]model.ReportRecord
	listErr   error
	listCalls []string
}

func (f *fakeStore) SaveSearch(_ context.Context, s *model.SearchLog) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.searches = append(f.searches, *s)
	return nil
}

func (f *fakeStore) GetReport(_ context.Context, id, userID string) (*model.ReportRecord, error) {
	rec, ok := f.reports[id]
	if !ok || rec.UserID != userID {
		return nil, storeNotFound(id)
	}
	return &rec, nil
}

func (f *fakeStore) ListReports(_ context.Context, userID string) ([]model.ReportRecord, error) {
	f.listCalls = append(f.listCalls, userID)
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.ReportRecord
	for _, rec := range f.reports {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeSheets struct {
	mu   sync.Mutex
	rows []sheets.Row
	err  error
}

func (f *fakeSheets) Append(_ context.Context, row sheets.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, row)
	return nil
}

func storeNotFound(id string) error {
	return eris.Wrapf(store.ErrNotFound, "report %s", id)
}
