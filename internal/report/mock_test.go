package report

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/watanabekazunori/tonarino/internal/model"
	"github.com/watanabekazunori/tonarino/pkg/anthropic"
	"github.com/watanabekazunori/tonarino/pkg/google"
)

// fakeDetails implements DetailsSource for testing. It is called from
// several goroutines.
type fakeDetails struct {
	mu     sync.Mutex
	places map[string]google.PlaceDetails
	errs   map[string]error
	calls  []string
}

func (f *fakeDetails) Details(_ context.Context, placeID string, _ ...string) (*google.DetailsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, placeID)
	if err := f.errs[placeID]; err != nil {
		return nil, err
	}
	return &google.DetailsResponse{Result: f.places[placeID], Status: google.StatusOK}, nil
}

// fakeGenerator returns queued responses in order and records prompts.
type fakeGenerator struct {
	responses []string
	errs      []error
	prompts   []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	i := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("no response queued")
}

type fakeRecorder struct {
	saved []*model.ReportRecord
	err   error
}

func (f *fakeRecorder) CreateReport(_ context.Context, rec *model.ReportRecord) error {
	if f.err != nil {
		return f.err
	}
	rec.ID = "rep-1"
	f.saved = append(f.saved, rec)
	return nil
}

// fakeMessages implements anthropic.Client with a scripted sequence of
// results.
type fakeMessages struct {
	errs  []error
	text  string
	calls []anthropic.MessageRequest
}

func (f *fakeMessages) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	i := len(f.calls)
	f.calls = append(f.calls, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return &anthropic.MessageResponse{
		Model:   req.Model,
		Content: []anthropic.ContentBlock{{Type: "text", Text: f.text}},
	}, nil
}

func recordSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

// scoresJSON renders a four-axis score array with the given scores in
// canonical order.
func scoresJSON(price, taste, service, comfort int) string {
	return `[
		{"axis": "price", "label": "価格", "score": ` + strconv.Itoa(price) + `, "summary": "安い"},
		{"axis": "taste", "label": "味", "score": ` + strconv.Itoa(taste) + `, "summary": "美味しい"},
		{"axis": "service", "label": "接客", "score": ` + strconv.Itoa(service) + `, "summary": "丁寧"},
		{"axis": "comfort", "label": "いごこちのよさ", "score": ` + strconv.Itoa(comfort) + `, "summary": "落ち着く"}
	]`
}
