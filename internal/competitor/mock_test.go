package competitor

import (
	"context"

	"github.com/watanabekazunori/tonarino/pkg/google"
)

// fakePlaces implements PlaceSource for testing. Nearby results are keyed by
// the request keyword.
type fakePlaces struct {
	byKeyword   map[string][]google.Place
	keywordErrs map[string]error
	details     google.PlaceDetails
	detailsErr  error

	nearbyCalls  []google.NearbySearchRequest
	detailsCalls []string
	detailFields [][]string
}

func (f *fakePlaces) NearbySearch(_ context.Context, req google.NearbySearchRequest) (*google.SearchResponse, error) {
	f.nearbyCalls = append(f.nearbyCalls, req)
	if err := f.keywordErrs[req.Keyword]; err != nil {
		return nil, err
	}
	return &google.SearchResponse{Results: f.byKeyword[req.Keyword], Status: google.StatusOK}, nil
}

func (f *fakePlaces) Details(_ context.Context, placeID string, fields ...string) (*google.DetailsResponse, error) {
	f.detailsCalls = append(f.detailsCalls, placeID)
	f.detailFields = append(f.detailFields, fields)
	if f.detailsErr != nil {
		return nil, f.detailsErr
	}
	return &google.DetailsResponse{Result: f.details, Status: google.StatusOK}, nil
}

func (f *fakePlaces) keywords() []string {
	out := make([]string, len(f.nearbyCalls))
	for i, c := range f.nearbyCalls {
		out[i] = c.Keyword
	}
	return out
}
