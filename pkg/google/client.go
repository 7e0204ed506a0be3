package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/watanabekazunori/tonarino/internal/resilience"
)

const (
	defaultBaseURL  = "https://maps.googleapis.com/maps/api/place"
	defaultLanguage = "ja"
)

// Places API response statuses.
const (
	StatusOK             = "OK"
	StatusZeroResults    = "ZERO_RESULTS"
	StatusOverQueryLimit = "OVER_QUERY_LIMIT"
	StatusRequestDenied  = "REQUEST_DENIED"
	StatusInvalidRequest = "INVALID_REQUEST"
	StatusNotFound       = "NOT_FOUND"
	StatusUnknownError   = "UNKNOWN_ERROR"
)

// BusinessStatusOperational marks a place that is open for business.
const BusinessStatusOperational = "OPERATIONAL"

// DetailsFields is the field list requested when reviews are needed.
var DetailsFields = []string{"name", "rating", "user_ratings_total", "types", "reviews"}

// Client performs Google Places API operations.
type Client interface {
	NearbySearch(ctx context.Context, req NearbySearchRequest) (*SearchResponse, error)
	TextSearch(ctx context.Context, query string) (*SearchResponse, error)
	Details(ctx context.Context, placeID string, fields ...string) (*DetailsResponse, error)
}

// NearbySearchRequest holds parameters for a nearby search.
type NearbySearchRequest struct {
	Lat     float64
	Lng     float64
	Radius  int // meters
	Type    string
	Keyword string // omitted when empty
}

// SearchResponse is the response from Nearby Search and Text Search.
type SearchResponse struct {
	Results      []Place `json:"results"`
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// Place represents a place returned by a search.
type Place struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	BusinessStatus   string   `json:"business_status,omitempty"`
	Geometry         Geometry `json:"geometry"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	Vicinity         string   `json:"vicinity,omitempty"`
	FormattedAddress string   `json:"formatted_address,omitempty"`
	Types            []string `json:"types"`
}

// Operational reports whether the place is not explicitly closed. A missing
// business status counts as operational.
func (p Place) Operational() bool {
	return p.BusinessStatus == "" || p.BusinessStatus == BusinessStatusOperational
}

// Address returns the formatted address, falling back to the vicinity that
// Nearby Search returns instead.
func (p Place) Address() string {
	if p.FormattedAddress != "" {
		return p.FormattedAddress
	}
	return p.Vicinity
}

// Geometry holds the place location.
type Geometry struct {
	Location LatLng `json:"location"`
}

// LatLng is a coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DetailsResponse is the response from Place Details.
type DetailsResponse struct {
	Result       PlaceDetails `json:"result"`
	Status       string       `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
}

// PlaceDetails holds the requested detail fields of a place.
type PlaceDetails struct {
	PlaceID          string   `json:"place_id,omitempty"`
	Name             string   `json:"name"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	FormattedAddress string   `json:"formatted_address,omitempty"`
	Geometry         Geometry `json:"geometry"`
	Types            []string `json:"types,omitempty"`
	Reviews          []Review `json:"reviews,omitempty"`
}

// Review is a single user review. At most five are returned per place.
type Review struct {
	AuthorName              string `json:"author_name"`
	Rating                  int    `json:"rating"`
	Text                    string `json:"text"`
	Time                    int64  `json:"time"`
	RelativeTimeDescription string `json:"relative_time_description,omitempty"`
}

// APIError is returned for non-200 HTTP responses and for response bodies
// whose status is neither OK nor ZERO_RESULTS.
type APIError struct {
	StatusCode int    // HTTP status
	Status     string // Places API status, empty for HTTP failures
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("google: status %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("google: unexpected status %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	switch e.Status {
	case StatusOverQueryLimit, StatusUnknownError:
		return true
	case "":
		return resilience.IsTransientHTTPStatus(e.StatusCode)
	default:
		return false
	}
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithLanguage sets the response language. Defaults to "ja".
func WithLanguage(lang string) Option {
	return func(c *httpClient) {
		c.language = lang
	}
}

type httpClient struct {
	apiKey   string
	baseURL  string
	language string
	http     *http.Client
}

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		language: defaultLanguage,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) NearbySearch(ctx context.Context, req NearbySearchRequest) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("location", formatLatLng(req.Lat, req.Lng))
	q.Set("radius", strconv.Itoa(req.Radius))
	if req.Type != "" {
		q.Set("type", req.Type)
	}
	if req.Keyword != "" {
		q.Set("keyword", req.Keyword)
	}

	var result SearchResponse
	if err := c.get(ctx, "/nearbysearch/json", q, &result); err != nil {
		return nil, err
	}
	if err := checkStatus(result.Status, result.ErrorMessage); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) TextSearch(ctx context.Context, query string) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("type", "restaurant|cafe|bar")

	var result SearchResponse
	if err := c.get(ctx, "/textsearch/json", q, &result); err != nil {
		return nil, err
	}
	if err := checkStatus(result.Status, result.ErrorMessage); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) Details(ctx context.Context, placeID string, fields ...string) (*DetailsResponse, error) {
	if len(fields) == 0 {
		fields = DetailsFields
	}
	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("fields", strings.Join(fields, ","))

	var result DetailsResponse
	if err := c.get(ctx, "/details/json", q, &result); err != nil {
		return nil, err
	}
	if err := checkStatus(result.Status, result.ErrorMessage); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values, out any) error {
	q.Set("language", c.language)
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "google: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "google: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "google: unmarshal response")
	}
	return nil
}

// checkStatus treats ZERO_RESULTS as success with an empty result list.
func checkStatus(status, message string) error {
	switch status {
	case StatusOK, StatusZeroResults, "":
		return nil
	default:
		return &APIError{StatusCode: http.StatusOK, Status: status, Message: message}
	}
}

func formatLatLng(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}
