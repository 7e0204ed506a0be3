// Package competitor finds and ranks the establishments a store competes with:
// a multi-stage nearby search, genre classification and relevance scoring of
// every candidate, and the store's own rank among the survivors.
package competitor

import (
	"cmp"
	"context"
	"math"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/watanabekazunori/tonarino/internal/genre"
	"github.com/watanabekazunori/tonarino/internal/geo"
	"github.com/watanabekazunori/tonarino/internal/metrics"
	"github.com/watanabekazunori/tonarino/internal/model"
	"github.com/watanabekazunori/tonarino/pkg/google"
)

const (
	// SearchRadius is the nearby search radius in meters.
	SearchRadius = 2000
	// MinRelevanceScore is the lowest score a candidate may have to be kept.
	MinRelevanceScore = 30
	// MaxCompetitors caps the returned competitor list.
	MaxCompetitors = 10
	// broadenBelow triggers the keyword-less search when fewer unique
	// results have been gathered.
	broadenBelow = 5
)

// ErrInvalidInput is returned when the store descriptor is unusable.
var ErrInvalidInput = eris.New("competitor: invalid input")

// rankFields are the detail fields needed to rank the store itself.
var rankFields = []string{"rating", "user_ratings_total"}

// PlaceSource is the subset of the Places client discovery needs.
type PlaceSource interface {
	NearbySearch(ctx context.Context, req google.NearbySearchRequest) (*google.SearchResponse, error)
	Details(ctx context.Context, placeID string, fields ...string) (*google.DetailsResponse, error)
}

// Self describes the store competitors are searched for.
type Self struct {
	PlaceID string
	Name    string
	Lat     float64
	Lng     float64
	Types   []string
}

// Validate checks that the descriptor can drive a search.
func (s Self) Validate() error {
	if strings.TrimSpace(s.PlaceID) == "" {
		return eris.Wrap(ErrInvalidInput, "place id is required")
	}
	if !(geo.Point{Lat: s.Lat, Lng: s.Lng}).Valid() {
		return eris.Wrapf(ErrInvalidInput, "coordinates out of range: %v,%v", s.Lat, s.Lng)
	}
	return nil
}

// Genre summarizes the store's own classification.
type Genre struct {
	MainGenre string `json:"mainGenre" yaml:"main_genre"`
	SubGenre  string `json:"subGenre,omitempty" yaml:"sub_genre,omitempty"`
	Label     string `json:"label" yaml:"label"`
	IsChain   bool   `json:"isChain" yaml:"is_chain"`
	ChainName string `json:"chainName,omitempty" yaml:"chain_name,omitempty"`
}

// Result is the outcome of one discovery request.
type Result struct {
	Competitors   []model.Competitor `json:"competitors" yaml:"competitors"`
	Rank          int                `json:"rank" yaml:"rank"`
	Total         int                `json:"total" yaml:"total"`
	MyRating      float64            `json:"myRating" yaml:"my_rating"`
	MyReviewCount int                `json:"myReviewCount" yaml:"my_review_count"`
	MyGenre       Genre              `json:"myGenre" yaml:"my_genre"`
	SearchRadius  int                `json:"searchRadius" yaml:"search_radius"`
}

// Discoverer runs the discovery pipeline against a PlaceSource.
type Discoverer struct {
	places PlaceSource
}

// NewDiscoverer creates a Discoverer.
func NewDiscoverer(places PlaceSource) *Discoverer {
	return &Discoverer{places: places}
}

// Discover searches around self, keeps the most relevant nearby
// establishments, and ranks self among them. Search failures degrade to
// fewer results and never fail the request.
func (d *Discoverer) Discover(ctx context.Context, self Self) (*Result, error) {
	if err := self.Validate(); err != nil {
		return nil, err
	}

	info := genre.Classify(self.Name, self.Types...)
	log := zap.L().With(
		zap.String("component", "competitor"),
		zap.String("place_id", self.PlaceID),
		zap.String("genre", info.MainGenre),
		zap.String("sub_genre", info.SubGenre),
	)

	found := d.search(ctx, log, self, info)

	competitors := score(self, info, found.places())
	metrics.DiscoveryCompetitors.Observe(float64(len(competitors)))

	myRating, myReviews := d.selfRating(ctx, log, self.PlaceID)
	rank, total := rankAmong(competitors, myRating, myReviews)

	log.Info("discovery complete",
		zap.Int("candidates", found.len()),
		zap.Int("competitors", len(competitors)),
		zap.Int("rank", rank),
		zap.Int("total", total),
	)

	return &Result{
		Competitors:   competitors,
		Rank:          rank,
		Total:         total,
		MyRating:      myRating,
		MyReviewCount: myReviews,
		MyGenre: Genre{
			MainGenre: info.MainGenre,
			SubGenre:  info.SubGenre,
			Label:     info.Label,
			IsChain:   info.IsChain,
			ChainName: info.ChainName,
		},
		SearchRadius: SearchRadius,
	}, nil
}

// search runs the sub-genre, main-genre, and broadening stages in order.
func (d *Discoverer) search(ctx context.Context, log *zap.Logger, self Self, info genre.Info) *placeSet {
	found := newPlaceSet()

	if info.HasSubGenre() {
		for _, kw := range info.SearchKeywords {
			found.add(d.nearby(ctx, log, "sub_genre", self, info.GoogleType, kw))
		}
	}

	mainKeyword := info.MainGenre
	if info.IsDefault() {
		mainKeyword = ""
	}
	found.add(d.nearby(ctx, log, "main_genre", self, info.GoogleType, mainKeyword))

	if found.len() < broadenBelow {
		found.add(d.nearby(ctx, log, "broaden", self, info.GoogleType, ""))
	}

	return found
}

func (d *Discoverer) nearby(ctx context.Context, log *zap.Logger, stage string, self Self, placeType, keyword string) []google.Place {
	resp, err := d.places.NearbySearch(ctx, google.NearbySearchRequest{
		Lat:     self.Lat,
		Lng:     self.Lng,
		Radius:  SearchRadius,
		Type:    placeType,
		Keyword: keyword,
	})
	if err != nil {
		log.Warn("nearby search failed, continuing with gathered results",
			zap.String("stage", stage),
			zap.String("keyword", keyword),
			zap.Error(err),
		)
		return nil
	}
	log.Debug("nearby search",
		zap.String("stage", stage),
		zap.String("keyword", keyword),
		zap.Int("results", len(resp.Results)),
	)
	return resp.Results
}

// score filters, enriches, sorts, and caps the candidates.
func score(self Self, info genre.Info, places []google.Place) []model.Competitor {
	out := make([]model.Competitor, 0, len(places))
	for _, p := range places {
		if p.PlaceID == self.PlaceID || !p.Operational() {
			continue
		}

		loc := p.Geometry.Location
		distance := geo.DistanceMeters(self.Lat, self.Lng, loc.Lat, loc.Lng)
		relevance := genre.Score(info, genre.Candidate{
			Name:        p.Name,
			Types:       p.Types,
			Rating:      p.Rating,
			ReviewCount: p.UserRatingsTotal,
			Distance:    distance,
		})
		if relevance < MinRelevanceScore {
			continue
		}

		g := genre.Classify(p.Name, p.Types...)
		out = append(out, model.Competitor{
			PlaceID:          p.PlaceID,
			Name:             p.Name,
			Rating:           p.Rating,
			UserRatingsTotal: p.UserRatingsTotal,
			Lat:              loc.Lat,
			Lng:              loc.Lng,
			Address:          p.Address(),
			Types:            p.Types,
			Distance:         int(math.Round(distance)),
			Genre:            g.MainGenre,
			SubGenre:         g.SubGenre,
			IsChain:          g.IsChain,
			ChainName:        g.ChainName,
			RelevanceScore:   relevance,
			GenreLabel:       g.Label,
		})
	}

	slices.SortStableFunc(out, func(a, b model.Competitor) int {
		if c := cmp.Compare(b.RelevanceScore, a.RelevanceScore); c != 0 {
			return c
		}
		return cmp.Compare(b.Rating, a.Rating)
	})

	if len(out) > MaxCompetitors {
		out = out[:MaxCompetitors]
	}
	return out
}

// selfRating fetches the store's own rating. Failures rank it as unrated.
func (d *Discoverer) selfRating(ctx context.Context, log *zap.Logger, placeID string) (float64, int) {
	resp, err := d.places.Details(ctx, placeID, rankFields...)
	if err != nil {
		log.Warn("self details failed, ranking as unrated", zap.Error(err))
		return 0, 0
	}
	return resp.Result.Rating, resp.Result.UserRatingsTotal
}
