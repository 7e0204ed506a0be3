// Package model defines the records shared by discovery, reporting,
// persistence, and the HTTP API.
package model

// Competitor is a nearby establishment enriched with distance, genre, and
// relevance. JSON field names are the wire format consumed by the web client.
type Competitor struct {
	PlaceID          string   `json:"place_id" yaml:"place_id"`
	Name             string   `json:"name" yaml:"name"`
	Rating           float64  `json:"rating" yaml:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total" yaml:"user_ratings_total"`
	Lat              float64  `json:"lat" yaml:"lat"`
	Lng              float64  `json:"lng" yaml:"lng"`
	Address          string   `json:"address" yaml:"address"`
	Types            []string `json:"types" yaml:"types"`
	Distance         int      `json:"distance" yaml:"distance"` // meters, rounded
	Genre            string   `json:"genre" yaml:"genre"`
	SubGenre         string   `json:"subGenre,omitempty" yaml:"sub_genre,omitempty"`
	IsChain          bool     `json:"isChain" yaml:"is_chain"`
	ChainName        string   `json:"chainName,omitempty" yaml:"chain_name,omitempty"`
	RelevanceScore   int      `json:"relevanceScore" yaml:"relevance_score"`
	GenreLabel       string   `json:"genreLabel" yaml:"genre_label"`
}

// SearchLog records one discovery request.
type SearchLog struct {
	ID        string
	Query     string
	PlaceID   string
	PlaceName string
	Lat       float64
	Lng       float64
	Area      string
	IP        string
	UserAgent string
}
