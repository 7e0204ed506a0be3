// Package genre classifies restaurants by cuisine, detects chain brands, and
// scores how comparable a nearby establishment is to a given store.
package genre

import (
	"slices"

	"golang.org/x/text/width"
)

// Info is the classification result for one store.
type Info struct {
	MainGenre      string   `json:"mainGenre" yaml:"main_genre"`
	SubGenre       string   `json:"subGenre,omitempty" yaml:"sub_genre,omitempty"`
	SearchKeywords []string `json:"searchKeywords" yaml:"search_keywords"`
	GoogleType     string   `json:"googleType" yaml:"google_type"`
	Label          string   `json:"label" yaml:"label"`
	IsChain        bool     `json:"isChain" yaml:"is_chain"`
	ChainName      string   `json:"chainName,omitempty" yaml:"chain_name,omitempty"`
}

// HasSubGenre reports whether a sub-genre was resolved.
func (i Info) HasSubGenre() bool { return i.SubGenre != "" }

// IsDefault reports whether no cuisine could be determined.
func (i Info) IsDefault() bool { return i.MainGenre == GenreDefault }

// Context returns a short genre hint for prompts: "家系（ラーメン）" when a
// sub-genre is known, the main genre otherwise, and "" for the default genre.
func (i Info) Context() string {
	switch {
	case i.HasSubGenre() && i.SubGenre != i.MainGenre:
		return i.SubGenre + "（" + i.MainGenre + "）"
	case i.HasSubGenre():
		return i.SubGenre
	case !i.IsDefault():
		return i.MainGenre
	default:
		return ""
	}
}

// Classify maps a store name and its optional place types to a genre.
// The main genre comes from the first matching name pattern, then from a
// known brand's cuisine, then from the cafe/bar/bakery place types. Classify
// never fails; unknown stores get the generic 飲食店 genre.
func Classify(name string, types ...string) Info {
	folded := normalizeName(name)
	chain := detectChain(folded)

	info := Info{
		MainGenre:  GenreDefault,
		GoogleType: TypeRestaurant,
		Label:      GenreDefault,
		IsChain:    chain.isChain,
		ChainName:  chain.chainName,
	}
	var keyword string

	rule, matched := matchMainGenre(folded)
	if !matched && chain.mainGenre != "" {
		rule, matched = lookupMainGenre(chain.mainGenre)
	}
	if !matched {
		for _, fb := range typeFallbacks {
			if slices.Contains(types, fb.placeType) {
				rule, matched = lookupMainGenre(fb.mainGenre)
				break
			}
		}
	}
	if matched {
		info.MainGenre = rule.mainGenre
		info.GoogleType = rule.googleType
		info.Label = rule.label
		info.SearchKeywords = []string{rule.keyword}
		keyword = rule.keyword
	}

	if info.MainGenre == GenreRamen {
		info.SearchKeywords = []string{"ラーメン"}
		for _, sub := range ramenSubGenres {
			if sub.pattern.MatchString(folded) {
				info.SubGenre = sub.subGenre
				info.SearchKeywords = slices.Clone(sub.keywords)
				info.Label = sub.subGenre + "ラーメン店"
				break
			}
		}
	}

	if len(info.SearchKeywords) == 0 {
		if keyword == "" {
			keyword = GenreDefault
		}
		info.SearchKeywords = []string{keyword}
	}

	return info
}

func matchMainGenre(name string) (mainGenreRule, bool) {
	for _, g := range mainGenres {
		if g.pattern.MatchString(name) {
			return g, true
		}
	}
	return mainGenreRule{}, false
}

// normalizeName folds full-width ASCII to half-width and half-width katakana
// to full-width so that the pattern tables only need canonical spellings.
func normalizeName(name string) string {
	return width.Fold.String(name)
}
