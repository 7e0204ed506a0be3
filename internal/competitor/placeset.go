package competitor

import "github.com/watanabekazunori/tonarino/pkg/google"

// placeSet accumulates search results keyed by place id. The first
// occurrence of an id wins and insertion order is preserved.
type placeSet struct {
	index map[string]struct{}
	items []google.Place
}

func newPlaceSet() *placeSet {
	return &placeSet{index: make(map[string]struct{})}
}

// add merges places and returns how many were new.
func (s *placeSet) add(places []google.Place) int {
	added := 0
	for _, p := range places {
		if p.PlaceID == "" {
			continue
		}
		if _, ok := s.index[p.PlaceID]; ok {
			continue
		}
		s.index[p.PlaceID] = struct{}{}
		s.items = append(s.items, p)
		added++
	}
	return added
}

func (s *placeSet) len() int { return len(s.items) }

func (s *placeSet) places() []google.Place { return s.items }
