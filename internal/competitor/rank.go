package competitor

import (
	"cmp"
	"slices"

	"github.com/watanabekazunori/tonarino/internal/model"
)

type rankEntry struct {
	self        bool
	rating      float64
	reviewCount int
}

// rankAmong returns self's 1-based position among competitors ordered by
// rating then review count, both descending, and the size of that list.
// Self is placed after peers it ties with.
func rankAmong(competitors []model.Competitor, rating float64, reviewCount int) (rank, total int) {
	entries := make([]rankEntry, 0, len(competitors)+1)
	for _, c := range competitors {
		entries = append(entries, rankEntry{rating: c.Rating, reviewCount: c.UserRatingsTotal})
	}
	entries = append(entries, rankEntry{self: true, rating: rating, reviewCount: reviewCount})

	slices.SortStableFunc(entries, func(a, b rankEntry) int {
		if c := cmp.Compare(b.rating, a.rating); c != 0 {
			return c
		}
		return cmp.Compare(b.reviewCount, a.reviewCount)
	})

	for i, e := range entries {
		if e.self {
			return i + 1, len(entries)
		}
	}
	return len(entries), len(entries)
}
