package genre

// Relevance point weights. The raw total can reach 95, so MaxScore is a
// ceiling that current weights never hit.
const (
	pointsMainGenre    = 40
	pointsSubGenre     = 30
	pointsSameMainOnly = 15
	pointsChainMatch   = 10

	pointsWithin500m  = 10
	pointsWithin1000m = 7
	pointsWithin1500m = 4
	pointsFarther     = 2

	pointsManyReviews = 5
	pointsSomeReviews = 3

	// MaxScore caps the relevance score.
	MaxScore = 100
)

// Candidate holds the attributes of a nearby establishment that feed Score.
type Candidate struct {
	Name        string
	Types       []string
	Rating      float64
	ReviewCount int
	Distance    float64 // meters
}

// Score rates how comparable c is to a store classified as self, from 0 to
// MaxScore. The candidate is re-classified from its own name and types.
func Score(self Info, c Candidate) int {
	other := Classify(c.Name, c.Types...)
	sameMain := other.MainGenre == self.MainGenre

	score := 0
	if sameMain {
		score += pointsMainGenre
	}

	if self.HasSubGenre() {
		switch {
		case other.SubGenre == self.SubGenre:
			score += pointsSubGenre
		case sameMain:
			score += pointsSameMainOnly
		}
	}

	if other.IsChain == self.IsChain {
		score += pointsChainMatch
	}

	score += distancePoints(c.Distance)
	score += reviewPoints(c.ReviewCount)

	return min(score, MaxScore)
}

func distancePoints(meters float64) int {
	switch {
	case meters <= 500:
		return pointsWithin500m
	case meters <= 1000:
		return pointsWithin1000m
	case meters <= 1500:
		return pointsWithin1500m
	default:
		return pointsFarther
	}
}

func reviewPoints(count int) int {
	switch {
	case count >= 20:
		return pointsManyReviews
	case count >= 5:
		return pointsSomeReviews
	default:
		return 0
	}
}
