package genre

type chainMatch struct {
	isChain   bool
	chainName string
	mainGenre string
	// structural is set when the name only looks like a chain branch. It is
	// kept for diagnostics and deliberately not promoted to isChain.
	structural bool
}

func detectChain(name string) chainMatch {
	for _, c := range knownChains {
		if c.pattern.MatchString(name) {
			return chainMatch{isChain: true, chainName: c.chainName, mainGenre: c.mainGenre}
		}
	}

	for _, p := range chainStructuralPatterns {
		if p.MatchString(name) {
			// TODO: decide whether branch-style names should count as chains
			// once there is labelled data to measure the false-positive rate.
			return chainMatch{structural: true}
		}
	}

	return chainMatch{}
}

// LooksLikeBranch reports whether the name matches a structural chain
// pattern without matching any known brand.
func LooksLikeBranch(name string) bool {
	return detectChain(normalizeName(name)).structural
}
