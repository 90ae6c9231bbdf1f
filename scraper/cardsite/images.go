package cardsite

import "strings"

var (
	cardWord      = newKeywordSet("card")
	networkBrands = newKeywordSet("visa", "mastercard", "amex", "american express", "rupay", "diners")
	heroHints     = newKeywordSet("hero", "banner", "product", "card-img", "card-image")
)

// ScoreImage rates how likely an image is the card's product shot.
// heading is the page's first h1; an empty heading never matches.
func ScoreImage(img ImageCandidate, heading string) int {
	alt := strings.ToLower(img.Alt)
	title := strings.ToLower(strings.TrimSpace(heading))

	score := 0
	if cardWord.Contains(img.Alt) || cardWord.Contains(img.Src) {
		score += 2
	}
	if networkBrands.Contains(img.Alt) || networkBrands.Contains(img.Src) {
		score++
	}
	if title != "" && strings.Contains(alt, title) {
		score += 5
	}
	if img.Width > 200 && img.Height > 100 {
		score += 3
	}
	if img.Width < 50 || img.Height < 50 {
		score -= 5
	}
	if heroHints.Contains(img.ClassName + " " + img.ID) {
		score += 2
	}
	return score
}

// PickImage returns the src of the highest-scoring candidate. Only scores
// above zero qualify and ties keep the earlier candidate. Empty and inline
// data: sources are ignored.
func PickImage(candidates []ImageCandidate, heading string) string {
	best, bestScore := "", 0
	for _, img := range candidates {
		src := strings.TrimSpace(img.Src)
		if src == "" || strings.HasPrefix(strings.ToLower(src), "data:") {
			continue
		}
		if score := ScoreImage(img, heading); score > bestScore {
			best, bestScore = src, score
		}
	}
	return best
}
