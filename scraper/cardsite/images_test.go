package cardsite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreImage(t *testing.T) {
	tests := []struct {
		name    string
		img     ImageCandidate
		heading string
		want    int
	}{
		{
			name: "large card shot named after heading",
			img:  ImageCandidate{Src: "/img/platinum-card.png", Alt: "Platinum Rewards Card", Width: 400, Height: 250},
			// card +2, heading +5, size +3
			heading: "Platinum Rewards Card",
			want:    10,
		},
		{
			name: "tiny network icon",
			img:  ImageCandidate{Src: "/icons/visa.svg", Alt: "Visa", Width: 32, Height: 20},
			want: 1 - 5,
		},
		{
			name: "hero banner without keywords",
			img:  ImageCandidate{Src: "/img/banner.jpg", ClassName: "hero-banner", Width: 1200, Height: 400},
			want: 3 + 2,
		},
		{
			name: "medium unlabeled image",
			img:  ImageCandidate{Src: "/img/x.jpg", Width: 120, Height: 80},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreImage(tt.img, tt.heading))
		})
	}
}

func TestPickImage(t *testing.T) {
	candidates := []ImageCandidate{
		{Src: "/logo.png", Alt: "Bank logo", Width: 40, Height: 40},
		{Src: "data:image/png;base64,AAAA", Alt: "card", Width: 400, Height: 300},
		{Src: "https://bank.example/a-card.png", Alt: "card", Width: 300, Height: 200},
		{Src: "https://bank.example/b-card.png", Alt: "card", Width: 300, Height: 200},
	}

	assert.Equal(t, "https://bank.example/a-card.png", PickImage(candidates, ""), "ties keep the first")
}

func TestPickImageNoPositiveScore(t *testing.T) {
	candidates := []ImageCandidate{
		{Src: "/spacer.gif", Width: 1, Height: 1},
		{Src: "/photo.jpg", Width: 100, Height: 80},
	}

	assert.Empty(t, PickImage(candidates, "Gold Card"))
	assert.Empty(t, PickImage(nil, ""))
}

func TestScoreImageKeywordsIgnoreCase(t *testing.T) {
	img := ImageCandidate{Src: "/IMG/RuPay-CARD.PNG", ClassName: "Product-Shot", Width: 120, Height: 80}
	// card +2, network +1, hero hint +2
	assert.Equal(t, 5, ScoreImage(img, ""))
}
