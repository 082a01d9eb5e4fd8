package feed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/memedici/artfeed/pkg/models"
)

// DefaultSyntheticCeiling caps how many synthetic items one session can
// accumulate across repeated fallbacks while upstream stays down.
const DefaultSyntheticCeiling = 50

// housePool is the fixed set of creator snapshots stamped onto synthetic
// items, round-robin.
var housePool = []models.CreatorSnapshot{
	{ID: "house-lumen", DisplayName: "Lumen", AvatarURL: "/static/avatars/lumen.png", StudioName: "House Atelier"},
	{ID: "house-vesper", DisplayName: "Vesper", AvatarURL: "/static/avatars/vesper.png", StudioName: "House Atelier"},
	{ID: "house-ochre", DisplayName: "Ochre", AvatarURL: "/static/avatars/ochre.png", StudioName: "House Atelier"},
	{ID: "house-halcyon", DisplayName: "Halcyon", AvatarURL: "/static/avatars/halcyon.png", StudioName: "House Atelier"},
}

var syntheticTitles = []string{
	"study in fading light",
	"untitled composition",
	"chromatic drift",
	"field sketch",
	"signal bloom",
	"quiet geometry",
}

// Generator produces placeholder feed content when the whole aggregation
// pipeline fails, so the caller sees degraded content instead of an error.
type Generator struct {
	now func() time.Time
}

// NewGenerator creates a fallback generator. now may be nil, in which case
// time.Now is used.
func NewGenerator(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now}
}

// Synthesize produces n synthetic items. Output is deterministic for a
// given (existingCount, n) apart from the timestamp base: IDs derive from
// existingCount+index so repeated fallbacks in one session never collide
// with each other or with real items, and like counts come from a PRNG
// seeded with existingCount.
func (g *Generator) Synthesize(existingCount, n int) []models.ContentItem {
	if n <= 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(int64(existingCount)))
	base := g.now().Truncate(time.Minute)

	items := make([]models.ContentItem, 0, n)
	for i := 0; i < n; i++ {
		seq := existingCount + i
		creator := housePool[seq%len(housePool)]
		items = append(items, models.ContentItem{
			ID:        fmt.Sprintf("synthetic-%06d", seq),
			Kind:      models.KindImage,
			Title:     syntheticTitles[seq%len(syntheticTitles)],
			MediaURL:  fmt.Sprintf("/static/placeholders/%02d.png", seq%8),
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
			CreatorID: creator.ID,
			Creator:   creator,
			LikeCount: int64(rng.Intn(40)),
			Synthetic: true,
		})
	}
	return items
}
