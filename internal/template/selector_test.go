package template

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistant-gateway/internal/models"
)

// fakeSource serves canned templates and records the filters it was asked
// for, so widening behavior can be asserted.
type fakeSource struct {
	pools   [][]models.MessageTemplate
	filters []TemplateFilter
}

func (f *fakeSource) ListTemplates(filter TemplateFilter) ([]models.MessageTemplate, error) {
	f.filters = append(f.filters, filter)
	if len(f.pools) == 0 {
		return nil, nil
	}
	pool := f.pools[0]
	if len(f.pools) > 1 {
		f.pools = f.pools[1:]
	}
	return pool, nil
}

func newTestSelector(source CandidateSource) *Selector {
	s := NewSelector(source)
	s.rng = rand.New(rand.NewSource(42))
	return s
}

func textTemplate(id uint, name string, priority, usage int, tags string) models.MessageTemplate {
	return models.MessageTemplate{
		ID:         id,
		Name:       name,
		Kind:       KindText,
		IsActive:   true,
		Priority:   priority,
		UsageCount: usage,
		Tags:       tags,
		Content:    []byte(`{"text":"` + name + `"}`),
	}
}

func TestSelectorEmptyPool(t *testing.T) {
	source := &fakeSource{}
	selector := newTestSelector(source)

	tpl, err := selector.Select(SelectionRequest{Context: "anything", UserMessage: "anything"})
	require.NoError(t, err)
	assert.Nil(t, tpl)

	// Primary filter plus the widened fallback must both have been tried.
	require.Len(t, source.filters, 2)
	assert.Equal(t, KindText, source.filters[1].Kind)
	require.NotNil(t, source.filters[1].Active)
	assert.True(t, *source.filters[1].Active)
	assert.Nil(t, source.filters[1].CategoryID)
}

func TestSelectorSingletonPoolIsDeterministic(t *testing.T) {
	only := textTemplate(1, "leave policy", 0, 0, "")
	source := &fakeSource{pools: [][]models.MessageTemplate{{only}}}
	selector := newTestSelector(source)

	for i := 0; i < 10; i++ {
		tpl, err := selector.Select(SelectionRequest{Context: "", UserMessage: ""})
		require.NoError(t, err)
		require.NotNil(t, tpl)
		assert.Equal(t, uint(1), tpl.ID)
	}
}

func TestSelectorFiltersArePassedThrough(t *testing.T) {
	categoryID := uint(7)
	source := &fakeSource{pools: [][]models.MessageTemplate{{textTemplate(1, "hi", 1, 0, "")}}}
	selector := newTestSelector(source)

	_, err := selector.Select(SelectionRequest{
		Context:     "x",
		UserMessage: "x",
		CategoryID:  &categoryID,
		Kind:        KindSticker,
	})
	require.NoError(t, err)

	require.NotEmpty(t, source.filters)
	first := source.filters[0]
	require.NotNil(t, first.CategoryID)
	assert.Equal(t, categoryID, *first.CategoryID)
	assert.Equal(t, KindSticker, first.Kind)
	require.NotNil(t, first.Active)
	assert.True(t, *first.Active)
	// Tags never become a hard filter.
	assert.Empty(t, first.Search)
}

func TestSelectorDrawsOnlyFromTopThree(t *testing.T) {
	// Two strong candidates and two weak ones; repeated draws must stay
	// inside the top three by score.
	pool := []models.MessageTemplate{
		textTemplate(1, "sick leave days", 10, 0, "leave,sick"),
		textTemplate(2, "generic answer", 1, 100, ""),
		textTemplate(3, "weak one", 0, 0, ""),
		textTemplate(4, "weak two", 0, 0, ""),
	}
	req := SelectionRequest{
		Context:     "leave question",
		UserMessage: "sick leave days",
		Tags:        []string{"sick"},
	}

	scores := make(map[uint]float64)
	for _, tpl := range pool {
		scores[tpl.ID] = scoreTemplate(&tpl, req)
	}
	// High-priority tag match lands just above the capped-popularity one.
	assert.Greater(t, scores[1], 5.0)
	assert.InDelta(t, 5.3, scores[2], 0.5)
	assert.Less(t, scores[3], scores[1])

	seen := make(map[uint]bool)
	for i := 0; i < 200; i++ {
		source := &fakeSource{pools: [][]models.MessageTemplate{pool}}
		selector := NewSelector(source)
		selector.rng = rand.New(rand.NewSource(int64(i)))
		tpl, err := selector.Select(req)
		require.NoError(t, err)
		require.NotNil(t, tpl)
		seen[tpl.ID] = true
	}

	assert.True(t, seen[1] || seen[2], "top scorers should be reachable")
	assert.False(t, seen[4], "draw must not leave the top three")
}

func TestSelectorZeroScoresFallBackToUniformDraw(t *testing.T) {
	pool := []models.MessageTemplate{
		{ID: 1, Kind: KindText, IsActive: true},
		{ID: 2, Kind: KindText, IsActive: true},
		{ID: 3, Kind: KindText, IsActive: true},
		{ID: 4, Kind: KindText, IsActive: true},
	}
	req := SelectionRequest{Context: "", UserMessage: ""}

	seen := make(map[uint]bool)
	for i := 0; i < 300; i++ {
		source := &fakeSource{pools: [][]models.MessageTemplate{pool}}
		selector := NewSelector(source)
		selector.rng = rand.New(rand.NewSource(int64(i)))
		tpl, err := selector.Select(req)
		require.NoError(t, err)
		require.NotNil(t, tpl)
		seen[tpl.ID] = true
	}

	// With all scores zero the draw covers the whole pool, including the
	// candidate outside the top three.
	assert.Len(t, seen, 4)
}

func TestScorePopularityIsCapped(t *testing.T) {
	light := textTemplate(1, "x", 0, 10, "")
	heavy := textTemplate(2, "x", 0, 100000, "")
	req := SelectionRequest{Context: "", UserMessage: ""}

	lightScore := scoreTemplate(&light, req)
	heavyScore := scoreTemplate(&heavy, req)

	assert.InDelta(t, 1.0, lightScore, 0.001)
	assert.InDelta(t, 5.0, heavyScore, 0.001)
	assert.GreaterOrEqual(t, heavyScore, lightScore)
}

func TestScoreTagMatchingIsCaseInsensitive(t *testing.T) {
	tpl := textTemplate(1, "x", 0, 0, "Leave, SICK")
	req := SelectionRequest{Tags: []string{"sick", "leave", "unrelated"}}

	assert.InDelta(t, 4.0, scoreTemplate(&tpl, req), 0.001)
}

func TestScoreKeywordAndContentOverlap(t *testing.T) {
	tpl := models.MessageTemplate{
		ID:          1,
		Kind:        KindText,
		IsActive:    true,
		Description: "how to request sick leave",
		Content:     []byte(`{"text":"you have 30 sick leave days per year"}`),
	}
	req := SelectionRequest{
		Context:     "sick leave request",
		UserMessage: "how many sick leave days do I have",
	}

	// Description overlap: sick, leave, request → 3 × 0.5.
	// Content overlap: sick, leave, days, have → 4 × 0.2.
	assert.InDelta(t, 1.5+0.8, scoreTemplate(&tpl, req), 0.001)
}

func TestScoreMalformedContentContributesNothing(t *testing.T) {
	tpl := models.MessageTemplate{
		ID:       1,
		Kind:     KindText,
		IsActive: true,
		Priority: 2,
		Content:  []byte(`{not json`),
	}
	req := SelectionRequest{Context: "", UserMessage: "anything at all"}

	assert.InDelta(t, 0.6, scoreTemplate(&tpl, req), 0.001)
}
