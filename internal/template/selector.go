package template

import (
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"assistant-gateway/internal/models"
)

// Scoring weights. Popularity is capped so heavily-used templates do not
// permanently dominate the pool.
const (
	priorityWeight  = 0.3
	usageWeight     = 0.1
	usageCeiling    = 5.0
	tagWeight       = 2.0
	keywordWeight   = 0.5
	relevanceWeight = 0.2
)

// topCandidates is the size of the pool the weighted draw runs over.
const topCandidates = 3

// SelectionRequest describes one inbound message to pick a template for.
// Context and UserMessage are always present (possibly empty); the other
// fields are optional filters. Tags are a scoring signal, not a hard filter.
type SelectionRequest struct {
	Context     string
	UserMessage string
	CategoryID  *uint
	Kind        string
	Tags        []string
}

// CandidateSource is the slice of the store the selector needs.
type CandidateSource interface {
	ListTemplates(filter TemplateFilter) ([]models.MessageTemplate, error)
}

// Selector picks the best active template for a request, breaking near-ties
// with a weighted random draw so similar questions do not always get the
// literal same answer.
type Selector struct {
	source CandidateSource

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSelector(source CandidateSource) *Selector {
	return &Selector{
		source: source,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type scoredTemplate struct {
	template models.MessageTemplate
	score    float64
}

// Select returns the chosen template, or nil when no active template
// matches even the widened fallback filter. A nil result is a normal
// outcome, not an error; the caller takes its generative path. Select has
// no side effects: usage counters move only through Store.LogUsage.
func (s *Selector) Select(req SelectionRequest) (*models.MessageTemplate, error) {
	active := true
	candidates, err := s.source.ListTemplates(TemplateFilter{
		CategoryID: req.CategoryID,
		Kind:       req.Kind,
		Active:     &active,
	})
	if err != nil {
		return nil, err
	}

	// Widen to any active text template before giving up.
	if len(candidates) == 0 {
		candidates, err = s.source.ListTemplates(TemplateFilter{
			Kind:   KindText,
			Active: &active,
		})
		if err != nil {
			return nil, err
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	scored := make([]scoredTemplate, 0, len(candidates))
	for _, candidate := range candidates {
		scored = append(scored, scoredTemplate{
			template: candidate,
			score:    scoreTemplate(&candidate, req),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	top := scored
	if len(top) > topCandidates {
		top = top[:topCandidates]
	}

	chosen := s.weightedChoice(top, scored)
	return &chosen, nil
}

// weightedChoice draws from top proportionally to score. When every top
// score is zero there is nothing to weight by, so it falls back to a
// uniform draw over the whole candidate list instead of always returning
// whichever candidate happened to sort first.
func (s *Selector) weightedChoice(top, all []scoredTemplate) models.MessageTemplate {
	var total float64
	for _, c := range top {
		total += c.score
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if total <= 0 {
		return all[s.rng.Intn(len(all))].template
	}

	r := s.rng.Float64() * total
	var cumulative float64
	for _, c := range top {
		cumulative += c.score
		if r <= cumulative {
			return c.template
		}
	}
	return top[len(top)-1].template
}

// scoreTemplate sums five independent, non-negative signals. A malformed
// field on a candidate contributes nothing rather than disqualifying it.
func scoreTemplate(t *models.MessageTemplate, req SelectionRequest) float64 {
	score := float64(t.Priority) * priorityWeight

	popularity := float64(t.UsageCount) * usageWeight
	if popularity > usageCeiling {
		popularity = usageCeiling
	}
	score += popularity

	if t.Tags != "" && len(req.Tags) > 0 {
		templateTags := splitTags(t.Tags)
		requestTags := make(map[string]struct{}, len(req.Tags))
		for _, tag := range req.Tags {
			requestTags[strings.ToLower(tag)] = struct{}{}
		}
		score += float64(setOverlap(templateTags, requestTags)) * tagWeight
	}

	if t.Description != "" {
		score += float64(setOverlap(tokenSet(req.Context), tokenSet(t.Description))) * keywordWeight
	}

	if primary := PrimaryText(t.Kind, t.Content); primary != "" {
		score += float64(setOverlap(tokenSet(req.UserMessage), tokenSet(primary))) * relevanceWeight
	}

	return score
}

func splitTags(tags string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tag := range strings.Split(tags, ",") {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			set[tag] = struct{}{}
		}
	}
	return set
}

// tokenSet lowercases and whitespace-splits. No punctuation stripping or
// script-aware segmentation.
func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(text)) {
		set[word] = struct{}{}
	}
	return set
}

func setOverlap(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	count := 0
	for key := range a {
		if _, ok := b[key]; ok {
			count++
		}
	}
	return count
}
