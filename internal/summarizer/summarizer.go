package summarizer

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yungbote/docchat-backend/internal/chunker"
	"github.com/yungbote/docchat-backend/internal/logger"
	"github.com/yungbote/docchat-backend/internal/platform/openai"
	"github.com/yungbote/docchat-backend/internal/token"
	"github.com/yungbote/docchat-backend/internal/types"
)

const (
	rateWindow       = 60 * time.Second
	rateBudgetTokens = 90000

	delayBetweenRequests = 3 * time.Second
	delayEverySecond     = 6 * time.Second
	delayLocal           = 500 * time.Millisecond
	delayAfterRateLimit  = 5 * time.Second

	// at most this many round outputs are reduced to a final summary in
	// one direct call; more means another full round
	maxDirectFinal = 5

	maxRounds = 20
)

// Cache memoizes summaries under deterministic batch keys so rerunning over
// unchanged content never calls a backend.
type Cache interface {
	Get(ctx context.Context, key string) (*types.SummaryChunk, bool, error)
	Put(ctx context.Context, record *types.SummaryChunk) error
}

// Result is the outcome of one summarization run.
type Result struct {
	Summaries       []*types.SummaryChunk `json:"summaries"`
	FinalSummary    *types.SummaryChunk   `json:"finalSummary"`
	TotalProcessed  int                   `json:"totalProcessed"`
	ProcessingSteps int                   `json:"processingSteps"`
	FromCache       int                   `json:"fromCache"`
	NewlyGenerated  int                   `json:"newlyGenerated"`
	Model           string                `json:"model"`
	RateLimitHit    bool                  `json:"rateLimitHit"`
	FallbackUsed    bool                  `json:"fallbackUsed"`
}

// BatchSummarizer reduces a chunk list to a single final summary by
// repeatedly packing units into token-bounded batches and summarizing each
// batch, map-reduce style, until one summary remains.
type BatchSummarizer struct {
	log    *logger.Logger
	remote Backend
	local  Backend
	cache  Cache
	sleep  func(time.Duration)
	now    func() time.Time
}

// New builds a summarizer. remote may be nil when no completion credential
// is configured; runs then execute entirely on the local backend.
func New(remote, local Backend, cache Cache, log *logger.Logger) *BatchSummarizer {
	if log == nil {
		log = logger.NewNop()
	}
	return &BatchSummarizer{
		log:    log.With("service", "BatchSummarizer"),
		remote: remote,
		local:  local,
		cache:  cache,
		sleep:  time.Sleep,
		now:    time.Now,
	}
}

// SetSleep replaces the throttle sleeper. Tests use this to run instantly.
func (s *BatchSummarizer) SetSleep(fn func(time.Duration)) { s.sleep = fn }

// SetNow replaces the clock used by the rate window.
func (s *BatchSummarizer) SetNow(fn func() time.Time) { s.now = fn }

// rateTracker is the rolling token-usage window for one run. It is owned by
// the run, never shared across requests.
type rateTracker struct {
	windowStart time.Time
	tokensUsed  float64
	batchCount  int
	now         func() time.Time
}

func newRateTracker(now func() time.Time) *rateTracker {
	return &rateTracker{windowStart: now(), now: now}
}

func (t *rateTracker) allow(estimate float64) bool {
	if t.now().Sub(t.windowStart) > rateWindow {
		t.windowStart = t.now()
		t.tokensUsed = 0
	}
	return t.tokensUsed+estimate <= rateBudgetTokens
}

func (t *rateTracker) record(estimate float64) {
	t.tokensUsed += estimate
}

// unit is one input to a reduction round: an original chunk in round one, an
// intermediate summary afterwards.
type unit struct {
	id      string
	title   string
	text    string
	sources []string
}

type run struct {
	s       *BatchSummarizer
	active  Backend
	tracker *rateTracker
	result  *Result
}

// Summarize reduces chunks to one final summary. backendName selects the
// starting backend ("remote" or "local"); a remote failure or a predicted
// rate-budget breach switches the run to local for all remaining batches.
func (s *BatchSummarizer) Summarize(ctx context.Context, chunks []*types.Chunk, backendName string) (*Result, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks to summarize")
	}

	result := &Result{
		Summaries:      []*types.SummaryChunk{},
		TotalProcessed: len(chunks),
	}

	r := &run{
		s:       s,
		tracker: newRateTracker(s.now),
		result:  result,
	}
	switch {
	case backendName == BackendLocal || s.remote == nil:
		r.active = s.local
		if backendName != BackendLocal {
			result.FallbackUsed = true
		}
	default:
		r.active = s.remote
	}

	units := make([]unit, 0, len(chunks))
	for _, c := range chunks {
		units = append(units, unit{
			id:      c.ChunkID,
			title:   c.Title,
			text:    c.Text,
			sources: []string{c.ChunkID},
		})
	}

	s.log.Info("Starting summarization run",
		"chunks", len(chunks),
		"backend", r.active.Name(),
	)

	if len(units) == 1 {
		final, err := r.finalFromUnits(ctx, units)
		if err != nil {
			return nil, err
		}
		result.ProcessingSteps = 1
		result.FinalSummary = final
		result.Model = r.active.Name()
		return result, nil
	}

	step := 0
	for {
		step++
		if step > maxRounds {
			return nil, fmt.Errorf("summarization did not converge after %d rounds", maxRounds)
		}
		result.ProcessingSteps = step

		batches := r.pack(units)
		roundSummaries := make([]*types.SummaryChunk, 0, len(batches))
		for idx, batch := range batches {
			text := renderBatch(batch)
			key := cacheKey(r.active.Name(), unitIDs(batch), text)
			out, hit, err := r.summarizeText(ctx, key, text, types.SummaryTypeIntermediate)
			if err != nil {
				return nil, fmt.Errorf("round %d batch %d: %w", step, idx, err)
			}
			roundSummaries = append(roundSummaries, &types.SummaryChunk{
				SummaryID:      fmt.Sprintf("summary_%d_%d", step, idx),
				Title:          fmt.Sprintf("Summary %d.%d", step, idx),
				Text:           out,
				PageNumber:     0,
				Level:          step,
				TokenCount:     token.Count(out),
				WordCount:      token.CountWords(out),
				Type:           types.SummaryTypeIntermediate,
				SourceChunkIDs: unionSources(batch),
				SummaryIndex:   idx,
				FromCache:      hit,
			})
			if !hit {
				r.throttle()
			}
		}

		if len(roundSummaries) == 1 {
			result.FinalSummary = promoteFinal(roundSummaries[0])
			break
		}

		result.Summaries = append(result.Summaries, roundSummaries...)

		if len(roundSummaries) <= maxDirectFinal {
			final, err := r.finalFromUnits(ctx, unitsFromSummaries(roundSummaries))
			if err == nil {
				result.FinalSummary = final
				break
			}
			// soft retry: keep reducing with the round outputs as input
			s.log.Warn("Final reduction failed, continuing rounds",
				"round", step,
				"summaries", len(roundSummaries),
				"error", err.Error(),
			)
		}

		units = unitsFromSummaries(roundSummaries)
	}

	result.Model = r.active.Name()
	s.log.Info("Summarization run complete",
		"rounds", result.ProcessingSteps,
		"summaries", len(result.Summaries),
		"from_cache", result.FromCache,
		"newly_generated", result.NewlyGenerated,
		"fallback_used", result.FallbackUsed,
	)
	return result, nil
}

// finalFromUnits reduces the given units to the terminal summary in one call.
func (r *run) finalFromUnits(ctx context.Context, units []unit) (*types.SummaryChunk, error) {
	text := renderBatch(units)
	key := "final_" + cacheKey(r.active.Name(), unitIDs(units), text)
	out, hit, err := r.summarizeText(ctx, key, text, types.SummaryTypeFinal)
	if err != nil {
		return nil, err
	}
	var sources []string
	for _, u := range units {
		sources = append(sources, u.sources...)
	}
	return &types.SummaryChunk{
		SummaryID:      types.FinalSummaryID,
		Title:          types.FinalSummaryTitle,
		Text:           out,
		PageNumber:     0,
		Level:          0,
		TokenCount:     token.Count(out),
		WordCount:      token.CountWords(out),
		Type:           types.SummaryTypeFinal,
		SourceChunkIDs: dedupe(sources),
		SummaryIndex:   0,
		FromCache:      hit,
	}, nil
}

// summarizeText resolves one batch text through the cache or the active
// backend. The bool reports a cache hit.
func (r *run) summarizeText(ctx context.Context, key, text, summaryType string) (string, bool, error) {
	if r.s.cache != nil {
		cached, ok, err := r.s.cache.Get(ctx, key)
		if err != nil {
			r.s.log.Warn("Summary cache lookup failed", "key", key, "error", err.Error())
		} else if ok {
			r.result.FromCache++
			return cached.Text, true, nil
		}
	}

	out, err := r.callBackend(ctx, text)
	if err != nil {
		return "", false, err
	}
	r.result.NewlyGenerated++

	if r.s.cache != nil {
		rec := &types.SummaryChunk{
			SummaryID:  key,
			Text:       out,
			Type:       summaryType,
			TokenCount: token.Count(out),
			WordCount:  token.CountWords(out),
		}
		if err := r.s.cache.Put(ctx, rec); err != nil {
			r.s.log.Warn("Summary cache write failed", "key", key, "error", err.Error())
		}
	}
	return out, false, nil
}

// callBackend runs one summarization call, guarding the remote token budget
// and demoting the run to local on remote failure. The demotion is
// one-directional for the rest of the run.
func (r *run) callBackend(ctx context.Context, text string) (string, error) {
	if r.active.Name() == BackendRemote {
		estimate := float64(token.Estimate(text)) * 1.5
		if !r.tracker.allow(estimate) {
			r.s.log.Warn("Token budget would be exceeded, switching to local backend",
				"estimate", estimate,
				"used", r.tracker.tokensUsed,
			)
			r.result.RateLimitHit = true
			r.demote()
			r.s.sleep(delayAfterRateLimit)
		} else {
			out, err := r.active.Summarize(ctx, text)
			if err == nil {
				r.tracker.record(estimate)
				return out, nil
			}
			if openai.IsRateLimitError(err) {
				r.result.RateLimitHit = true
				r.demote()
				r.s.sleep(delayAfterRateLimit)
			} else {
				r.s.log.Warn("Remote summarization failed, switching to local backend", "error", err.Error())
				r.demote()
			}
		}
	}
	return r.active.Summarize(ctx, text)
}

func (r *run) demote() {
	r.active = r.s.local
	r.result.FallbackUsed = true
}

func (r *run) throttle() {
	r.tracker.batchCount++
	if r.active.Name() == BackendLocal {
		r.s.sleep(delayLocal)
		return
	}
	if r.tracker.batchCount%2 == 0 {
		r.s.sleep(delayEverySecond)
	} else {
		r.s.sleep(delayBetweenRequests)
	}
}

// pack greedily groups units into batches under the active backend's
// ceiling. Units too big for one batch are pre-split at word level first.
func (r *run) pack(units []unit) [][]unit {
	ceiling := r.active.Ceiling()

	expanded := make([]unit, 0, len(units))
	for _, u := range units {
		if r.active.Cost(u.text) <= ceiling {
			expanded = append(expanded, u)
			continue
		}
		for _, part := range chunker.SplitOversize(u.id, u.title, u.text, r.active.SplitBudget()) {
			expanded = append(expanded, unit{
				id:      part.ChunkID,
				title:   part.Title,
				text:    part.Text,
				sources: u.sources,
			})
		}
	}

	var batches [][]unit
	var current []unit
	used := 0
	for _, u := range expanded {
		cost := r.active.Cost(u.text)
		if len(current) > 0 && used+cost > ceiling {
			batches = append(batches, current)
			current = nil
			used = 0
		}
		current = append(current, u)
		used += cost
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

func renderBatch(units []unit) string {
	parts := make([]string, 0, len(units))
	for _, u := range units {
		if u.title != "" {
			parts = append(parts, fmt.Sprintf("[%s]\n%s", u.title, u.text))
		} else {
			parts = append(parts, u.text)
		}
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// cacheKey is deterministic for a given backend, member set, and text
// prefix: sorted ids plus a short base64 tag of the first 100 characters.
func cacheKey(backend string, ids []string, text string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	runes := []rune(text)
	if len(runes) > 100 {
		runes = runes[:100]
	}
	tag := base64.StdEncoding.EncodeToString([]byte(string(runes)))
	if len(tag) > 20 {
		tag = tag[:20]
	}
	return backend + "_" + strings.Join(sorted, ",") + "_" + tag
}

func unitIDs(units []unit) []string {
	ids := make([]string, len(units))
	for i, u := range units {
		ids[i] = u.id
	}
	return ids
}

func unionSources(units []unit) []string {
	var all []string
	for _, u := range units {
		all = append(all, u.sources...)
	}
	return dedupe(all)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func unitsFromSummaries(summaries []*types.SummaryChunk) []unit {
	units := make([]unit, 0, len(summaries))
	for _, s := range summaries {
		units = append(units, unit{
			id:      s.SummaryID,
			title:   s.Title,
			text:    s.Text,
			sources: append([]string(nil), s.SourceChunkIDs...),
		})
	}
	return units
}

func promoteFinal(s *types.SummaryChunk) *types.SummaryChunk {
	return &types.SummaryChunk{
		SummaryID:      types.FinalSummaryID,
		Title:          types.FinalSummaryTitle,
		Text:           s.Text,
		PageNumber:     0,
		Level:          0,
		TokenCount:     s.TokenCount,
		WordCount:      s.WordCount,
		Type:           types.SummaryTypeFinal,
		SourceChunkIDs: s.SourceChunkIDs,
		SummaryIndex:   0,
		FromCache:      s.FromCache,
	}
}
