package chunker

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/yungbote/docchat-backend/internal/logger"
	"github.com/yungbote/docchat-backend/internal/token"
	"github.com/yungbote/docchat-backend/internal/types"
)

// Levels at which a chunk can be produced. Each level is only entered when
// the unit produced by the previous level still exceeds the token ceiling.
const (
	LevelSection   = 1
	LevelParagraph = 2
	LevelSentence  = 3
	LevelWord      = 4
)

var headingPattern = regexp.MustCompile(`(?m)^(\d+\.\s+.*)`)

type Config struct {
	// MaxTokensPerChunk is the hard ceiling every emitted chunk must respect.
	// The single exception is a lone word that by itself exceeds it.
	MaxTokensPerChunk int
}

func DefaultConfig() Config {
	return Config{MaxTokensPerChunk: 300}
}

// Chunker splits raw extracted text into a flat ordered list of chunks using
// a heading -> paragraph -> sentence -> word falloff hierarchy.
type Chunker struct {
	cfg Config
	log *logger.Logger
}

func New(cfg Config, baseLog *logger.Logger) *Chunker {
	if cfg.MaxTokensPerChunk <= 0 {
		cfg.MaxTokensPerChunk = DefaultConfig().MaxTokensPerChunk
	}
	if baseLog == nil {
		baseLog = logger.NewNop()
	}
	return &Chunker{cfg: cfg, log: baseLog.With("component", "Chunker")}
}

type section struct {
	heading string
	content string
	offset  int
}

// Chunk partitions text into token-bounded chunks. Malformed input (empty
// text) yields a nil chunk list and nil stats rather than an error; chunking
// is best-effort and never fails on absent input.
//
// Chunk ids are assigned from a per-call counter, so the same
// text/sourceName/totalPages triple always produces an identical sequence.
func (ck *Chunker) Chunk(text string, sourceName string, totalPages int) ([]*types.Chunk, *types.ChunkingStats) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	run := &chunkRun{
		ceiling: ck.cfg.MaxTokensPerChunk,
	}

	sections := splitByHeadings(text, sourceName)
	for _, sec := range sections {
		page := estimatePage(sec.offset, len(text), totalPages)

		if token.Count(sec.content) <= run.ceiling {
			run.emit(sec.content, sec.heading, LevelSection, page)
			continue
		}

		paragraphs := splitParagraphs(sec.content)
		for _, pc := range run.pack(paragraphs, sec.heading, LevelParagraph, page) {
			if pc.TokenCount <= run.ceiling {
				run.keep(pc)
				continue
			}

			sentences := splitSentences(pc.Text)
			for _, sc := range run.pack(sentences, pc.Title, LevelSentence, pc.PageNumber) {
				if sc.TokenCount <= run.ceiling {
					run.keep(sc)
					continue
				}
				run.packWords(sc.Text, sc.Title, sc.PageNumber)
			}
		}
	}

	ck.log.Debug("Chunking complete",
		"source", sourceName,
		"chunks", len(run.chunks),
		"sections", len(sections),
	)
	return run.chunks, buildStats(run.chunks)
}

type chunkRun struct {
	ceiling int
	counter int
	chunks  []*types.Chunk
}

func (r *chunkRun) newChunk(text, title string, level, page int) *types.Chunk {
	trimmed := strings.TrimSpace(text)
	r.counter++
	return &types.Chunk{
		ChunkID:    fmt.Sprintf("chunk-%d", r.counter),
		Text:       trimmed,
		Title:      title,
		PageNumber: page,
		Level:      level,
		TokenCount: token.Count(trimmed),
		WordCount:  token.CountWords(trimmed),
	}
}

// emit creates a chunk and appends it to the output list.
func (r *chunkRun) emit(text, title string, level, page int) {
	r.chunks = append(r.chunks, r.newChunk(text, title, level, page))
}

func (r *chunkRun) keep(c *types.Chunk) {
	r.chunks = append(r.chunks, c)
}

// pack greedily appends units to a running group while the group stays under
// the ceiling, flushing the group as a chunk whenever the next unit would
// push it over. The returned chunks are not yet part of the output; callers
// decide whether each one is final or needs further splitting.
func (r *chunkRun) pack(units []string, title string, level, page int) []*types.Chunk {
	var grouped []*types.Chunk
	current := ""
	for _, unit := range units {
		candidate := unit
		if current != "" {
			candidate = current + "\n\n" + unit
		}
		if token.Count(candidate) > r.ceiling {
			if current != "" {
				grouped = append(grouped, r.newChunk(current, title, level, page))
			}
			current = unit
		} else {
			current = candidate
		}
	}
	if current != "" {
		grouped = append(grouped, r.newChunk(current, title, level, page))
	}
	return grouped
}

// packWords is the terminal level: the text is split into individual words
// and repacked word by word. Part titles get a numeric suffix. A single word
// that alone exceeds the ceiling is still emitted as its own chunk.
func (r *chunkRun) packWords(text, title string, page int) {
	words := strings.Fields(text)
	current := ""
	part := 1
	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if token.Count(candidate) > r.ceiling {
			if current != "" {
				r.emit(current, fmt.Sprintf("%s.%d", title, part), LevelWord, page)
				part++
				current = word
			} else {
				// a lone word over the ceiling: unsplittable, emit as-is
				r.emit(word, fmt.Sprintf("%s.%d", title, part), LevelWord, page)
				part++
				current = ""
			}
		} else {
			current = candidate
		}
	}
	if current != "" {
		r.emit(current, fmt.Sprintf("%s.%d", title, part), LevelWord, page)
	}
}

// splitByHeadings partitions text by numbered headings ("1. Introduction").
// Text before the first heading becomes a section titled by sourceName; if no
// headings exist, the whole text is one section.
func splitByHeadings(text, sourceName string) []section {
	var sections []section
	matches := headingPattern.FindAllStringSubmatchIndex(text, -1)

	if len(matches) > 0 && matches[0][0] > 0 {
		content := strings.TrimSpace(text[:matches[0][0]])
		if content != "" {
			sections = append(sections, section{heading: sourceName, content: content, offset: 0})
		}
	}

	for i, m := range matches {
		heading := strings.TrimSpace(text[m[2]:m[3]])
		start := m[1]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		content := strings.TrimSpace(text[start:end])
		if content != "" {
			sections = append(sections, section{heading: heading, content: content, offset: start})
		}
	}

	if len(sections) == 0 && strings.TrimSpace(text) != "" {
		sections = append(sections, section{heading: sourceName, content: strings.TrimSpace(text), offset: 0})
	}
	return sections
}

var blankLinePattern = regexp.MustCompile(`\n\s*\n`)

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range blankLinePattern.Split(text, -1) {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitSentences splits after terminal punctuation followed by whitespace.
// Go's regexp has no lookbehind, so this walks the string directly.
func splitSentences(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && isSpace(runes[i+1]) {
			sentence := strings.TrimSpace(string(runes[start : i+1]))
			if sentence != "" {
				out = append(out, sentence)
			}
			// skip the whitespace run
			j := i + 1
			for j < len(runes) && isSpace(runes[j]) {
				j++
			}
			start = j
			i = j - 1
		}
	}
	if start < len(runes) {
		tail := strings.TrimSpace(string(runes[start:]))
		if tail != "" {
			out = append(out, tail)
		}
	}
	return out
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// estimatePage is a proportional-offset heuristic, not layout analysis: the
// section's character offset within the full text, scaled by total pages and
// clamped to at least 1.
func estimatePage(offset, totalLen, totalPages int) int {
	if totalLen <= 0 || totalPages <= 0 {
		return 1
	}
	page := int(math.Ceil(float64(offset) / float64(totalLen) * float64(totalPages)))
	if page < 1 {
		page = 1
	}
	return page
}

func buildStats(chunks []*types.Chunk) *types.ChunkingStats {
	if len(chunks) == 0 {
		return nil
	}
	totalChars := 0
	totalTokens := 0
	byLevel := map[int]int{}
	byPage := map[int]int{}
	for _, c := range chunks {
		totalChars += len(c.Text)
		totalTokens += c.TokenCount
		byLevel[c.Level]++
		byPage[c.PageNumber]++
	}
	return &types.ChunkingStats{
		TotalChunks:      len(chunks),
		TotalTokens:      totalTokens,
		AverageChunkSize: float64(totalChars) / float64(len(chunks)),
		ChunksByLevel:    byLevel,
		ChunksByPage:     byPage,
	}
}

// SplitOversize splits a single oversized unit of text into parts each under
// maxTokens, titling parts "title (Part N)". The summarizer uses this to
// pre-split units that exceed a batch ceiling before packing.
func SplitOversize(id, title, text string, maxTokens int) []*types.Chunk {
	words := strings.Fields(text)
	var parts []*types.Chunk
	current := ""
	part := 1
	add := func(body string) {
		trimmed := strings.TrimSpace(body)
		parts = append(parts, &types.Chunk{
			ChunkID:    fmt.Sprintf("%s_part%d", id, part),
			Title:      fmt.Sprintf("%s (Part %d)", title, part),
			Text:       trimmed,
			TokenCount: token.Count(trimmed),
			WordCount:  token.CountWords(trimmed),
			Level:      LevelWord,
		})
		part++
	}
	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if token.Count(candidate) > maxTokens && current != "" {
			add(current)
			current = word
		} else {
			current = candidate
		}
	}
	if current != "" {
		add(current)
	}
	return parts
}
