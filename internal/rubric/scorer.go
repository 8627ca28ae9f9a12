package rubric

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/stagegate/internal/domain"
)

// Scorer applies the rubric definition to theme evidence.
type Scorer struct {
	def    Definition
	logger *zap.Logger
}

// NewScorer creates a scorer over a validated definition.
func NewScorer(def Definition, logger *zap.Logger) *Scorer {
	return &Scorer{def: def, logger: logger}
}

// Score assigns the maturity stage for one theme.
//
// Stage 0 is the floor whenever the evidence-sufficiency gate fails. Stages
// are evaluated 4 downward to 1 and the highest stage whose cumulative
// criteria are satisfied wins; cumulative means stage N also requires the
// signal sets of all stages below it, so adding evidence can never lower the
// assigned stage. A passed gate with no stage match yields stage 1 when any
// evidence exists.
func (s *Scorer) Score(theme string, ev []domain.EvidenceRecord) (domain.DimensionScore, error) {
	stages, ok := s.def[theme]
	if !ok {
		return domain.DimensionScore{}, &domain.RubricNotFoundError{Theme: theme}
	}

	quotes := len(ev)
	pages := distinctPages(ev)
	chunks := distinctChunks(ev)

	minQuotes, minPages := s.def.gate(theme)
	if quotes < minQuotes || pages < minPages {
		score := domain.DimensionScore{
			ThemeCode:  theme,
			Stage:      0,
			Confidence: gateFailConfidence(quotes, pages, minQuotes, minPages),
			Rationale: truncateWords(fmt.Sprintf(
				"insufficient evidence: %d quotes across %d distinct pages (gate requires %d quotes on %d pages)",
				quotes, pages, minQuotes, minPages), domain.MaxRationaleWords),
			Evidence: ev,
		}
		s.logger.Debug("Evidence gate failed",
			zap.String("theme", theme),
			zap.Int("quotes", quotes),
			zap.Int("pages", pages),
		)
		return score, nil
	}

	for stage := domain.MaxStage; stage >= 1; stage-- {
		matched, signals := s.cumulativeMatch(stages, stage, ev)
		if !matched {
			continue
		}
		return domain.DimensionScore{
			ThemeCode:  theme,
			Stage:      stage,
			Confidence: confidence(s.signalRatio(stages, ev), pages, chunks),
			Rationale: truncateWords(fmt.Sprintf(
				"stage %d: matched signals [%s]; %d quotes across %d pages",
				stage, strings.Join(signals, "; "), quotes, pages), domain.MaxRationaleWords),
			Evidence: ev,
		}, nil
	}

	// Gate passed but no stage signals matched: minimal evidence exists.
	return domain.DimensionScore{
		ThemeCode:  theme,
		Stage:      1,
		Confidence: confidence(0, pages, chunks),
		Rationale: truncateWords(fmt.Sprintf(
			"stage 1: no stage signals matched; minimal evidence present (%d quotes across %d pages)",
			quotes, pages), domain.MaxRationaleWords),
		Evidence: ev,
	}, nil
}

// cumulativeMatch reports whether the given stage and every stage below it
// are fully satisfied, and returns the matched signal names for the rationale.
func (s *Scorer) cumulativeMatch(stages ThemeRubric, stage int, ev []domain.EvidenceRecord) (bool, []string) {
	var signals []string
	for t := 1; t <= stage; t++ {
		c, ok := stages[t]
		if !ok {
			return false, nil
		}
		if len(ev) < c.MinQuotes || distinctPages(ev) < c.MinPages {
			return false, nil
		}
		for _, sig := range c.RequiredSignals {
			if !signalMatched(sig, ev) {
				return false, nil
			}
			signals = append(signals, sig)
		}
	}
	return true, signals
}

// signalRatio is the fraction of all defined signals (stages 1-4) matched by
// the evidence, the match-strength input to confidence.
func (s *Scorer) signalRatio(stages ThemeRubric, ev []domain.EvidenceRecord) float64 {
	var total, matched int
	stageNums := make([]int, 0, len(stages))
	for n := range stages {
		stageNums = append(stageNums, n)
	}
	sort.Ints(stageNums)
	for _, n := range stageNums {
		for _, sig := range stages[n].RequiredSignals {
			total++
			if signalMatched(sig, ev) {
				matched++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total)
}

// signalMatched does a case-insensitive substring match of the signal phrase
// against the evidence quotes.
func signalMatched(signal string, ev []domain.EvidenceRecord) bool {
	needle := strings.ToLower(signal)
	for _, rec := range ev {
		if strings.Contains(strings.ToLower(rec.Quote), needle) {
			return true
		}
	}
	return false
}

// confidence blends signal-match strength with evidence diversity, bounded
// to [0,1].
func confidence(signalRatio float64, pages, chunks int) float64 {
	c := 0.6*signalRatio +
		0.25*math.Min(1, float64(pages)/4) +
		0.15*math.Min(1, float64(chunks)/4)
	return clamp01(c)
}

// gateFailConfidence reflects how thin the evidence is: zero evidence means
// zero confidence, partial evidence earns a sliver proportional to coverage.
func gateFailConfidence(quotes, pages, minQuotes, minPages int) float64 {
	if quotes == 0 {
		return 0
	}
	coverage := (math.Min(1, float64(quotes)/float64(minQuotes)) +
		math.Min(1, float64(pages)/float64(minPages))) / 2
	return clamp01(0.2 * coverage)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func distinctPages(ev []domain.EvidenceRecord) int {
	pages := make(map[int]struct{}, len(ev))
	for _, rec := range ev {
		pages[rec.PageNo] = struct{}{}
	}
	return len(pages)
}

func distinctChunks(ev []domain.EvidenceRecord) int {
	chunks := make(map[string]struct{}, len(ev))
	for _, rec := range ev {
		chunks[rec.ChunkID] = struct{}{}
	}
	return len(chunks)
}

func truncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " ")
}
