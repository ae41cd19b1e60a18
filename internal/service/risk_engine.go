package service

import (
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/crisis-triage-mcp-server/internal/domain"
)

// Composite score weights.
const (
	primaryWeight   = 0.4
	secondaryWeight = 0.3
	sentimentWeight = 0.2
	behaviorWeight  = 0.1
)

// Behavior-change signal. A worsening of more than BehaviorChangeThreshold
// points against the previous PHQ-9 total is a step to the elevated value.
const (
	BehaviorChangeThreshold = 5
	BehaviorScoreElevated   = 100.0
	BehaviorScoreBaseline   = 20.0
)

// Tier thresholds on the unrounded composite score. Critical is strictly
// greater than its threshold; the others are inclusive.
const (
	criticalThreshold = 70.0
	highThreshold     = 50.0
	mediumThreshold   = 30.0
)

// Indicator labels, in evaluation order.
const (
	IndicatorSevereDepression = "Severe Depression (PHQ-9 > 20)"
	IndicatorSevereAnxiety    = "Severe Anxiety (GAD-7 > 15)"
	IndicatorSuicidalIdeation = "Suicidal Ideation Detected (Q9)"
	IndicatorNoRecentContact  = "No contact in >30 days"
	IndicatorCrisisKeywords   = "Crisis Keywords Detected"
)

// CrisisKeywords are matched case-insensitively as substrings of the note.
var CrisisKeywords = []string{"suicide", "self-harm", "end it all", "hopeless", "kill"}

// indicatorRule is one qualitative risk check.
type indicatorRule struct {
	Label   string
	Applies func(a *domain.AssessmentRecord) bool
}

var indicatorRules = []indicatorRule{
	{IndicatorSevereDepression, func(a *domain.AssessmentRecord) bool { return a.PrimaryTotal > 20 }},
	{IndicatorSevereAnxiety, func(a *domain.AssessmentRecord) bool { return a.SecondaryTotal > 15 }},
	{IndicatorSuicidalIdeation, func(a *domain.AssessmentRecord) bool { return a.Responses.Q9 > 0 }},
	{IndicatorNoRecentContact, func(a *domain.AssessmentRecord) bool { return a.DaysSinceContact > 30 }},
	{IndicatorCrisisKeywords, func(a *domain.AssessmentRecord) bool { return ContainsCrisisKeyword(a.Note) }},
}

// RiskEngine turns an assessment and a sentiment score into a RiskAnalysis.
type RiskEngine struct {
	logger *logrus.Logger
	now    func() time.Time
}

// RiskEngineOption is a functional option for RiskEngine.
type RiskEngineOption func(*RiskEngine)

// WithClock overrides the clock used to stamp analyses.
func WithClock(now func() time.Time) RiskEngineOption {
	return func(e *RiskEngine) {
		e.now = now
	}
}

// NewRiskEngine creates a new risk engine
func NewRiskEngine(logger *logrus.Logger, opts ...RiskEngineOption) *RiskEngine {
	e := &RiskEngine{
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ClassifyRisk computes the composite score, tier and indicators for an
// assessment. The daily log is not part of the formula.
func (e *RiskEngine) ClassifyRisk(assessment *domain.AssessmentRecord, sentimentScore float64) *domain.RiskAnalysis {
	behavior := BehaviorChangeScore(assessment.PrimaryTotal, assessment.PreviousTotal)
	raw := CompositeScore(assessment.PrimaryTotal, assessment.SecondaryTotal, sentimentScore, behavior)
	tier := TierForScore(raw)

	analysis := &domain.RiskAnalysis{
		Score:          int(math.Round(raw)),
		RawScore:       raw,
		Tier:           tier,
		Indicators:     DetectIndicators(assessment),
		SentimentScore: sentimentScore,
		BehaviorScore:  behavior,
		GeneratedAt:    e.now().UTC(),
	}

	e.logger.WithFields(logrus.Fields{
		"assessment_id":   assessment.ID,
		"phq9_total":      assessment.PrimaryTotal,
		"gad7_total":      assessment.SecondaryTotal,
		"sentiment_score": sentimentScore,
		"behavior_score":  behavior,
		"raw_score":       raw,
		"score":           analysis.Score,
		"risk_tier":       tier.String(),
		"indicator_count": len(analysis.Indicators),
	}).Debug("Risk classification completed")

	return analysis
}

// NormalizePrimary maps a PHQ-9 total onto 0-100.
func NormalizePrimary(total int) float64 {
	return float64(total) / domain.PHQ9MaxTotal * 100
}

// NormalizeSecondary maps a GAD-7 total onto 0-100.
func NormalizeSecondary(total int) float64 {
	return float64(total) / domain.GAD7MaxTotal * 100
}

// BehaviorChangeScore is a step function: elevated only when a previous
// total exists and the current total exceeds it by more than the threshold.
func BehaviorChangeScore(current int, previous *int) float64 {
	if previous != nil && current-*previous > BehaviorChangeThreshold {
		return BehaviorScoreElevated
	}
	return BehaviorScoreBaseline
}

// CompositeScore returns the weighted blend clamped to [0,100], unrounded.
func CompositeScore(primaryTotal, secondaryTotal int, sentimentScore, behaviorScore float64) float64 {
	raw := NormalizePrimary(primaryTotal)*primaryWeight +
		NormalizeSecondary(secondaryTotal)*secondaryWeight +
		sentimentScore*sentimentWeight +
		behaviorScore*behaviorWeight
	return math.Min(100, math.Max(0, raw))
}

// TierForScore maps an unrounded composite score to its tier.
func TierForScore(raw float64) domain.RiskTier {
	switch {
	case raw > criticalThreshold:
		return domain.RiskTierCritical
	case raw >= highThreshold:
		return domain.RiskTierHigh
	case raw >= mediumThreshold:
		return domain.RiskTierMedium
	default:
		return domain.RiskTierLow
	}
}

// DetectIndicators evaluates every indicator rule in order. The result is
// never nil.
func DetectIndicators(assessment *domain.AssessmentRecord) []string {
	indicators := make([]string, 0, len(indicatorRules))
	for _, rule := range indicatorRules {
		if rule.Applies(assessment) {
			indicators = append(indicators, rule.Label)
		}
	}
	return indicators
}

// ContainsCrisisKeyword reports whether the note mentions any crisis keyword.
func ContainsCrisisKeyword(note string) bool {
	lower := strings.ToLower(note)
	for _, keyword := range CrisisKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
