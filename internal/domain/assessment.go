package domain

import (
	"time"
)

// AssessmentRecord is an immutable snapshot of one questionnaire submission.
type AssessmentRecord struct {
	ID               string                `json:"id"`
	Responses        QuestionnaireResponse `json:"responses"`
	DailyLog         *DailyLog             `json:"daily_log,omitempty"`
	PrimaryTotal     int                   `json:"phq9_total"`
	SecondaryTotal   int                   `json:"gad7_total"`
	Note             string                `json:"note"`
	PreviousTotal    *int                  `json:"previous_total,omitempty"`
	DaysSinceContact int                   `json:"days_since_contact"`
	CreatedAt        time.Time             `json:"created_at"`
}

// RiskAnalysis is the classifier output for one assessment. It is never
// mutated; a new submission supersedes it.
type RiskAnalysis struct {
	Score          int       `json:"score"`
	RawScore       float64   `json:"raw_score"`
	Tier           RiskTier  `json:"tier"`
	Indicators     []string  `json:"indicators"`
	SentimentScore float64   `json:"sentiment_score"`
	BehaviorScore  float64   `json:"behavior_score"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// PatientRecord is the registry entry for one patient.
// Assessments are ordered newest first.
type PatientRecord struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Age            string              `json:"age,omitempty"`
	DOB            string              `json:"dob,omitempty"`
	Assessments    []*AssessmentRecord `json:"assessments"`
	LatestAnalysis *RiskAnalysis       `json:"latest_analysis,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// LatestAssessment returns the newest assessment, or nil if none exist.
func (p *PatientRecord) LatestAssessment() *AssessmentRecord {
	if p == nil || len(p.Assessments) == 0 {
		return nil
	}
	return p.Assessments[0]
}

// CurrentTier returns the tier of the latest analysis and whether one exists.
func (p *PatientRecord) CurrentTier() (RiskTier, bool) {
	if p == nil || p.LatestAnalysis == nil {
		return RiskTierLow, false
	}
	return p.LatestAnalysis.Tier, true
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (p *PatientRecord) Clone() *PatientRecord {
	if p == nil {
		return nil
	}
	out := *p
	out.Assessments = make([]*AssessmentRecord, len(p.Assessments))
	for i, a := range p.Assessments {
		out.Assessments[i] = a.Clone()
	}
	out.LatestAnalysis = p.LatestAnalysis.Clone()
	return &out
}

// Clone returns a deep copy of the assessment.
func (a *AssessmentRecord) Clone() *AssessmentRecord {
	if a == nil {
		return nil
	}
	out := *a
	if a.DailyLog != nil {
		log := *a.DailyLog
		out.DailyLog = &log
	}
	if a.PreviousTotal != nil {
		prev := *a.PreviousTotal
		out.PreviousTotal = &prev
	}
	return &out
}

// Clone returns a deep copy of the analysis.
func (r *RiskAnalysis) Clone() *RiskAnalysis {
	if r == nil {
		return nil
	}
	out := *r
	out.Indicators = append([]string{}, r.Indicators...)
	return &out
}

// Alert is raised for a patient whose submission was classified High or Critical.
type Alert struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id"`
	PatientName string    `json:"patient_name"`
	Tier        RiskTier  `json:"tier"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
	IsRead      bool      `json:"is_read"`
}

// SentimentResult is the output of the external sentiment collaborator.
type SentimentResult struct {
	Score    float64 `json:"score"`
	Summary  string  `json:"summary"`
	Fallback bool    `json:"fallback"`
}

// Sentiment fallback used whenever the collaborator cannot produce a score.
const (
	NeutralSentimentScore = 50.0
	SentimentErrorSummary = "Error analyzing sentiment"
)

// FallbackSentiment returns the neutral result substituted on collaborator failure.
func FallbackSentiment() *SentimentResult {
	return &SentimentResult{
		Score:    NeutralSentimentScore,
		Summary:  SentimentErrorSummary,
		Fallback: true,
	}
}

// TriageBoard partitions patients for the clinician dashboard.
type TriageBoard struct {
	Immediate []*PatientRecord `json:"immediate"`
	Standard  []*PatientRecord `json:"standard"`
}
