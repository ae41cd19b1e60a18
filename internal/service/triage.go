package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/crisis-triage-mcp-server/internal/domain"
)

// RegisterPatientParams represents input for registering a patient
type RegisterPatientParams struct {
	Name string `json:"name" binding:"required"`
	Age  string `json:"age,omitempty"`
	DOB  string `json:"dob,omitempty"`
}

// AssessmentParams represents one questionnaire submission. Optional fields
// left nil are derived from the patient's history when one exists.
type AssessmentParams struct {
	Responses        map[string]int   `json:"responses"`
	SecondaryTotal   int              `json:"secondary_total"`
	Note             string           `json:"note"`
	PreviousTotal    *int             `json:"previous_total,omitempty"`
	DaysSinceContact *int             `json:"days_since_contact,omitempty"`
	DailyLog         *domain.DailyLog `json:"daily_log,omitempty"`
	// SentimentScore skips the collaborator when set.
	SentimentScore *float64 `json:"sentiment_score,omitempty"`
}

// SubmissionResult is the outcome of scoring one assessment.
type SubmissionResult struct {
	PatientID  string                    `json:"patient_id,omitempty"`
	Assessment *domain.AssessmentRecord  `json:"assessment"`
	Analysis   *domain.RiskAnalysis      `json:"analysis"`
	Actions    []string                  `json:"actions"`
	Sentiment  *domain.SentimentResult   `json:"sentiment"`
	Warnings   []*domain.ValidationError `json:"warnings"`
	Alert      *domain.Alert             `json:"alert,omitempty"`
}

// TriageService orchestrates scoring, sentiment analysis, classification and
// the patient registry.
type TriageService struct {
	logger    *logrus.Logger
	repo      domain.PatientRepository
	sentiment domain.SentimentAnalyzer
	engine    *RiskEngine
	now       func() time.Time
}

// TriageOption is a functional option for TriageService.
type TriageOption func(*TriageService)

// WithTriageClock overrides the clock used for timestamps and contact gaps.
func WithTriageClock(now func() time.Time) TriageOption {
	return func(s *TriageService) {
		s.now = now
	}
}

// NewTriageService creates a new triage service
func NewTriageService(
	logger *logrus.Logger,
	repo domain.PatientRepository,
	sentiment domain.SentimentAnalyzer,
	opts ...TriageOption,
) *TriageService {
	s := &TriageService{
		logger:    logger,
		repo:      repo,
		sentiment: sentiment,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = NewRiskEngine(logger, WithClock(s.now))
	return s
}

// RegisterPatient creates a patient record with a fresh identifier.
func (s *TriageService) RegisterPatient(ctx context.Context, params *RegisterPatientParams) (*domain.PatientRecord, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	patient := &domain.PatientRecord{
		ID:          uuid.NewString(),
		Name:        name,
		Age:         strings.TrimSpace(params.Age),
		DOB:         strings.TrimSpace(params.DOB),
		Assessments: []*domain.AssessmentRecord{},
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.CreatePatient(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to register patient: %w", err)
	}

	s.logger.WithField("patient_id", patient.ID).Info("Patient registered")
	return patient, nil
}

// GetPatient returns a patient by ID.
func (s *TriageService) GetPatient(ctx context.Context, id string) (*domain.PatientRecord, error) {
	return s.repo.GetPatient(ctx, id)
}

// ListPatients returns every registered patient, newest first.
func (s *TriageService) ListPatients(ctx context.Context) ([]*domain.PatientRecord, error) {
	return s.repo.ListPatients(ctx)
}

// SubmitAssessment scores a submission for a registered patient, stores it
// and raises an alert when the tier requires immediate attention.
func (s *TriageService) SubmitAssessment(ctx context.Context, patientID string, params *AssessmentParams) (*SubmissionResult, error) {
	patient, err := s.repo.GetPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load patient %s: %w", patientID, err)
	}

	result := s.evaluate(ctx, patient.LatestAssessment(), params)
	result.PatientID = patient.ID

	if err := s.repo.AppendAssessment(ctx, patient.ID, result.Assessment, result.Analysis); err != nil {
		return nil, fmt.Errorf("failed to store assessment: %w", err)
	}

	if result.Analysis.Tier.RequiresImmediateAttention() {
		alert := &domain.Alert{
			ID:          uuid.NewString(),
			PatientID:   patient.ID,
			PatientName: patient.Name,
			Tier:        result.Analysis.Tier,
			Message:     fmt.Sprintf("%s risk detected for %s (score %d)", result.Analysis.Tier, patient.Name, result.Analysis.Score),
			CreatedAt:   result.Analysis.GeneratedAt,
		}
		if err := s.repo.SaveAlert(ctx, alert); err != nil {
			return nil, fmt.Errorf("failed to save alert: %w", err)
		}
		result.Alert = alert

		s.logger.WithFields(logrus.Fields(alert.Tier.LogFields())).WithFields(logrus.Fields{
			"patient_id": patient.ID,
			"score":      result.Analysis.Score,
		}).Warn("Patient requires immediate attention")
	}

	return result, nil
}

// Simulate runs the scoring pipeline without reading or writing the registry.
func (s *TriageService) Simulate(ctx context.Context, params *AssessmentParams) *SubmissionResult {
	return s.evaluate(ctx, nil, params)
}

// TriageBoard splits patients into those needing immediate attention and the
// rest. Patients without an analysis are standard.
func (s *TriageService) TriageBoard(ctx context.Context) (*domain.TriageBoard, error) {
	patients, err := s.repo.ListPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	board := &domain.TriageBoard{
		Immediate: []*domain.PatientRecord{},
		Standard:  []*domain.PatientRecord{},
	}
	for _, p := range patients {
		if tier, ok := p.CurrentTier(); ok && tier.RequiresImmediateAttention() {
			board.Immediate = append(board.Immediate, p)
		} else {
			board.Standard = append(board.Standard, p)
		}
	}
	return board, nil
}

// ListAlerts returns alerts newest first, optionally only unread ones.
func (s *TriageService) ListAlerts(ctx context.Context, unreadOnly bool) ([]*domain.Alert, error) {
	return s.repo.ListAlerts(ctx, unreadOnly)
}

// MarkAlertRead acknowledges an alert.
func (s *TriageService) MarkAlertRead(ctx context.Context, id string) (*domain.Alert, error) {
	return s.repo.MarkAlertRead(ctx, id)
}

// evaluate builds the assessment snapshot and classifies it. latest is the
// patient's newest stored assessment, or nil.
func (s *TriageService) evaluate(ctx context.Context, latest *domain.AssessmentRecord, params *AssessmentParams) *SubmissionResult {
	now := s.now().UTC()

	responses, warnings := domain.ParseQuestionnaire(params.Responses)
	if w := ValidateSecondaryTotal(params.SecondaryTotal); w != nil {
		warnings = append(warnings, w)
	}
	warnings = append(warnings, params.DailyLog.Validate()...)

	assessment := &domain.AssessmentRecord{
		ID:             uuid.NewString(),
		Responses:      responses,
		PrimaryTotal:   ComputeTotal(responses),
		SecondaryTotal: params.SecondaryTotal,
		Note:           params.Note,
		CreatedAt:      now,
	}
	if params.DailyLog != nil {
		log := *params.DailyLog
		assessment.DailyLog = &log
	}

	switch {
	case params.PreviousTotal != nil:
		prev := *params.PreviousTotal
		assessment.PreviousTotal = &prev
	case latest != nil:
		prev := latest.PrimaryTotal
		assessment.PreviousTotal = &prev
	}

	switch {
	case params.DaysSinceContact != nil:
		assessment.DaysSinceContact = *params.DaysSinceContact
	case latest != nil:
		assessment.DaysSinceContact = DaysBetween(latest.CreatedAt, now)
	}
	if assessment.DaysSinceContact < 0 {
		warnings = append(warnings, domain.NewValidationError("days_since_contact", "must not be negative", assessment.DaysSinceContact))
	}

	if len(warnings) > 0 {
		s.logger.WithFields(logrus.Fields{
			"assessment_id": assessment.ID,
			"warning_count": len(warnings),
		}).Warn("Assessment accepted with validation warnings")
	}

	sentiment := s.analyzeSentiment(ctx, params)
	analysis := s.engine.ClassifyRisk(assessment, sentiment.Score)

	if warnings == nil {
		warnings = []*domain.ValidationError{}
	}
	return &SubmissionResult{
		Assessment: assessment,
		Analysis:   analysis,
		Actions:    ResolveActions(analysis.Tier),
		Sentiment:  sentiment,
		Warnings:   warnings,
	}
}

// analyzeSentiment never fails: any collaborator error yields the neutral
// fallback.
func (s *TriageService) analyzeSentiment(ctx context.Context, params *AssessmentParams) *domain.SentimentResult {
	if params.SentimentScore != nil {
		return &domain.SentimentResult{Score: *params.SentimentScore, Summary: "Provided by caller"}
	}
	if s.sentiment == nil {
		return domain.FallbackSentiment()
	}

	result, err := s.sentiment.AnalyzeSentiment(ctx, params.Note)
	if err != nil || result == nil {
		s.logger.WithError(err).Warn("Sentiment analysis failed, using neutral fallback")
		return domain.FallbackSentiment()
	}
	return result
}

// DaysBetween returns the whole days elapsed from since to now, never negative.
func DaysBetween(since, now time.Time) int {
	d := now.Sub(since)
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}
