package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crisis-triage-mcp-server/internal/domain"
	"github.com/crisis-triage-mcp-server/internal/logging"
	"github.com/crisis-triage-mcp-server/internal/repository"
)

type fakeAnalyzer struct {
	result *domain.SentimentResult
	err    error
	calls  []string
}

func (f *fakeAnalyzer) AnalyzeSentiment(ctx context.Context, text string) (*domain.SentimentResult, error) {
	f.calls = append(f.calls, text)
	return f.result, f.err
}

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func newTestTriage(analyzer domain.SentimentAnalyzer) (*TriageService, *testClock) {
	clock := &testClock{t: time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)}
	logger := logging.NewDiscardLogger()
	svc := NewTriageService(logger, repository.NewMemoryPatientStore(logger), analyzer, WithTriageClock(clock.Now))
	return svc, clock
}

func scenarioResponses() map[string]int {
	return map[string]int{"q1": 3, "q2": 3, "q3": 3, "q4": 2, "q5": 2, "q6": 2, "q7": 2, "q8": 1, "q9": 1}
}

func uniform(v int) map[string]int {
	out := map[string]int{}
	for _, k := range domain.PHQ9ItemKeys {
		out[k] = v
	}
	return out
}

func TestTriageService_RegisterPatient(t *testing.T) {
	svc, _ := newTestTriage(nil)
	ctx := context.Background()

	p, err := svc.RegisterPatient(ctx, &RegisterPatientParams{Name: "  Alex Smith ", Age: "34"})
	require.NoError(t, err)
	assert.Len(t, p.ID, 36)
	assert.Equal(t, "Alex Smith", p.Name)

	_, err = svc.RegisterPatient(ctx, &RegisterPatientParams{Name: "   "})
	assert.True(t, errors.Is(err, domain.ErrInvalidName))

	patients, err := svc.ListPatients(ctx)
	require.NoError(t, err)
	assert.Len(t, patients, 1)
}

func TestTriageService_SubmitAssessment_Scenario(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &domain.SentimentResult{Score: 80, Summary: "distressed"}}
	svc, _ := newTestTriage(analyzer)
	ctx := context.Background()

	p, err := svc.RegisterPatient(ctx, &RegisterPatientParams{Name: "Jordan"})
	require.NoError(t, err)

	days := 2
	result, err := svc.SubmitAssessment(ctx, p.ID, &AssessmentParams{
		Responses:        scenarioResponses(),
		Note:             "I am feeling very hopeless.",
		DaysSinceContact: &days,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"I am feeling very hopeless."}, analyzer.calls)
	assert.Equal(t, 19, result.Assessment.PrimaryTotal)
	assert.Nil(t, result.Assessment.PreviousTotal)
	assert.Equal(t, 46, result.Analysis.Score)
	assert.Equal(t, domain.RiskTierMedium, result.Analysis.Tier)
	assert.Equal(t, []string{IndicatorSuicidalIdeation, IndicatorCrisisKeywords}, result.Analysis.Indicators)
	assert.Equal(t, ResolveActions(domain.RiskTierMedium), result.Actions)
	assert.Empty(t, result.Warnings)
	assert.Nil(t, result.Alert)

	stored, err := svc.GetPatient(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, stored.Assessments, 1)
	assert.Equal(t, result.Assessment.ID, stored.Assessments[0].ID)
	assert.Equal(t, 46, stored.LatestAnalysis.Score)
}

func TestTriageService_SubmitAssessment_DerivesHistory(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &domain.SentimentResult{Score: 90}}
	svc, clock := newTestTriage(analyzer)
	ctx := context.Background()

	p, err := svc.RegisterPatient(ctx, &RegisterPatientParams{Name: "Riley"})
	require.NoError(t, err)

	first, err := svc.SubmitAssessment(ctx, p.ID, &AssessmentParams{Responses: uniform(1)})
	require.NoError(t, err)
	assert.Equal(t, 9, first.Assessment.PrimaryTotal)
	assert.Equal(t, 0, first.Assessment.DaysSinceContact)
	assert.Equal(t, BehaviorScoreBaseline, first.Analysis.BehaviorScore)

	clock.t = clock.t.Add(40*24*time.Hour + 3*time.Hour)

	second, err := svc.SubmitAssessment(ctx, p.ID, &AssessmentParams{Responses: uniform(3), SecondaryTotal: 18})
	require.NoError(t, err)
	require.NotNil(t, second.Assessment.PreviousTotal)
	assert.Equal(t, 9, *second.Assessment.PreviousTotal)
	assert.Equal(t, 40, second.Assessment.DaysSinceContact)
	assert.Equal(t, BehaviorScoreElevated, second.Analysis.BehaviorScore)
	assert.Equal(t, domain.RiskTierCritical, second.Analysis.Tier)
	assert.Contains(t, second.Analysis.Indicators, IndicatorNoRecentContact)

	stored, err := svc.GetPatient(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, stored.Assessments, 2)
	assert.Equal(t, second.Assessment.ID, stored.Assessments[0].ID)
}

func TestTriageService_ExplicitHistoryOverridesStored(t *testing.T) {
	svc, _ := newTestTriage(&fakeAnalyzer{result: &domain.SentimentResult{Score: 10}})
	ctx := context.Background()

	p, err := svc.RegisterPatient(ctx, &RegisterPatientParams{Name: "Casey"})
	require.NoError(t, err)
	_, err = svc.SubmitAssessment(ctx, p.ID, &AssessmentParams{Responses: uniform(0)})
	require.NoError(t, err)

	prev, days := 25, 3
	result, err := svc.SubmitAssessment(ctx, p.ID, &AssessmentParams{
		Responses:        uniform(2),
		PreviousTotal:    &prev,
		DaysSinceContact: &days,
	})
	require.NoError(t, err)
	assert.Equal(t, 25, *result.Assessment.PreviousTotal)
	assert.Equal(t, 3, result.Assessment.DaysSinceContact)
	assert.Equal(t, BehaviorScoreBaseline, result.Analysis.BehaviorScore)
}

func TestTriageService_SentimentFailureFallsBack(t *testing.T) {
	analyzer := &fakeAnalyzer{err: errors.New("connection refused")}
	svc, _ := newTestTriage(analyzer)

	result := svc.Simulate(context.Background(), &AssessmentParams{Responses: uniform(0), Note: "ok"})

	assert.Equal(t, domain.FallbackSentiment(), result.Sentiment)
	assert.Equal(t, 50.0, result.Analysis.SentimentScore)
	assert.InDelta(t, 12.0, result.Analysis.RawScore, 1e-9)
}

func TestTriageService_NilAnalyzerFallsBack(t *testing.T) {
	svc, _ := newTestTriage(nil)
	result := svc.Simulate(context.Background(), &AssessmentParams{Responses: uniform(0)})
	assert.True(t, result.Sentiment.Fallback)
}

func TestTriageService_CallerSentimentSkipsCollaborator(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &domain.SentimentResult{Score: 0}}
	svc, _ := newTestTriage(analyzer)
	score := 80.0

	result := svc.Simulate(context.Background(), &AssessmentParams{Responses: scenarioResponses(), SentimentScore: &score})

	assert.Empty(t, analyzer.calls)
	assert.Equal(t, 80.0, result.Analysis.SentimentScore)
}

func TestTriageService_SimulateDoesNotStore(t *testing.T) {
	svc, _ := newTestTriage(&fakeAnalyzer{result: &domain.SentimentResult{Score: 100}})
	ctx := context.Background()

	result := svc.Simulate(ctx, &AssessmentParams{Responses: uniform(3), SecondaryTotal: 21})
	assert.Equal(t, domain.RiskTierCritical, result.Analysis.Tier)
	assert.Nil(t, result.Alert)
	assert.Empty(t, result.PatientID)

	patients, err := svc.ListPatients(ctx)
	require.NoError(t, err)
	assert.Empty(t, patients)
	alerts, err := svc.ListAlerts(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestTriageService_WarningsDoNotBlockScoring(t *testing.T) {
	svc, _ := newTestTriage(nil)
	days := -1

	result := svc.Simulate(context.Background(), &AssessmentParams{
		Responses:        map[string]int{"q1": 4, "q2": 1, "extra": 1},
		SecondaryTotal:   30,
		DaysSinceContact: &days,
		DailyLog:         &domain.DailyLog{HoursOfSleep: 6, SleepQuality: 9, EnergyLevel: 3, StressIntensity: 3},
	})

	assert.Equal(t, 5, result.Assessment.PrimaryTotal)
	fields := make([]string, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		fields = append(fields, w.Field)
	}
	assert.Contains(t, fields, "q1")
	assert.Contains(t, fields, "q9")
	assert.Contains(t, fields, "extra")
	assert.Contains(t, fields, "gad7_total")
	assert.Contains(t, fields, "sleep_quality")
	assert.Contains(t, fields, "days_since_contact")
}

func TestTriageService_AlertsAndBoard(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &domain.SentimentResult{Score: 90}}
	svc, _ := newTestTriage(analyzer)
	ctx := context.Background()

	calm, err := svc.RegisterPatient(ctx, &RegisterPatientParams{Name: "Calm"})
	require.NoError(t, err)
	crisis, err := svc.RegisterPatient(ctx, &RegisterPatientParams{Name: "Crisis"})
	require.NoError(t, err)
	_, err = svc.RegisterPatient(ctx, &RegisterPatientParams{Name: "New"})
	require.NoError(t, err)

	_, err = svc.SubmitAssessment(ctx, calm.ID, &AssessmentParams{Responses: uniform(0)})
	require.NoError(t, err)
	high, err := svc.SubmitAssessment(ctx, crisis.ID, &AssessmentParams{Responses: uniform(3), SecondaryTotal: 20, Note: "I want to end it all"})
	require.NoError(t, err)
	require.NotNil(t, high.Alert)
	assert.Equal(t, crisis.ID, high.Alert.PatientID)
	assert.Equal(t, "Crisis", high.Alert.PatientName)

	board, err := svc.TriageBoard(ctx)
	require.NoError(t, err)
	require.Len(t, board.Immediate, 1)
	assert.Equal(t, crisis.ID, board.Immediate[0].ID)
	assert.Len(t, board.Standard, 2)

	alerts, err := svc.ListAlerts(ctx, true)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	read, err := svc.MarkAlertRead(ctx, alerts[0].ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	unread, err := svc.ListAlerts(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestTriageService_ImmediateAttentionLogCarriesTierFields(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	svc := NewTriageService(logger, repository.NewMemoryPatientStore(logger),
		&fakeAnalyzer{result: &domain.SentimentResult{Score: 95}})
	ctx := context.Background()

	p, err := svc.RegisterPatient(ctx, &RegisterPatientParams{Name: "Jordan"})
	require.NoError(t, err)
	_, err = svc.SubmitAssessment(ctx, p.ID, &AssessmentParams{Responses: uniform(3), SecondaryTotal: 21, Note: "no reason to live"})
	require.NoError(t, err)

	var entry *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "Patient requires immediate attention" {
			entry = e
		}
	}
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "Critical", entry.Data["risk_tier"])
	assert.Equal(t, 3, entry.Data["risk_tier_ordinal"])
	assert.Equal(t, true, entry.Data["immediate_attention"])
	assert.Equal(t, p.ID, entry.Data["patient_id"])
}

func TestTriageService_SubmitUnknownPatient(t *testing.T) {
	svc, _ := newTestTriage(nil)
	_, err := svc.SubmitAssessment(context.Background(), "missing", &AssessmentParams{Responses: uniform(0)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDaysBetween(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, DaysBetween(base, base))
	assert.Equal(t, 0, DaysBetween(base, base.Add(23*time.Hour)))
	assert.Equal(t, 1, DaysBetween(base, base.Add(24*time.Hour)))
	assert.Equal(t, 31, DaysBetween(base, base.AddDate(0, 1, 0)))
	assert.Equal(t, 0, DaysBetween(base, base.Add(-48*time.Hour)))
}
