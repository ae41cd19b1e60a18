package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/crisis-triage-mcp-server/internal/domain"
	"github.com/crisis-triage-mcp-server/internal/service"
)

// Tool names
const (
	ToolComputeTotal     = "compute_total"
	ToolClassifyRisk     = "classify_risk"
	ToolResolveActions   = "resolve_actions"
	ToolRegisterPatient  = "register_patient"
	ToolSubmitAssessment = "submit_assessment"
	ToolGetPatient       = "get_patient"
	ToolTriageBoard      = "triage_board"
	ToolListAlerts       = "list_alerts"
	ToolMarkAlertRead    = "mark_alert_read"
)

// ComputeTotalParams defines parameters for compute_total tool
type ComputeTotalParams struct {
	Responses map[string]int `json:"responses" jsonschema:"PHQ-9 item scores keyed q1 to q9, each 0-3"`
}

// ComputeTotalResult defines the result structure for compute_total tool
type ComputeTotalResult struct {
	Total    int      `json:"total"`
	Warnings []string `json:"warnings"`
}

// DailyLogInput is the optional wellness log. It is stored with the
// assessment but does not change the score.
type DailyLogInput struct {
	HoursOfSleep    float64 `json:"hours_of_sleep" jsonschema:"hours slept last night"`
	SleepQuality    int     `json:"sleep_quality" jsonschema:"sleep quality, 1-5"`
	EnergyLevel     int     `json:"energy_level" jsonschema:"energy level, 1-5"`
	StressIntensity int     `json:"stress_intensity" jsonschema:"stress intensity, 1-5"`
}

func (d *DailyLogInput) toDomain() *domain.DailyLog {
	if d == nil {
		return nil
	}
	return &domain.DailyLog{
		HoursOfSleep:    d.HoursOfSleep,
		SleepQuality:    d.SleepQuality,
		EnergyLevel:     d.EnergyLevel,
		StressIntensity: d.StressIntensity,
	}
}

func fromDailyLog(d *domain.DailyLog) *DailyLogInput {
	if d == nil {
		return nil
	}
	return &DailyLogInput{
		HoursOfSleep:    d.HoursOfSleep,
		SleepQuality:    d.SleepQuality,
		EnergyLevel:     d.EnergyLevel,
		StressIntensity: d.StressIntensity,
	}
}

// AssessmentInput is shared by classify_risk and submit_assessment.
type AssessmentInput struct {
	Responses        map[string]int `json:"responses" jsonschema:"PHQ-9 item scores keyed q1 to q9, each 0-3"`
	SecondaryTotal   int            `json:"secondary_total,omitempty" jsonschema:"GAD-7 total, 0-21"`
	Note             string         `json:"note,omitempty" jsonschema:"free-text patient note sent for sentiment analysis"`
	PreviousTotal    *int           `json:"previous_total,omitempty" jsonschema:"previous PHQ-9 total used for the trend signal"`
	DaysSinceContact *int           `json:"days_since_contact,omitempty" jsonschema:"whole days since the last clinical contact"`
	SentimentScore   *float64       `json:"sentiment_score,omitempty" jsonschema:"pre-computed sentiment score 0-100; skips the sentiment service"`
	DailyLog         *DailyLogInput `json:"daily_log,omitempty" jsonschema:"optional self-reported wellness log"`
}

func (in AssessmentInput) params() *service.AssessmentParams {
	return &service.AssessmentParams{
		Responses:        in.Responses,
		SecondaryTotal:   in.SecondaryTotal,
		Note:             in.Note,
		PreviousTotal:    in.PreviousTotal,
		DaysSinceContact: in.DaysSinceContact,
		SentimentScore:   in.SentimentScore,
		DailyLog:         in.DailyLog.toDomain(),
	}
}

// SubmitAssessmentParams defines parameters for submit_assessment tool
type SubmitAssessmentParams struct {
	PatientID        string         `json:"patient_id" jsonschema:"registered patient ID"`
	Responses        map[string]int `json:"responses" jsonschema:"PHQ-9 item scores keyed q1 to q9, each 0-3"`
	SecondaryTotal   int            `json:"secondary_total,omitempty" jsonschema:"GAD-7 total, 0-21"`
	Note             string         `json:"note,omitempty" jsonschema:"free-text patient note sent for sentiment analysis"`
	PreviousTotal    *int           `json:"previous_total,omitempty" jsonschema:"defaults to the newest stored PHQ-9 total"`
	DaysSinceContact *int           `json:"days_since_contact,omitempty" jsonschema:"defaults to whole days since the newest stored assessment"`
	SentimentScore   *float64       `json:"sentiment_score,omitempty" jsonschema:"pre-computed sentiment score 0-100; skips the sentiment service"`
	DailyLog         *DailyLogInput `json:"daily_log,omitempty" jsonschema:"optional self-reported wellness log"`
}

func (in SubmitAssessmentParams) assessment() AssessmentInput {
	return AssessmentInput{
		Responses:        in.Responses,
		SecondaryTotal:   in.SecondaryTotal,
		Note:             in.Note,
		PreviousTotal:    in.PreviousTotal,
		DaysSinceContact: in.DaysSinceContact,
		SentimentScore:   in.SentimentScore,
		DailyLog:         in.DailyLog,
	}
}

// AnalysisResult defines the result structure for classify_risk and submit_assessment
type AnalysisResult struct {
	PatientID        string   `json:"patient_id,omitempty"`
	AssessmentID     string   `json:"assessment_id"`
	PrimaryTotal     int      `json:"phq9_total"`
	Score            int      `json:"score"`
	RawScore         float64  `json:"raw_score"`
	Tier             string   `json:"tier"`
	Indicators       []string `json:"indicators"`
	SentimentScore   float64  `json:"sentiment_score"`
	SentimentSummary string   `json:"sentiment_summary"`
	BehaviorScore    float64  `json:"behavior_score"`
	Actions          []string `json:"actions"`
	Warnings         []string `json:"warnings"`
	AlertID          string   `json:"alert_id,omitempty"`
}

// ResolveActionsParams defines parameters for resolve_actions tool
type ResolveActionsParams struct {
	Tier string `json:"tier" jsonschema:"risk tier: Low, Medium, High or Critical"`
}

// ResolveActionsResult defines the result structure for resolve_actions tool
type ResolveActionsResult struct {
	Tier    string   `json:"tier"`
	Actions []string `json:"actions"`
}

// RegisterPatientParams defines parameters for register_patient tool
type RegisterPatientParams struct {
	Name string `json:"name" jsonschema:"patient display name"`
	Age  string `json:"age,omitempty"`
	DOB  string `json:"dob,omitempty" jsonschema:"date of birth"`
}

// PatientIDParams identifies a patient.
type PatientIDParams struct {
	PatientID string `json:"patient_id"`
}

// AssessmentSummary is one stored assessment as returned by get_patient.
type AssessmentSummary struct {
	ID               string         `json:"id"`
	PrimaryTotal     int            `json:"phq9_total"`
	SecondaryTotal   int            `json:"gad7_total"`
	DaysSinceContact int            `json:"days_since_contact"`
	DailyLog         *DailyLogInput `json:"daily_log,omitempty"`
	CreatedAt        string         `json:"created_at"`
}

// PatientResult describes a patient and the latest analysis, if any.
type PatientResult struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Age         string              `json:"age"`
	DOB         string              `json:"dob"`
	CreatedAt   string              `json:"created_at"`
	HasAnalysis bool                `json:"has_analysis"`
	Score       int                 `json:"score"`
	Tier        string              `json:"tier"`
	Indicators  []string            `json:"indicators"`
	Assessments []AssessmentSummary `json:"assessments"`
}

// TriageBoardParams defines parameters for triage_board tool
type TriageBoardParams struct{}

// TriageBoardResult defines the result structure for triage_board tool
type TriageBoardResult struct {
	Immediate []PatientResult `json:"immediate"`
	Standard  []PatientResult `json:"standard"`
}

// ListAlertsParams defines parameters for list_alerts tool
type ListAlertsParams struct {
	UnreadOnly bool `json:"unread_only,omitempty"`
}

// AlertResult is one alert.
type AlertResult struct {
	ID          string `json:"id"`
	PatientID   string `json:"patient_id"`
	PatientName string `json:"patient_name"`
	Tier        string `json:"tier"`
	Message     string `json:"message"`
	CreatedAt   string `json:"created_at"`
	IsRead      bool   `json:"is_read"`
}

// ListAlertsResult defines the result structure for list_alerts tool
type ListAlertsResult struct {
	Alerts []AlertResult `json:"alerts"`
}

// MarkAlertReadParams defines parameters for mark_alert_read tool
type MarkAlertReadParams struct {
	AlertID string `json:"alert_id"`
}

// registerTools adds every triage tool to the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolComputeTotal,
		Description: "Sum PHQ-9 item scores and report validation warnings",
	}, s.handleComputeTotal)
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolClassifyRisk,
		Description: "Score an assessment and return risk tier, indicators and actions without storing it",
	}, s.handleClassifyRisk)
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolResolveActions,
		Description: "List the recommended clinical actions for a risk tier",
	}, s.handleResolveActions)
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolRegisterPatient,
		Description: "Register a patient and return the new patient ID",
	}, s.handleRegisterPatient)
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolSubmitAssessment,
		Description: "Score and store an assessment for a registered patient; raises an alert for High or Critical risk",
	}, s.handleSubmitAssessment)
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolGetPatient,
		Description: "Fetch a patient with assessment history and latest analysis",
	}, s.handleGetPatient)
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolTriageBoard,
		Description: "Split patients into immediate attention (High/Critical) and standard",
	}, s.handleTriageBoard)
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolListAlerts,
		Description: "List risk alerts, newest first",
	}, s.handleListAlerts)
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolMarkAlertRead,
		Description: "Acknowledge a risk alert",
	}, s.handleMarkAlertRead)
}

func (s *Server) handleComputeTotal(ctx context.Context, req *mcp.CallToolRequest, params ComputeTotalParams) (*mcp.CallToolResult, ComputeTotalResult, error) {
	s.logTool(ToolComputeTotal)

	responses, warnings := domain.ParseQuestionnaire(params.Responses)
	return nil, ComputeTotalResult{
		Total:    service.ComputeTotal(responses),
		Warnings: warningStrings(warnings),
	}, nil
}

func (s *Server) handleClassifyRisk(ctx context.Context, req *mcp.CallToolRequest, params AssessmentInput) (*mcp.CallToolResult, AnalysisResult, error) {
	s.logTool(ToolClassifyRisk)

	return nil, toAnalysisResult(s.triage.Simulate(ctx, params.params())), nil
}

func (s *Server) handleResolveActions(ctx context.Context, req *mcp.CallToolRequest, params ResolveActionsParams) (*mcp.CallToolResult, ResolveActionsResult, error) {
	s.logTool(ToolResolveActions)

	tier, err := domain.ParseRiskTier(params.Tier)
	if err != nil {
		return nil, ResolveActionsResult{}, err
	}
	return nil, ResolveActionsResult{Tier: tier.String(), Actions: service.ResolveActions(tier)}, nil
}

func (s *Server) handleRegisterPatient(ctx context.Context, req *mcp.CallToolRequest, params RegisterPatientParams) (*mcp.CallToolResult, PatientResult, error) {
	s.logTool(ToolRegisterPatient)

	patient, err := s.triage.RegisterPatient(ctx, &service.RegisterPatientParams{Name: params.Name, Age: params.Age, DOB: params.DOB})
	if err != nil {
		return nil, PatientResult{}, err
	}
	return nil, toPatientResult(patient), nil
}

func (s *Server) handleSubmitAssessment(ctx context.Context, req *mcp.CallToolRequest, params SubmitAssessmentParams) (*mcp.CallToolResult, AnalysisResult, error) {
	s.logTool(ToolSubmitAssessment)

	result, err := s.triage.SubmitAssessment(ctx, params.PatientID, params.assessment().params())
	if err != nil {
		return nil, AnalysisResult{}, err
	}
	return nil, toAnalysisResult(result), nil
}

func (s *Server) handleGetPatient(ctx context.Context, req *mcp.CallToolRequest, params PatientIDParams) (*mcp.CallToolResult, PatientResult, error) {
	s.logTool(ToolGetPatient)

	patient, err := s.triage.GetPatient(ctx, params.PatientID)
	if err != nil {
		return nil, PatientResult{}, err
	}
	return nil, toPatientResult(patient), nil
}

func (s *Server) handleTriageBoard(ctx context.Context, req *mcp.CallToolRequest, params TriageBoardParams) (*mcp.CallToolResult, TriageBoardResult, error) {
	s.logTool(ToolTriageBoard)

	board, err := s.triage.TriageBoard(ctx)
	if err != nil {
		return nil, TriageBoardResult{}, err
	}
	out := TriageBoardResult{
		Immediate: make([]PatientResult, 0, len(board.Immediate)),
		Standard:  make([]PatientResult, 0, len(board.Standard)),
	}
	for _, p := range board.Immediate {
		out.Immediate = append(out.Immediate, toPatientResult(p))
	}
	for _, p := range board.Standard {
		out.Standard = append(out.Standard, toPatientResult(p))
	}
	return nil, out, nil
}

func (s *Server) handleListAlerts(ctx context.Context, req *mcp.CallToolRequest, params ListAlertsParams) (*mcp.CallToolResult, ListAlertsResult, error) {
	s.logTool(ToolListAlerts)

	alerts, err := s.triage.ListAlerts(ctx, params.UnreadOnly)
	if err != nil {
		return nil, ListAlertsResult{}, err
	}
	out := ListAlertsResult{Alerts: make([]AlertResult, 0, len(alerts))}
	for _, a := range alerts {
		out.Alerts = append(out.Alerts, toAlertResult(a))
	}
	return nil, out, nil
}

func (s *Server) handleMarkAlertRead(ctx context.Context, req *mcp.CallToolRequest, params MarkAlertReadParams) (*mcp.CallToolResult, AlertResult, error) {
	s.logTool(ToolMarkAlertRead)

	alert, err := s.triage.MarkAlertRead(ctx, params.AlertID)
	if err != nil {
		return nil, AlertResult{}, err
	}
	return nil, toAlertResult(alert), nil
}

func (s *Server) logTool(name string) {
	s.logger.WithFields(logrus.Fields{"tool": name}).Info("Tool invoked")
}

func toAnalysisResult(r *service.SubmissionResult) AnalysisResult {
	out := AnalysisResult{
		PatientID:        r.PatientID,
		AssessmentID:     r.Assessment.ID,
		PrimaryTotal:     r.Assessment.PrimaryTotal,
		Score:            r.Analysis.Score,
		RawScore:         r.Analysis.RawScore,
		Tier:             r.Analysis.Tier.String(),
		Indicators:       nonNil(r.Analysis.Indicators),
		SentimentScore:   r.Analysis.SentimentScore,
		SentimentSummary: r.Sentiment.Summary,
		BehaviorScore:    r.Analysis.BehaviorScore,
		Actions:          nonNil(r.Actions),
		Warnings:         warningStrings(r.Warnings),
	}
	if r.Alert != nil {
		out.AlertID = r.Alert.ID
	}
	return out
}

func toPatientResult(p *domain.PatientRecord) PatientResult {
	out := PatientResult{
		ID:          p.ID,
		Name:        p.Name,
		Age:         p.Age,
		DOB:         p.DOB,
		CreatedAt:   formatTime(p.CreatedAt),
		Indicators:  []string{},
		Assessments: make([]AssessmentSummary, 0, len(p.Assessments)),
	}
	if p.LatestAnalysis != nil {
		out.HasAnalysis = true
		out.Score = p.LatestAnalysis.Score
		out.Tier = p.LatestAnalysis.Tier.String()
		out.Indicators = nonNil(p.LatestAnalysis.Indicators)
	}
	for _, a := range p.Assessments {
		out.Assessments = append(out.Assessments, AssessmentSummary{
			ID:               a.ID,
			PrimaryTotal:     a.PrimaryTotal,
			SecondaryTotal:   a.SecondaryTotal,
			DaysSinceContact: a.DaysSinceContact,
			DailyLog:         fromDailyLog(a.DailyLog),
			CreatedAt:        formatTime(a.CreatedAt),
		})
	}
	return out
}

func toAlertResult(a *domain.Alert) AlertResult {
	return AlertResult{
		ID:          a.ID,
		PatientID:   a.PatientID,
		PatientName: a.PatientName,
		Tier:        a.Tier.String(),
		Message:     a.Message,
		CreatedAt:   formatTime(a.CreatedAt),
		IsRead:      a.IsRead,
	}
}

func warningStrings(warnings []*domain.ValidationError) []string {
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, fmt.Sprintf("%s: %s", w.Field, w.Message))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
