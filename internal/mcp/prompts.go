package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/crisis-triage-mcp-server/internal/domain"
	"github.com/crisis-triage-mcp-server/internal/service"
)

// PromptPatientReview renders a clinician review brief for one patient.
const PromptPatientReview = "patient_review"

// maxReviewAssessments caps the history included in the brief.
const maxReviewAssessments = 5

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        PromptPatientReview,
		Description: "Summarize a patient's latest risk analysis and assessment history for clinician review",
		Arguments: []*mcp.PromptArgument{
			{Name: "patient_id", Description: "Patient identifier", Required: true},
		},
	}, s.renderPatientReview)
}

func (s *Server) renderPatientReview(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	patientID := strings.TrimSpace(req.Params.Arguments["patient_id"])
	if patientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}

	patient, err := s.triage.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Risk review for %s", patient.Name),
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: patientReviewText(patient)}},
		},
	}, nil
}

func patientReviewText(patient *domain.PatientRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Review the crisis risk status of patient %s (%s).\n\n", patient.Name, patient.ID)

	analysis := patient.LatestAnalysis
	if analysis == nil {
		b.WriteString("No assessment has been submitted yet. Recommend collecting a PHQ-9 questionnaire.\n")
		return b.String()
	}

	b.WriteString("## Latest analysis\n")
	fmt.Fprintf(&b, "- Tier: %s\n", analysis.Tier)
	fmt.Fprintf(&b, "- Composite score: %d (raw %.2f)\n", analysis.Score, analysis.RawScore)
	fmt.Fprintf(&b, "- Sentiment score: %.1f\n", analysis.SentimentScore)
	fmt.Fprintf(&b, "- Behavior score: %.0f\n", analysis.BehaviorScore)
	if len(analysis.Indicators) > 0 {
		fmt.Fprintf(&b, "- Indicators: %s\n", strings.Join(analysis.Indicators, "; "))
	} else {
		b.WriteString("- Indicators: none\n")
	}

	b.WriteString("\n## Protocol actions\n")
	for _, action := range service.ResolveActions(analysis.Tier) {
		fmt.Fprintf(&b, "- %s\n", action)
	}

	b.WriteString("\n## Assessment history (newest first)\n")
	for i, a := range patient.Assessments {
		if i == maxReviewAssessments {
			fmt.Fprintf(&b, "- ... %d older assessments omitted\n", len(patient.Assessments)-maxReviewAssessments)
			break
		}
		fmt.Fprintf(&b, "- %s: PHQ-9 %d, GAD-7 %d", a.CreatedAt.Format("2006-01-02"), a.PrimaryTotal, a.SecondaryTotal)
		if a.Note != "" {
			fmt.Fprintf(&b, ", note: %q", a.Note)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nConfirm whether the protocol actions are appropriate and note anything in the history that changes the picture. ")
	b.WriteString("The score is decision support only; clinical judgement takes precedence.\n")
	return b.String()
}
