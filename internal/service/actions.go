package service

import (
	"github.com/crisis-triage-mcp-server/internal/domain"
)

// Action text shared across tiers.
const (
	ActionSendCrisisResources = "Send crisis resources to patient"
	ActionNormalCare          = "Normal care protocol"
)

var tierActions = map[domain.RiskTier][]string{
	domain.RiskTierCritical: {
		"Alert therapist immediately via SMS + Call",
		ActionSendCrisisResources,
		"Log incident in emergency registry",
		"Mandatory 24h follow-up scheduled",
	},
	domain.RiskTierHigh: {
		"In-app therapist alert triggered",
		"Email sent to primary care provider",
		ActionSendCrisisResources,
		"Schedule urgent session within 48h",
	},
	domain.RiskTierMedium: {
		"Flag for therapist routine review",
		"Send supportive message",
	},
}

// ResolveActions returns the ordered clinical actions for a tier. Low and
// any unrecognized tier get the default protocol. The slice is a fresh copy.
func ResolveActions(tier domain.RiskTier) []string {
	actions, ok := tierActions[tier]
	if !ok {
		return []string{ActionNormalCare}
	}
	return append([]string(nil), actions...)
}
