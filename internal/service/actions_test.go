package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crisis-triage-mcp-server/internal/domain"
)

func TestResolveActions(t *testing.T) {
	tests := []struct {
		tier domain.RiskTier
		want []string
	}{
		{domain.RiskTierCritical, []string{
			"Alert therapist immediately via SMS + Call",
			"Send crisis resources to patient",
			"Log incident in emergency registry",
			"Mandatory 24h follow-up scheduled",
		}},
		{domain.RiskTierHigh, []string{
			"In-app therapist alert triggered",
			"Email sent to primary care provider",
			"Send crisis resources to patient",
			"Schedule urgent session within 48h",
		}},
		{domain.RiskTierMedium, []string{
			"Flag for therapist routine review",
			"Send supportive message",
		}},
		{domain.RiskTierLow, []string{"Normal care protocol"}},
		{domain.RiskTier(99), []string{"Normal care protocol"}},
	}

	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveActions(tt.tier))
		})
	}
}

func TestResolveActions_ReturnsCopy(t *testing.T) {
	first := ResolveActions(domain.RiskTierCritical)
	first[0] = "mutated"

	second := ResolveActions(domain.RiskTierCritical)
	assert.Equal(t, "Alert therapist immediately via SMS + Call", second[0])
}

func TestResolveActions_NeverEmpty(t *testing.T) {
	for tier := domain.RiskTierLow; tier <= domain.RiskTierCritical; tier++ {
		assert.NotEmpty(t, ResolveActions(tier))
	}
}
