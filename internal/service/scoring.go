package service

import (
	"github.com/crisis-triage-mcp-server/internal/domain"
)

// ComputeTotal returns the PHQ-9 total: the plain sum of the nine item
// values. Values are not re-validated here, so out-of-range input is summed
// as given; see domain.QuestionnaireResponse.Validate.
func ComputeTotal(responses domain.QuestionnaireResponse) int {
	total := 0
	for _, v := range responses.Items() {
		total += v
	}
	return total
}

// ValidateSecondaryTotal reports a GAD-7 total outside [0,21]. The value is
// still used as given.
func ValidateSecondaryTotal(total int) *domain.ValidationError {
	if total < 0 || total > domain.GAD7MaxTotal {
		return domain.NewValidationError("gad7_total", "value must be between 0 and 21", total)
	}
	return nil
}
