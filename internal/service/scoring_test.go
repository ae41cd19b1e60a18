package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crisis-triage-mcp-server/internal/domain"
)

func TestComputeTotal(t *testing.T) {
	tests := []struct {
		name      string
		responses domain.QuestionnaireResponse
		want      int
	}{
		{"all zero", domain.QuestionnaireResponse{}, 0},
		{"all max", domain.QuestionnaireResponse{Q1: 3, Q2: 3, Q3: 3, Q4: 3, Q5: 3, Q6: 3, Q7: 3, Q8: 3, Q9: 3}, 27},
		{"mixed", domain.QuestionnaireResponse{Q1: 3, Q2: 3, Q3: 3, Q4: 2, Q5: 2, Q6: 2, Q7: 2, Q8: 1, Q9: 1}, 19},
		{"only self-harm item", domain.QuestionnaireResponse{Q9: 2}, 2},
		{"out of range summed as given", domain.QuestionnaireResponse{Q1: 10, Q2: -2}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeTotal(tt.responses))
		})
	}
}

func TestComputeTotal_EqualsItemSumForEveryValidResponse(t *testing.T) {
	// Walk every value of each item independently; the total must track the
	// arithmetic sum and stay within [0,27].
	for item := 0; item < domain.PHQ9ItemCount; item++ {
		for v := domain.PHQ9ItemMin; v <= domain.PHQ9ItemMax; v++ {
			values := map[string]int{}
			for i, key := range domain.PHQ9ItemKeys {
				values[key] = (i + v) % 4
			}
			values[domain.PHQ9ItemKeys[item]] = v

			r, warnings := domain.ParseQuestionnaire(values)
			assert.Empty(t, warnings)

			sum := 0
			for _, x := range values {
				sum += x
			}
			total := ComputeTotal(r)
			assert.Equal(t, sum, total)
			assert.GreaterOrEqual(t, total, 0)
			assert.LessOrEqual(t, total, domain.PHQ9MaxTotal)
		}
	}
}

func TestValidateSecondaryTotal(t *testing.T) {
	assert.Nil(t, ValidateSecondaryTotal(0))
	assert.Nil(t, ValidateSecondaryTotal(21))
	assert.NotNil(t, ValidateSecondaryTotal(22))
	assert.NotNil(t, ValidateSecondaryTotal(-1))
}
