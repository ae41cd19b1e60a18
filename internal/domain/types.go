// Package domain contains core business entities and types for mental-health
// crisis risk triage: PHQ-9 questionnaire responses, daily wellness logs,
// assessment snapshots, derived risk analyses and patient records.
//
// Reference: Kroenke K, Spitzer RL, Williams JB (2001) The PHQ-9: validity of a
// brief depression severity measure. J Gen Intern Med. 16(9):606-13.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// RiskTier is the discrete risk level derived from the composite score.
// Tiers are ordered: Low < Medium < High < Critical.
type RiskTier int

const (
	RiskTierLow RiskTier = iota
	RiskTierMedium
	RiskTierHigh
	RiskTierCritical
)

// Validation errors for clinical data integrity
var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidTier = errors.New("invalid risk tier")
	ErrInvalidName = errors.New("patient name is required")
)

var riskTierNames = map[RiskTier]string{
	RiskTierLow:      "Low",
	RiskTierMedium:   "Medium",
	RiskTierHigh:     "High",
	RiskTierCritical: "Critical",
}

// String returns the display label of the tier.
func (t RiskTier) String() string {
	if name, ok := riskTierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("RiskTier(%d)", int(t))
}

// IsValid reports whether t is one of the four defined tiers.
func (t RiskTier) IsValid() bool {
	_, ok := riskTierNames[t]
	return ok
}

// RequiresImmediateAttention reports whether the tier belongs on the
// clinician's immediate-attention list and raises an alert.
func (t RiskTier) RequiresImmediateAttention() bool {
	return t >= RiskTierHigh
}

// LogFields returns structured logging fields for the tier.
func (t RiskTier) LogFields() map[string]any {
	return map[string]any{
		"risk_tier":           t.String(),
		"risk_tier_ordinal":   int(t),
		"immediate_attention": t.RequiresImmediateAttention(),
	}
}

// MarshalText encodes the tier as its label so JSON carries "High" rather than 2.
func (t RiskTier) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("marshal risk tier %d: %w", int(t), ErrInvalidTier)
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier label, case-insensitively.
func (t *RiskTier) UnmarshalText(text []byte) error {
	parsed, err := ParseRiskTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseRiskTier converts a label such as "critical" or "High" to a RiskTier.
func ParseRiskTier(s string) (RiskTier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RiskTierLow, nil
	case "medium":
		return RiskTierMedium, nil
	case "high":
		return RiskTierHigh, nil
	case "critical":
		return RiskTierCritical, nil
	default:
		return RiskTierLow, fmt.Errorf("%w: %q", ErrInvalidTier, s)
	}
}

// Questionnaire scale bounds.
const (
	PHQ9ItemCount   = 9
	PHQ9ItemMin     = 0
	PHQ9ItemMax     = 3
	PHQ9MaxTotal    = 27
	GAD7MaxTotal    = 21
	SelfHarmItemKey = "q9"
)

// PHQ9ItemKeys lists the questionnaire item keys in order.
var PHQ9ItemKeys = [PHQ9ItemCount]string{"q1", "q2", "q3", "q4", "q5", "q6", "q7", "q8", "q9"}

// QuestionnaireResponse holds the nine PHQ-9 item severities.
// Q9 probes self-harm ideation.
type QuestionnaireResponse struct {
	Q1 int `json:"q1"`
	Q2 int `json:"q2"`
	Q3 int `json:"q3"`
	Q4 int `json:"q4"`
	Q5 int `json:"q5"`
	Q6 int `json:"q6"`
	Q7 int `json:"q7"`
	Q8 int `json:"q8"`
	Q9 int `json:"q9"`
}

// Items returns the item values in questionnaire order.
func (r QuestionnaireResponse) Items() [PHQ9ItemCount]int {
	return [PHQ9ItemCount]int{r.Q1, r.Q2, r.Q3, r.Q4, r.Q5, r.Q6, r.Q7, r.Q8, r.Q9}
}

// Map returns the responses keyed by item name.
func (r QuestionnaireResponse) Map() map[string]int {
	items := r.Items()
	out := make(map[string]int, PHQ9ItemCount)
	for i, key := range PHQ9ItemKeys {
		out[key] = items[i]
	}
	return out
}

// Validate reports every item outside [0,3]. A nil result means the
// response is well formed.
func (r QuestionnaireResponse) Validate() []*ValidationError {
	var warnings []*ValidationError
	for i, v := range r.Items() {
		if v < PHQ9ItemMin || v > PHQ9ItemMax {
			warnings = append(warnings, NewValidationError(PHQ9ItemKeys[i],
				fmt.Sprintf("value must be between %d and %d", PHQ9ItemMin, PHQ9ItemMax), v))
		}
	}
	return warnings
}

// ParseQuestionnaire builds a QuestionnaireResponse from keyed item values.
// Parsing is permissive: missing items count as zero and unknown keys are
// ignored, but each irregularity is reported as a warning alongside any
// out-of-range values.
func ParseQuestionnaire(values map[string]int) (QuestionnaireResponse, []*ValidationError) {
	var warnings []*ValidationError
	var items [PHQ9ItemCount]int

	for i, key := range PHQ9ItemKeys {
		v, ok := values[key]
		if !ok {
			warnings = append(warnings, NewValidationError(key, "item missing, counted as 0", nil))
			continue
		}
		items[i] = v
	}

	for key, v := range values {
		if !isPHQ9Key(key) {
			warnings = append(warnings, NewValidationError(key, "unknown questionnaire item ignored", v))
		}
	}

	r := QuestionnaireResponse{
		Q1: items[0], Q2: items[1], Q3: items[2],
		Q4: items[3], Q5: items[4], Q6: items[5],
		Q7: items[6], Q8: items[7], Q9: items[8],
	}
	warnings = append(warnings, r.Validate()...)
	return r, warnings
}

func isPHQ9Key(key string) bool {
	for _, k := range PHQ9ItemKeys {
		if k == key {
			return true
		}
	}
	return false
}

// DailyLog is the self-reported wellness log attached to an assessment.
// It is informational only; the risk formula does not read it.
type DailyLog struct {
	HoursOfSleep    float64 `json:"hours_of_sleep"`
	SleepQuality    int     `json:"sleep_quality"`
	EnergyLevel     int     `json:"energy_level"`
	StressIntensity int     `json:"stress_intensity"`
}

// Validate reports metrics outside their documented ranges.
func (d *DailyLog) Validate() []*ValidationError {
	if d == nil {
		return nil
	}
	var warnings []*ValidationError
	if d.HoursOfSleep < 0 {
		warnings = append(warnings, NewValidationError("hours_of_sleep", "must not be negative", d.HoursOfSleep))
	}
	for _, f := range []struct {
		name  string
		value int
	}{
		{"sleep_quality", d.SleepQuality},
		{"energy_level", d.EnergyLevel},
		{"stress_intensity", d.StressIntensity},
	} {
		if f.value < 1 || f.value > 5 {
			warnings = append(warnings, NewValidationError(f.name, "value must be between 1 and 5", f.value))
		}
	}
	return warnings
}
