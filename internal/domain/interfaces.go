package domain

import (
	"context"
)

// SentimentAnalyzer scores free text on a 0-100 crisis scale.
type SentimentAnalyzer interface {
	AnalyzeSentiment(ctx context.Context, text string) (*SentimentResult, error)
}

// PatientRepository owns patient records and alerts for the session.
// Implementations must return copies so callers cannot mutate stored state.
type PatientRepository interface {
	CreatePatient(ctx context.Context, patient *PatientRecord) error
	GetPatient(ctx context.Context, id string) (*PatientRecord, error)
	ListPatients(ctx context.Context) ([]*PatientRecord, error)
	// AppendAssessment prepends the assessment and replaces the latest
	// analysis in one step.
	AppendAssessment(ctx context.Context, patientID string, assessment *AssessmentRecord, analysis *RiskAnalysis) error

	SaveAlert(ctx context.Context, alert *Alert) error
	ListAlerts(ctx context.Context, unreadOnly bool) ([]*Alert, error)
	MarkAlertRead(ctx context.Context, id string) (*Alert, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetSentimentConfig() *SentimentConfig
	GetCacheConfig() *CacheConfig
	GetLoggingConfig() *LoggingConfig
	GetMCPConfig() *MCPConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
