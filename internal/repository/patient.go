package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/crisis-triage-mcp-server/internal/domain"
)

// MemoryPatientStore keeps patients and alerts for the lifetime of the
// process. Everything returned is a copy.
type MemoryPatientStore struct {
	mu  sync.RWMutex
	log *logrus.Logger

	patients map[string]*domain.PatientRecord
	order    []string // registration order, oldest first

	alerts     map[string]*domain.Alert
	alertOrder []string
}

// NewMemoryPatientStore creates an empty patient store
func NewMemoryPatientStore(logger *logrus.Logger) *MemoryPatientStore {
	return &MemoryPatientStore{
		log:      logger,
		patients: make(map[string]*domain.PatientRecord),
		alerts:   make(map[string]*domain.Alert),
	}
}

// CreatePatient stores a new patient. An empty ID is assigned a UUID.
func (r *MemoryPatientStore) CreatePatient(ctx context.Context, patient *domain.PatientRecord) error {
	if patient == nil {
		return fmt.Errorf("creating patient: nil record")
	}
	if patient.ID == "" {
		patient.ID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.patients[patient.ID]; exists {
		return fmt.Errorf("creating patient: id %s already exists", patient.ID)
	}
	stored := patient.Clone()
	if stored.Assessments == nil {
		stored.Assessments = []*domain.AssessmentRecord{}
	}
	r.patients[patient.ID] = stored
	r.order = append(r.order, patient.ID)

	r.log.WithField("patient_id", patient.ID).Debug("Patient stored")
	return nil
}

// GetPatient returns a copy of the patient or ErrNotFound.
func (r *MemoryPatientStore) GetPatient(ctx context.Context, id string) (*domain.PatientRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, fmt.Errorf("patient %s: %w", id, domain.ErrNotFound)
	}
	return p.Clone(), nil
}

// ListPatients returns all patients, most recently registered first.
func (r *MemoryPatientStore) ListPatients(ctx context.Context) ([]*domain.PatientRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.PatientRecord, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, r.patients[r.order[i]].Clone())
	}
	return out, nil
}

// AppendAssessment prepends the assessment and replaces the latest analysis
// under a single lock.
func (r *MemoryPatientStore) AppendAssessment(ctx context.Context, patientID string, assessment *domain.AssessmentRecord, analysis *domain.RiskAnalysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patients[patientID]
	if !ok {
		return fmt.Errorf("patient %s: %w", patientID, domain.ErrNotFound)
	}

	assessments := make([]*domain.AssessmentRecord, 0, len(p.Assessments)+1)
	assessments = append(assessments, assessment.Clone())
	p.Assessments = append(assessments, p.Assessments...)
	p.LatestAnalysis = analysis.Clone()

	r.log.WithFields(logrus.Fields{
		"patient_id":    patientID,
		"assessment_id": assessment.ID,
		"assessments":   len(p.Assessments),
	}).Debug("Assessment appended")
	return nil
}

// SaveAlert stores an alert. An empty ID is assigned a UUID.
func (r *MemoryPatientStore) SaveAlert(ctx context.Context, alert *domain.Alert) error {
	if alert == nil {
		return fmt.Errorf("saving alert: nil alert")
	}
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.alerts[alert.ID]; exists {
		return fmt.Errorf("saving alert: id %s already exists", alert.ID)
	}
	stored := *alert
	r.alerts[alert.ID] = &stored
	r.alertOrder = append(r.alertOrder, alert.ID)
	return nil
}

// ListAlerts returns alerts newest first.
func (r *MemoryPatientStore) ListAlerts(ctx context.Context, unreadOnly bool) ([]*domain.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Alert, 0, len(r.alertOrder))
	for i := len(r.alertOrder) - 1; i >= 0; i-- {
		a := r.alerts[r.alertOrder[i]]
		if unreadOnly && a.IsRead {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

// MarkAlertRead flags an alert as read and returns the updated copy.
func (r *MemoryPatientStore) MarkAlertRead(ctx context.Context, id string) (*domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, domain.ErrNotFound)
	}
	a.IsRead = true
	cp := *a
	return &cp, nil
}
