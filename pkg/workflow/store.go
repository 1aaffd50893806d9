package workflow

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/docuvault/docuvault/pkg/docs"
)

// InstanceStore provides database operations for workflow instances and their
// decision history.
type InstanceStore struct {
	db *gorm.DB
}

// NewInstanceStore creates a new InstanceStore.
func NewInstanceStore(db *gorm.DB) *InstanceStore {
	return &InstanceStore{db: db}
}

// DB exposes the underlying handle for transaction scoping.
func (s *InstanceStore) DB() *gorm.DB {
	return s.db
}

// WithTx returns an InstanceStore bound to the given transaction handle.
func (s *InstanceStore) WithTx(tx *gorm.DB) *InstanceStore {
	return &InstanceStore{db: tx}
}

// AutoMigrate creates or updates the workflow tables.
func (s *InstanceStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&InstanceRecord{}); err != nil {
		return fmt.Errorf("auto-migrate workflow_instances: %w", err)
	}
	if err := s.db.AutoMigrate(&DecisionRecord{}); err != nil {
		return fmt.Errorf("auto-migrate workflow_decisions: %w", err)
	}
	return nil
}

// Create inserts a new instance.
func (s *InstanceStore) Create(record *InstanceRecord) error {
	if record.Status == "" {
		record.Status = InstanceActive
	}
	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("create workflow instance: %w: %w", docs.ErrStoreUnavailable, err)
	}
	return nil
}

// Get retrieves an instance by ID. Returns nil, nil if no record exists.
func (s *InstanceStore) Get(id string) (*InstanceRecord, error) {
	var record InstanceRecord
	err := s.db.Where("id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get workflow instance: %w: %w", docs.ErrStoreUnavailable, err)
	}
	return &record, nil
}

// GetActiveByDocument retrieves the active instance for a document.
// Returns nil, nil if the document has no active workflow.
func (s *InstanceStore) GetActiveByDocument(documentID string) (*InstanceRecord, error) {
	var record InstanceRecord
	err := s.db.Where("document_id = ? AND status = ?", documentID, InstanceActive).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get active workflow instance: %w: %w", docs.ErrStoreUnavailable, err)
	}
	return &record, nil
}

// UpdateProgress updates the current step and status of an instance.
func (s *InstanceStore) UpdateProgress(id string, currentStep int, status InstanceStatus) error {
	result := s.db.Model(&InstanceRecord{}).Where("id = ?", id).Updates(map[string]any{
		"current_step": currentStep,
		"status":       string(status),
	})
	if result.Error != nil {
		return fmt.Errorf("update workflow instance: %w: %w", docs.ErrStoreUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("workflow instance %s not found", id)
	}
	return nil
}

// AddDecision appends a decision to the history. Repeated submissions by the
// same approver for the same step are dropped on the unique index, so a
// decision can be recorded at most once per (step, approver).
func (s *InstanceStore) AddDecision(record *DecisionRecord) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "instance_id"}, {Name: "step_index"}, {Name: "approver"}},
		DoNothing: true,
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("add workflow decision: %w: %w", docs.ErrStoreUnavailable, err)
	}
	return nil
}

// GetDecision retrieves one approver's decision for a step.
// Returns nil, nil if the approver has not decided on that step.
func (s *InstanceStore) GetDecision(instanceID string, stepIndex int, approver string) (*DecisionRecord, error) {
	var record DecisionRecord
	err := s.db.Where("instance_id = ? AND step_index = ? AND approver = ?", instanceID, stepIndex, approver).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get workflow decision: %w: %w", docs.ErrStoreUnavailable, err)
	}
	return &record, nil
}

// Delete removes an instance and its decision history.
func (s *InstanceStore) Delete(id string) error {
	if err := s.db.Where("instance_id = ?", id).Delete(&DecisionRecord{}).Error; err != nil {
		return fmt.Errorf("delete workflow decisions: %w: %w", docs.ErrStoreUnavailable, err)
	}
	if err := s.db.Where("id = ?", id).Delete(&InstanceRecord{}).Error; err != nil {
		return fmt.Errorf("delete workflow instance: %w: %w", docs.ErrStoreUnavailable, err)
	}
	return nil
}

// CountApprovals counts distinct approve decisions for a step of an instance.
func (s *InstanceStore) CountApprovals(instanceID string, stepIndex int) (int, error) {
	var count int64
	err := s.db.Model(&DecisionRecord{}).
		Where("instance_id = ? AND step_index = ? AND verdict = ?", instanceID, stepIndex, string(VerdictApprove)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count approvals: %w: %w", docs.ErrStoreUnavailable, err)
	}
	return int(count), nil
}

// ListDecisions returns the full decision history of an instance in
// chronological order.
func (s *InstanceStore) ListDecisions(instanceID string) ([]DecisionRecord, error) {
	var records []DecisionRecord
	err := s.db.Where("instance_id = ?", instanceID).Order("created_at ASC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list workflow decisions: %w: %w", docs.ErrStoreUnavailable, err)
	}
	return records, nil
}
