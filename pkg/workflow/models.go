package workflow

import "time"

// InstanceStatus represents the state of a workflow instance.
type InstanceStatus string

const (
	InstanceActive    InstanceStatus = "active"
	InstanceCompleted InstanceStatus = "completed"
	InstanceRejected  InstanceStatus = "rejected"
)

// DecisionVerdict represents an individual approver's decision.
type DecisionVerdict string

const (
	VerdictApprove DecisionVerdict = "approve"
	VerdictReject  DecisionVerdict = "reject"
)

// InstanceRecord is the GORM model binding one document to one workflow
// definition, with a live pointer into the definition's step list.
type InstanceRecord struct {
	ID             string         `gorm:"primaryKey;column:id;type:varchar(36)"`
	DocumentID     string         `gorm:"column:document_id;index:idx_instance_document;not null"`
	DefinitionName string         `gorm:"column:definition_name;not null"`
	CurrentStep    int            `gorm:"column:current_step;not null;default:0"`
	Status         InstanceStatus `gorm:"column:status;index:idx_instance_status;not null;default:active"`
	CreatedBy      string         `gorm:"column:created_by;not null"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (InstanceRecord) TableName() string { return "workflow_instances" }

// DecisionRecord is an append-only approval history entry. The unique index on
// (instance_id, step_index, approver) dedupes stale-client double submission:
// the same approver cannot count twice toward one step's threshold.
type DecisionRecord struct {
	ID         string          `gorm:"primaryKey;column:id;type:varchar(36)"`
	InstanceID string          `gorm:"column:instance_id;uniqueIndex:idx_decision_unique,priority:1;not null"`
	StepIndex  int             `gorm:"column:step_index;uniqueIndex:idx_decision_unique,priority:2;not null"`
	Approver   string          `gorm:"column:approver;uniqueIndex:idx_decision_unique,priority:3;not null"`
	Verdict    DecisionVerdict `gorm:"column:verdict;not null"`
	Comment    string          `gorm:"column:comment"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (DecisionRecord) TableName() string { return "workflow_decisions" }

// Instance is the API-facing workflow instance type.
type Instance struct {
	ID             string         `json:"id"`
	DocumentID     string         `json:"documentId"`
	DefinitionName string         `json:"definitionName"`
	CurrentStep    int            `json:"currentStep"`
	Status         InstanceStatus `json:"status"`
	CreatedBy      string         `json:"createdBy"`
	Decisions      []Decision     `json:"decisions,omitempty"`
	CreatedAt      string         `json:"createdAt"`
}

// Decision is the API-facing approval history entry.
type Decision struct {
	ID         string          `json:"id"`
	InstanceID string          `json:"instanceId"`
	StepIndex  int             `json:"stepIndex"`
	Approver   string          `json:"approver"`
	Verdict    DecisionVerdict `json:"verdict"`
	Comment    string          `json:"comment,omitempty"`
	CreatedAt  string          `json:"createdAt"`
}
