package workflow

import (
	"errors"
	"fmt"
)

// ErrDefinitionNotFound is returned when a workflow is started against a
// definition name the registry does not know.
var ErrDefinitionNotFound = errors.New("workflow definition not found")

// ErrInstanceNotFound is returned when a decision references a workflow
// instance that does not exist.
var ErrInstanceNotFound = errors.New("workflow instance not found")

// ErrWorkflowActive is returned when a workflow is started on a document that
// already has an active instance. One document runs at most one workflow at a
// time.
var ErrWorkflowActive = errors.New("document already has an active workflow")

// ErrWorkflowFinished is returned when a decision is submitted to an instance
// that has already completed or been rejected.
var ErrWorkflowFinished = errors.New("workflow instance is no longer active")

// DecisionConflictError is returned when an approver submits a verdict that
// contradicts one they already recorded for the same step. Decisions are
// append-only; a verdict is never applied unless it is the one on record.
type DecisionConflictError struct {
	InstanceID string
	StepIndex  int
	Approver   string
	Previous   DecisionVerdict
}

func (e *DecisionConflictError) Error() string {
	return fmt.Sprintf("approver %s already recorded %q for step %d; decisions cannot be changed", e.Approver, e.Previous, e.StepIndex)
}

// StepMismatchError is returned when a decision targets a step other than the
// instance's current one. It usually means the client read stale state: the
// workflow advanced between the read and the submission.
type StepMismatchError struct {
	InstanceID  string
	CurrentStep int
	Submitted   int
}

func (e *StepMismatchError) Error() string {
	return fmt.Sprintf("decision targets step %d but workflow is at step %d", e.Submitted, e.CurrentStep)
}

// UnauthorizedApproverError is returned when the deciding user is not in the
// current step's approver set.
type UnauthorizedApproverError struct {
	Approver string
	StepName string
}

func (e *UnauthorizedApproverError) Error() string {
	return fmt.Sprintf("user %s is not an approver for step %q", e.Approver, e.StepName)
}
