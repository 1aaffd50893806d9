package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docuvault/docuvault/pkg/docs"
	"github.com/docuvault/docuvault/pkg/session"
)

// ApprovalNotifier emits approval requests when a workflow advances to a new
// step without a document status change. Satisfied by notify.Emitter.
type ApprovalNotifier interface {
	EmitApprovalRequest(ctx context.Context, doc docs.DocumentRecord, stepIndex int, approvers []string) error
}

type noopNotifier struct{}

func (noopNotifier) EmitApprovalRequest(context.Context, docs.DocumentRecord, int, []string) error {
	return nil
}

// Engine drives workflow instances across their steps. All document status
// changes it causes go through the lifecycle service, so the transition table
// and its audit trail apply to workflow-driven changes too.
type Engine struct {
	definitions *Registry
	instances   *InstanceStore
	documents   *docs.DocumentStore
	lifecycle   *docs.LifecycleService
	notifier    ApprovalNotifier
	logger      *slog.Logger
}

// NewEngine creates an Engine. notifier and logger may be nil.
func NewEngine(definitions *Registry, instances *InstanceStore, documents *docs.DocumentStore, lifecycle *docs.LifecycleService, notifier ApprovalNotifier, logger *slog.Logger) *Engine {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		definitions: definitions,
		instances:   instances,
		documents:   documents,
		lifecycle:   lifecycle,
		notifier:    notifier,
		logger:      logger,
	}
}

// Definitions exposes the registry for listing endpoints.
func (e *Engine) Definitions() *Registry {
	return e.definitions
}

// StartWorkflow creates an instance of the named definition for the document,
// assigns the first step's approvers, and moves the document into the
// definition's pending status. The pending transition is validated before
// anything is written, so an ineligible document leaves no instance behind.
func (e *Engine) StartWorkflow(ctx context.Context, documentID, definitionName string, sess session.Session) (*InstanceRecord, error) {
	def := e.definitions.Get(definitionName)
	if def == nil {
		return nil, fmt.Errorf("%w: %s", ErrDefinitionNotFound, definitionName)
	}

	existing, err := e.instances.GetActiveByDocument(documentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrWorkflowActive
	}

	doc, err := e.documents.Get(documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, &docs.TransitionError{Code: "DOC_NOT_FOUND", Message: "document not found"}
	}

	pending := docs.Status(def.PendingStatus)
	if err := e.lifecycle.Machine().ValidateTransition(docs.Status(doc.Status), pending); err != nil {
		return nil, err
	}

	instance := &InstanceRecord{
		ID:             uuid.New().String(),
		DocumentID:     doc.ID,
		DefinitionName: def.Name,
		CurrentStep:    0,
		Status:         InstanceActive,
		CreatedBy:      sess.UserID,
	}

	var updated *docs.DocumentRecord
	var previous docs.Status
	err = e.documents.DB().Transaction(func(tx *gorm.DB) error {
		store := e.documents.WithTx(tx)
		doc, err := store.Get(documentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return &docs.TransitionError{Code: "DOC_NOT_FOUND", Message: "document not found"}
		}

		doc.Approvers = docs.JSONStringSlice(def.Steps[0].Approvers)
		if err := store.UpdateCAS(doc, doc.Version); err != nil {
			return err
		}
		if err := e.instances.WithTx(tx).Create(instance); err != nil {
			return err
		}

		updated, previous, err = e.lifecycle.TransitionTx(tx, doc.ID, pending, sess, fmt.Sprintf("workflow %q started", def.Name))
		return err
	})
	if err != nil {
		e.lifecycle.RecordDenied(documentID, pending, sess, err)
		return nil, err
	}

	e.emitTransition(ctx, updated, previous)
	e.logger.Info("workflow started", "workflow", def.Name, "document_id", doc.ID, "instance_id", instance.ID)
	return instance, nil
}

// emitTransition forwards a committed status change to the notification sink.
func (e *Engine) emitTransition(ctx context.Context, doc *docs.DocumentRecord, previous docs.Status) {
	if err := e.lifecycle.Sink().OnTransition(ctx, *doc, previous); err != nil {
		e.logger.Error("failed to emit transition notification", "document_id", doc.ID, "error", err)
	}
}

// RecordDecision applies one approver's verdict to the instance's current
// step. Approvals are idempotent: a repeated submission by the same approver
// for the same step neither counts twice toward the threshold nor advances
// the workflow again, and after the workflow has finished it returns the
// finished instance unchanged. A verdict that contradicts the approver's
// recorded decision is refused; the history is append-only and the applied
// outcome always matches it.
func (e *Engine) RecordDecision(ctx context.Context, instanceID string, stepIndex int, verdict DecisionVerdict, comment string, sess session.Session) (*InstanceRecord, error) {
	instance, err := e.instances.Get(instanceID)
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, ErrInstanceNotFound
	}

	if instance.Status != InstanceActive {
		prior, err := e.instances.GetDecision(instanceID, stepIndex, sess.UserID)
		if err != nil {
			return nil, err
		}
		if prior != nil && prior.Verdict == verdict {
			return instance, nil
		}
		return nil, ErrWorkflowFinished
	}

	def := e.definitions.Get(instance.DefinitionName)
	if def == nil {
		return nil, fmt.Errorf("%w: %s", ErrDefinitionNotFound, instance.DefinitionName)
	}

	if stepIndex != instance.CurrentStep {
		return nil, &StepMismatchError{
			InstanceID:  instanceID,
			CurrentStep: instance.CurrentStep,
			Submitted:   stepIndex,
		}
	}

	step := def.Steps[stepIndex]
	if !slices.Contains(step.Approvers, sess.UserID) {
		return nil, &UnauthorizedApproverError{Approver: sess.UserID, StepName: step.Name}
	}

	prior, err := e.instances.GetDecision(instanceID, stepIndex, sess.UserID)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		if prior.Verdict == verdict {
			return instance, nil
		}
		return nil, &DecisionConflictError{
			InstanceID: instanceID,
			StepIndex:  stepIndex,
			Approver:   sess.UserID,
			Previous:   prior.Verdict,
		}
	}

	record := &DecisionRecord{
		ID:         uuid.New().String(),
		InstanceID: instanceID,
		StepIndex:  stepIndex,
		Approver:   sess.UserID,
		Verdict:    verdict,
		Comment:    comment,
	}

	if verdict == VerdictReject {
		return e.reject(ctx, instance, record, comment, sess)
	}
	return e.approve(ctx, instance, def, stepIndex, record, sess)
}

// reject closes the instance and moves the document to rejected. The decision
// record, the instance state, and the document transition commit together.
func (e *Engine) reject(ctx context.Context, instance *InstanceRecord, record *DecisionRecord, comment string, sess session.Session) (*InstanceRecord, error) {
	var updated *docs.DocumentRecord
	var previous docs.Status
	err := e.documents.DB().Transaction(func(tx *gorm.DB) error {
		instances := e.instances.WithTx(tx)
		if err := instances.AddDecision(record); err != nil {
			return err
		}
		if err := instances.UpdateProgress(instance.ID, instance.CurrentStep, InstanceRejected); err != nil {
			return err
		}
		var err error
		updated, previous, err = e.lifecycle.TransitionTx(tx, instance.DocumentID, docs.StatusRejected, sess, comment)
		return err
	})
	if err != nil {
		e.lifecycle.RecordDenied(instance.DocumentID, docs.StatusRejected, sess, err)
		return nil, err
	}

	e.emitTransition(ctx, updated, previous)
	instance.Status = InstanceRejected
	e.logger.Info("workflow rejected", "instance_id", instance.ID, "document_id", instance.DocumentID, "approver", sess.UserID)
	return instance, nil
}

// approve advances the instance if the step's threshold is met. On the final
// step the instance completes and the document moves to approved; on an
// intermediate step the document stays pending while its approver set moves
// to the next step. Each outcome's writes, the decision record included,
// commit in one transaction.
func (e *Engine) approve(ctx context.Context, instance *InstanceRecord, def *Definition, stepIndex int, record *DecisionRecord, sess session.Session) (*InstanceRecord, error) {
	step := def.Steps[stepIndex]
	next := stepIndex + 1

	var updated *docs.DocumentRecord
	var previous docs.Status
	var count int
	completed := false
	advanced := false

	err := e.documents.DB().Transaction(func(tx *gorm.DB) error {
		instances := e.instances.WithTx(tx)
		if err := instances.AddDecision(record); err != nil {
			return err
		}

		var err error
		count, err = instances.CountApprovals(instance.ID, stepIndex)
		if err != nil {
			return err
		}
		if count < step.RequiredCount {
			return nil
		}

		if step.IsFinal {
			if err := instances.UpdateProgress(instance.ID, stepIndex, InstanceCompleted); err != nil {
				return err
			}
			updated, previous, err = e.lifecycle.TransitionTx(tx, instance.DocumentID, docs.StatusApproved, sess, record.Comment)
			completed = err == nil
			return err
		}

		store := e.documents.WithTx(tx)
		doc, err := store.Get(instance.DocumentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return &docs.TransitionError{Code: "DOC_NOT_FOUND", Message: "document not found"}
		}

		doc.Approvers = docs.JSONStringSlice(def.Steps[next].Approvers)
		if err := store.UpdateCAS(doc, doc.Version); err != nil {
			return err
		}
		if err := instances.UpdateProgress(instance.ID, next, InstanceActive); err != nil {
			return err
		}
		updated = doc
		advanced = true
		return nil
	})
	if err != nil {
		e.lifecycle.RecordDenied(instance.DocumentID, docs.StatusApproved, sess, err)
		return nil, err
	}

	switch {
	case completed:
		e.emitTransition(ctx, updated, previous)
		instance.Status = InstanceCompleted
		e.logger.Info("workflow completed", "instance_id", instance.ID, "document_id", instance.DocumentID)
	case advanced:
		instance.CurrentStep = next
		if err := e.notifier.EmitApprovalRequest(ctx, *updated, next, def.Steps[next].Approvers); err != nil {
			e.logger.Error("failed to emit approval request", "instance_id", instance.ID, "step", next, "error", err)
		}
		e.logger.Info("workflow advanced", "instance_id", instance.ID, "document_id", instance.DocumentID, "step", def.Steps[next].Name)
	default:
		e.logger.Info("workflow approval recorded", "instance_id", instance.ID, "step", step.Name, "approvals", count, "required", step.RequiredCount)
	}
	return instance, nil
}
