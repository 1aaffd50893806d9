package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/docuvault/docuvault/pkg/docs"
	"github.com/docuvault/docuvault/pkg/session"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// startWorkflowRequest is the payload for starting a workflow instance.
type startWorkflowRequest struct {
	DocumentID string `json:"documentId" validate:"required,max=36"`
	Workflow   string `json:"workflow" validate:"required,max=100"`
}

// decisionRequest is the payload for submitting an approval decision.
type decisionRequest struct {
	StepIndex int    `json:"stepIndex" validate:"gte=0"`
	Verdict   string `json:"verdict" validate:"required,oneof=approve reject"`
	Comment   string `json:"comment" validate:"max=2000"`
}

// listDefinitionsHandler returns a handler that lists the loaded workflow
// definitions.
// GET /api/v1alpha1/workflows/definitions
func listDefinitionsHandler(registry *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, DefinitionFile{Workflows: registry.List()})
	}
}

// startWorkflowHandler returns a handler that starts a workflow instance for
// a document.
// POST /api/v1alpha1/workflows/instances
func startWorkflowHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := session.FromContext(r.Context())

		var req startWorkflowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		instance, err := engine.StartWorkflow(r.Context(), req.DocumentID, req.Workflow, sess)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, recordToInstance(instance, nil))
	}
}

// getInstanceHandler returns a handler that retrieves a workflow instance
// together with its decision history.
// GET /api/v1alpha1/workflows/instances/{id}
func getInstanceHandler(store *InstanceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		instance, err := store.Get(id)
		if err != nil {
			writeError(w, storeErrorStatus(err), fmt.Sprintf("failed to get workflow instance: %v", err))
			return
		}
		if instance == nil {
			writeError(w, http.StatusNotFound, "workflow instance not found")
			return
		}

		decisions, err := store.ListDecisions(id)
		if err != nil {
			writeError(w, storeErrorStatus(err), fmt.Sprintf("failed to list decisions: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, recordToInstance(instance, decisions))
	}
}

// getDocumentInstanceHandler returns a handler that retrieves the active
// workflow instance for a document.
// GET /api/v1alpha1/workflows/instances?documentId=
func getDocumentInstanceHandler(store *InstanceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		documentID := r.URL.Query().Get("documentId")
		if documentID == "" {
			writeError(w, http.StatusBadRequest, "documentId is required")
			return
		}

		instance, err := store.GetActiveByDocument(documentID)
		if err != nil {
			writeError(w, storeErrorStatus(err), fmt.Sprintf("failed to get workflow instance: %v", err))
			return
		}
		if instance == nil {
			writeError(w, http.StatusNotFound, "document has no active workflow")
			return
		}

		decisions, err := store.ListDecisions(instance.ID)
		if err != nil {
			writeError(w, storeErrorStatus(err), fmt.Sprintf("failed to list decisions: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, recordToInstance(instance, decisions))
	}
}

// submitDecisionHandler returns a handler that records an approval decision
// on a workflow instance.
// POST /api/v1alpha1/workflows/instances/{id}/decisions
func submitDecisionHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := session.FromContext(r.Context())
		id := chi.URLParam(r, "id")

		var req decisionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		instance, err := engine.RecordDecision(r.Context(), id, req.StepIndex, DecisionVerdict(req.Verdict), req.Comment, sess)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, recordToInstance(instance, nil))
	}
}

// writeEngineError maps engine errors onto HTTP responses. Expected,
// recoverable conditions get structured 4xx bodies so clients can branch on
// the error field without parsing messages.
func writeEngineError(w http.ResponseWriter, err error) {
	var stepMismatch *StepMismatchError
	var unauthorized *UnauthorizedApproverError
	var decisionConflict *DecisionConflictError
	var transition *docs.TransitionError

	switch {
	case errors.Is(err, ErrDefinitionNotFound), errors.Is(err, ErrInstanceNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrWorkflowActive), errors.Is(err, ErrWorkflowFinished):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":   "workflow_conflict",
			"message": err.Error(),
		})
	case errors.As(err, &stepMismatch):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":       "step_mismatch",
			"message":     stepMismatch.Error(),
			"currentStep": stepMismatch.CurrentStep,
		})
	case errors.As(err, &decisionConflict):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":   "decision_conflict",
			"message": decisionConflict.Error(),
		})
	case errors.As(err, &unauthorized):
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error":   "unauthorized_approver",
			"message": unauthorized.Error(),
		})
	case errors.As(err, &transition):
		code := http.StatusConflict
		if transition.Code == "DOC_NOT_FOUND" {
			code = http.StatusNotFound
		}
		writeJSON(w, code, map[string]string{
			"error":   transition.Code,
			"message": transition.Error(),
		})
	case errors.Is(err, docs.ErrStaleWrite):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":   "stale_write",
			"message": err.Error(),
		})
	case errors.Is(err, docs.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// storeErrorStatus picks 503 for backend outages, which clients may retry,
// and 500 for everything else.
func storeErrorStatus(err error) int {
	if errors.Is(err, docs.ErrStoreUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// recordToInstance converts a stored instance and its decisions to the API type.
func recordToInstance(record *InstanceRecord, decisions []DecisionRecord) Instance {
	out := Instance{
		ID:             record.ID,
		DocumentID:     record.DocumentID,
		DefinitionName: record.DefinitionName,
		CurrentStep:    record.CurrentStep,
		Status:         record.Status,
		CreatedBy:      record.CreatedBy,
		CreatedAt:      record.CreatedAt.Format(time.RFC3339),
	}
	for i := range decisions {
		d := &decisions[i]
		out.Decisions = append(out.Decisions, Decision{
			ID:         d.ID,
			InstanceID: d.InstanceID,
			StepIndex:  d.StepIndex,
			Approver:   d.Approver,
			Verdict:    d.Verdict,
			Comment:    d.Comment,
			CreatedAt:  d.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
