package workflow

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestInstanceStore(t *testing.T) *InstanceStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store := NewInstanceStore(db)
	require.NoError(t, store.AutoMigrate())
	return store
}

func TestInstanceStore_CreateAndGet(t *testing.T) {
	store := newTestInstanceStore(t)

	require.NoError(t, store.Create(&InstanceRecord{
		ID: "i1", DocumentID: "d1", DefinitionName: "two-step", CreatedBy: "alice",
	}))

	got, err := store.Get("i1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, InstanceActive, got.Status)
	assert.Equal(t, 0, got.CurrentStep)

	missing, err := store.Get("ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInstanceStore_GetActiveByDocument(t *testing.T) {
	store := newTestInstanceStore(t)

	require.NoError(t, store.Create(&InstanceRecord{
		ID: "i1", DocumentID: "d1", DefinitionName: "two-step", Status: InstanceRejected, CreatedBy: "alice",
	}))
	require.NoError(t, store.Create(&InstanceRecord{
		ID: "i2", DocumentID: "d1", DefinitionName: "two-step", CreatedBy: "alice",
	}))

	got, err := store.GetActiveByDocument("d1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "i2", got.ID)

	none, err := store.GetActiveByDocument("d2")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestInstanceStore_UpdateProgress(t *testing.T) {
	store := newTestInstanceStore(t)

	require.NoError(t, store.Create(&InstanceRecord{
		ID: "i1", DocumentID: "d1", DefinitionName: "two-step", CreatedBy: "alice",
	}))

	require.NoError(t, store.UpdateProgress("i1", 1, InstanceActive))
	got, err := store.Get("i1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentStep)

	assert.Error(t, store.UpdateProgress("ghost", 0, InstanceCompleted))
}

func TestInstanceStore_DecisionDedupe(t *testing.T) {
	store := newTestInstanceStore(t)

	require.NoError(t, store.Create(&InstanceRecord{
		ID: "i1", DocumentID: "d1", DefinitionName: "two-step", CreatedBy: "alice",
	}))

	require.NoError(t, store.AddDecision(&DecisionRecord{
		ID: "dec1", InstanceID: "i1", StepIndex: 0, Approver: "bob", Verdict: VerdictApprove,
	}))
	// Same approver, same step: dropped on the unique index.
	require.NoError(t, store.AddDecision(&DecisionRecord{
		ID: "dec2", InstanceID: "i1", StepIndex: 0, Approver: "bob", Verdict: VerdictApprove,
	}))
	// Same approver on the next step is a distinct decision.
	require.NoError(t, store.AddDecision(&DecisionRecord{
		ID: "dec3", InstanceID: "i1", StepIndex: 1, Approver: "bob", Verdict: VerdictApprove,
	}))

	count, err := store.CountApprovals("i1", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	decisions, err := store.ListDecisions("i1")
	require.NoError(t, err)
	assert.Len(t, decisions, 2)

	prior, err := store.GetDecision("i1", 0, "bob")
	require.NoError(t, err)
	require.NotNil(t, prior)
	assert.Equal(t, "dec1", prior.ID)

	none, err := store.GetDecision("i1", 2, "bob")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestInstanceStore_CountApprovalsIgnoresRejects(t *testing.T) {
	store := newTestInstanceStore(t)

	require.NoError(t, store.Create(&InstanceRecord{
		ID: "i1", DocumentID: "d1", DefinitionName: "two-step", CreatedBy: "alice",
	}))

	require.NoError(t, store.AddDecision(&DecisionRecord{
		ID: "dec1", InstanceID: "i1", StepIndex: 0, Approver: "bob", Verdict: VerdictReject,
	}))

	count, err := store.CountApprovals("i1", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestInstanceStore_Delete(t *testing.T) {
	store := newTestInstanceStore(t)

	require.NoError(t, store.Create(&InstanceRecord{
		ID: "i1", DocumentID: "d1", DefinitionName: "two-step", CreatedBy: "alice",
	}))
	require.NoError(t, store.AddDecision(&DecisionRecord{
		ID: "dec1", InstanceID: "i1", StepIndex: 0, Approver: "bob", Verdict: VerdictApprove,
	}))

	require.NoError(t, store.Delete("i1"))

	got, err := store.Get("i1")
	require.NoError(t, err)
	assert.Nil(t, got)

	decisions, err := store.ListDecisions("i1")
	require.NoError(t, err)
	assert.Empty(t, decisions)
}
