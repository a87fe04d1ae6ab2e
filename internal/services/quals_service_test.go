package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierr "github.com/callendorph/mturkemu/internal/errors"
	model "github.com/callendorph/mturkemu/internal/models"
	"github.com/callendorph/mturkemu/internal/questions"
)

func TestCreateQualificationType_DuplicateName(t *testing.T) {
	env := newTestEnv(t)
	_, requester := env.createAccount(t, "alice")

	params := CreateQualTypeParams{Name: "Photo moderation", Description: "d"}
	_, err := env.quals.CreateQualificationType(context.Background(), requester, params)
	require.NoError(t, err)

	_, err = env.quals.CreateQualificationType(context.Background(), requester, params)
	assert.ErrorIs(t, err, apierr.ErrQualTypeAlreadyExists)

	// A different requester may reuse the name.
	_, other := env.createAccount(t, "bob")
	_, err = env.quals.CreateQualificationType(context.Background(), other, params)
	assert.NoError(t, err)
}

func TestCreateQualificationType_TestConfigRules(t *testing.T) {
	env := newTestEnv(t)
	_, requester := env.createAccount(t, "alice")
	duration := int64(600)

	// Answer key without a test.
	_, err := env.quals.CreateQualificationType(context.Background(), requester,
		CreateQualTypeParams{Name: "a", Description: "d", AnswerKey: testAnswerKey})
	assert.Error(t, err)

	// Auto-grant and test are mutually exclusive.
	_, err = env.quals.CreateQualificationType(context.Background(), requester,
		CreateQualTypeParams{Name: "b", Description: "d", Test: testQuestionForm,
			TestDurationSec: &duration, AutoGranted: true})
	assert.Error(t, err)

	// A test requires a duration.
	_, err = env.quals.CreateQualificationType(context.Background(), requester,
		CreateQualTypeParams{Name: "c", Description: "d", Test: testQuestionForm})
	assert.Error(t, err)
}

func TestRequestQualification_AutoGrant(t *testing.T) {
	env := newTestEnv(t)
	worker, _ := env.createAccount(t, "worker")
	_, requester := env.createAccount(t, "owner")

	value := 85
	qual, err := env.quals.CreateQualificationType(context.Background(), requester,
		CreateQualTypeParams{Name: "Auto", Description: "d",
			AutoGranted: true, AutoGrantValue: &value})
	require.NoError(t, err)

	req, grant, err := env.quals.RequestQualification(context.Background(), worker, qual.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestApproved, req.State)
	require.NotNil(t, grant)
	assert.Equal(t, 85, grant.Value)
	assert.True(t, grant.Active)

	// A second request against the active grant is refused.
	_, _, err = env.quals.RequestQualification(context.Background(), worker, qual.ExternalID)
	assert.ErrorIs(t, err, apierr.ErrHasActiveGrant)
}

func TestRequestQualification_PendingAndAccept(t *testing.T) {
	env := newTestEnv(t)
	worker, _ := env.createAccount(t, "worker")
	_, requester := env.createAccount(t, "owner")

	qual, err := env.quals.CreateQualificationType(context.Background(), requester,
		CreateQualTypeParams{Name: "Manual", Description: "d"})
	require.NoError(t, err)

	req, grant, err := env.quals.RequestQualification(context.Background(), worker, qual.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, req.State)
	assert.Nil(t, grant)

	// Duplicate request while one is pending.
	_, _, err = env.quals.RequestQualification(context.Background(), worker, qual.ExternalID)
	assert.ErrorIs(t, err, apierr.ErrHasActiveRequest)

	value := 42
	accepted, err := env.quals.AcceptQualificationRequest(context.Background(), requester,
		req.ExternalID, &value)
	require.NoError(t, err)
	assert.Equal(t, 42, accepted.Value)

	reloaded, err := env.qualRepo.FindRequestByExternalID(context.Background(), req.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestApproved, reloaded.State)

	grant2, _, err := env.quals.GetQualificationScore(context.Background(), requester,
		qual.ExternalID, worker.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, 42, grant2.Value)
}

func TestRequestQualification_RejectionAndRetryWindow(t *testing.T) {
	env := newTestEnv(t)
	worker, _ := env.createAccount(t, "worker")
	_, requester := env.createAccount(t, "owner")

	delay := int64(3600)
	qual, err := env.quals.CreateQualificationType(context.Background(), requester,
		CreateQualTypeParams{Name: "Retryable", Description: "d", RetryDelaySec: &delay})
	require.NoError(t, err)

	req, _, err := env.quals.RequestQualification(context.Background(), worker, qual.ExternalID)
	require.NoError(t, err)

	err = env.quals.RejectQualificationRequest(context.Background(), requester,
		req.ExternalID, "not a fit")
	require.NoError(t, err)

	// Still inside the retry window.
	_, _, err = env.quals.RequestQualification(context.Background(), worker, qual.ExternalID)
	assert.Error(t, err)

	env.clock.Advance(2 * time.Hour)

	req2, _, err := env.quals.RequestQualification(context.Background(), worker, qual.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, req2.State)
	// The rejected row is reset and reused, not duplicated.
	assert.Equal(t, req.ID, req2.ID)
}

func TestRequestQualification_PermanentDenial(t *testing.T) {
	env := newTestEnv(t)
	worker, _ := env.createAccount(t, "worker")
	_, requester := env.createAccount(t, "owner")

	qual, err := env.quals.CreateQualificationType(context.Background(), requester,
		CreateQualTypeParams{Name: "OneShot", Description: "d"})
	require.NoError(t, err)

	req, _, err := env.quals.RequestQualification(context.Background(), worker, qual.ExternalID)
	require.NoError(t, err)
	require.NoError(t, env.quals.RejectQualificationRequest(context.Background(), requester,
		req.ExternalID, "no"))

	env.clock.Advance(24 * time.Hour)
	_, _, err = env.quals.RequestQualification(context.Background(), worker, qual.ExternalID)
	assert.ErrorIs(t, err, apierr.ErrPermanentDenial)
}

func TestQualificationTestFlow(t *testing.T) {
	env := newTestEnv(t)
	worker, _ := env.createAccount(t, "worker")
	_, requester := env.createAccount(t, "owner")

	duration := int64(600)
	qual, err := env.quals.CreateQualificationType(context.Background(), requester,
		CreateQualTypeParams{Name: "Geography", Description: "d",
			Test: testQuestionForm, AnswerKey: testAnswerKey,
			TestDurationSec: &duration})
	require.NoError(t, err)

	req, grant, err := env.quals.RequestQualification(context.Background(), worker, qual.ExternalID)
	require.NoError(t, err)
	assert.Nil(t, grant)
	assert.Equal(t, model.RequestIdle, req.State)

	req2, grant, err := env.quals.SubmitTestAnswers(context.Background(), worker, req.ExternalID,
		questions.Submission{"capital": {"paris"}})
	require.NoError(t, err)
	assert.Equal(t, model.RequestApproved, req2.State)
	require.NotNil(t, grant)
	assert.Equal(t, 100, grant.Value)
}

func TestQualificationTestFlow_InvalidSubmission(t *testing.T) {
	env := newTestEnv(t)
	worker, _ := env.createAccount(t, "worker")
	_, requester := env.createAccount(t, "owner")

	duration := int64(600)
	qual, err := env.quals.CreateQualificationType(context.Background(), requester,
		CreateQualTypeParams{Name: "Geography", Description: "d",
			Test: testQuestionForm, AnswerKey: testAnswerKey,
			TestDurationSec: &duration})
	require.NoError(t, err)

	req, _, err := env.quals.RequestQualification(context.Background(), worker, qual.ExternalID)
	require.NoError(t, err)

	// Missing the required question fails form validation before any
	// scoring happens.
	_, _, err = env.quals.SubmitTestAnswers(context.Background(), worker, req.ExternalID,
		questions.Submission{})
	assert.Error(t, err)
}

// optionalQuestionForm leaves the scored question optional, so a
// submission can pass form validation and still be unscorable.
const optionalQuestionForm = `<QuestionForm>
  <Question>
    <QuestionIdentifier>capital</QuestionIdentifier>
    <IsRequired>false</IsRequired>
    <AnswerSpecification>
      <SelectionAnswer>
        <MinSelectionCount>1</MinSelectionCount>
        <MaxSelectionCount>1</MaxSelectionCount>
        <Selections>
          <Selection><SelectionIdentifier>paris</SelectionIdentifier></Selection>
          <Selection><SelectionIdentifier>london</SelectionIdentifier></Selection>
        </Selections>
      </SelectionAnswer>
    </AnswerSpecification>
  </Question>
  <Question>
    <QuestionIdentifier>comment</QuestionIdentifier>
    <IsRequired>false</IsRequired>
    <AnswerSpecification>
      <FreeTextAnswer></FreeTextAnswer>
    </AnswerSpecification>
  </Question>
</QuestionForm>`

func TestQualificationTestFlow_ScoringFailureRejectsRequest(t *testing.T) {
	env := newTestEnv(t)
	worker, _ := env.createAccount(t, "worker")
	_, requester := env.createAccount(t, "owner")

	duration := int64(600)
	qual, err := env.quals.CreateQualificationType(context.Background(), requester,
		CreateQualTypeParams{Name: "Geography", Description: "d",
			Test: optionalQuestionForm, AnswerKey: testAnswerKey,
			TestDurationSec: &duration})
	require.NoError(t, err)

	req, _, err := env.quals.RequestQualification(context.Background(), worker, qual.ExternalID)
	require.NoError(t, err)

	// Omitting the scored question passes form validation but fails
	// scoring. That is a data condition, not an operation failure: the
	// request lands Rejected with the answer still on record.
	req2, grant, err := env.quals.SubmitTestAnswers(context.Background(), worker,
		req.ExternalID, questions.Submission{"comment": {"unsure"}})
	require.NoError(t, err)
	assert.Nil(t, grant)
	assert.Equal(t, model.RequestRejected, req2.State)
	assert.NotEmpty(t, req2.Answer)
	require.NotNil(t, req2.Submitted)
	assert.NotEmpty(t, req2.Reason)

	_, _, err = env.quals.GetQualificationScore(context.Background(), requester,
		qual.ExternalID, worker.ExternalID)
	assert.Error(t, err)
}

func TestAssociateAndDisassociateQualification(t *testing.T) {
	env := newTestEnv(t)
	worker, _ := env.createAccount(t, "worker")
	_, requester := env.createAccount(t, "owner")

	qual, err := env.quals.CreateQualificationType(context.Background(), requester,
		CreateQualTypeParams{Name: "Direct", Description: "d"})
	require.NoError(t, err)

	grant, err := env.quals.AssociateQualification(context.Background(), requester,
		qual.ExternalID, worker.ExternalID, 9)
	require.NoError(t, err)
	assert.Equal(t, 9, grant.Value)

	// Re-associating refreshes the same row.
	grant2, err := env.quals.AssociateQualification(context.Background(), requester,
		qual.ExternalID, worker.ExternalID, 11)
	require.NoError(t, err)
	assert.Equal(t, grant.ID, grant2.ID)
	assert.Equal(t, 11, grant2.Value)

	err = env.quals.DisassociateQualification(context.Background(), requester,
		qual.ExternalID, worker.ExternalID, "cleanup")
	require.NoError(t, err)

	_, _, err = env.quals.GetQualificationScore(context.Background(), requester,
		qual.ExternalID, worker.ExternalID)
	assert.Error(t, err)

	// Revoking again is a tolerated no-op.
	err = env.quals.DisassociateQualification(context.Background(), requester,
		qual.ExternalID, worker.ExternalID, "again")
	assert.NoError(t, err)
}

func TestDeleteQualificationType_Immediate(t *testing.T) {
	env := newTestEnv(t)
	_, requester := env.createAccount(t, "owner")

	qual, err := env.quals.CreateQualificationType(context.Background(), requester,
		CreateQualTypeParams{Name: "Unused", Description: "d"})
	require.NoError(t, err)

	require.NoError(t, env.quals.DeleteQualificationType(context.Background(), requester,
		qual.ExternalID))

	_, err = env.quals.GetQualificationType(context.Background(), qual.ExternalID)
	assert.Error(t, err)
}

func TestDeleteQualificationType_DeferredWhileReferenced(t *testing.T) {
	env := newTestEnv(t)
	worker, _ := env.createAccount(t, "worker")
	_, requester := env.createAccount(t, "owner")

	qual, err := env.quals.CreateQualificationType(context.Background(), requester,
		CreateQualTypeParams{Name: "Referenced", Description: "d"})
	require.NoError(t, err)

	_, err = env.quals.AssociateQualification(context.Background(), requester,
		qual.ExternalID, worker.ExternalID, 1)
	require.NoError(t, err)

	tt := env.createTaskType(t, requester, RequirementParams{
		QualificationExtID: qual.ExternalID,
		Comparator:         string(model.CmpExists),
	})
	task := env.createTask(t, requester, tt, 1)

	require.NoError(t, env.quals.DeleteQualificationType(context.Background(), requester,
		qual.ExternalID))

	// Still present while the task references it, but marked Disposing
	// and withdrawn from workers.
	pending, err := env.quals.GetQualificationType(context.Background(), qual.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, model.QualDisposing, pending.Status)
	assert.False(t, pending.Requestable)

	// Completing and deleting the task runs the deferred cascade.
	assignment, err := env.tasks.AcceptAssignment(context.Background(), worker, task.ExternalID)
	require.NoError(t, err)
	_, err = env.tasks.SubmitAssignment(context.Background(), worker, assignment.ExternalID,
		questions.Submission{"anything": {"v"}})
	require.NoError(t, err)
	require.NoError(t, env.tasks.ApproveAssignment(context.Background(), requester,
		assignment.ExternalID, "good", false))
	require.NoError(t, env.tasks.DeleteTask(context.Background(), requester, task.ExternalID))

	var count int64
	require.NoError(t, env.db.Model(&model.Qualification{}).
		Where("id = ?", qual.ID).Count(&count).Error)
	assert.Zero(t, count)
}
