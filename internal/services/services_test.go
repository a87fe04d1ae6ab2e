package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	model "github.com/callendorph/mturkemu/internal/models"
	"github.com/callendorph/mturkemu/internal/questions"
	repository "github.com/callendorph/mturkemu/internal/repositories"
)

const externalQuestion = `<ExternalQuestion><ExternalURL>https://example.com/task</ExternalURL><FrameHeight>400</FrameHeight></ExternalQuestion>`

const testQuestionForm = `<QuestionForm>
  <Question>
    <QuestionIdentifier>capital</QuestionIdentifier>
    <IsRequired>true</IsRequired>
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
</QuestionForm>`

const testAnswerKey = `<AnswerKey>
  <Question>
    <QuestionIdentifier>capital</QuestionIdentifier>
    <AnswerOption>
      <SelectionIdentifier>paris</SelectionIdentifier>
      <AnswerScore>1</AnswerScore>
    </AnswerOption>
  </Question>
  <QualificationValueMapping>
    <PercentageMapping><MaximumSummedScore>1</MaximumSummedScore></PercentageMapping>
  </QualificationValueMapping>
</AnswerKey>`

// testClock is a mutable clock so time-based transitions can be driven
// explicitly.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type testEnv struct {
	db    *gorm.DB
	clock *testClock

	accountRepo *repository.AccountRepository
	taskRepo    *repository.TaskRepository
	qualRepo    *repository.QualRepository
	paymentRepo *repository.PaymentRepository

	accounts  *AccountService
	quals     *QualService
	tasks     *TaskService
	taskTypes *TaskTypeService
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(model.All()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	clock := newTestClock()

	env := &testEnv{
		db:          db,
		clock:       clock,
		accountRepo: repository.NewAccountRepository(db),
		taskRepo:    repository.NewTaskRepository(db),
		qualRepo:    repository.NewQualRepository(db),
		paymentRepo: repository.NewPaymentRepository(db),
	}

	validator := questions.NewValidator()
	env.quals = NewQualService(db, env.qualRepo, env.taskRepo,
		env.accountRepo, validator, clock.Now)
	env.tasks = NewTaskService(db, env.taskRepo, env.qualRepo,
		env.accountRepo, env.quals, validator, clock.Now)
	env.taskTypes = NewTaskTypeService(db, env.taskRepo, env.qualRepo)
	env.accounts = NewAccountService(db, env.accountRepo, env.taskRepo, env.paymentRepo)

	return env
}

func (e *testEnv) createAccount(t *testing.T, username string) (*model.Worker, *model.Requester) {
	t.Helper()
	worker, requester, _, err := e.accounts.CreateAccount(
		context.Background(), username, username+"@example.com", username,
		decimal.NewFromInt(100))
	require.NoError(t, err)
	return worker, requester
}

func (e *testEnv) createTaskType(t *testing.T, requester *model.Requester, reqs ...RequirementParams) *model.TaskType {
	t.Helper()
	tt, _, err := e.taskTypes.FindOrCreate(context.Background(), requester, TaskTypeParams{
		AssignmentDurationSec: 3600,
		AutoApproveDelaySec:   86400,
		Reward:                decimal.RequireFromString("0.25"),
		Title:                 "Categorize images",
		Description:           "Look at an image and pick the category",
		Keywords:              "images, categorization",
		Requirements:          reqs,
	})
	require.NoError(t, err)
	return tt
}

func (e *testEnv) createTask(t *testing.T, requester *model.Requester, tt *model.TaskType, maxAssignments int) *model.Task {
	t.Helper()
	task, err := e.tasks.CreateTask(context.Background(), requester, tt, CreateTaskParams{
		LifetimeSec:    3600,
		MaxAssignments: maxAssignments,
		Question:       externalQuestion,
	})
	require.NoError(t, err)
	return task
}
