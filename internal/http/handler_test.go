package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	model "github.com/callendorph/mturkemu/internal/models"
	"github.com/callendorph/mturkemu/internal/questions"
	repository "github.com/callendorph/mturkemu/internal/repositories"
	"github.com/callendorph/mturkemu/internal/services"
	"github.com/callendorph/mturkemu/internal/throttle"
)

const testQuestion = `<ExternalQuestion xmlns="http://mechanicalturk.amazonaws.com/AWSMechanicalTurkDataSchemas/2006-07-14/ExternalQuestion.xsd">
  <ExternalURL>https://example.com/task</ExternalURL>
  <FrameHeight>400</FrameHeight>
</ExternalQuestion>`

type apiTestEnv struct {
	e *echo.Echo
}

func newAPITestEnv(t *testing.T) *apiTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.All()...))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	accountRepo := repository.NewAccountRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	qualRepo := repository.NewQualRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	validator := questions.NewValidator()
	qualSvc := services.NewQualService(db, qualRepo, taskRepo, accountRepo,
		validator, services.SystemClock)
	taskSvc := services.NewTaskService(db, taskRepo, qualRepo, accountRepo,
		qualSvc, validator, services.SystemClock)
	taskTypeSvc := services.NewTaskTypeService(db, taskRepo, qualRepo)
	accountSvc := services.NewAccountService(db, accountRepo, taskRepo, paymentRepo)

	e := echo.New()
	handler := NewHandler(accountSvc, qualSvc, taskSvc, taskTypeSvc, accountRepo)
	Register(e, handler, throttle.NewMemoryTokenManager(16), 10000)

	return &apiTestEnv{e: e}
}

// call drives a requester API operation through the full echo stack.
func (env *apiTestEnv) call(t *testing.T, op, accessKey string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/x-amz-json-1.1")
	req.Header.Set("X-Amz-Target", targetPrefix+"."+op)
	if accessKey != "" {
		req.Header.Set(accessKeyHeader, accessKey)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

// workerCall drives a worker-side REST endpoint.
func (env *apiTestEnv) workerCall(t *testing.T, method, path, workerID string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if workerID != "" {
		req.Header.Set(workerHeader, workerID)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

// signUp creates an account over the wire and returns its ids and key.
func (env *apiTestEnv) signUp(t *testing.T, username string) (workerID, requesterID, accessKey string) {
	t.Helper()
	rec, out := env.workerCall(t, http.MethodPost, "/accounts", "", echo.Map{
		"Username":       username,
		"Email":          username + "@example.com",
		"Name":           username,
		"InitialBalance": "100.00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	return out["WorkerId"].(string), out["RequesterId"].(string), out["AccessKey"].(string)
}

func TestDispatch_UnknownOperation(t *testing.T) {
	env := newAPITestEnv(t)
	_, _, key := env.signUp(t, "alice")

	rec, out := env.call(t, "TranscribeAllTheThings", key, echo.Map{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "AWS.MechanicalTurk.InvalidAction", out["TurkErrorCode"])

	// A target without the service prefix is equally unknown.
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Amz-Target", "GetAccountBalance")
	rec2 := httptest.NewRecorder()
	env.e.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestDispatch_Authentication(t *testing.T) {
	env := newAPITestEnv(t)
	_, _, key := env.signUp(t, "alice")

	rec, out := env.call(t, "GetAccountBalance", "", echo.Map{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "AWS.MechanicalTurk.AuthenticationFailed", out["TurkErrorCode"])

	rec, _ = env.call(t, "GetAccountBalance", "not-a-real-key", echo.Map{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A SigV4 Authorization header resolves through its credential scope.
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{}")))
	req.Header.Set("X-Amz-Target", targetPrefix+".GetAccountBalance")
	req.Header.Set("Authorization",
		"AWS4-HMAC-SHA256 Credential="+key+"/20260828/us-east-1/mturk-requester/aws4_request, SignedHeaders=host, Signature=abc")
	rec2 := httptest.NewRecorder()
	env.e.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusOK, rec2.Code)
}

func TestGetAccountBalance(t *testing.T) {
	env := newAPITestEnv(t)
	_, _, key := env.signUp(t, "alice")

	rec, out := env.call(t, "GetAccountBalance", key, echo.Map{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "100.00", out["AvailableBalance"])
}

func TestHITLifecycleOverTheWire(t *testing.T) {
	env := newAPITestEnv(t)
	workerID, _, _ := env.signUp(t, "worker")
	_, _, requesterKey := env.signUp(t, "owner")

	rec, out := env.call(t, "CreateHITType", requesterKey, echo.Map{
		"Title":                       "Categorize images",
		"Description":                 "Pick the category",
		"Reward":                      "0.25",
		"AssignmentDurationInSeconds": 3600,
		"AutoApprovalDelayInSeconds":  86400,
		"Keywords":                    "images",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	hitTypeID := out["HITTypeId"].(string)
	require.NotEmpty(t, hitTypeID)

	rec, out = env.call(t, "CreateHITWithHITType", requesterKey, echo.Map{
		"HITTypeId":         hitTypeID,
		"LifetimeInSeconds": 3600,
		"MaxAssignments":    1,
		"Question":          testQuestion,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	hit := out["HIT"].(map[string]any)
	hitID := hit["HITId"].(string)
	assert.Equal(t, "Assignable", hit["HITStatus"])
	assert.Equal(t, float64(1), hit["NumberOfAssignmentsAvailable"])

	// The worker takes the HIT and submits an answer.
	rec, out = env.workerCall(t, http.MethodPost, "/worker/hits/"+hitID+"/accept",
		workerID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assignment := out["Assignment"].(map[string]any)
	assignmentID := assignment["AssignmentId"].(string)
	assert.Equal(t, "Accepted", assignment["AssignmentStatus"])

	rec, _ = env.workerCall(t, http.MethodPost,
		"/worker/assignments/"+assignmentID+"/submit", workerID, echo.Map{
			"Answers": map[string][]string{"category": {"cat"}},
		})
	require.Equal(t, http.StatusOK, rec.Code)

	// The requester sees a submitted assignment and approves it.
	rec, out = env.call(t, "ListAssignmentsForHIT", requesterKey, echo.Map{
		"HITId": hitID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), out["NumResults"])

	rec, _ = env.call(t, "ApproveAssignment", requesterKey, echo.Map{
		"AssignmentId": assignmentID,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, out = env.call(t, "GetHIT", requesterKey, echo.Map{"HITId": hitID})
	require.Equal(t, http.StatusOK, rec.Code)
	hit = out["HIT"].(map[string]any)
	assert.Equal(t, "Reviewable", hit["HITStatus"])
	assert.Equal(t, float64(1), hit["NumberOfAssignmentsCompleted"])
}

func TestListHITs_Pagination(t *testing.T) {
	env := newAPITestEnv(t)
	_, _, key := env.signUp(t, "owner")

	rec, out := env.call(t, "CreateHIT", key, echo.Map{
		"Title":                       "Survey",
		"Description":                 "Short survey",
		"Reward":                      "1.00",
		"AssignmentDurationInSeconds": 600,
		"LifetimeInSeconds":           3600,
		"Question":                    testQuestion,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, out, "HIT")

	for i := 0; i < 2; i++ {
		rec, _ = env.call(t, "CreateHIT", key, echo.Map{
			"Title":                       "Survey",
			"Description":                 "Short survey",
			"Reward":                      "1.00",
			"AssignmentDurationInSeconds": 600,
			"LifetimeInSeconds":           3600,
			"Question":                    testQuestion,
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, out = env.call(t, "ListHITs", key, echo.Map{"MaxResults": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), out["NumResults"])
	token := out["NextToken"].(string)
	require.NotEmpty(t, token)

	rec, out = env.call(t, "ListHITs", key, echo.Map{
		"MaxResults": 2, "NextToken": token,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), out["NumResults"])
	assert.Empty(t, out["NextToken"])
}

func TestWorkerEndpointsRequireWorkerHeader(t *testing.T) {
	env := newAPITestEnv(t)

	rec, out := env.workerCall(t, http.MethodGet, "/worker/hittypes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "AWS.MechanicalTurk.AuthenticationFailed", out["TurkErrorCode"])
}
