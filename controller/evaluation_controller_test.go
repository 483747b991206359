package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	sentra_errors "github.com/veriflow/sentra/api/errors"
	logger "github.com/veriflow/sentra/api/logging"
	"github.com/veriflow/sentra/api/model"
	pdp_model "github.com/veriflow/sentra/api/pdp/model"
	mocks "github.com/veriflow/sentra/api/test/mock"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	logDir, err := os.MkdirTemp("", "sentra-test-logs")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(logDir)

	logger.InitLogger(logDir)
	os.Exit(m.Run())
}

func setupEvaluationRouter(evaluationService *mocks.MockEvaluationService) *gin.Engine {
	r := gin.New()
	group := r.Group("/api/v1")
	NewEvaluationController(evaluationService).RegisterRoutes(group)
	return r
}

func postEvaluate(r *gin.Engine, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/evaluate", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func evaluateBody() []byte {
	body, _ := json.Marshal(pdp_model.EvaluationRequest{
		SubjectID:  "user-alice",
		ActionID:   "document:read",
		ResourceID: "/marketing/plans/q3",
		Scope:      model.Scope{WorkspaceID: "ws-1"},
	})
	return body
}

func TestEvaluateEndpointReturnsDecision(t *testing.T) {
	evaluationService := new(mocks.MockEvaluationService)
	evaluationService.On("Decide", mock.Anything, mock.Anything).
		Return(&pdp_model.Decision{
			Effect: model.EffectAllow,
			MatchedPolicies: []pdp_model.MatchedPolicy{
				{PolicyID: "pol-1", Effect: model.EffectAllow, MatchedRules: []string{"subject user:user-alice"}},
			},
			EvaluatedPolicyCount: 1,
		}, nil)

	w := postEvaluate(setupEvaluationRouter(evaluationService), evaluateBody())

	assert.Equal(t, http.StatusOK, w.Code)

	var decision pdp_model.Decision
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.Equal(t, model.EffectAllow, decision.Effect)
	assert.Len(t, decision.MatchedPolicies, 1)
	assert.Equal(t, 1, decision.EvaluatedPolicyCount)
	evaluationService.AssertExpectations(t)
}

func TestEvaluateEndpointRejectsMalformedJSON(t *testing.T) {
	evaluationService := new(mocks.MockEvaluationService)

	w := postEvaluate(setupEvaluationRouter(evaluationService), []byte(`{"subject_id":`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	evaluationService.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything)
}

func TestEvaluateEndpointMapsInvalidRequest(t *testing.T) {
	evaluationService := new(mocks.MockEvaluationService)
	evaluationService.On("Decide", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: request subject ID cannot be empty", sentra_errors.ErrInvalidRequest))

	w := postEvaluate(setupEvaluationRouter(evaluationService), evaluateBody())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluateEndpointMapsRepositoryUnavailable(t *testing.T) {
	evaluationService := new(mocks.MockEvaluationService)
	evaluationService.On("Decide", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: neo4j unreachable", sentra_errors.ErrRepositoryUnavailable))

	w := postEvaluate(setupEvaluationRouter(evaluationService), evaluateBody())

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Could not evaluate: policy repository unavailable", response["error"])
}

func TestEvaluateEndpointMapsUnexpectedErrors(t *testing.T) {
	evaluationService := new(mocks.MockEvaluationService)
	evaluationService.On("Decide", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("unexpected failure"))

	w := postEvaluate(setupEvaluationRouter(evaluationService), evaluateBody())
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
