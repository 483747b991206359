// api/controller/evaluation_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	sentra_errors "github.com/veriflow/sentra/api/errors"
	pdp_model "github.com/veriflow/sentra/api/pdp/model"
	"github.com/veriflow/sentra/api/service"
	"github.com/veriflow/sentra/api/util"
)

type EvaluationController struct {
	evaluationService service.IEvaluationService
}

func NewEvaluationController(evaluationService service.IEvaluationService) *EvaluationController {
	return &EvaluationController{
		evaluationService: evaluationService,
	}
}

// RegisterRoutes registers the API routes
func (ec *EvaluationController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/evaluate", ec.Evaluate)
}

// Evaluate endpoint: the policy tester UI and runtime check points both
// submit a (subject, action, resource, environment) tuple here and get the
// decision plus trace back. On a repository failure the caller gets a
// "could not evaluate" error, never a false ALLOW or DENY.
func (ec *EvaluationController) Evaluate(c *gin.Context) {
	var req pdp_model.EvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid evaluation request", sentra_errors.ErrInvalidRequest)
		return
	}

	decision, err := ec.evaluationService.Decide(c, req)
	if err != nil {
		switch {
		case errors.Is(err, sentra_errors.ErrInvalidRequest):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid evaluation request", err)
		case errors.Is(err, sentra_errors.ErrRepositoryUnavailable):
			util.RespondWithError(c, http.StatusServiceUnavailable, "Could not evaluate: policy repository unavailable", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to evaluate request", sentra_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, decision)
}
