// api/controller/audit_controller.go
package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/veriflow/sentra/api/audit"
	sentra_errors "github.com/veriflow/sentra/api/errors"
	"github.com/veriflow/sentra/api/util"
	helper_util "github.com/veriflow/sentra/api/util/helper"
)

// AuditController exposes the decision audit trail for review tooling.
type AuditController struct {
	auditService audit.Service
}

func NewAuditController(auditService audit.Service) *AuditController {
	return &AuditController{
		auditService: auditService,
	}
}

// RegisterRoutes registers the API routes
func (ac *AuditController) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/decisions", ac.QueryDecisions)
}

// QueryDecisions endpoint: decision records in a time range, optionally
// filtered by subject and resource. Defaults to the last 24 hours.
func (ac *AuditController) QueryDecisions(c *gin.Context) {
	to := time.Now().UTC()
	from := to.Add(-24 * time.Hour)

	if fromParam := c.Query("from"); fromParam != "" {
		parsed, err := helper_util.ParseTime(fromParam)
		if err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid 'from' timestamp", sentra_errors.ErrInvalidRequest)
			return
		}
		from = parsed
	}
	if toParam := c.Query("to"); toParam != "" {
		parsed, err := helper_util.ParseTime(toParam)
		if err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid 'to' timestamp", sentra_errors.ErrInvalidRequest)
			return
		}
		to = parsed
	}

	records, err := ac.auditService.QueryDecisions(c, from, to, c.Query("subject_id"), c.Query("resource_id"))
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to query decision records", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"decisions": records})
}
