// api/controller/policy_event_controller.go
package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	sentra_errors "github.com/veriflow/sentra/api/errors"
	"github.com/veriflow/sentra/api/util"
)

// PolicyEventController receives change notifications from the CRUD layer
// so the repository adapter can drop stale policy snapshots.
type PolicyEventController struct {
	eventBus *util.EventBus
}

func NewPolicyEventController(eventBus *util.EventBus) *PolicyEventController {
	return &PolicyEventController{
		eventBus: eventBus,
	}
}

// RegisterRoutes registers the API routes
func (pc *PolicyEventController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/internal/policy-events", pc.PolicyChanged)
}

type policyChangeNotification struct {
	PolicyID   string `json:"policy_id" binding:"required"`
	ChangeType string `json:"change_type"` // created, updated, deleted, status-changed
}

// PolicyChanged endpoint. Invalidation is applied synchronously so the
// acknowledgement means the next decision sees the new policy set.
func (pc *PolicyEventController) PolicyChanged(c *gin.Context) {
	var notification policyChangeNotification
	if err := c.ShouldBindJSON(&notification); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy change notification", sentra_errors.ErrInvalidRequest)
		return
	}

	pc.eventBus.PublishSync(c, "policy.changed", notification.PolicyID)

	c.Status(http.StatusAccepted)
}
