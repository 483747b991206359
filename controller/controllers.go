// api/controller/controllers.go
package controller

import (
	"github.com/veriflow/sentra/api/audit"
	"github.com/veriflow/sentra/api/service"
	"github.com/veriflow/sentra/api/util"
)

type Controllers struct {
	Evaluation  *EvaluationController
	PolicyEvent *PolicyEventController
	Audit       *AuditController
}

func InitializeControllers(evaluationService service.IEvaluationService, auditService audit.Service, eventBus *util.EventBus) *Controllers {
	return &Controllers{
		Evaluation:  NewEvaluationController(evaluationService),
		PolicyEvent: NewPolicyEventController(eventBus),
		Audit:       NewAuditController(auditService),
	}
}
