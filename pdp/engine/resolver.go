// api/pdp/engine/resolver.go
package engine

import (
	"sort"

	"github.com/veriflow/sentra/api/model"
	pdp_model "github.com/veriflow/sentra/api/pdp/model"
)

// ResolveVerdicts folds all per-policy verdicts into the final effect and
// trace. An explicit deny always wins regardless of how many allow policies
// matched; with no matched policy at all the default is deny.
func ResolveVerdicts(verdicts []pdp_model.PolicyVerdict) (string, []pdp_model.MatchedPolicy) {
	matched := make([]pdp_model.PolicyVerdict, 0, len(verdicts))
	for _, verdict := range verdicts {
		if verdict.Matched {
			matched = append(matched, verdict)
		}
	}

	// Trace ordering: most specific scope first, newest first within the
	// same specificity. Effect resolution itself needs no tie-break.
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Specificity != matched[j].Specificity {
			return matched[i].Specificity > matched[j].Specificity
		}
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	effect := ""
	trace := make([]pdp_model.MatchedPolicy, 0, len(matched))
	for _, verdict := range matched {
		if verdict.Effect == model.EffectDeny {
			effect = model.EffectDeny
		} else if effect != model.EffectDeny {
			effect = model.EffectAllow
		}
		trace = append(trace, pdp_model.MatchedPolicy{
			PolicyID:     verdict.PolicyID,
			Effect:       verdict.Effect,
			MatchedRules: verdict.MatchedRules,
			FailedRules:  verdict.FailedRules,
		})
	}

	if effect == "" {
		effect = model.EffectDeny // default deny
	}
	return effect, trace
}
