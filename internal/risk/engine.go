package risk

import "github.com/you/arb-engine/internal/types"

// Engine is the execution gate. Detection records opportunities regardless of
// their score; only acting on one is gated here.
type Engine struct {
	maxRiskScore float64
	enabled      bool
}

func NewEngine(maxRiskScore float64, enabled bool) *Engine {
	return &Engine{maxRiskScore: maxRiskScore, enabled: enabled}
}

func (e *Engine) ExecutionEnabled() bool { return e.enabled }

// AllowExecution rejects any opportunity whose risk score exceeds the ceiling.
func (e *Engine) AllowExecution(opp types.Opportunity) bool {
	if !e.enabled {
		return false
	}
	return opp.RiskScore <= e.maxRiskScore
}
