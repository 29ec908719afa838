package strategy

import (
	"fmt"

	"Options_Wheel/internal/config"
	"Options_Wheel/internal/model"

	"github.com/shopspring/decimal"
)

// RiskCheck is the outcome of the put collateral gate with the numbers behind it.
type RiskCheck struct {
	Existing  decimal.Decimal // multiplier × strike × |qty| over held puts
	Candidate decimal.Decimal // multiplier × strike of the candidate
	Required  decimal.Decimal // MarginRatio × (Existing + Candidate)
	Cash      decimal.Decimal
	Allowed   bool
}

func (r RiskCheck) String() string {
	verdict := "deny"
	if r.Allowed {
		verdict = "allow"
	}
	return fmt.Sprintf("%s cash=%s required=%s (existing=%s candidate=%s)",
		verdict, r.Cash.StringFixed(2), r.Required.StringFixed(2), r.Existing.StringFixed(2), r.Candidate.StringFixed(2))
}

// CheckPutCollateral sizes the cash needed to carry the candidate put together
// with every put already held. A deny is a normal skip, not an error.
func CheckPutCollateral(candidate model.OptionContract, cash decimal.Decimal, heldPuts []model.Position, cfg config.Strategy) RiskCheck {
	existing := decimal.Zero
	for _, p := range heldPuts {
		existing = existing.Add(contractValue(p.Strike, p.Quantity, cfg.ContractMultiplier))
	}
	cost := contractValue(candidate.Strike, 1, cfg.ContractMultiplier)
	required := cfg.MarginRatio.Mul(existing.Add(cost))
	return RiskCheck{
		Existing:  existing,
		Candidate: cost,
		Required:  required,
		Cash:      cash,
		Allowed:   cash.GreaterThanOrEqual(required),
	}
}
