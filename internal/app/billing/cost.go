package billing

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"spotbroker/internal/common"
	"spotbroker/internal/domain/model"
)

// CostVariables is the only data a cost expression can see.
// Times are in seconds.
type CostVariables struct {
	WaitingTime           float64        `expr:"waiting_time"`
	RunningTime           float64        `expr:"running_time"`
	KilledBy              string         `expr:"killed_by"`
	SpotPrice             float64        `expr:"spot_price"`
	CanRebuy              bool           `expr:"can_rebuy"`
	TimesRebought         int            `expr:"times_rebought"`
	ProviderData          map[string]any `expr:"provider_data"`
	ProviderScriptOutputs map[string]any `expr:"provider_script_outputs"`
	UserScriptOutputs     map[string]any `expr:"user_script_outputs"`
}

func NewCostVariables(req ChargeRequest) CostVariables {
	return CostVariables{
		WaitingTime:   req.WaitingTime.Seconds(),
		RunningTime:   req.RunningTime.Seconds(),
		KilledBy:      string(req.Reason),
		SpotPrice:     req.SpotCost,
		CanRebuy:      req.Reason == model.KilledByNone,
		TimesRebought: req.RebuyCount,
		ProviderData: map[string]any{
			"spot_price": req.SpotCost,
		},
		ProviderScriptOutputs: map[string]any{
			"correct": true,
		},
		UserScriptOutputs: map[string]any{},
	}
}

// CostExpression is a compiled resource cost formula, e.g. "spot_price" or
// "running_time > 60 ? spot_price * 1.1 : spot_price".
type CostExpression struct {
	source  string
	program *vm.Program
}

// CompileCost type-checks source against CostVariables. Builtin functions
// are disabled, leaving arithmetic, comparisons and field access.
func CompileCost(source string) (*CostExpression, error) {
	program, err := expr.Compile(source,
		expr.Env(CostVariables{}),
		expr.AsFloat64(),
		expr.DisableAllBuiltins(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid cost expression %q: %v: %w", source, err, common.ErrValidation)
	}
	return &CostExpression{source: source, program: program}, nil
}

func (c *CostExpression) String() string {
	return c.source
}

// Amount evaluates the expression for one charge request.
func (c *CostExpression) Amount(req ChargeRequest) (float64, error) {
	out, err := expr.Run(c.program, NewCostVariables(req))
	if err != nil {
		return 0, fmt.Errorf("evaluate cost %q: %w", c.source, err)
	}
	amount, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("cost %q evaluated to %T, want float64", c.source, out)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return 0, fmt.Errorf("cost %q evaluated to invalid amount %v", c.source, amount)
	}
	return amount, nil
}
