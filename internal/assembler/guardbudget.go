package assembler

import "github.com/dnavarro/cyclearb/internal/domain"

// PrioritizationFee computes compute_unit_limit * compute_unit_price / 1e6
// lamports, the amount paid to the block producer for priority.
func PrioritizationFee(computeUnitLimit uint32, computeUnitPrice uint64) uint64 {
	return uint64(computeUnitLimit) * computeUnitPrice / 1_000_000
}

// GuardBudgetDecorator raises ctx.GuardRequired to the base transaction fee
// plus either the chosen tip or the prioritization fee, depending on
// ctx.PrioritizationFeeDriven. It emits no instructions of its own — the
// resulting bound is enforced downstream by ProfitGuardDecorator.
var GuardBudgetDecorator = Decorator{
	Name: "guard_budget",
	Run: func(ctx *AssemblyContext, bundle *domain.InstructionBundle) error {
		extra := ctx.Opportunity.TipLamports
		if ctx.PrioritizationFeeDriven {
			extra = PrioritizationFee(ctx.ComputeUnitLimit, ctx.ComputeUnitPrice)
		}
		ctx.GuardRequired = ctx.BaseTxFee + extra
		return nil
	},
}
