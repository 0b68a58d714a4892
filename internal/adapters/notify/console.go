// Package notify implements ports.Notifier over a console writer: a
// compact one-line summary by default, or a full tablewriter table when
// configured. Grounded on the teacher's internal/adapters/notify/console.go
// compact-vs-table split, generalized from market opportunities to swap
// opportunities.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/dnavarro/cyclearb/internal/domain"
)

// Console implements ports.Notifier, writing to an io.Writer.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole creates a notifier writing to stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter creates a notifier writing to w, for tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify prints the given opportunities in the configured mode.
func (c *Console) Notify(_ context.Context, opportunities []domain.SwapOpportunity) error {
	if len(opportunities) == 0 {
		fmt.Fprintf(c.out, "[%s] no opportunities\n", time.Now().Format("15:04:05"))
		return nil
	}
	if c.table {
		c.printTable(opportunities)
	} else {
		c.printCompact(opportunities)
	}
	return nil
}

func (c *Console) printCompact(opps []domain.SwapOpportunity) {
	now := time.Now().Format("15:04:05")
	for _, opp := range opps {
		provider := "multi"
		if opp.MergedQuote != nil {
			provider = opp.MergedQuote.Forward.ProviderTag
		}
		fmt.Fprintf(c.out, "[%s] %s provider=%s gross=%d tip=%d(%s) net=%d\n",
			now, opp.Pair.String(), provider,
			opp.ProfitLamports, opp.TipLamports, opp.TipStrategy, opp.NetProfit())
	}
}

func (c *Console) printTable(opps []domain.SwapOpportunity) {
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Pair", "Amount In", "Gross", "Tip", "Tip Strategy", "Net")

	for i, opp := range opps {
		table.Append(
			fmt.Sprintf("%d", i+1),
			opp.Pair.String(),
			fmt.Sprintf("%d", opp.AmountIn),
			fmt.Sprintf("%d", opp.ProfitLamports),
			fmt.Sprintf("%d", opp.TipLamports),
			string(opp.TipStrategy),
			fmt.Sprintf("%d", opp.NetProfit()),
		)
	}
	table.Render()
}
