package ports

import (
	"context"

	"github.com/dnavarro/cyclearb/internal/domain"
)

// Notifier presents landed or dry-run opportunities to the operator. The
// console implementation renders a formatted table.
type Notifier interface {
	Notify(ctx context.Context, opportunities []domain.SwapOpportunity) error
}
