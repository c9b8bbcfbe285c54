package execution

import (
	"context"

	"github.com/Trong-Tra/Clione/internal/domain"
)

// Submitter is the single state-mutating collaborator: it signs and submits
// one venue-formatted order. A returned error means the transport failed; a
// SubmitResult with Success=false means the venue rejected the order. The
// engine never auto-resubmits a failed slice either way.
type Submitter interface {
	SubmitOrder(ctx context.Context, order domain.SliceOrder) (domain.SubmitResult, error)
}
