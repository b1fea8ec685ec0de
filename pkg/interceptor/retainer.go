// Package interceptor holds interceptors that can be sited in a network.
package interceptor

import (
	"errors"

	"corenet/pkg/signal"
	"corenet/pkg/types"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

var ErrNothingRetained = errors.New("no request retained")

// Requester issues network requests. *coordinator.Coordinator implements it.
type Requester interface {
	Request(m types.Matcher, quantity int, node types.Node, extract bool) ([]types.Resource, error)
}

// Retained is the request a Retainer remembers.
type Retained struct {
	Matcher   types.Matcher
	Requested int
	Requester types.Node
	Delivered int
}

// Satisfied reports whether the retained request got everything it asked for.
func (r Retained) Satisfied() bool {
	return r.Requested >= 0 && r.Delivered >= r.Requested
}

// Retainer remembers the last extraction that passed through its network so
// it can be reported as a signal or issued again.
type Retainer struct {
	retained *Retained
	logger   *zap.Logger
}

func NewRetainer(logger *zap.Logger) *Retainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retainer{logger: logger}
}

func (r *Retainer) InterceptRequest(ic *types.Interception) error {
	return nil
}

// InterceptRequestLast retains extractions. Counting requests are ignored.
func (r *Retainer) InterceptRequestLast(ic *types.Interception) error {
	if !ic.Extract {
		return nil
	}

	delivered := lo.SumBy(*ic.Results, func(res types.Resource) int {
		return res.Quantity
	})
	r.retained = &Retained{
		Matcher:   ic.Matcher,
		Requested: ic.Requested,
		Requester: ic.Requester,
		Delivered: delivered,
	}

	r.logger.Debug("Retained request",
		zap.Stringer("matcher", ic.Matcher),
		zap.Int("requested", ic.Requested),
		zap.Int("delivered", delivered))
	return nil
}

// Retained returns the remembered request.
func (r *Retainer) Retained() (Retained, bool) {
	if r.retained == nil {
		return Retained{}, false
	}
	return *r.retained, true
}

// Signal returns the signal level of the retained request size.
func (r *Retainer) Signal() int {
	if r.retained == nil {
		return 0
	}
	return signal.Strength(r.retained.Requested)
}

// Forget drops the retained request.
func (r *Retainer) Forget() {
	r.retained = nil
}

// Replay issues the retained request again from its original requester. The
// replay passes through the network like any request, so the retainer
// updates itself with the new outcome.
func (r *Retainer) Replay(c Requester) ([]types.Resource, error) {
	if r.retained == nil {
		return nil, ErrNothingRetained
	}
	retained := *r.retained
	return c.Request(retained.Matcher, retained.Requested, retained.Requester, true)
}
