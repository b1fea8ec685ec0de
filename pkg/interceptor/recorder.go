package interceptor

import (
	"corenet/pkg/types"

	"go.uber.org/zap"
)

// Phase tells which pass an interceptor call belongs to.
type Phase string

const (
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

// Call is one observed interceptor invocation.
type Call struct {
	Phase     Phase
	Self      types.NodeID
	Requester types.NodeID
	Results   int // units accumulated when the call happened
	Found     int
	Extracted int
}

// Recorder logs every pass it observes and keeps a trace of them.
type Recorder struct {
	calls  []Call
	logger *zap.Logger
}

func NewRecorder(logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{logger: logger}
}

func (r *Recorder) InterceptRequest(ic *types.Interception) error {
	r.record(PhasePre, ic)
	return nil
}

func (r *Recorder) InterceptRequestLast(ic *types.Interception) error {
	r.record(PhasePost, ic)
	return nil
}

func (r *Recorder) record(phase Phase, ic *types.Interception) {
	call := Call{
		Phase:     phase,
		Self:      nodeID(ic.Self),
		Requester: nodeID(ic.Requester),
		Found:     ic.Request.Found,
		Extracted: ic.Request.Extracted,
	}
	for _, res := range *ic.Results {
		call.Results += res.Quantity
	}
	r.calls = append(r.calls, call)

	r.logger.Info("Request intercepted",
		zap.String("phase", string(phase)),
		zap.String("self", string(call.Self)),
		zap.String("requester", string(call.Requester)),
		zap.Stringer("matcher", ic.Matcher),
		zap.Int("requested", ic.Requested),
		zap.Bool("extract", ic.Extract),
		zap.Int("found", call.Found))
}

// Calls returns the recorded invocations in order.
func (r *Recorder) Calls() []Call {
	return r.calls
}

// Reset drops the recorded trace.
func (r *Recorder) Reset() {
	r.calls = nil
}

func nodeID(n types.Node) types.NodeID {
	if n == nil {
		return ""
	}
	return n.ID()
}
