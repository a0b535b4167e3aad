package opt

type Method string

const (
	MethodPrecise     Method = "precise"
	MethodApproximate Method = "approximate"
	MethodManual      Method = "manual"
)

// Savings compares the original and proposed stop order.
type Savings struct {
	OriginalMeters   float64 `json:"originalMeters"`
	OptimizedMeters  float64 `json:"optimizedMeters"`
	OriginalSeconds  float64 `json:"originalSeconds"`
	OptimizedSeconds float64 `json:"optimizedSeconds"`
}

func (s Savings) Meters() float64  { return s.OriginalMeters - s.OptimizedMeters }
func (s Savings) Seconds() float64 { return s.OriginalSeconds - s.OptimizedSeconds }

// Proposal is the part every optimization result carries. Optimized is always a
// permutation of Original.
type Proposal struct {
	DriverID  string
	Date      string
	Original  []string
	Optimized []string
}

// Result is one of PreciseResult, ApproximateResult or ManualResult.
type Result interface {
	Method() Method
	Reliable() bool
	Proposal() Proposal
	isResult()
}

// PreciseResult was computed from mapping-service travel times.
type PreciseResult struct {
	Plan    Proposal
	Savings Savings
}

// ApproximateResult was computed from great-circle distances after the precise source failed.
type ApproximateResult struct {
	Plan    Proposal
	Savings Savings
	Warning string
}

// ManualResult keeps the original order; no distance data was usable.
type ManualResult struct {
	Plan    Proposal
	Warning string
}

func (r PreciseResult) Method() Method     { return MethodPrecise }
func (r PreciseResult) Reliable() bool     { return true }
func (r PreciseResult) Proposal() Proposal { return r.Plan }
func (PreciseResult) isResult()            {}

func (r ApproximateResult) Method() Method     { return MethodApproximate }
func (r ApproximateResult) Reliable() bool     { return false }
func (r ApproximateResult) Proposal() Proposal { return r.Plan }
func (ApproximateResult) isResult()            {}

func (r ManualResult) Method() Method     { return MethodManual }
func (r ManualResult) Reliable() bool     { return false }
func (r ManualResult) Proposal() Proposal { return r.Plan }
func (ManualResult) isResult()            {}
