package backtest

import "sync"

// RiskGuard admits new entries against a portfolio-level open-risk
// ceiling. It is the single point where one instrument's state affects
// another's admission decision; everything else in a run is local.
type RiskGuard interface {
	// TryReserve attempts to add risk for an entry; false rejects it.
	TryReserve(instrument string, risk float64) bool

	// Release returns a closed trade's risk to the pool.
	Release(instrument string, risk float64)
}

// UnlimitedGuard admits everything. Single-instrument runs use it.
type UnlimitedGuard struct{}

// TryReserve implements RiskGuard.
func (UnlimitedGuard) TryReserve(string, float64) bool { return true }

// Release implements RiskGuard.
func (UnlimitedGuard) Release(string, float64) {}

// CeilingGuard caps the summed open risk across instruments that share
// it. The portfolio scan that feeds it is serialized by simulated
// time; the lock only keeps the counter safe if a caller ever shares
// one guard across goroutines.
type CeilingGuard struct {
	mu      sync.Mutex
	ceiling float64
	open    float64
}

// NewCeilingGuard creates a guard with the given total open-risk
// ceiling in account currency.
func NewCeilingGuard(ceiling float64) *CeilingGuard {
	return &CeilingGuard{ceiling: ceiling}
}

// TryReserve implements RiskGuard.
func (g *CeilingGuard) TryReserve(_ string, risk float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open+risk > g.ceiling {
		return false
	}
	g.open += risk
	return true
}

// Release implements RiskGuard.
func (g *CeilingGuard) Release(_ string, risk float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open -= risk
	if g.open < 0 {
		g.open = 0
	}
}

// OpenRisk returns the currently reserved risk.
func (g *CeilingGuard) OpenRisk() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

var (
	_ RiskGuard = UnlimitedGuard{}
	_ RiskGuard = (*CeilingGuard)(nil)
)
