// Package policy implements the risk banding thresholds and the final
// decision state machine, including the unconditional fraud override.
package policy

import (
	"fmt"
	"strings"
	"sync"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Policy maps an approve probability to a risk band and combines it with the
// fraud assessment into a final decision. Thresholds can be updated at
// runtime, so reads go through the mutex.
type Policy struct {
	mu  sync.RWMutex
	cfg domain.PolicyConfig
}

// New creates a policy. Invalid thresholds fall back to the defaults so a
// misconfigured tenant cannot invert the bands.
func New(cfg domain.PolicyConfig) *Policy {
	def := domain.DefaultConfig().Policy
	if cfg.ApproveThreshold <= cfg.RejectThreshold ||
		cfg.ApproveThreshold <= 0 || cfg.ApproveThreshold > 1 ||
		cfg.RejectThreshold < 0 || cfg.RejectThreshold >= 1 {
		cfg = def
	}
	return &Policy{cfg: cfg}
}

// Thresholds returns the active approve and reject thresholds.
func (p *Policy) Thresholds() (approve, reject float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg.ApproveThreshold, p.cfg.RejectThreshold
}

// Update replaces the thresholds at runtime. Unlike New, an invalid pair is
// rejected with an error rather than silently reverted, so callers can
// surface the problem.
func (p *Policy) Update(cfg domain.PolicyConfig) error {
	if cfg.ApproveThreshold <= cfg.RejectThreshold {
		return fmt.Errorf("approve threshold %.2f must exceed reject threshold %.2f", cfg.ApproveThreshold, cfg.RejectThreshold)
	}
	if cfg.ApproveThreshold <= 0 || cfg.ApproveThreshold > 1 || cfg.RejectThreshold < 0 || cfg.RejectThreshold >= 1 {
		return fmt.Errorf("thresholds must lie in [0,1]")
	}
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
	return nil
}

// Band partitions the approve probability: APPROVED at or above the approve
// threshold, REJECTED at or below the reject threshold, MIDDLE in between.
// The partition is total and mutually exclusive for any p in [0,1].
func (p *Policy) Band(approveProbability float64) domain.RiskBand {
	approve, reject := p.Thresholds()
	switch {
	case approveProbability >= approve:
		return domain.BandApproved
	case approveProbability <= reject:
		return domain.BandRejected
	default:
		return domain.BandMiddle
	}
}

// Decide computes the final decision. A fraud BLOCK forces BLOCKED_FRAUD
// unconditionally, regardless of how strong the approve probability is;
// otherwise the band maps 1:1 onto the decision, with MIDDLE becoming
// MANUAL_REVIEW.
func (p *Policy) Decide(band domain.RiskBand, fraud *domain.FraudAssessment) domain.Decision {
	if fraud != nil && fraud.Blocked() {
		return domain.DecisionBlockedFraud
	}
	switch band {
	case domain.BandApproved:
		return domain.DecisionApproved
	case domain.BandRejected:
		return domain.DecisionRejected
	default:
		return domain.DecisionManualReview
	}
}

// Summary builds the one-line human-readable decision summary.
func Summary(decision domain.Decision, pdPercent float64, fraud *domain.FraudAssessment, attrs []domain.FeatureAttribution) string {
	if decision == domain.DecisionBlockedFraud {
		names := "inconsistency"
		if fraud != nil && len(fraud.Flags) > 0 {
			names = strings.Join(fraud.FlagNames(), ", ")
		}
		return fmt.Sprintf("Blocked due to fraud signal: %s. Manual verification required.", names)
	}

	reasons := "key risk factors"
	if len(attrs) > 0 {
		top := attrs
		if len(top) > 3 {
			top = top[:3]
		}
		names := make([]string, 0, len(top))
		for _, a := range top {
			names = append(names, a.Feature)
		}
		reasons = strings.Join(names, ", ")
	}

	switch decision {
	case domain.DecisionApproved:
		return fmt.Sprintf("Approved with low estimated risk (PD %v%%). Key factors: %s.", pdPercent, reasons)
	case domain.DecisionRejected:
		return fmt.Sprintf("Rejected due to high estimated risk (PD %v%%). Main drivers: %s.", pdPercent, reasons)
	default:
		return fmt.Sprintf("Manual review required (PD %v%%). Key signals: %s.", pdPercent, reasons)
	}
}
