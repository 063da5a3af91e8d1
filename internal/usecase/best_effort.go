package usecase

import "go.uber.org/zap"

// bestEffort runs a write whose failure is observability loss, not a
// correctness problem: report and keep going, never propagate. Keeping this
// explicit (instead of dropped errors scattered around) makes every
// non-critical side effect visible at its call site.
func bestEffort(logger *zap.Logger, step string, fn func() error) {
	if err := fn(); err != nil {
		logger.Warn("best-effort step failed", zap.String("step", step), zap.Error(err))
	}
}
