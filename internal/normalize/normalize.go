// Package normalize maps strategy performance metrics onto a shared 0-100
// scale for multi-axis (radar) comparison. Every axis is scored on its own;
// values are never normalized across axes or across strategies.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Axis names one radar axis.
type Axis string

const (
	AxisReturn       Axis = "Return"
	AxisSharpe       Axis = "Sharpe"
	AxisRisk         Axis = "Risk"
	AxisWinRate      Axis = "WinRate"
	AxisProfitFactor Axis = "ProfitFactor"
)

// Axes lists the fixed axes in output order.
var Axes = []Axis{AxisReturn, AxisSharpe, AxisRisk, AxisWinRate, AxisProfitFactor}

// Scale factors. Changing any of these changes output, not just code.
const (
	returnOffset       = 50.0
	returnScale        = 2.0
	sharpeScale        = 33.33
	riskScale          = 2.0
	profitFactorScale  = 25.0
	scoreMin, scoreMax = 0.0, 100.0
)

// ErrDuplicateStrategy is reported by Validate when two strategies share a name.
var ErrDuplicateStrategy = errors.New("duplicate strategy name")

// StrategyMetrics is one strategy's summary statistics. Percent fields are in
// percent units (12.5 means 12.5%); MaxDrawdown is expected to be negative.
type StrategyMetrics struct {
	Name         string  `json:"name"`
	TotalReturn  float64 `json:"total_return"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
	SortinoRatio float64 `json:"sortino_ratio"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
}

// AxisPoint holds the per-strategy scores for one axis.
type AxisPoint struct {
	Metric Axis
	Scores map[string]float64
}

// MarshalJSON flattens the point into {"metric": "...", "<strategy>": score, ...}.
func (p AxisPoint) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(p.Scores)+1)
	for name, score := range p.Scores {
		m[name] = score
	}
	m["metric"] = p.Metric
	return json.Marshal(m)
}

// Normalize scores every strategy on every axis. Five points are always
// returned, in Axes order, even for an empty input.
func Normalize(strategies []StrategyMetrics) []AxisPoint {
	points := make([]AxisPoint, len(Axes))
	for i, axis := range Axes {
		points[i] = AxisPoint{Metric: axis, Scores: make(map[string]float64, len(strategies))}
	}
	for _, s := range strategies {
		for i, axis := range Axes {
			points[i].Scores[s.Name] = Score(axis, s)
		}
	}
	return points
}

// Score computes one strategy's clamped score on one axis.
func Score(axis Axis, s StrategyMetrics) float64 {
	switch axis {
	case AxisReturn:
		return clamp((s.TotalReturn + returnOffset) * returnScale)
	case AxisSharpe:
		return clamp(s.SharpeRatio * sharpeScale)
	case AxisRisk:
		return clamp(scoreMax + s.MaxDrawdown*riskScale)
	case AxisWinRate:
		return clamp(s.WinRate)
	case AxisProfitFactor:
		return clamp(s.ProfitFactor * profitFactorScale)
	default:
		return scoreMin
	}
}

// clamp bounds x to [0, 100]. NaN scores as 0 so the output range holds for any input.
func clamp(x float64) float64 {
	if math.IsNaN(x) {
		return scoreMin
	}
	return math.Max(scoreMin, math.Min(scoreMax, x))
}

// Validate checks that every strategy has a non-empty name unique within the set.
func Validate(strategies []StrategyMetrics) error {
	seen := make(map[string]struct{}, len(strategies))
	for i, s := range strategies {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return fmt.Errorf("strategies[%d]: name is required", i)
		}
		if name == "metric" {
			return fmt.Errorf("strategies[%d]: name %q is reserved", i, name)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateStrategy, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
