package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/tv_export/internal/config"
	"github.com/dgnsrekt/tv_export/internal/equity"
	"github.com/dgnsrekt/tv_export/internal/normalize"
)

type strategyInput struct {
	Name         string  `json:"name" minLength:"1" doc:"Strategy display name, unique within the request"`
	TotalReturn  float64 `json:"total_return,omitempty" doc:"Total return in percent"`
	SharpeRatio  float64 `json:"sharpe_ratio,omitempty"`
	SortinoRatio float64 `json:"sortino_ratio,omitempty"`
	MaxDrawdown  float64 `json:"max_drawdown,omitempty" doc:"Maximum drawdown in percent, negative"`
	WinRate      float64 `json:"win_rate,omitempty" doc:"Win rate in percent"`
	ProfitFactor float64 `json:"profit_factor,omitempty"`
}

func (s strategyInput) metrics() normalize.StrategyMetrics {
	return normalize.StrategyMetrics{
		Name:         s.Name,
		TotalReturn:  s.TotalReturn,
		SharpeRatio:  s.SharpeRatio,
		SortinoRatio: s.SortinoRatio,
		MaxDrawdown:  s.MaxDrawdown,
		WinRate:      s.WinRate,
		ProfitFactor: s.ProfitFactor,
	}
}

func registerMiscHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	type listChartsOutput struct {
		Body struct {
			Charts []config.Chart `json:"charts"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-charts", Method: http.MethodGet, Path: "/api/v1/charts", Summary: "List exportable charts", Tags: []string{"Charts"}},
		func(ctx context.Context, input *struct{}) (*listChartsOutput, error) {
			out := &listChartsOutput{}
			out.Body.Charts = svc.ListCharts(ctx)
			if out.Body.Charts == nil {
				out.Body.Charts = []config.Chart{}
			}
			return out, nil
		})

	type normalizeOutput struct {
		Body struct {
			Points []normalize.AxisPoint `json:"points"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "normalize-metrics", Method: http.MethodPost, Path: "/api/v1/metrics/normalize", Summary: "Score strategies on the radar axes", Description: "Returns one point per axis (Return, Sharpe, Risk, WinRate, ProfitFactor), each mapping strategy name to a score in [0, 100].", Tags: []string{"Metrics"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Strategies []strategyInput `json:"strategies"`
			}
		}) (*normalizeOutput, error) {
			metrics := make([]normalize.StrategyMetrics, len(input.Body.Strategies))
			for i, s := range input.Body.Strategies {
				metrics[i] = s.metrics()
			}
			points, err := svc.Normalize(ctx, metrics)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &normalizeOutput{}
			out.Body.Points = points
			return out, nil
		})

	type formatOutput struct {
		Body struct {
			Currency string         `json:"currency"`
			Labels   []equity.Label `json:"labels"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "format-equity", Method: http.MethodPost, Path: "/api/v1/equity/format", Summary: "Format an equity series for display", Tags: []string{"Equity"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Series []equity.Point `json:"series"`
			}
		}) (*formatOutput, error) {
			out := &formatOutput{}
			out.Body.Currency, out.Body.Labels = svc.FormatSeries(ctx, input.Body.Series)
			return out, nil
		})
}
