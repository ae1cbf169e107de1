package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgnsrekt/tv_export/internal/artifact"
	"github.com/dgnsrekt/tv_export/internal/config"
	"github.com/dgnsrekt/tv_export/internal/controller"
	"github.com/dgnsrekt/tv_export/internal/equity"
	"github.com/dgnsrekt/tv_export/internal/normalize"
)

type Service interface {
	ListCharts(ctx context.Context) []config.Chart
	Normalize(ctx context.Context, strategies []normalize.StrategyMetrics) ([]normalize.AxisPoint, error)
	FormatSeries(ctx context.Context, series []equity.Point) (string, []equity.Label)
	ExportData(ctx context.Context, chart string, series []equity.Point, showBenchmark, wait bool) (controller.ExportStatus, error)
	ExportImage(ctx context.Context, chart, elementID string, wait bool) (controller.ExportStatus, error)
	ListArtifacts(ctx context.Context) ([]artifact.Meta, error)
	GetArtifact(ctx context.Context, id string) (artifact.Meta, error)
	ReadArtifact(ctx context.Context, id string) ([]byte, artifact.Meta, error)
	DeleteArtifact(ctx context.Context, id string) error
}

func NewServer(svc Service) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Chart Export API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})

	registerMiscHandlers(api, svc)
	registerExportHandlers(api, svc)
	registerArtifactHandlers(api, svc)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *controller.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case controller.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case controller.CodeChartNotFound, controller.CodeArtifactNotFound:
			return huma.Error404NotFound(coded.Message)
		case controller.CodeEmptyInput:
			return huma.Error422UnprocessableEntity(coded.Message)
		case controller.CodeElementNotFound:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
