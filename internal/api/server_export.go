package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/tv_export/internal/controller"
	"github.com/dgnsrekt/tv_export/internal/equity"
)

func registerExportHandlers(api huma.API, svc Service) {
	type exportOutput struct {
		Body controller.ExportStatus
	}

	huma.Register(api, huma.Operation{OperationID: "export-data", Method: http.MethodPost, Path: "/api/v1/exports/data", Summary: "Export an equity series as CSV", Tags: []string{"Exports"}},
		func(ctx context.Context, input *struct {
			Wait bool `query:"wait" doc:"Block until the export finishes and report failures as errors"`
			Body struct {
				Chart         string         `json:"chart" minLength:"1" doc:"Chart slug used in the file name" example:"equity-curve"`
				Series        []equity.Point `json:"series"`
				ShowBenchmark bool           `json:"show_benchmark,omitempty" doc:"Include the Benchmark column"`
			}
		}) (*exportOutput, error) {
			st, err := svc.ExportData(ctx, input.Body.Chart, input.Body.Series, input.Body.ShowBenchmark, input.Wait)
			if err != nil {
				return nil, mapErr(err)
			}
			return &exportOutput{Body: st}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "export-image", Method: http.MethodPost, Path: "/api/v1/exports/image", Summary: "Capture a chart as PNG", Description: "Starts a capture of the chart container. Without wait the response is returned before the capture finishes.", Tags: []string{"Exports"}},
		func(ctx context.Context, input *struct {
			Wait bool `query:"wait" doc:"Block until the export finishes and report failures as errors"`
			Body struct {
				Chart     string `json:"chart" minLength:"1" doc:"Chart slug from the catalog" example:"equity-curve"`
				ElementID string `json:"element_id,omitempty" doc:"Container element id; overrides the catalog entry"`
			}
		}) (*exportOutput, error) {
			st, err := svc.ExportImage(ctx, input.Body.Chart, input.Body.ElementID, input.Wait)
			if err != nil {
				return nil, mapErr(err)
			}
			return &exportOutput{Body: st}, nil
		})
}
