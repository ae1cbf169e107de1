package controller

import (
	"context"
	"errors"
	"strings"

	"github.com/dgnsrekt/tv_export/internal/artifact"
	"github.com/dgnsrekt/tv_export/internal/config"
	"github.com/dgnsrekt/tv_export/internal/equity"
	"github.com/dgnsrekt/tv_export/internal/exportctl"
	"github.com/dgnsrekt/tv_export/internal/normalize"
	"github.com/dgnsrekt/tv_export/internal/raster"
	"github.com/dgnsrekt/tv_export/internal/tabular"
)

// Exporter runs chart exports. exportctl.Controller implements it.
type Exporter interface {
	ExportImage(ctx context.Context, req exportctl.ImageRequest) <-chan exportctl.Outcome
	ExportData(ctx context.Context, req exportctl.DataRequest) exportctl.Outcome
}

// ArtifactStore is the read side of the artifact sink. artifact.Store implements it.
type ArtifactStore interface {
	List() ([]artifact.Meta, error)
	Get(id string) (artifact.Meta, error)
	Read(id string) ([]byte, artifact.Meta, error)
	Delete(id string) error
}

// Service validates API input and drives exports, normalization and formatting.
type Service struct {
	exports   Exporter
	artifacts ArtifactStore
	catalog   *config.Catalog
	formatter equity.Formatter
}

func NewService(exports Exporter, artifacts ArtifactStore, catalog *config.Catalog, formatter equity.Formatter) *Service {
	if catalog == nil {
		catalog = &config.Catalog{}
	}
	return &Service{exports: exports, artifacts: artifacts, catalog: catalog, formatter: formatter}
}

func (s *Service) requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return newError(CodeValidation, fieldName+" is required", nil)
	}
	return nil
}

// ExportStatus is the API view of an export.
type ExportStatus struct {
	Kind     exportctl.Kind `json:"kind"`
	Filename string         `json:"filename"`
	Status   string         `json:"status"`
	Error    string         `json:"error,omitempty"`
}

func statusOf(out exportctl.Outcome) ExportStatus {
	st := ExportStatus{Kind: out.Kind, Filename: out.Filename, Status: out.Status()}
	if out.Err != nil {
		st.Error = out.Err.Error()
	}
	return st
}

func (s *Service) ListCharts(ctx context.Context) []config.Chart {
	out := make([]config.Chart, len(s.catalog.Charts))
	copy(out, s.catalog.Charts)
	return out
}

func (s *Service) Normalize(ctx context.Context, strategies []normalize.StrategyMetrics) ([]normalize.AxisPoint, error) {
	if err := normalize.Validate(strategies); err != nil {
		return nil, newError(CodeValidation, err.Error(), err)
	}
	return normalize.Normalize(strategies), nil
}

// FormatSeries returns display labels for every point. Formatting never fails.
func (s *Service) FormatSeries(ctx context.Context, series []equity.Point) (string, []equity.Label) {
	return s.formatter.Code(), s.formatter.Labels(series)
}

// ExportData serializes series to CSV under the chart's slug. With wait set,
// a failed outcome is returned as a CodedError; otherwise it is only reported
// in the status.
func (s *Service) ExportData(ctx context.Context, chart string, series []equity.Point, showBenchmark, wait bool) (ExportStatus, error) {
	if err := s.requireNonEmpty(chart, "chart"); err != nil {
		return ExportStatus{}, err
	}
	out := s.exports.ExportData(ctx, exportctl.DataRequest{
		Slug:          strings.TrimSpace(chart),
		Series:        series,
		ShowBenchmark: showBenchmark,
	})
	if wait && out.Err != nil {
		return statusOf(out), mapOutcomeErr(out.Err)
	}
	return statusOf(out), nil
}

// ExportImage captures the chart's container. Without wait it returns a
// pending status as soon as the capture has started.
func (s *Service) ExportImage(ctx context.Context, chart, elementID string, wait bool) (ExportStatus, error) {
	if err := s.requireNonEmpty(chart, "chart"); err != nil {
		return ExportStatus{}, err
	}
	chart = strings.TrimSpace(chart)
	elementID = strings.TrimSpace(elementID)
	if elementID == "" {
		c, err := s.catalog.Lookup(chart)
		if err != nil {
			return ExportStatus{}, newError(CodeChartNotFound, err.Error(), err)
		}
		elementID = c.ElementID
	}

	done := s.exports.ExportImage(ctx, exportctl.ImageRequest{Slug: chart, ElementID: elementID})
	if !wait {
		return ExportStatus{Kind: exportctl.KindImage, Status: "pending"}, nil
	}

	select {
	case out, ok := <-done:
		if !ok {
			return ExportStatus{Kind: exportctl.KindImage}, newError(CodeExportFailed, "export finished without an outcome", nil)
		}
		if out.Err != nil {
			return statusOf(out), mapOutcomeErr(out.Err)
		}
		return statusOf(out), nil
	case <-ctx.Done():
		return ExportStatus{Kind: exportctl.KindImage, Status: "pending"}, newError(CodeExportFailed, "gave up waiting for capture", ctx.Err())
	}
}

func mapOutcomeErr(err error) error {
	switch {
	case errors.Is(err, tabular.ErrEmptyInput):
		return newError(CodeEmptyInput, "no data to export", err)
	case errors.Is(err, raster.ErrElementNotFound):
		return newError(CodeElementNotFound, "chart container is not mounted", err)
	default:
		return newError(CodeExportFailed, "export failed", err)
	}
}

// --- Artifact methods ---

func (s *Service) ListArtifacts(ctx context.Context) ([]artifact.Meta, error) {
	metas, err := s.artifacts.List()
	if err != nil {
		return nil, newError(CodeExportFailed, "list artifacts", err)
	}
	return metas, nil
}

func (s *Service) GetArtifact(ctx context.Context, id string) (artifact.Meta, error) {
	if err := s.requireNonEmpty(id, "artifact_id"); err != nil {
		return artifact.Meta{}, err
	}
	meta, err := s.artifacts.Get(strings.TrimSpace(id))
	if err != nil {
		return artifact.Meta{}, mapArtifactErr(err)
	}
	return meta, nil
}

func (s *Service) ReadArtifact(ctx context.Context, id string) ([]byte, artifact.Meta, error) {
	if err := s.requireNonEmpty(id, "artifact_id"); err != nil {
		return nil, artifact.Meta{}, err
	}
	data, meta, err := s.artifacts.Read(strings.TrimSpace(id))
	if err != nil {
		return nil, artifact.Meta{}, mapArtifactErr(err)
	}
	return data, meta, nil
}

func (s *Service) DeleteArtifact(ctx context.Context, id string) error {
	if err := s.requireNonEmpty(id, "artifact_id"); err != nil {
		return err
	}
	if err := s.artifacts.Delete(strings.TrimSpace(id)); err != nil {
		return mapArtifactErr(err)
	}
	return nil
}

func mapArtifactErr(err error) error {
	switch {
	case errors.Is(err, artifact.ErrInvalidID):
		return newError(CodeValidation, err.Error(), err)
	case errors.Is(err, artifact.ErrNotFound):
		return newError(CodeArtifactNotFound, err.Error(), err)
	default:
		return newError(CodeExportFailed, "artifact store", err)
	}
}
