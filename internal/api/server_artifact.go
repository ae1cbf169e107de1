package api

import (
	"context"
	"mime"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/tv_export/internal/artifact"
)

func registerArtifactHandlers(api huma.API, svc Service) {
	type listArtifactsOutput struct {
		Body struct {
			Artifacts []artifact.Meta `json:"artifacts"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-artifacts", Method: http.MethodGet, Path: "/api/v1/artifacts", Summary: "List saved artifacts", Tags: []string{"Artifacts"}},
		func(ctx context.Context, input *struct{}) (*listArtifactsOutput, error) {
			metas, err := svc.ListArtifacts(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listArtifactsOutput{}
			out.Body.Artifacts = metas
			if out.Body.Artifacts == nil {
				out.Body.Artifacts = []artifact.Meta{}
			}
			return out, nil
		})

	type artifactIDInput struct {
		ArtifactID string `path:"artifact_id"`
	}
	type getArtifactOutput struct {
		Body artifact.Meta
	}
	huma.Register(api, huma.Operation{OperationID: "get-artifact-metadata", Method: http.MethodGet, Path: "/api/v1/artifacts/{artifact_id}/metadata", Summary: "Get artifact metadata", Tags: []string{"Artifacts"}},
		func(ctx context.Context, input *artifactIDInput) (*getArtifactOutput, error) {
			meta, err := svc.GetArtifact(ctx, input.ArtifactID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &getArtifactOutput{Body: meta}, nil
		})

	type downloadOutput struct {
		ContentType        string `header:"Content-Type"`
		ContentDisposition string `header:"Content-Disposition"`
		Body               []byte
	}
	huma.Register(api, huma.Operation{
		OperationID: "download-artifact",
		Method:      http.MethodGet,
		Path:        "/api/v1/artifacts/{artifact_id}/download",
		Summary:     "Download artifact",
		Tags:        []string{"Artifacts"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Artifact payload",
				Content: map[string]*huma.MediaType{
					"text/csv": {
						Schema: &huma.Schema{Type: "string"},
					},
					"image/png": {
						Schema: &huma.Schema{Type: "string", Format: "binary"},
					},
				},
			},
		},
	}, func(ctx context.Context, input *artifactIDInput) (*downloadOutput, error) {
		data, meta, err := svc.ReadArtifact(ctx, input.ArtifactID)
		if err != nil {
			return nil, mapErr(err)
		}
		return &downloadOutput{
			ContentType:        meta.Kind.ContentType(),
			ContentDisposition: mime.FormatMediaType("attachment", map[string]string{"filename": meta.Filename}),
			Body:               data,
		}, nil
	})

	type deleteArtifactOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "delete-artifact", Method: http.MethodDelete, Path: "/api/v1/artifacts/{artifact_id}", Summary: "Delete artifact", Tags: []string{"Artifacts"}},
		func(ctx context.Context, input *artifactIDInput) (*deleteArtifactOutput, error) {
			if err := svc.DeleteArtifact(ctx, input.ArtifactID); err != nil {
				return nil, mapErr(err)
			}
			out := &deleteArtifactOutput{}
			out.Body.Status = "deleted"
			return out, nil
		})
}
