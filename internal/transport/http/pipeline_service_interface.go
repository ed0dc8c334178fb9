package http

import (
	"context"
	"io"

	"tradepulse/internal/dataset"
	"tradepulse/internal/services"
)

// PipelineServiceInterface defines what the handlers need from the pipeline
// service; tests substitute a stub.
type PipelineServiceInterface interface {
	LoadUpload(ctx context.Context, r io.Reader, filename string) (services.DatasetInfo, error)
	LoadRemote(ctx context.Context, rawURL, sheetName string) (services.DatasetInfo, error)
	Reset(ctx context.Context)
	Info() (services.DatasetInfo, error)
	Preview(n int) (*dataset.Table, error)
	Options() (services.FilterOptions, error)
	Table(filters dataset.Selection) (*dataset.Table, error)
	Aggregate(ctx context.Context, req services.AggregateRequest) (*dataset.AggregateResult, error)
	Pivot(ctx context.Context, req services.PivotRequest) (*dataset.Pivot, error)
	Derive(ctx context.Context, req services.DeriveRequest) (*services.DeriveResult, error)
}
