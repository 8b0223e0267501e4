package inbound

import (
	"context"

	"github.com/shandysiswandi/goferry/internal/ferry/usecase"
	"github.com/shandysiswandi/goferry/internal/pkg/pkgrouter"
)

type uc interface {
	Submit(ctx context.Context, in usecase.SubmitInput) (usecase.SubmitResult, error)
	Status(ctx context.Context, runID string) (usecase.StatusResult, error)
	Results(ctx context.Context, runID string, filter usecase.ResultFilter, page, pageSize int) (usecase.ResultsResult, error)
}

func RegisterHTTPEndpoint(r *pkgrouter.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/v1/transfers", end.CreateTransfer)

	r.GET("/v1/transfers/:id", end.TransferStatus)
	r.GET("/v1/transfers/:id/results", end.TransferResults) // ?status=&kind=&page=&page_size=
}
