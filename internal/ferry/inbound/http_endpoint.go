package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shandysiswandi/goferry/internal/ferry/entity"
	"github.com/shandysiswandi/goferry/internal/ferry/usecase"
	"github.com/shandysiswandi/goferry/internal/pkg/pkgerror"
	"github.com/shandysiswandi/goferry/internal/pkg/pkgrouter"
)

type HTTPEndpoint struct {
	uc uc
}

func (h *HTTPEndpoint) CreateTransfer(ctx context.Context, r *http.Request) (any, error) {
	if r.Body == nil {
		return nil, pkgerror.NewInvalidInput(errors.New("empty request body"))
	}

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, pkgerror.NewInvalidInput(errors.New("malformed request body"))
	}

	links := make([]usecase.LinkInput, 0, len(req.Links))
	for _, link := range req.Links {
		links = append(links, usecase.LinkInput{URL: link.URL, Name: link.Name})
	}

	result, err := h.uc.Submit(ctx, usecase.SubmitInput{
		Links:  links,
		Folder: req.Folder,
		Drive:  usecase.DriveTarget{Shared: req.Drive.Shared, Name: req.Drive.Name},
		AutoDelete: usecase.AutoDelete{
			Enabled: req.AutoDelete.Enabled,
			Delay:   time.Duration(req.AutoDelete.DelaySeconds) * time.Second,
		},
	})
	if err != nil {
		return nil, err
	}

	return TransferResponse{TransferID: result.RunID}, nil
}

func (h *HTTPEndpoint) TransferStatus(ctx context.Context, r *http.Request) (any, error) {
	result, err := h.uc.Status(ctx, pkgrouter.GetParam(ctx, "id"))
	if err != nil {
		return nil, err
	}

	resp := TransferStatusResponse{
		TransferID: result.RunID,
		Status:     result.Status,
		Folder:     result.Meta.Folder,
		FolderLink: result.Meta.FolderLink,
		Error:      result.Meta.Err,
		StartedAt:  result.Meta.StartedAt,
		EndedAt:    result.Meta.EndedAt,
		TotalLinks: result.Meta.TotalLinks,
		Succeeded:  result.Meta.Succeeded,
		Failed:     result.Meta.Failed,
	}
	if result.Progress.EventID != 0 {
		resp.Progress = toHTTPProgress(result.Progress)
	}

	return resp, nil
}

func (h *HTTPEndpoint) TransferResults(ctx context.Context, r *http.Request) (any, error) {
	query := r.URL.Query()

	page, pageSize, err := parsePagination(query.Get("page"), query.Get("page_size"))
	if err != nil {
		return nil, err
	}

	filter, err := parseResultFilter(query.Get("status"), query.Get("kind"))
	if err != nil {
		return nil, err
	}

	result, err := h.uc.Results(ctx, pkgrouter.GetParam(ctx, "id"), filter, page, pageSize)
	if err != nil {
		return nil, err
	}

	rows := make([]TransferRow, 0, len(result.Results))
	for _, row := range result.Results {
		rows = append(rows, toHTTPRow(row))
	}

	return TransferResultsResponse{
		TransferID: result.RunID,
		Status:     result.Status,
		Results:    rows,
		page:       result.Page,
		pageSize:   result.PageSize,
		total:      result.Total,
	}, nil
}

func parsePagination(pageRaw, sizeRaw string) (int, int, error) {
	page := 1
	pageSize := 10

	if pageRaw != "" {
		value, err := strconv.Atoi(pageRaw)
		if err != nil || value < 1 {
			return 0, 0, pkgerror.NewInvalidInput(errors.New("invalid page"))
		}
		page = value
	}

	if sizeRaw != "" {
		value, err := strconv.Atoi(sizeRaw)
		if err != nil || value < 1 {
			return 0, 0, pkgerror.NewInvalidInput(errors.New("invalid page_size"))
		}
		if value > 100 {
			value = 100
		}
		pageSize = value
	}

	return page, pageSize, nil
}

func parseResultFilter(statusRaw, kindRaw string) (usecase.ResultFilter, error) {
	filter := usecase.ResultFilter{}

	if statusRaw != "" {
		statuses := strings.Split(statusRaw, ",")
		for _, value := range statuses {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			status, err := parseStatus(value)
			if err != nil {
				return filter, err
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	if kindRaw != "" {
		kinds := strings.Split(kindRaw, ",")
		for _, value := range kinds {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			kind, err := parseKind(value)
			if err != nil {
				return filter, err
			}
			filter.Kinds = append(filter.Kinds, kind)
		}
	}

	return filter, nil
}

func parseStatus(value string) (entity.TransferStatus, error) {
	switch strings.ToUpper(value) {
	case string(entity.TransferStatusUploaded):
		return entity.TransferStatusUploaded, nil
	case string(entity.TransferStatusFailed):
		return entity.TransferStatusFailed, nil
	default:
		return "", pkgerror.NewInvalidInput(errors.New("invalid status filter"))
	}
}

// parseKind accepts both the short form ("NOT_FOUND") and the full code
// string ("ERROR_CODE_NOT_FOUND").
func parseKind(value string) (string, error) {
	kind := strings.ToUpper(value)
	if !strings.HasPrefix(kind, "ERROR_CODE_") {
		kind = "ERROR_CODE_" + kind
	}

	switch kind {
	case pkgerror.CodeInvalidLink.String(),
		pkgerror.CodeNotFound.String(),
		pkgerror.CodeDecryption.String(),
		pkgerror.CodeRateLimited.String(),
		pkgerror.CodeNetwork.String(),
		pkgerror.CodeAuth.String(),
		pkgerror.CodeQuota.String(),
		pkgerror.CodeUnknown.String():
		return kind, nil
	default:
		return "", pkgerror.NewInvalidInput(errors.New("invalid kind filter"))
	}
}

func toHTTPRow(result entity.TransferResult) TransferRow {
	return TransferRow{
		Name:         result.Name,
		SourceLink:   result.SourceLink,
		FolderLink:   result.FolderLink,
		ResourceLink: result.ResourceLink,
		Status:       result.Status,
		ErrKind:      result.ErrKind,
		Err:          result.Err,
	}
}

func toHTTPProgress(event entity.ProgressEvent) *Progress {
	return &Progress{
		Source:     event.Source,
		Stage:      event.Stage,
		Filename:   event.Filename,
		Downloaded: event.Downloaded,
		Total:      event.Total,
		Fraction:   event.Fraction(),
		SpeedBPS:   event.SpeedBPS,
		ETASec:     event.ETASec,
		ItemIdx:    event.ItemIdx,
		ItemCount:  event.ItemCount,
		Message:    event.Message,
	}
}
