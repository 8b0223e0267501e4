package inbound

import (
	"net/http"

	"github.com/shandysiswandi/goferry/internal/ferry/entity"
)

type TransferLink struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

type TransferDrive struct {
	Shared bool   `json:"shared"`
	Name   string `json:"name,omitempty"`
}

type TransferAutoDelete struct {
	Enabled      bool  `json:"enabled"`
	DelaySeconds int64 `json:"delay_seconds"`
}

type TransferRequest struct {
	Links      []TransferLink     `json:"links"`
	Folder     string             `json:"folder"`
	Drive      TransferDrive      `json:"drive"`
	AutoDelete TransferAutoDelete `json:"auto_delete"`
}

type TransferResponse struct {
	TransferID string `json:"transfer_id"`
}

func (TransferResponse) StatusCode() int {
	return http.StatusAccepted
}

func (TransferResponse) Message() string {
	return "transfer accepted"
}

type Progress struct {
	Source     string       `json:"source"`
	Stage      entity.Stage `json:"stage"`
	Filename   string       `json:"filename,omitempty"`
	Downloaded int64        `json:"downloaded"`
	Total      int64        `json:"total"`
	Fraction   float64      `json:"fraction"`
	SpeedBPS   float64      `json:"speed_bps,omitempty"`
	ETASec     float64      `json:"eta_sec,omitempty"`
	ItemIdx    int          `json:"item_idx,omitempty"`
	ItemCount  int          `json:"item_count,omitempty"`
	Message    string       `json:"message,omitempty"`
}

type TransferStatusResponse struct {
	TransferID string           `json:"transfer_id"`
	Status     entity.RunStatus `json:"status"`
	Folder     string           `json:"folder"`
	FolderLink string           `json:"folder_link,omitempty"`
	Error      string           `json:"error,omitempty"`
	StartedAt  int64            `json:"started_at,omitempty"`
	EndedAt    int64            `json:"ended_at,omitempty"`
	TotalLinks int64            `json:"total_links"`
	Succeeded  int64            `json:"succeeded"`
	Failed     int64            `json:"failed"`
	Progress   *Progress        `json:"progress,omitempty"`
}

type TransferRow struct {
	Name         string                `json:"name"`
	SourceLink   string                `json:"source_link"`
	FolderLink   string                `json:"folder_link,omitempty"`
	ResourceLink string                `json:"resource_link,omitempty"`
	Status       entity.TransferStatus `json:"status"`
	ErrKind      string                `json:"err_kind,omitempty"`
	Err          string                `json:"err,omitempty"`
}

type TransferResultsResponse struct {
	TransferID string           `json:"transfer_id"`
	Status     entity.RunStatus `json:"status"`
	Results    []TransferRow    `json:"results"`
	page       int
	pageSize   int
	total      int
}

func (r TransferResultsResponse) Meta() map[string]any {
	return map[string]any{
		"page":      r.page,
		"page_size": r.pageSize,
		"total":     r.total,
	}
}
