package usecase

import (
	"slices"
	"time"

	"github.com/shandysiswandi/goferry/internal/ferry/entity"
)

// LinkInput is one user-submitted link with an optional display name. The
// name only applies to single-file links; folder members keep their own
// names.
type LinkInput struct {
	URL  string
	Name string
}

// DriveTarget selects the destination drive: the personal "My Drive" by
// default, or a shared drive looked up by name.
type DriveTarget struct {
	Shared bool
	Name   string
}

// AutoDelete asks for the session folder to be removed Delay after the run
// finishes.
type AutoDelete struct {
	Enabled bool
	Delay   time.Duration
}

type SubmitInput struct {
	Links      []LinkInput
	Folder     string
	Drive      DriveTarget
	AutoDelete AutoDelete
}

type SubmitResult struct {
	RunID string
}

type StatusResult struct {
	RunID    string
	Status   entity.RunStatus
	Meta     entity.RunMeta
	Progress entity.ProgressEvent
}

type ResultsResult struct {
	RunID    string
	Status   entity.RunStatus
	Results  []entity.TransferResult
	Page     int
	PageSize int
	Total    int
}

type ResultFilter struct {
	Statuses []entity.TransferStatus
	Kinds    []string
}

func (f ResultFilter) Matches(result entity.TransferResult) bool {
	if len(f.Statuses) > 0 {
		ok := slices.Contains(f.Statuses, result.Status)
		if !ok {
			return false
		}
	}

	if len(f.Kinds) > 0 {
		ok := false
		for _, kind := range f.Kinds {
			if result.ErrKind == kind {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	return true
}
