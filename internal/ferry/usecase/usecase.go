package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/goferry/internal/ferry/entity"
	"github.com/shandysiswandi/goferry/internal/pkg/pkgerror"
	"github.com/shandysiswandi/goferry/internal/pkg/pkguid"
)

type Store interface {
	CreateRun(ctx context.Context, meta entity.RunMeta) error
	UpdateMeta(ctx context.Context, runID string, fn func(meta *entity.RunMeta)) error
	AppendResults(ctx context.Context, runID string, results ...entity.TransferResult) error
	GetRun(ctx context.Context, runID string) (entity.RunMeta, entity.ProgressEvent, error)
	ListResults(ctx context.Context, runID string, filter ResultFilter, page, pageSize int) ([]entity.TransferResult, int, entity.RunMeta, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event entity.ProgressEvent) error
}

// Downloader fetches the content behind one link into destDir and reports
// progress along the way. Folder links yield one item per member file.
type Downloader interface {
	Download(ctx context.Context, entry entity.LinkEntry, destDir string, report entity.ProgressFunc) ([]entity.FetchItem, error)
}

// DriveService is the slice of the Drive client the run loop depends on.
type DriveService interface {
	ResolveDrive(ctx context.Context, name string) (string, error)
	EnsureFolder(ctx context.Context, parentID, name string) (entity.SessionFolder, error)
	Upload(ctx context.Context, folderID, localPath string, report entity.ProgressFunc) (string, error)
	DeleteFolder(ctx context.Context, folderID string) error
}

type Runner interface {
	Go(ctx context.Context, f func(ctx context.Context) error)
	GoAfter(ctx context.Context, delay time.Duration, f func(ctx context.Context) error)
}

type Clock interface {
	Now() time.Time
}

type Dependency struct {
	Store       Store
	Events      EventPublisher
	Runner      Runner
	Clock       Clock
	ID          pkguid.StringID
	EventID     pkguid.NumberID
	Downloaders map[entity.Provider]Downloader
	Drive       DriveService
	ScratchDir  string
	RootCtx     context.Context
}

type Usecase struct {
	store       Store
	events      EventPublisher
	runner      Runner
	clock       Clock
	id          pkguid.StringID
	eventID     pkguid.NumberID
	downloaders map[entity.Provider]Downloader
	drive       DriveService
	scratchDir  string
	rootCtx     context.Context
}

func New(dep Dependency) *Usecase {
	root := dep.RootCtx
	if root == nil {
		root = context.Background()
	}

	clock := dep.Clock
	if clock == nil {
		clock = realClock{}
	}

	return &Usecase{
		store:       dep.Store,
		events:      dep.Events,
		runner:      dep.Runner,
		clock:       clock,
		id:          dep.ID,
		eventID:     dep.EventID,
		downloaders: dep.Downloaders,
		drive:       dep.Drive,
		scratchDir:  dep.ScratchDir,
		rootCtx:     root,
	}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (u *Usecase) Submit(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	if u.store == nil || u.id == nil || u.runner == nil || u.drive == nil {
		return SubmitResult{}, pkgerror.NewServer(errors.New("missing dependency"))
	}

	if len(in.Links) == 0 {
		return SubmitResult{}, pkgerror.NewInvalidInput(errors.New("links are required"))
	}
	folder := strings.TrimSpace(in.Folder)
	if folder == "" {
		return SubmitResult{}, pkgerror.NewInvalidInput(errors.New("folder name is required"))
	}
	if in.Drive.Shared && strings.TrimSpace(in.Drive.Name) == "" {
		return SubmitResult{}, pkgerror.NewInvalidInput(errors.New("shared drive name is required"))
	}
	if in.AutoDelete.Enabled && in.AutoDelete.Delay <= 0 {
		return SubmitResult{}, pkgerror.NewInvalidInput(errors.New("auto delete delay must be positive"))
	}

	entries := classifyLinks(in.Links)

	meta := entity.RunMeta{
		ID:         u.id.Generate(),
		Status:     entity.RunStatusQueued,
		Folder:     folder,
		TotalLinks: int64(len(entries)),
	}
	if in.Drive.Shared {
		meta.DriveName = strings.TrimSpace(in.Drive.Name)
	}
	if in.AutoDelete.Enabled {
		meta.AutoDelete = in.AutoDelete.Delay
	}

	if err := u.store.CreateRun(ctx, meta); err != nil {
		return SubmitResult{}, normalizeErr(err)
	}

	u.runner.Go(u.rootCtx, func(ctx context.Context) error {
		if err := u.processRun(ctx, meta, entries); err != nil {
			slog.ErrorContext(ctx, "transfer run failed", "run_id", meta.ID, "error", err)
			return err
		}
		return nil
	})

	return SubmitResult{RunID: meta.ID}, nil
}

func (u *Usecase) Status(ctx context.Context, runID string) (StatusResult, error) {
	if runID == "" {
		return StatusResult{}, pkgerror.NewInvalidInput(errors.New("transfer_id is required"))
	}

	meta, progress, err := u.store.GetRun(ctx, runID)
	if err != nil {
		return StatusResult{}, mapStoreErr(err)
	}

	return StatusResult{
		RunID:    runID,
		Status:   meta.Status,
		Meta:     meta,
		Progress: progress,
	}, nil
}

func (u *Usecase) Results(ctx context.Context, runID string, filter ResultFilter, page, pageSize int) (ResultsResult, error) {
	if runID == "" {
		return ResultsResult{}, pkgerror.NewInvalidInput(errors.New("transfer_id is required"))
	}

	if page < 1 || pageSize < 1 {
		return ResultsResult{}, pkgerror.NewInvalidInput(errors.New("invalid pagination"))
	}

	results, total, meta, err := u.store.ListResults(ctx, runID, filter, page, pageSize)
	if err != nil {
		return ResultsResult{}, mapStoreErr(err)
	}

	return ResultsResult{
		RunID:    runID,
		Status:   meta.Status,
		Results:  results,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}, nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, pkgerror.ErrNotFound) {
		return pkgerror.NewBusiness("transfer run not found", pkgerror.CodeNotFound)
	}
	return normalizeErr(err)
}

func normalizeErr(err error) error {
	var perr *pkgerror.Error
	if errors.As(err, &perr) {
		return perr
	}
	return pkgerror.NewServer(err)
}
