package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shandysiswandi/goferry/internal/ferry/entity"
	"github.com/shandysiswandi/goferry/internal/pkg/pkgerror"
	"github.com/shandysiswandi/goferry/internal/pkg/pkglog"
)

// runSession memoizes the session folder for one run. The folder is created
// lazily on the first upload, so a run whose downloads all fail never
// touches Drive. Failures are not memoized: every affected entry reports
// the current error.
type runSession struct {
	folder entity.SessionFolder
	ready  bool
}

func (u *Usecase) processRun(ctx context.Context, meta entity.RunMeta, entries []entity.LinkEntry) error {
	ctx = pkglog.SetRunID(ctx, meta.ID)

	startedAt := u.clock.Now().Unix()
	if err := u.store.UpdateMeta(ctx, meta.ID, func(m *entity.RunMeta) {
		m.Status = entity.RunStatusProcessing
		m.StartedAt = startedAt
	}); err != nil {
		return err
	}

	scratch, err := u.makeScratch(meta.ID)
	if err != nil {
		return u.failRun(ctx, meta, entries, pkgerror.NewServer(err))
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			slog.WarnContext(ctx, "failed to remove scratch directory", "dir", scratch, "error", err)
		}
	}()

	report := u.reporter(ctx, meta.ID)
	session := &runSession{}

	var succeeded, failed int64
	for i, entry := range entries {
		var results []entity.TransferResult
		if err := ctx.Err(); err != nil {
			results = []entity.TransferResult{failedResult(entry, pkgerror.NewServer(err))}
		} else {
			results = u.processEntry(ctx, meta, entry, i, scratch, session, report)
		}

		for _, result := range results {
			if result.Status == entity.TransferStatusUploaded {
				succeeded++
			} else {
				failed++
			}
		}

		if err := u.store.AppendResults(ctx, meta.ID, results...); err != nil {
			return err
		}
	}

	endedAt := u.clock.Now().Unix()
	if err := u.store.UpdateMeta(ctx, meta.ID, func(m *entity.RunMeta) {
		m.Status = entity.RunStatusDone
		m.EndedAt = endedAt
		m.Succeeded = succeeded
		m.Failed = failed
	}); err != nil {
		return err
	}

	u.scheduleAutoDelete(ctx, meta, session)

	return nil
}

// processEntry downloads one link entry and uploads every fetched item,
// returning one result per item. It never returns an empty slice.
func (u *Usecase) processEntry(ctx context.Context, meta entity.RunMeta, entry entity.LinkEntry, idx int, scratch string, session *runSession, report entity.ProgressFunc) []entity.TransferResult {
	downloader, ok := u.downloaders[entry.Provider]
	if !ok {
		err := pkgerror.NewInvalidLink(fmt.Errorf("no downloader accepts %q", entry.Raw))
		return []entity.TransferResult{failedResult(entry, err)}
	}

	entryDir := filepath.Join(scratch, "entry-"+strconv.Itoa(idx+1))
	if err := os.MkdirAll(entryDir, 0o755); err != nil {
		return []entity.TransferResult{failedResult(entry, pkgerror.NewServer(err))}
	}

	items, err := downloader.Download(ctx, entry, entryDir, report)
	if err != nil {
		return []entity.TransferResult{failedResult(entry, normalizeErr(err))}
	}

	results := make([]entity.TransferResult, 0, len(items))
	for _, item := range items {
		results = append(results, u.transferItem(ctx, meta, entry, item, session, report))
	}

	return results
}

func (u *Usecase) transferItem(ctx context.Context, meta entity.RunMeta, entry entity.LinkEntry, item entity.FetchItem, session *runSession, report entity.ProgressFunc) entity.TransferResult {
	if item.Err != nil {
		result := failedResult(entry, normalizeErr(item.Err))
		if item.Name != "" {
			result.Name = item.Name
		}
		return result
	}

	folder, err := u.ensureSession(ctx, meta, session)
	if err != nil {
		result := failedResult(entry, normalizeErr(err))
		result.Name = item.Name
		return result
	}

	link, uploadErr := u.drive.Upload(ctx, folder.ID, item.Path, report)
	if err := os.Remove(item.Path); err != nil {
		slog.WarnContext(ctx, "failed to remove scratch file", "path", item.Path, "error", err)
	}
	if uploadErr != nil {
		result := failedResult(entry, normalizeErr(uploadErr))
		result.Name = item.Name
		result.FolderLink = folder.Link
		return result
	}

	return entity.TransferResult{
		Name:         item.Name,
		SourceLink:   entry.Raw,
		FolderLink:   folder.Link,
		ResourceLink: link,
		Status:       entity.TransferStatusUploaded,
	}
}

func (u *Usecase) ensureSession(ctx context.Context, meta entity.RunMeta, session *runSession) (entity.SessionFolder, error) {
	if session.ready {
		return session.folder, nil
	}

	driveID, err := u.drive.ResolveDrive(ctx, meta.DriveName)
	if err != nil {
		return entity.SessionFolder{}, err
	}

	folder, err := u.drive.EnsureFolder(ctx, driveID, meta.Folder)
	if err != nil {
		return entity.SessionFolder{}, err
	}

	session.folder = folder
	session.ready = true

	// Recorded right away so status polling can show the folder link while
	// the run is still moving.
	if err := u.store.UpdateMeta(ctx, meta.ID, func(m *entity.RunMeta) {
		m.FolderID = folder.ID
		m.FolderLink = folder.Link
	}); err != nil {
		slog.WarnContext(ctx, "failed to record session folder", "error", err)
	}

	return folder, nil
}

// scheduleAutoDelete arms one deferred folder deletion when the run asked
// for it and a session folder actually exists.
func (u *Usecase) scheduleAutoDelete(ctx context.Context, meta entity.RunMeta, session *runSession) {
	if meta.AutoDelete <= 0 || !session.ready {
		return
	}

	folderID := session.folder.ID
	slog.InfoContext(ctx, "session folder deletion scheduled", "folder_id", folderID, "delay", meta.AutoDelete.String())

	u.runner.GoAfter(u.rootCtx, meta.AutoDelete, func(ctx context.Context) error {
		ctx = pkglog.SetRunID(ctx, meta.ID)
		if err := u.drive.DeleteFolder(ctx, folderID); err != nil {
			slog.WarnContext(ctx, "session folder deletion failed", "folder_id", folderID, "error", err)
			return nil
		}
		slog.InfoContext(ctx, "session folder deleted", "folder_id", folderID)
		return nil
	})
}

// failRun records one failed result per entry when a run cannot start at
// all, keeping the one-result-per-entry contract intact.
func (u *Usecase) failRun(ctx context.Context, meta entity.RunMeta, entries []entity.LinkEntry, cause error) error {
	results := make([]entity.TransferResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, failedResult(entry, cause))
	}
	if err := u.store.AppendResults(ctx, meta.ID, results...); err != nil {
		return err
	}

	endedAt := u.clock.Now().Unix()
	if err := u.store.UpdateMeta(ctx, meta.ID, func(m *entity.RunMeta) {
		m.Status = entity.RunStatusDone
		m.Err = cause.Error()
		m.EndedAt = endedAt
		m.Failed = int64(len(entries))
	}); err != nil {
		return err
	}

	return cause
}

func (u *Usecase) makeScratch(runID string) (string, error) {
	if u.scratchDir == "" {
		return os.MkdirTemp("", "goferry-"+runID+"-")
	}

	dir := filepath.Join(u.scratchDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	return dir, nil
}

// reporter decorates source and Drive events with the run ID and a
// monotonic event ID before handing them to the bus. Publish failures are
// logged and dropped.
func (u *Usecase) reporter(ctx context.Context, runID string) entity.ProgressFunc {
	return func(event entity.ProgressEvent) {
		event.RunID = runID
		if u.eventID != nil {
			event.EventID = u.eventID.Generate()
		}

		if u.events == nil {
			return
		}
		if err := u.events.Publish(ctx, event); err != nil {
			slog.WarnContext(ctx, "failed to publish progress event", "stage", string(event.Stage), "error", err)
		}
	}
}

func failedResult(entry entity.LinkEntry, err error) entity.TransferResult {
	name := entry.Name
	if name == "" {
		name = entry.Raw
	}

	return entity.TransferResult{
		Name:       name,
		SourceLink: entry.Raw,
		Status:     entity.TransferStatusFailed,
		ErrKind:    pkgerror.CodeOf(err).String(),
		Err:        err.Error(),
	}
}
