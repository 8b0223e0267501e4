// Package drive wraps the Google Drive v3 API: session folders, public
// uploads, and delayed cleanup.
package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shandysiswandi/goferry/internal/ferry/entity"
	"github.com/shandysiswandi/goferry/internal/pkg/pkgerror"
	"golang.org/x/oauth2"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

var errNoCredential = errors.New("drive credential is not configured")

// Conflict decides what happens when the session folder already holds a file
// with the same name.
type Conflict string

const (
	ConflictSkip    Conflict = "skip"
	ConflictReplace Conflict = "replace"
	ConflictCopy    Conflict = "copy"
)

type Config struct {
	AccessToken     string
	CredentialsJSON string
	Endpoint        string // non-default API endpoint, used against fakes
	ChunkSizeMB     int
	ShareRole       string
	ShareType       string
	Conflict        Conflict
	RetryWait       time.Duration
}

// Client talks to one Google Drive account. A client built without any
// credential stays usable; every call then reports an auth error so a run can
// mark its entries failed instead of crashing the process.
type Client struct {
	cfg Config
	svc *drivev3.Service
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ChunkSizeMB <= 0 {
		cfg.ChunkSizeMB = 8
	}
	if cfg.ShareRole == "" {
		cfg.ShareRole = "reader"
	}
	if cfg.ShareType == "" {
		cfg.ShareType = "anyone"
	}
	if cfg.Conflict == "" {
		cfg.Conflict = ConflictSkip
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 2 * time.Second
	}

	opts := []option.ClientOption{}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	switch {
	case cfg.AccessToken != "":
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken})
		opts = append(opts, option.WithTokenSource(src))
	case cfg.CredentialsJSON != "":
		opts = append(opts,
			option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)),
			option.WithScopes(drivev3.DriveScope),
		)
	case cfg.Endpoint != "":
		opts = append(opts, option.WithoutAuthentication())
	default:
		return &Client{cfg: cfg}, nil
	}

	svc, err := drivev3.NewService(ctx, opts...)
	if err != nil {
		return nil, pkgerror.NewAuth(err)
	}

	return &Client{cfg: cfg, svc: svc}, nil
}

func (c *Client) ready() error {
	if c.svc == nil {
		return pkgerror.NewAuth(errNoCredential)
	}
	return nil
}

// ResolveDrive maps a drive name to its ID. An empty name or "My Drive"
// addresses the personal drive; anything else must match a shared drive.
func (c *Client) ResolveDrive(ctx context.Context, name string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}

	if name == "" || name == "My Drive" {
		return "root", nil
	}

	pageToken := ""
	for {
		call := c.svc.Drives.List().
			Fields("nextPageToken, drives(id, name)").
			PageSize(100).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return "", mapError(err)
		}

		for _, d := range resp.Drives {
			if d.Name == name {
				return d.Id, nil
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			return "", pkgerror.NewNotFound(fmt.Sprintf("shared drive %q not found", name))
		}
	}
}

// EnsureFolder finds the folder by name directly under parentID, creating it
// when absent.
func (c *Client) EnsureFolder(ctx context.Context, parentID, name string) (entity.SessionFolder, error) {
	if err := c.ready(); err != nil {
		return entity.SessionFolder{}, err
	}

	query := fmt.Sprintf("name = '%s' and '%s' in parents and mimeType = '%s' and trashed = false",
		escapeQuery(name), escapeQuery(parentID), folderMimeType)

	resp, err := c.svc.Files.List().
		Q(query).
		Fields("files(id, name, webViewLink)").
		PageSize(1).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return entity.SessionFolder{}, mapError(err)
	}

	if len(resp.Files) > 0 {
		f := resp.Files[0]
		return entity.SessionFolder{ID: f.Id, Name: f.Name, Link: f.WebViewLink}, nil
	}

	created, err := c.svc.Files.Create(&drivev3.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{parentID},
	}).
		Fields("id, name, webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return entity.SessionFolder{}, mapError(err)
	}

	return entity.SessionFolder{ID: created.Id, Name: created.Name, Link: created.WebViewLink}, nil
}

// Upload puts one local file into folderID, makes it shareable, and returns
// its public link. Name conflicts follow the configured policy.
func (c *Client) Upload(ctx context.Context, folderID, localPath string, report entity.ProgressFunc) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}

	filename := filepath.Base(localPath)

	existing, err := c.findFile(ctx, folderID, filename)
	if err != nil {
		slog.WarnContext(ctx, "drive lookup before upload failed", "filename", filename, "error", err)
		existing = nil
	}

	if existing != nil {
		switch c.cfg.Conflict {
		case ConflictSkip:
			if err := c.share(ctx, existing.Id); err != nil {
				slog.WarnContext(ctx, "drive share on existing file failed", "filename", filename, "error", err)
			}
			return c.resourceLink(ctx, existing.Id), nil
		case ConflictReplace:
			err := c.svc.Files.Delete(existing.Id).SupportsAllDrives(true).Context(ctx).Do()
			if err != nil {
				slog.WarnContext(ctx, "drive replace delete failed", "filename", filename, "error", err)
			}
		case ConflictCopy:
			// Drive folders allow duplicate names, upload proceeds as-is.
		}
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", pkgerror.NewServer(err)
	}
	defer f.Close()

	var size int64
	if st, err := f.Stat(); err == nil {
		size = st.Size()
	}

	if report != nil {
		report(entity.ProgressEvent{
			Source:   "gdrive",
			Stage:    entity.StageStarting,
			Filename: filename,
			Total:    size,
		})
	}

	created, err := c.svc.Files.Create(&drivev3.File{
		Name:    filename,
		Parents: []string{folderID},
	}).
		Fields("id").
		SupportsAllDrives(true).
		Media(f, googleapi.ChunkSize(c.cfg.ChunkSizeMB<<20)).
		ProgressUpdater(c.uploadProgress(filename, size, report)).
		Context(ctx).
		Do()
	if err != nil {
		return "", mapError(err)
	}
	if created.Id == "" {
		return "", pkgerror.NewServer(errors.New("upload succeeded but file id is missing"))
	}

	if err := c.share(ctx, created.Id); err != nil {
		slog.WarnContext(ctx, "drive share failed", "filename", filename, "error", err)
	}
	link := c.resourceLink(ctx, created.Id)

	if report != nil {
		report(entity.ProgressEvent{
			Source:     "gdrive",
			Stage:      entity.StageDone,
			Filename:   filename,
			Downloaded: size,
			Total:      size,
		})
	}

	return link, nil
}

// uploadProgress adapts the API client's updater callbacks into progress
// events. Resumable retries can replay an offset, so the reported count never
// goes backwards.
func (c *Client) uploadProgress(filename string, size int64, report entity.ProgressFunc) googleapi.ProgressUpdater {
	if report == nil {
		return func(int64, int64) {}
	}

	var mu sync.Mutex
	var sent int64
	lastTS := time.Now()
	var lastSent int64

	return func(current, total int64) {
		mu.Lock()
		defer mu.Unlock()

		if current < sent {
			current = sent
		}
		sent = current

		if total <= 0 {
			total = size
		}

		now := time.Now()
		dt := now.Sub(lastTS).Seconds()
		if dt < 1e-6 {
			dt = 1e-6
		}
		speed := float64(current-lastSent) / dt
		lastTS = now
		lastSent = current

		var eta float64
		if total > 0 && speed > 1e-3 {
			eta = float64(total-current) / speed
		}

		report(entity.ProgressEvent{
			Source:     "gdrive",
			Stage:      entity.StageUploading,
			Filename:   filename,
			Downloaded: current,
			Total:      total,
			SpeedBPS:   speed,
			ETASec:     eta,
		})
	}
}

func (c *Client) findFile(ctx context.Context, folderID, filename string) (*drivev3.File, error) {
	query := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false",
		escapeQuery(filename), escapeQuery(folderID))

	resp, err := c.svc.Files.List().
		Q(query).
		Fields("files(id, name)").
		PageSize(1).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapError(err)
	}

	if len(resp.Files) == 0 {
		return nil, nil
	}
	return resp.Files[0], nil
}

func (c *Client) share(ctx context.Context, fileID string) error {
	perm := &drivev3.Permission{Role: c.cfg.ShareRole, Type: c.cfg.ShareType}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.cfg.RetryWait); err != nil {
				return err
			}
		}

		_, err := c.svc.Permissions.Create(fileID, perm).SupportsAllDrives(true).Context(ctx).Do()
		if err == nil {
			return nil
		}
		lastErr = mapError(err)
	}

	return lastErr
}

// resourceLink fetches a public link for the file, preferring the direct
// download link. A missing link is not fatal to the transfer.
func (c *Client) resourceLink(ctx context.Context, fileID string) string {
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.cfg.RetryWait); err != nil {
				return ""
			}
		}

		f, err := c.svc.Files.Get(fileID).
			Fields("webContentLink, webViewLink").
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			slog.WarnContext(ctx, "drive link fetch failed", "file_id", fileID, "error", err)
			continue
		}

		if f.WebContentLink != "" {
			return f.WebContentLink
		}
		return f.WebViewLink
	}

	return ""
}

// DeleteFolder removes the folder contents and then the folder itself.
// Children are deleted in repeated sweeps because listings can lag behind
// recent uploads.
func (c *Client) DeleteFolder(ctx context.Context, folderID string) error {
	if err := c.ready(); err != nil {
		return err
	}

	for sweep := 0; sweep < 3; sweep++ {
		deleted, err := c.deleteChildren(ctx, folderID)
		if err != nil {
			return err
		}
		if deleted == 0 {
			break
		}
		if err := sleepCtx(ctx, time.Second); err != nil {
			return err
		}
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.cfg.RetryWait); err != nil {
				return err
			}
		}

		err := c.svc.Files.Delete(folderID).SupportsAllDrives(true).Context(ctx).Do()
		if err == nil {
			return nil
		}
		lastErr = mapError(err)
	}

	return lastErr
}

func (c *Client) deleteChildren(ctx context.Context, folderID string) (int, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(folderID))

	deleted := 0
	pageToken := ""
	for {
		call := c.svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id)").
			PageSize(1000).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return deleted, mapError(err)
		}

		for _, f := range resp.Files {
			err := c.svc.Files.Delete(f.Id).SupportsAllDrives(true).Context(ctx).Do()
			if err != nil {
				slog.WarnContext(ctx, "drive child delete failed", "file_id", f.Id, "error", err)
				continue
			}
			deleted++
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			return deleted, nil
		}
	}
}

// DeleteFiles removes the given files immediately. Deletion is best effort:
// each file gets up to 3 attempts and a file that still fails is skipped.
func (c *Client) DeleteFiles(ctx context.Context, ids []string) error {
	if err := c.ready(); err != nil {
		return err
	}

	for _, id := range ids {
		var lastErr error
		for attempt := 0; attempt < 3; attempt++ {
			if attempt > 0 {
				if err := sleepCtx(ctx, c.cfg.RetryWait); err != nil {
					return err
				}
			}

			err := c.svc.Files.Delete(id).SupportsAllDrives(true).Context(ctx).Do()
			if err == nil {
				lastErr = nil
				break
			}
			lastErr = mapError(err)
		}
		if lastErr != nil {
			slog.WarnContext(ctx, "drive file delete failed", "file_id", id, "error", lastErr)
		}
	}

	return nil
}

// mapError translates Drive API failures into the transfer error taxonomy.
func mapError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return pkgerror.NewNetwork(err)
	}

	switch {
	case gerr.Code == http.StatusUnauthorized:
		return pkgerror.NewAuth(err)
	case gerr.Code == http.StatusForbidden:
		for _, item := range gerr.Errors {
			switch item.Reason {
			case "storageQuotaExceeded", "quotaExceeded", "teamDriveFileLimitExceeded":
				return pkgerror.NewQuota("drive storage quota exceeded")
			case "userRateLimitExceeded", "rateLimitExceeded", "dailyLimitExceeded":
				return pkgerror.NewRateLimited("drive api rate limit reached, retry later")
			}
		}
		return pkgerror.NewAuth(err)
	case gerr.Code == http.StatusNotFound:
		return pkgerror.NewNotFound("drive resource does not exist")
	case gerr.Code == http.StatusTooManyRequests:
		return pkgerror.NewRateLimited("drive api rate limit reached, retry later")
	case gerr.Code >= http.StatusInternalServerError:
		return pkgerror.NewNetwork(err)
	default:
		return pkgerror.NewServer(err)
	}
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
