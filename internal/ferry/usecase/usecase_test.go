package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shandysiswandi/goferry/internal/ferry/entity"
	"github.com/shandysiswandi/goferry/internal/pkg/pkgerror"
)

type testStore struct {
	mu      sync.RWMutex
	metas   map[string]entity.RunMeta
	results map[string][]entity.TransferResult
}

func newTestStore() *testStore {
	return &testStore{
		metas:   make(map[string]entity.RunMeta),
		results: make(map[string][]entity.TransferResult),
	}
}

func (s *testStore) CreateRun(ctx context.Context, meta entity.RunMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metas[meta.ID] = meta
	return nil
}

func (s *testStore) UpdateMeta(ctx context.Context, runID string, fn func(meta *entity.RunMeta)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.metas[runID]
	if !ok {
		return pkgerror.ErrNotFound
	}
	fn(&meta)
	s.metas[runID] = meta
	return nil
}

func (s *testStore) AppendResults(ctx context.Context, runID string, results ...entity.TransferResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.metas[runID]; !ok {
		return pkgerror.ErrNotFound
	}
	s.results[runID] = append(s.results[runID], results...)
	return nil
}

func (s *testStore) GetRun(ctx context.Context, runID string) (entity.RunMeta, entity.ProgressEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.metas[runID]
	if !ok {
		return entity.RunMeta{}, entity.ProgressEvent{}, pkgerror.ErrNotFound
	}
	return meta, entity.ProgressEvent{}, nil
}

func (s *testStore) ListResults(ctx context.Context, runID string, filter ResultFilter, page, pageSize int) ([]entity.TransferResult, int, entity.RunMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.metas[runID]
	if !ok {
		return nil, 0, entity.RunMeta{}, pkgerror.ErrNotFound
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	total := 0
	results := make([]entity.TransferResult, 0, pageSize)
	for _, result := range s.results[runID] {
		if !filter.Matches(result) {
			continue
		}
		if total >= start && total < end {
			results = append(results, result)
		}
		total++
	}

	return results, total, meta, nil
}

type testPublisher struct {
	mu     sync.Mutex
	events []entity.ProgressEvent
}

func (p *testPublisher) Publish(ctx context.Context, event entity.ProgressEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// testRunner executes Go tasks inline so Submit finishes the whole run
// before returning, and records GoAfter tasks without firing them.
type testRunner struct {
	mu       sync.Mutex
	delays   []time.Duration
	deferred []func(ctx context.Context) error
}

func (r *testRunner) Go(ctx context.Context, f func(ctx context.Context) error) {
	_ = f(ctx)
}

func (r *testRunner) GoAfter(ctx context.Context, delay time.Duration, f func(ctx context.Context) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, delay)
	r.deferred = append(r.deferred, f)
}

type itemStub struct {
	name    string
	content string
	err     error
}

type downloadStub struct {
	err   error
	items []itemStub
}

type fakeDownloader struct {
	mu    sync.Mutex
	calls int
	stubs map[string]downloadStub
}

func (d *fakeDownloader) Download(ctx context.Context, entry entity.LinkEntry, destDir string, report entity.ProgressFunc) ([]entity.FetchItem, error) {
	d.mu.Lock()
	d.calls++
	stub, ok := d.stubs[entry.Raw]
	d.mu.Unlock()

	if !ok {
		return nil, pkgerror.NewNotFound("no stub for " + entry.Raw)
	}
	if stub.err != nil {
		return nil, stub.err
	}

	items := make([]entity.FetchItem, 0, len(stub.items))
	for _, it := range stub.items {
		if it.err != nil {
			items = append(items, entity.FetchItem{Name: it.name, Err: it.err})
			continue
		}

		path := filepath.Join(destDir, it.name)
		if err := os.WriteFile(path, []byte(it.content), 0o644); err != nil {
			return nil, err
		}

		if report != nil {
			report(entity.ProgressEvent{Source: "pixeldrain", Stage: entity.StageStarting, Filename: it.name, Total: int64(len(it.content))})
			report(entity.ProgressEvent{Source: "pixeldrain", Stage: entity.StageDone, Filename: it.name, Downloaded: int64(len(it.content)), Total: int64(len(it.content))})
		}

		items = append(items, entity.FetchItem{Name: it.name, Path: path, Size: int64(len(it.content))})
	}

	return items, nil
}

type fakeDrive struct {
	mu         sync.Mutex
	resolveErr error
	ensureErr  error
	uploadErr  error
	failFrom   int // 1-based upload attempt to start failing at, 0 disables
	deleteErr  error
	resolves   int
	ensures    int
	attempts   int
	uploads    []string
	missing    int
	deletedIDs []string
}

func (d *fakeDrive) ResolveDrive(ctx context.Context, name string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resolves++
	if d.resolveErr != nil {
		return "", d.resolveErr
	}
	if name == "" {
		return "root", nil
	}
	return "drive-" + name, nil
}

func (d *fakeDrive) EnsureFolder(ctx context.Context, parentID, name string) (entity.SessionFolder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ensures++
	if d.ensureErr != nil {
		return entity.SessionFolder{}, d.ensureErr
	}
	return entity.SessionFolder{ID: "fold-1", Name: name, Link: "http://drive.test/fold-1"}, nil
}

func (d *fakeDrive) Upload(ctx context.Context, folderID, localPath string, report entity.ProgressFunc) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts++
	if d.failFrom > 0 && d.attempts >= d.failFrom {
		return "", d.uploadErr
	}
	if _, err := os.Stat(localPath); err != nil {
		d.missing++
	}
	d.uploads = append(d.uploads, localPath)
	return "http://drive.test/dl/" + strconv.Itoa(d.attempts), nil
}

func (d *fakeDrive) DeleteFolder(ctx context.Context, folderID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.deleteErr != nil {
		return d.deleteErr
	}
	d.deletedIDs = append(d.deletedIDs, folderID)
	return nil
}

type testID struct {
	mu sync.Mutex
	n  int
}

func (t *testID) Generate() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n++
	return fmt.Sprintf("run-%d", t.n)
}

type testNumberID struct {
	n int64
}

func (t *testNumberID) Generate() int64 {
	return atomic.AddInt64(&t.n, 1)
}

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time {
	return f.now
}

func errCode(t *testing.T, err error) pkgerror.Code {
	t.Helper()

	var perr *pkgerror.Error
	if !errors.As(err, &perr) {
		t.Fatalf("error = %T (%v), want *pkgerror.Error", err, err)
	}
	return perr.Code()
}

type testBundle struct {
	store   *testStore
	events  *testPublisher
	runner  *testRunner
	drive   *fakeDrive
	dl      *fakeDownloader
	scratch string
	uc      *Usecase
}

func newTestUsecase(t *testing.T) *testBundle {
	t.Helper()

	b := &testBundle{
		store:   newTestStore(),
		events:  &testPublisher{},
		runner:  &testRunner{},
		drive:   &fakeDrive{},
		dl:      &fakeDownloader{stubs: map[string]downloadStub{}},
		scratch: t.TempDir(),
	}

	b.uc = New(Dependency{
		Store:   b.store,
		Events:  b.events,
		Runner:  b.runner,
		Clock:   fixedClock{now: time.Unix(1700000000, 0)},
		ID:      &testID{},
		EventID: &testNumberID{},
		Downloaders: map[entity.Provider]Downloader{
			entity.ProviderPixeldrain: b.dl,
			entity.ProviderMegaFile:   b.dl,
			entity.ProviderMegaFolder: b.dl,
		},
		Drive:      b.drive,
		ScratchDir: b.scratch,
	})

	return b
}

func TestSubmitValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   SubmitInput
	}{
		{name: "no links", in: SubmitInput{Folder: "links"}},
		{name: "blank folder", in: SubmitInput{Links: []LinkInput{{URL: "https://pixeldrain.com/u/a1"}}, Folder: "   "}},
		{
			name: "shared drive without name",
			in: SubmitInput{
				Links:  []LinkInput{{URL: "https://pixeldrain.com/u/a1"}},
				Folder: "links",
				Drive:  DriveTarget{Shared: true},
			},
		},
		{
			name: "auto delete without delay",
			in: SubmitInput{
				Links:      []LinkInput{{URL: "https://pixeldrain.com/u/a1"}},
				Folder:     "links",
				AutoDelete: AutoDelete{Enabled: true},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			b := newTestUsecase(t)
			_, err := b.uc.Submit(context.Background(), tc.in)
			if err == nil {
				t.Fatal("Submit() expected error, got nil")
			}
			if code := errCode(t, err); code != pkgerror.CodeInvalidInput {
				t.Fatalf("Submit() code = %v, want %v", code, pkgerror.CodeInvalidInput)
			}
		})
	}

	t.Run("missing dependency", func(t *testing.T) {
		t.Parallel()

		uc := New(Dependency{})
		_, err := uc.Submit(context.Background(), SubmitInput{Links: []LinkInput{{URL: "x"}}, Folder: "links"})
		if err == nil {
			t.Fatal("Submit() expected error, got nil")
		}
	})
}

func TestSubmitUploadsEveryLinkInOrder(t *testing.T) {
	t.Parallel()

	b := newTestUsecase(t)
	b.dl.stubs["https://pixeldrain.com/u/a1"] = downloadStub{items: []itemStub{{name: "report.pdf", content: "alpha"}}}
	b.dl.stubs["https://pixeldrain.com/u/b2"] = downloadStub{items: []itemStub{{name: "notes.txt", content: "beta"}}}

	out, err := b.uc.Submit(context.Background(), SubmitInput{
		Links: []LinkInput{
			{URL: "https://pixeldrain.com/u/a1"},
			{URL: "https://pixeldrain.com/u/b2"},
		},
		Folder: "links-2026",
	})
	if err != nil {
		t.Fatalf("Submit() err = %v", err)
	}
	if out.RunID != "run-1" {
		t.Fatalf("Submit() run id = %q, want run-1", out.RunID)
	}

	meta, _, err := b.store.GetRun(context.Background(), out.RunID)
	if err != nil {
		t.Fatalf("GetRun() err = %v", err)
	}
	if meta.Status != entity.RunStatusDone {
		t.Fatalf("run status = %v, want %v", meta.Status, entity.RunStatusDone)
	}
	if meta.TotalLinks != 2 || meta.Succeeded != 2 || meta.Failed != 0 {
		t.Fatalf("run stats = %d/%d/%d, want 2/2/0", meta.TotalLinks, meta.Succeeded, meta.Failed)
	}
	if meta.StartedAt != 1700000000 || meta.EndedAt != 1700000000 {
		t.Fatalf("run times = %d/%d, want fixed clock", meta.StartedAt, meta.EndedAt)
	}
	if meta.FolderID != "fold-1" || meta.FolderLink != "http://drive.test/fold-1" {
		t.Fatalf("run folder = %q/%q, want fold-1", meta.FolderID, meta.FolderLink)
	}

	results, total, _, err := b.store.ListResults(context.Background(), out.RunID, ResultFilter{}, 1, 10)
	if err != nil {
		t.Fatalf("ListResults() err = %v", err)
	}
	if total != 2 {
		t.Fatalf("results total = %d, want 2", total)
	}
	if results[0].Name != "report.pdf" || results[1].Name != "notes.txt" {
		t.Fatalf("results out of order: %+v", results)
	}
	for i, result := range results {
		if result.Status != entity.TransferStatusUploaded {
			t.Fatalf("result %d status = %v, want %v", i, result.Status, entity.TransferStatusUploaded)
		}
		if result.FolderLink != "http://drive.test/fold-1" {
			t.Fatalf("result %d folder link = %q", i, result.FolderLink)
		}
	}
	if results[0].ResourceLink == results[1].ResourceLink {
		t.Fatalf("resource links not distinct: %q", results[0].ResourceLink)
	}

	// One session folder for the whole run.
	if b.drive.resolves != 1 || b.drive.ensures != 1 {
		t.Fatalf("drive calls = %d resolves / %d ensures, want 1/1", b.drive.resolves, b.drive.ensures)
	}
	if b.drive.missing != 0 {
		t.Fatalf("uploads saw %d missing scratch files", b.drive.missing)
	}

	// Scratch tree is gone once the run finishes.
	if _, err := os.Stat(filepath.Join(b.scratch, out.RunID)); !os.IsNotExist(err) {
		t.Fatalf("scratch dir still present, stat err = %v", err)
	}

	b.events.mu.Lock()
	defer b.events.mu.Unlock()
	if len(b.events.events) != 4 {
		t.Fatalf("events = %d, want 4", len(b.events.events))
	}
	var lastID int64
	for i, event := range b.events.events {
		if event.RunID != out.RunID {
			t.Fatalf("event %d run id = %q, want %q", i, event.RunID, out.RunID)
		}
		if event.EventID <= lastID {
			t.Fatalf("event %d id = %d, want monotonic after %d", i, event.EventID, lastID)
		}
		lastID = event.EventID
	}
}

func TestSubmitMixedFailuresKeepOrder(t *testing.T) {
	t.Parallel()

	b := newTestUsecase(t)
	b.dl.stubs["https://pixeldrain.com/u/ok1"] = downloadStub{items: []itemStub{{name: "report.pdf", content: "alpha"}}}
	b.dl.stubs["https://mega.nz/folder/BBBBBBBB#fedcba9876543210"] = downloadStub{items: []itemStub{
		{name: "a.bin", content: "beta"},
		{name: "b.bin", err: pkgerror.NewDecryption(errors.New("bad node key"))},
	}}
	b.dl.stubs["https://mega.nz/file/AAAAAAAA#0123456789abcdef"] = downloadStub{
		err: pkgerror.NewNotFound("mega: file or folder does not exist"),
	}

	out, err := b.uc.Submit(context.Background(), SubmitInput{
		Links: []LinkInput{
			{URL: "https://example.com/nope"},
			{URL: "https://pixeldrain.com/u/ok1"},
			{URL: "https://mega.nz/folder/BBBBBBBB#fedcba9876543210"},
			{URL: "https://mega.nz/file/AAAAAAAA#0123456789abcdef"},
		},
		Folder: "links",
	})
	if err != nil {
		t.Fatalf("Submit() err = %v", err)
	}

	results, total, meta, err := b.store.ListResults(context.Background(), out.RunID, ResultFilter{}, 1, 10)
	if err != nil {
		t.Fatalf("ListResults() err = %v", err)
	}
	if total != 5 {
		t.Fatalf("results total = %d, want 5", total)
	}
	if meta.Succeeded != 2 || meta.Failed != 3 {
		t.Fatalf("run stats = %d/%d, want 2/3", meta.Succeeded, meta.Failed)
	}

	wantKinds := []string{
		pkgerror.CodeInvalidLink.String(),
		"",
		"",
		pkgerror.CodeDecryption.String(),
		pkgerror.CodeNotFound.String(),
	}
	for i, want := range wantKinds {
		if results[i].ErrKind != want {
			t.Fatalf("result %d kind = %q, want %q", i, results[i].ErrKind, want)
		}
	}

	if results[0].Name != "https://example.com/nope" || results[0].Status != entity.TransferStatusFailed {
		t.Fatalf("unknown link row = %+v", results[0])
	}
	if results[1].Name != "report.pdf" || results[1].Status != entity.TransferStatusUploaded {
		t.Fatalf("pixeldrain row = %+v", results[1])
	}
	if results[2].Name != "a.bin" || results[2].Status != entity.TransferStatusUploaded {
		t.Fatalf("folder member row = %+v", results[2])
	}
	if results[3].Name != "b.bin" || results[3].Status != entity.TransferStatusFailed {
		t.Fatalf("failed member row = %+v", results[3])
	}
	if results[4].SourceLink != "https://mega.nz/file/AAAAAAAA#0123456789abcdef" || results[4].Status != entity.TransferStatusFailed {
		t.Fatalf("missing file row = %+v", results[4])
	}
}

func TestSubmitAuthFailureCascades(t *testing.T) {
	t.Parallel()

	b := newTestUsecase(t)
	b.drive.failFrom = 2
	b.drive.uploadErr = pkgerror.NewAuth(errors.New("token expired"))
	for i := 1; i <= 3; i++ {
		url := "https://pixeldrain.com/u/f" + strconv.Itoa(i)
		b.dl.stubs[url] = downloadStub{items: []itemStub{{name: fmt.Sprintf("f%d.bin", i), content: "x"}}}
	}

	out, err := b.uc.Submit(context.Background(), SubmitInput{
		Links: []LinkInput{
			{URL: "https://pixeldrain.com/u/f1"},
			{URL: "https://pixeldrain.com/u/f2"},
			{URL: "https://pixeldrain.com/u/f3"},
		},
		Folder: "links",
	})
	if err != nil {
		t.Fatalf("Submit() err = %v", err)
	}

	results, _, meta, err := b.store.ListResults(context.Background(), out.RunID, ResultFilter{}, 1, 10)
	if err != nil {
		t.Fatalf("ListResults() err = %v", err)
	}

	if results[0].Status != entity.TransferStatusUploaded {
		t.Fatalf("first row = %+v, want uploaded before the credential expired", results[0])
	}
	for i := 1; i < 3; i++ {
		if results[i].Status != entity.TransferStatusFailed || results[i].ErrKind != pkgerror.CodeAuth.String() {
			t.Fatalf("row %d = %+v, want auth failure", i, results[i])
		}
	}
	if meta.Succeeded != 1 || meta.Failed != 2 {
		t.Fatalf("run stats = %d/%d, want 1/2", meta.Succeeded, meta.Failed)
	}
}

func TestSubmitDriveResolveFailureFailsAllEntries(t *testing.T) {
	t.Parallel()

	b := newTestUsecase(t)
	b.drive.resolveErr = pkgerror.NewAuth(errors.New("credential missing"))
	b.dl.stubs["https://pixeldrain.com/u/a1"] = downloadStub{items: []itemStub{{name: "a.bin", content: "x"}}}
	b.dl.stubs["https://pixeldrain.com/u/b2"] = downloadStub{items: []itemStub{{name: "b.bin", content: "y"}}}

	out, err := b.uc.Submit(context.Background(), SubmitInput{
		Links: []LinkInput{
			{URL: "https://pixeldrain.com/u/a1"},
			{URL: "https://pixeldrain.com/u/b2"},
		},
		Folder:     "links",
		AutoDelete: AutoDelete{Enabled: true, Delay: time.Minute},
	})
	if err != nil {
		t.Fatalf("Submit() err = %v", err)
	}

	results, _, meta, err := b.store.ListResults(context.Background(), out.RunID, ResultFilter{}, 1, 10)
	if err != nil {
		t.Fatalf("ListResults() err = %v", err)
	}

	for i, result := range results {
		if result.Status != entity.TransferStatusFailed || result.ErrKind != pkgerror.CodeAuth.String() {
			t.Fatalf("row %d = %+v, want auth failure", i, result)
		}
	}
	if b.drive.ensures != 0 {
		t.Fatalf("EnsureFolder calls = %d, want 0 when the drive cannot be resolved", b.drive.ensures)
	}
	if meta.FolderID != "" {
		t.Fatalf("run folder id = %q, want empty", meta.FolderID)
	}

	// No folder means nothing to auto delete.
	b.runner.mu.Lock()
	defer b.runner.mu.Unlock()
	if len(b.runner.deferred) != 0 {
		t.Fatalf("deferred tasks = %d, want 0", len(b.runner.deferred))
	}
}

func TestSubmitSchedulesAutoDelete(t *testing.T) {
	t.Parallel()

	b := newTestUsecase(t)
	b.dl.stubs["https://pixeldrain.com/u/a1"] = downloadStub{items: []itemStub{{name: "a.bin", content: "x"}}}

	_, err := b.uc.Submit(context.Background(), SubmitInput{
		Links:      []LinkInput{{URL: "https://pixeldrain.com/u/a1"}},
		Folder:     "links",
		AutoDelete: AutoDelete{Enabled: true, Delay: 42 * time.Second},
	})
	if err != nil {
		t.Fatalf("Submit() err = %v", err)
	}

	b.runner.mu.Lock()
	if len(b.runner.deferred) != 1 || b.runner.delays[0] != 42*time.Second {
		b.runner.mu.Unlock()
		t.Fatalf("deferred = %d delays = %v, want one task after 42s", len(b.runner.deferred), b.runner.delays)
	}
	task := b.runner.deferred[0]
	b.runner.mu.Unlock()

	if err := task(context.Background()); err != nil {
		t.Fatalf("deferred task err = %v", err)
	}

	b.drive.mu.Lock()
	defer b.drive.mu.Unlock()
	if len(b.drive.deletedIDs) != 1 || b.drive.deletedIDs[0] != "fold-1" {
		t.Fatalf("deleted folders = %v, want [fold-1]", b.drive.deletedIDs)
	}
}

func TestAutoDeleteFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	b := newTestUsecase(t)
	b.drive.deleteErr = pkgerror.NewNotFound("drive resource does not exist")
	b.dl.stubs["https://pixeldrain.com/u/a1"] = downloadStub{items: []itemStub{{name: "a.bin", content: "x"}}}

	_, err := b.uc.Submit(context.Background(), SubmitInput{
		Links:      []LinkInput{{URL: "https://pixeldrain.com/u/a1"}},
		Folder:     "links",
		AutoDelete: AutoDelete{Enabled: true, Delay: time.Second},
	})
	if err != nil {
		t.Fatalf("Submit() err = %v", err)
	}

	b.runner.mu.Lock()
	task := b.runner.deferred[0]
	b.runner.mu.Unlock()

	if err := task(context.Background()); err != nil {
		t.Fatalf("deferred task err = %v, want swallowed failure", err)
	}
}

func TestStatusAndResultsLookups(t *testing.T) {
	t.Parallel()

	b := newTestUsecase(t)
	b.dl.stubs["https://pixeldrain.com/u/a1"] = downloadStub{items: []itemStub{{name: "a.bin", content: "x"}}}
	b.dl.stubs["https://mega.nz/file/AAAAAAAA#0123456789abcdef"] = downloadStub{
		err: pkgerror.NewNotFound("mega: file or folder does not exist"),
	}

	out, err := b.uc.Submit(context.Background(), SubmitInput{
		Links: []LinkInput{
			{URL: "https://pixeldrain.com/u/a1"},
			{URL: "https://mega.nz/file/AAAAAAAA#0123456789abcdef"},
		},
		Folder: "links",
	})
	if err != nil {
		t.Fatalf("Submit() err = %v", err)
	}

	status, err := b.uc.Status(context.Background(), out.RunID)
	if err != nil {
		t.Fatalf("Status() err = %v", err)
	}
	if status.RunID != out.RunID || status.Status != entity.RunStatusDone {
		t.Fatalf("Status() = %+v, want done run", status)
	}
	if status.Meta.Folder != "links" {
		t.Fatalf("Status() folder = %q, want links", status.Meta.Folder)
	}

	failedOnly := ResultFilter{Statuses: []entity.TransferStatus{entity.TransferStatusFailed}}
	res, err := b.uc.Results(context.Background(), out.RunID, failedOnly, 1, 10)
	if err != nil {
		t.Fatalf("Results() err = %v", err)
	}
	if res.Total != 1 || len(res.Results) != 1 {
		t.Fatalf("Results() total = %d len = %d, want 1/1", res.Total, len(res.Results))
	}
	if res.Results[0].ErrKind != pkgerror.CodeNotFound.String() {
		t.Fatalf("Results() kind = %q, want %q", res.Results[0].ErrKind, pkgerror.CodeNotFound.String())
	}

	t.Run("missing run", func(t *testing.T) {
		if _, err := b.uc.Status(context.Background(), "missing"); errCode(t, err) != pkgerror.CodeNotFound {
			t.Fatalf("Status() code = %v, want %v", errCode(t, err), pkgerror.CodeNotFound)
		}
		if _, err := b.uc.Results(context.Background(), "missing", ResultFilter{}, 1, 10); errCode(t, err) != pkgerror.CodeNotFound {
			t.Fatalf("Results() code = %v, want %v", errCode(t, err), pkgerror.CodeNotFound)
		}
	})

	t.Run("bad input", func(t *testing.T) {
		if _, err := b.uc.Status(context.Background(), ""); errCode(t, err) != pkgerror.CodeInvalidInput {
			t.Fatalf("Status() code = %v, want %v", errCode(t, err), pkgerror.CodeInvalidInput)
		}
		if _, err := b.uc.Results(context.Background(), out.RunID, ResultFilter{}, 0, 10); errCode(t, err) != pkgerror.CodeInvalidInput {
			t.Fatalf("Results() code = %v, want %v", errCode(t, err), pkgerror.CodeInvalidInput)
		}
	})
}
