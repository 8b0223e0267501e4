package ferry

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/shandysiswandi/goferry/internal/ferry/drive"
	"github.com/shandysiswandi/goferry/internal/ferry/entity"
	"github.com/shandysiswandi/goferry/internal/ferry/event"
	"github.com/shandysiswandi/goferry/internal/ferry/inbound"
	"github.com/shandysiswandi/goferry/internal/ferry/source"
	"github.com/shandysiswandi/goferry/internal/ferry/store"
	"github.com/shandysiswandi/goferry/internal/ferry/usecase"
	"github.com/shandysiswandi/goferry/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/goferry/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/goferry/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/goferry/internal/pkg/pkguid"
)

type Dependency struct {
	Config    pkgconfig.Config
	Goroutine *pkgroutine.Manager
	Router    *pkgrouter.Router
	Context   context.Context
	ID        pkguid.StringID
	EventID   pkguid.NumberID
}

func New(dep Dependency) (func(context.Context) error, error) {
	storage := store.NewInMemoryStore()
	bus := event.NewBus(512)

	sinks := []event.Sink{event.NewSnapshotSink(storage)}
	if dep.Config.GetBool("ferry.progress.console") {
		sinks = append(sinks, event.NewConsoleSink(os.Stdout))
	}
	if dep.Config.GetBool("ferry.progress.log") {
		sinks = append(sinks, event.NewLogSink())
	}

	consumer := event.NewConsumer(bus, sinks...)
	consumer.Start()

	if dep.ID == nil {
		dep.ID = pkguid.NewUUID()
	}

	pixeldrain := source.NewPixelDrain(
		dep.Config.GetString("ferry.pixeldrain.base_url"),
		newHTTPClient(dep.Config.GetDuration("ferry.pixeldrain.timeout")),
	)
	mega := source.NewMega(
		dep.Config.GetString("ferry.mega.api_url"),
		newHTTPClient(dep.Config.GetDuration("ferry.mega.timeout")),
	)

	driveClient, err := drive.New(dep.Context, drive.Config{
		AccessToken:     dep.Config.GetString("ferry.drive.access_token"),
		CredentialsJSON: string(dep.Config.GetBinary("ferry.drive.credentials")),
		ChunkSizeMB:     int(dep.Config.GetInt("ferry.drive.chunk_size_mb")),
		ShareRole:       dep.Config.GetString("ferry.drive.share_role"),
		ShareType:       dep.Config.GetString("ferry.drive.share_type"),
		Conflict:        drive.Conflict(dep.Config.GetString("ferry.drive.conflict")),
		RetryWait:       dep.Config.GetDuration("ferry.drive.retry_wait"),
	})
	if err != nil {
		return nil, err
	}

	uc := usecase.New(usecase.Dependency{
		Store:   storage,
		Events:  bus,
		Runner:  dep.Goroutine,
		ID:      dep.ID,
		EventID: dep.EventID,
		Downloaders: map[entity.Provider]usecase.Downloader{
			entity.ProviderPixeldrain: pixeldrain,
			entity.ProviderMegaFile:   mega,
			entity.ProviderMegaFolder: mega,
		},
		Drive:      driveClient,
		ScratchDir: dep.Config.GetString("ferry.scratch_dir"),
		RootCtx:    dep.Context,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return consumer.Stop, nil
}

// newHTTPClient bounds dial and response headers only; body reads may run for
// minutes on large files.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		return http.DefaultClient
	}

	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: timeout,
		},
	}
}
