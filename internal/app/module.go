package app

import (
	"context"
	"log/slog"
	"os"

	"github.com/shandysiswandi/goferry/internal/ferry"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.ferry.enabled") {
		closer, err := ferry.New(ferry.Dependency{
			Config:    a.config,
			Router:    a.router,
			Goroutine: a.goroutine,
			Context:   a.ctx,
			ID:        a.uuid,
			EventID:   a.snowflake,
		})
		if err != nil {
			slog.Error("failed to init module ferry", "error", err)
			os.Exit(1)
		}
		if closer != nil {
			if a.closerFn == nil {
				a.closerFn = map[string]func(context.Context) error{}
			}
			a.closerFn["Ferry"] = closer
		}
	}
}
