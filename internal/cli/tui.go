package cli

import (
	"context"

	"github.com/Shahid138/task-manager/internal/ui"
)

func (a *app) tuiCommand(ctx context.Context) error {
	return ui.Run(ctx, a.sessions, a.tasks)
}
