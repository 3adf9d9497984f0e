package history

import (
	"context"
	"fmt"

	"site-ai-gateway/pkg/logger"

	"github.com/robfig/cron/v3"
)

// StartPruner runs store.Prune on the given cron schedule until Stop is
// called on the returned scheduler.
func StartPruner(store *Store, schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(
		schedule, func() {
			removed, err := store.Prune(context.Background())
			if err != nil {
				logger.Error("Failed to prune generation history", "error", err.Error())
				return
			}
			logger.Info("Pruned generation history", "removed", removed)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
