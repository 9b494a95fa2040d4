package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// SweepSessions removes expired sessions
func (serverHandler *ServerHandler) SweepSessions() {
	// a panic here must not take down the cron runner
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in session sweep", "panic", r)
		}
	}()
	removed, err := serverHandler.DB.DeleteExpiredSessions(time.Now())
	if err != nil {
		Logger.Error("Session sweep failed", "error", err)
		return
	}
	Logger.Info("Session sweep complete", "removed", removed)
}

// InitializeSchedules starts all the cron jobs (currently just the session sweeper)
func (serverHandler *ServerHandler) InitializeSchedules() (*cron.Cron, error) {
	interval := serverHandler.ServerConfig.SweepInterval
	if interval <= 0 {
		interval = 30
	}

	c := cron.New()
	var sweepJob cron.Job
	sweepJob = cron.FuncJob(serverHandler.SweepSessions)
	sweepJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(sweepJob) //ensure we don't kick off another if old one is still running
	if _, err := c.AddJob(fmt.Sprintf("@every %dm", interval), sweepJob); err != nil {
		return nil, fmt.Errorf("failed to schedule session sweep: %w", err)
	}
	Logger.Info("Adding session sweep scheduler", "interval_minutes", interval)
	c.Start()
	return c, nil
}

// StartupChecks purges stale sessions and brings the search index in line with the catalog
func (serverHandler *ServerHandler) StartupChecks() error {
	serverHandler.SweepSessions()
	products, err := serverHandler.DB.ListProducts()
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}
	indexed, err := serverHandler.SearchDB.DocCount()
	if err != nil {
		return fmt.Errorf("failed to count search documents: %w", err)
	}
	if indexed == uint64(len(products)) {
		Logger.Info("Search index is up to date", "products", len(products))
		return nil
	}
	Logger.Warn("Search index out of sync, rebuilding", "indexed", indexed, "products", len(products))
	return serverHandler.rebuildIndex()
}
