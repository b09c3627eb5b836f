// Package workers contains background workers for DeployHub.
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/deployhub/deployhub/internal/core/domain"
	"github.com/deployhub/deployhub/internal/shell/caprover"
	"github.com/deployhub/deployhub/internal/shell/orchestrator"
	"github.com/deployhub/deployhub/internal/shell/store"
)

// StatusPollerConfig configures the deployment status poller.
type StatusPollerConfig struct {
	// Interval is the time between polling cycles.
	// Default: 30 seconds.
	Interval time.Duration

	// CycleTimeout bounds one full polling cycle.
	// Default: 2 minutes.
	CycleTimeout time.Duration

	// StartDelay is the pause before the first cycle after Start.
	// Default: 5 seconds.
	StartDelay time.Duration
}

// DefaultStatusPollerConfig returns the default configuration.
func DefaultStatusPollerConfig() StatusPollerConfig {
	return StatusPollerConfig{
		Interval:     30 * time.Second,
		CycleTimeout: 2 * time.Minute,
		StartDelay:   5 * time.Second,
	}
}

// StatusPoller finalizes deployment records left in building: it asks
// the remote platform for the app's state and settles records whose
// build has concluded. A record stays in building while the remote
// build is still running or the platform gives no answer.
type StatusPoller struct {
	store     store.Store
	platforms orchestrator.Factory
	config    StatusPollerConfig
	logger    *slog.Logger

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStatusPoller creates a new deployment status poller.
func NewStatusPoller(s store.Store, platforms orchestrator.Factory, config StatusPollerConfig, logger *slog.Logger) *StatusPoller {
	if config.Interval == 0 {
		config.Interval = 30 * time.Second
	}
	if config.CycleTimeout == 0 {
		config.CycleTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &StatusPoller{
		store:     s,
		platforms: platforms,
		config:    config,
		logger:    logger.With("component", "status_poller"),
	}
}

// Start begins the poller background goroutine.
func (p *StatusPoller) Start() {
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.wg.Add(1)
	go p.run()
	p.logger.Info("status poller started", "interval", p.config.Interval)
}

// Stop gracefully stops the poller.
func (p *StatusPoller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info("status poller stopped")
}

func (p *StatusPoller) run() {
	defer p.wg.Done()

	if p.config.StartDelay > 0 {
		select {
		case <-p.ctx.Done():
			return
		case <-time.After(p.config.StartDelay):
		}
	}
	p.runCycle(p.ctx)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.runCycle(p.ctx)
		}
	}
}

// runCycle settles every building record it can.
func (p *StatusPoller) runCycle(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, p.config.CycleTimeout)
	defer cancel()

	building, err := p.store.ListDeploymentsByStatus(ctx, domain.StatusBuilding, store.ListOptions{Limit: 200})
	if err != nil {
		p.logger.Error("failed to list building deployments", "error", err)
		return
	}
	if len(building) == 0 {
		return
	}

	platform, err := p.platforms.Platform(ctx)
	if err != nil {
		p.logger.Warn("platform unavailable, leaving records in building", "error", err)
		return
	}
	session, err := platform.Login(ctx)
	if err != nil {
		p.logger.Warn("platform login failed, leaving records in building", "error", err)
		return
	}

	p.logger.Debug("checking building deployments", "count", len(building))

	for i := range building {
		record := &building[i]
		if err := p.settle(ctx, session, platform.BaseDomain(), record); err != nil {
			p.logger.Error("failed to settle deployment",
				"deployment_id", record.ID, "error", err)
		}
	}
}

// settle finalizes one building record from the remote app state.
func (p *StatusPoller) settle(ctx context.Context, session orchestrator.Session, baseDomain string, record *domain.Deployment) error {
	project, err := p.store.GetProject(ctx, record.ProjectID)
	if err != nil {
		return err
	}
	appName := project.AppName()

	switch session.Status(ctx, appName) {
	case caprover.AppStatusDeployed:
		url := fmt.Sprintf("https://%s.%s", appName, baseDomain)
		if err := record.Succeed(url, session.BuildLogs(ctx, appName)); err != nil {
			return err
		}
		p.logger.Info("deployment settled as success",
			"deployment_id", record.ID, "deploy_url", url)
		return p.store.UpdateDeployment(ctx, record)

	case caprover.AppStatusStopped:
		if err := record.Fail(orchestrator.KindRemote, "remote build concluded with the app stopped"); err != nil {
			return err
		}
		record.AppendLogs(session.BuildLogs(ctx, appName))
		p.logger.Info("deployment settled as failed", "deployment_id", record.ID)
		return p.store.UpdateDeployment(ctx, record)

	default:
		// Still building, or the platform gave no answer. Leave it for
		// the next cycle.
		return nil
	}
}
