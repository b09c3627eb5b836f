package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/deployhub/deployhub/internal/core/artifact"
	"github.com/deployhub/deployhub/internal/core/auth"
	"github.com/deployhub/deployhub/internal/core/domain"
	"github.com/deployhub/deployhub/internal/core/framework"
	"github.com/deployhub/deployhub/internal/shell/caprover"
	"github.com/deployhub/deployhub/internal/shell/store"
)

// =============================================================================
// Coordinator
// =============================================================================

// Coordinator runs deployment attempts end to end. Every status
// transition is written through to the store before the next step runs,
// so a crash mid-attempt leaves an accurate record behind.
type Coordinator struct {
	store     store.Store
	platforms Factory
	logger    *slog.Logger
}

// NewCoordinator creates a deployment coordinator.
func NewCoordinator(st store.Store, platforms Factory, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:     st,
		platforms: platforms,
		logger:    logger.With("component", "coordinator"),
	}
}

// StartRequest describes one deployment attempt.
type StartRequest struct {
	ProjectID  string
	CommitHash string // Empty means the platform assigns a time-based tag
	TarFile    []byte // Optional source archive uploaded with the definition
}

// StartDeployment runs a deployment attempt for a project. The returned
// record reflects the attempt's outcome: a failed attempt returns the
// record in status failed with a classified error, not a Go error.
// Errors are returned only when no attempt was started at all (unknown
// project, access denied, or an attempt already in flight).
func (c *Coordinator) StartDeployment(ctx context.Context, req StartRequest, id auth.Identity) (*domain.Deployment, error) {
	project, err := c.store.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := auth.CanAccessProject(id, project.UserID); err != nil {
		return nil, err
	}

	active, err := c.store.ActiveDeploymentExists(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrDeploymentInProgress
	}

	record := domain.NewDeployment(project.ID, req.CommitHash)
	if err := c.store.CreateDeployment(ctx, record); err != nil {
		return nil, err
	}

	c.logger.Info("deployment started",
		"deployment_id", record.ID,
		"project_id", project.ID,
		"framework", project.Framework,
	)

	// Configuration stage. Nothing is sent to the platform until both
	// the framework resolves and the artifacts render.
	profile, err := framework.Resolve(project.Framework)
	if err != nil {
		return c.fail(ctx, record, &AttemptError{Kind: KindConfig, Message: "resolve framework", Detail: err.Error()}), nil
	}

	artifacts, err := artifact.Render(profile, project.AppName(), overridesFromProject(project))
	if err != nil {
		return c.fail(ctx, record, &AttemptError{Kind: KindConfig, Message: "render artifacts", Detail: err.Error()}), nil
	}

	if err := c.transition(ctx, record, domain.StatusBuilding); err != nil {
		return nil, err
	}

	platform, err := c.platforms.Platform(ctx)
	if err != nil {
		if errors.Is(err, ErrPlatformNotConfigured) {
			return c.fail(ctx, record, &AttemptError{Kind: KindConfig, Message: "connect platform", Detail: err.Error()}), nil
		}
		return c.fail(ctx, record, c.attemptError(ctx, KindRemote, "connect platform", err)), nil
	}

	// Any login failure counts as an authentication failure, whether the
	// platform rejected the password or could not be reached at all.
	session, err := platform.Login(ctx)
	if err != nil {
		return c.fail(ctx, record, c.attemptError(ctx, KindAuth, "platform login", err)), nil
	}

	appName := project.AppName()

	// Registration failures are expected when the app already exists;
	// the error text is kept in the logs for diagnosis but the attempt
	// continues.
	if err := session.RegisterApp(ctx, appName, false); err != nil {
		if ctx.Err() != nil {
			return c.fail(ctx, record, &AttemptError{Kind: KindCanceled, Message: "register app", Detail: ctx.Err().Error()}), nil
		}
		record.AppendLogs("app registration: " + err.Error())
		c.persist(ctx, record)
	}

	c.pushEnvVars(ctx, session, record, project.ID, appName)

	result, err := session.Deploy(ctx, caprover.DeployRequest{
		AppName:           appName,
		CaptainDefinition: artifacts.CaptainDefinition,
		GitHash:           req.CommitHash,
		TarFile:           req.TarFile,
	})
	if err != nil {
		return c.fail(ctx, record, c.attemptError(ctx, KindRemote, "deploy app", err)), nil
	}

	record.CommitHash = result.GitHash
	logs := session.BuildLogs(ctx, appName)
	if err := record.Succeed(result.DeployURL, logs); err != nil {
		return nil, err
	}
	c.persist(ctx, record)

	c.logger.Info("deployment succeeded",
		"deployment_id", record.ID,
		"deploy_url", record.DeployURL,
	)
	return record, nil
}

// pushEnvVars sends the project's stored environment variables to the
// platform. Best-effort: failures are logged on the record but never
// abort the attempt.
func (c *Coordinator) pushEnvVars(ctx context.Context, session Session, record *domain.Deployment, projectID, appName string) {
	vars, err := c.store.ListEnvVariables(ctx, projectID)
	if err != nil {
		c.logger.Warn("failed to load env variables", "project_id", projectID, "error", err)
		return
	}
	if len(vars) == 0 {
		return
	}

	envVars := make([]caprover.EnvVar, 0, len(vars))
	for _, v := range vars {
		envVars = append(envVars, caprover.EnvVar{Key: v.Key, Value: v.Value})
	}

	if err := session.SetEnvVars(ctx, appName, envVars); err != nil {
		record.AppendLogs("env variables: " + err.Error())
		c.persist(ctx, record)
	}
}

// =============================================================================
// Read Operations
// =============================================================================

// GetDeployment returns a deployment record, enforcing project access.
func (c *Coordinator) GetDeployment(ctx context.Context, deploymentID string, id auth.Identity) (*domain.Deployment, error) {
	record, err := c.store.GetDeployment(ctx, deploymentID)
	if err != nil {
		return nil, err
	}
	project, err := c.store.GetProject(ctx, record.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := auth.CanAccessProject(id, project.UserID); err != nil {
		return nil, err
	}
	return record, nil
}

// ListDeployments returns a project's deployment history, newest first.
func (c *Coordinator) ListDeployments(ctx context.Context, projectID string, id auth.Identity, opts store.ListOptions) ([]domain.Deployment, error) {
	project, err := c.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := auth.CanAccessProject(id, project.UserID); err != nil {
		return nil, err
	}
	return c.store.ListDeploymentsByProject(ctx, projectID, opts)
}

// PreviewArtifacts renders the build artifacts for a framework without
// touching the store or the platform.
func (c *Coordinator) PreviewArtifacts(frameworkID, projectName string, ov artifact.Overrides) (artifact.Artifacts, error) {
	profile, err := framework.Resolve(frameworkID)
	if err != nil {
		return artifact.Artifacts{}, err
	}
	return artifact.Render(profile, projectName, ov)
}

// =============================================================================
// Admin Operations
// =============================================================================

// DeleteApp removes a project's app from the remote platform.
func (c *Coordinator) DeleteApp(ctx context.Context, appName string, id auth.Identity) error {
	if err := auth.RequireAdmin(id); err != nil {
		return err
	}
	session, err := c.session(ctx)
	if err != nil {
		return err
	}
	return session.DeleteApp(ctx, appName)
}

// ListApps returns every app registered on the remote platform.
func (c *Coordinator) ListApps(ctx context.Context, id auth.Identity) ([]caprover.AppInfo, error) {
	if err := auth.RequireAdmin(id); err != nil {
		return nil, err
	}
	session, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	return session.ListApps(ctx)
}

// EnableSSL enables TLS for an app's default subdomain or a custom domain.
func (c *Coordinator) EnableSSL(ctx context.Context, appName, customDomain string, id auth.Identity) error {
	if err := auth.RequireAdmin(id); err != nil {
		return err
	}
	session, err := c.session(ctx)
	if err != nil {
		return err
	}
	return session.EnableSSL(ctx, appName, customDomain)
}

// ProbePlatform reports whether the configured platform is reachable.
func (c *Coordinator) ProbePlatform(ctx context.Context, id auth.Identity) (bool, error) {
	if err := auth.RequireAdmin(id); err != nil {
		return false, err
	}
	platform, err := c.platforms.Platform(ctx)
	if err != nil {
		return false, err
	}
	return platform.Probe(ctx), nil
}

// session opens an authenticated platform session.
func (c *Coordinator) session(ctx context.Context) (Session, error) {
	platform, err := c.platforms.Platform(ctx)
	if err != nil {
		return nil, err
	}
	return platform.Login(ctx)
}

// =============================================================================
// Failure Handling
// =============================================================================

// attemptError classifies an error from a remote step. Context
// cancellation wins over everything; a rejected login is always an auth
// failure; anything else keeps the step's default kind.
func (c *Coordinator) attemptError(ctx context.Context, defaultKind, message string, err error) *AttemptError {
	kind := defaultKind
	switch {
	case ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		kind = KindCanceled
	case errors.Is(err, caprover.ErrLoginRejected):
		kind = KindAuth
	}
	return &AttemptError{Kind: kind, Message: message, Detail: err.Error()}
}

// fail finalizes the record as failed and persists it. The write uses a
// detached context so a canceled attempt is never left in building.
func (c *Coordinator) fail(ctx context.Context, record *domain.Deployment, attempt *AttemptError) *domain.Deployment {
	if err := record.Fail(attempt.Kind, attempt.Detail); err != nil {
		c.logger.Error("invalid failure transition",
			"deployment_id", record.ID, "status", record.Status, "error", err)
		return record
	}
	record.AppendLogs(attempt.Detail)
	c.persist(ctx, record)

	c.logger.Warn("deployment failed",
		"deployment_id", record.ID,
		"kind", attempt.Kind,
		"error", attempt,
	)
	return record
}

// transition moves the record to a new status and writes it through.
func (c *Coordinator) transition(ctx context.Context, record *domain.Deployment, to domain.DeploymentStatus) error {
	if err := record.Transition(to); err != nil {
		return fmt.Errorf("transition deployment %s: %w", record.ID, err)
	}
	if err := c.store.UpdateDeployment(ctx, record); err != nil {
		return err
	}
	return nil
}

// persist writes the record through, surviving a canceled attempt context.
func (c *Coordinator) persist(ctx context.Context, record *domain.Deployment) {
	if err := c.store.UpdateDeployment(context.WithoutCancel(ctx), record); err != nil {
		c.logger.Error("failed to persist deployment record",
			"deployment_id", record.ID, "error", err)
	}
}

// overridesFromProject maps a project's build settings onto artifact
// overrides. An empty build command on the project means "use the
// framework default", so only non-empty values override.
func overridesFromProject(project *domain.Project) artifact.Overrides {
	ov := artifact.Overrides{
		InstallCommand: project.InstallCommand,
		Port:           project.Port,
		OutputDir:      project.OutputDir,
	}
	if project.BuildCommand != "" {
		cmd := project.BuildCommand
		ov.BuildCommand = &cmd
	}
	return ov
}
