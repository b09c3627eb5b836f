package orchestrator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/deployhub/deployhub/internal/core/domain"
	"github.com/deployhub/deployhub/internal/shell/caprover"
	"github.com/deployhub/deployhub/internal/shell/store"
)

// =============================================================================
// Platform Abstraction
// =============================================================================

// Platform is an unauthenticated handle on the remote deployment
// target. The caprover client satisfies it; tests swap in a fake.
type Platform interface {
	Login(ctx context.Context) (Session, error)
	Probe(ctx context.Context) bool
	BaseDomain() string
}

// Session is an authenticated platform connection.
type Session interface {
	RegisterApp(ctx context.Context, appName string, hasPersistentData bool) error
	SetEnvVars(ctx context.Context, appName string, vars []caprover.EnvVar) error
	Deploy(ctx context.Context, req caprover.DeployRequest) (caprover.DeployResult, error)
	BuildLogs(ctx context.Context, appName string) string
	Status(ctx context.Context, appName string) caprover.AppStatus
	EnableSSL(ctx context.Context, appName, customDomain string) error
	DeleteApp(ctx context.Context, appName string) error
	ListApps(ctx context.Context) ([]caprover.AppInfo, error)
}

// Factory builds a Platform from the current admin settings. A fresh
// platform is built per attempt so settings changes take effect without
// a restart.
type Factory interface {
	Platform(ctx context.Context) (Platform, error)
}

// =============================================================================
// CapRover Adapter
// =============================================================================

// caproverPlatform adapts *caprover.Client to the Platform interface.
type caproverPlatform struct {
	client *caprover.Client
}

func (p *caproverPlatform) Login(ctx context.Context) (Session, error) {
	session, err := p.client.Login(ctx)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (p *caproverPlatform) Probe(ctx context.Context) bool {
	return p.client.Probe(ctx)
}

func (p *caproverPlatform) BaseDomain() string {
	return p.client.BaseDomain()
}

// =============================================================================
// Settings-Backed Factory
// =============================================================================

// SettingsFactory builds CapRover clients from admin settings, falling
// back to static configuration for values the admin has not set.
type SettingsFactory struct {
	store    store.Store
	fallback caprover.Config
	logger   *slog.Logger
}

// NewSettingsFactory creates a factory reading the platform URL and
// password from admin settings, with cfg as the fallback.
func NewSettingsFactory(st store.Store, cfg caprover.Config, logger *slog.Logger) *SettingsFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsFactory{store: st, fallback: cfg, logger: logger}
}

func (f *SettingsFactory) Platform(ctx context.Context) (Platform, error) {
	cfg := f.fallback

	if url := f.settingValue(ctx, domain.SettingPlatformURL); url != "" {
		cfg.BaseURL = url
	}
	if password := f.settingValue(ctx, domain.SettingPlatformPassword); password != "" {
		cfg.Password = password
	}

	if cfg.BaseURL == "" || cfg.Password == "" {
		return nil, ErrPlatformNotConfigured
	}

	return &caproverPlatform{client: caprover.NewClient(cfg, f.logger)}, nil
}

// settingValue reads one admin setting, empty when absent.
func (f *SettingsFactory) settingValue(ctx context.Context, key string) string {
	setting, err := f.store.GetSetting(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			f.logger.Warn("failed to read platform setting", "key", key, "error", err)
		}
		return ""
	}
	return setting.Value
}
