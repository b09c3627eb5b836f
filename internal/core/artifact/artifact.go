// Package artifact renders the textual build artifacts a deployment
// needs: a Dockerfile, a captain-definition, and a docker-compose file.
// Rendering is pure and deterministic: identical inputs always yield
// byte-identical artifacts.
package artifact

import (
	"errors"
	"fmt"

	"github.com/deployhub/deployhub/internal/core/framework"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrInvalidPort = errors.New("port must be between 1 and 65535")
)

// =============================================================================
// Types
// =============================================================================

// Artifacts holds the rendered build artifacts for one deployment attempt.
type Artifacts struct {
	Dockerfile        string `json:"dockerfile"`
	CaptainDefinition string `json:"captain_definition"`
	DockerCompose     string `json:"docker_compose,omitempty"`
}

// Overrides replace profile defaults. BuildCommand is a pointer so an
// explicit empty string ("no build step") is distinguishable from unset.
type Overrides struct {
	BuildCommand   *string
	StartCommand   string
	InstallCommand string
	Port           int
	OutputDir      string
}

// =============================================================================
// Rendering
// =============================================================================

// Render produces the artifacts for a resolved framework profile with
// the given overrides applied. projectName names the compose service.
func Render(profile framework.Profile, projectName string, ov Overrides) (Artifacts, error) {
	cfg := applyOverrides(profile, ov)
	if cfg.Port < 1 || cfg.Port > 65535 {
		return Artifacts{}, fmt.Errorf("%w: %d", ErrInvalidPort, cfg.Port)
	}

	dockerfile := renderDockerfile(cfg)
	captain, err := renderCaptainDefinition(cfg.Port)
	if err != nil {
		return Artifacts{}, err
	}
	compose, err := renderCompose(projectName, cfg.Port)
	if err != nil {
		return Artifacts{}, err
	}

	return Artifacts{
		Dockerfile:        dockerfile,
		CaptainDefinition: captain,
		DockerCompose:     compose,
	}, nil
}

// buildConfig is a profile with overrides folded in.
type buildConfig struct {
	Shape          framework.Shape
	BuildCommand   string
	StartCommand   string
	InstallCommand string
	Port           int
	OutputDir      string
}

func applyOverrides(p framework.Profile, ov Overrides) buildConfig {
	cfg := buildConfig{
		Shape:          p.Shape,
		BuildCommand:   p.BuildCommand,
		StartCommand:   p.StartCommand,
		InstallCommand: "npm ci --only=production",
		Port:           p.Port,
		OutputDir:      p.OutputDir,
	}
	if ov.BuildCommand != nil {
		cfg.BuildCommand = *ov.BuildCommand
	}
	if ov.StartCommand != "" {
		cfg.StartCommand = ov.StartCommand
	}
	if ov.InstallCommand != "" {
		cfg.InstallCommand = ov.InstallCommand
	}
	if ov.Port != 0 {
		cfg.Port = ov.Port
	}
	if ov.OutputDir != "" {
		cfg.OutputDir = ov.OutputDir
	}
	return cfg
}
