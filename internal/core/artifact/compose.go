package artifact

import (
	"context"
	"fmt"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Docker Compose Rendering
// =============================================================================

// composeFile mirrors the small compose document we emit. yaml.v3
// serializes struct fields in declaration order and map keys sorted,
// so the output is deterministic.
type composeFile struct {
	Version  string                    `yaml:"version"`
	Services map[string]composeService `yaml:"services"`
	Networks map[string]composeNetwork `yaml:"networks"`
}

type composeService struct {
	Build       composeBuild `yaml:"build"`
	Ports       []string     `yaml:"ports"`
	Environment []string     `yaml:"environment"`
	Restart     string       `yaml:"restart"`
	Networks    []string     `yaml:"networks"`
}

type composeBuild struct {
	Context    string `yaml:"context"`
	Dockerfile string `yaml:"dockerfile"`
}

type composeNetwork struct {
	Driver string `yaml:"driver"`
}

// renderCompose renders a single-service compose file for local runs of
// the same image the platform builds.
func renderCompose(projectName string, port int) (string, error) {
	doc := composeFile{
		Version: "3.8",
		Services: map[string]composeService{
			projectName: {
				Build:       composeBuild{Context: ".", Dockerfile: "Dockerfile"},
				Ports:       []string{fmt.Sprintf("%d:%d", port, port)},
				Environment: []string{"NODE_ENV=production"},
				Restart:     "unless-stopped",
				Networks:    []string{"app-network"},
			},
		},
		Networks: map[string]composeNetwork{
			"app-network": {Driver: "bridge"},
		},
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal compose file: %w", err)
	}
	return string(out), nil
}

// ValidateCompose checks that a rendered compose document is loadable
// by the compose spec loader. Used by the artifact preview endpoint and
// kept here so the check matches what was rendered.
func ValidateCompose(yamlContent string) error {
	var dict map[string]any
	if err := yaml.Unmarshal([]byte(yamlContent), &dict); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}

	_, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{Content: []byte(yamlContent), Config: dict},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName("deployhub-preview", false)
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		return fmt.Errorf("invalid compose document: %w", err)
	}
	return nil
}
