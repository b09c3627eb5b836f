package artifact

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// Captain Definition
// =============================================================================

// captainDefinition is the deployment descriptor CapRover consumes.
// Struct field order fixes the serialized key order, which keeps the
// rendered document reproducible.
type captainDefinition struct {
	SchemaVersion  int    `json:"schemaVersion"`
	DockerfilePath string `json:"dockerfilePath"`
	ImageName      string `json:"imageName"`
	CaptainPort    int    `json:"captainPort"`
}

// renderCaptainDefinition renders the versioned deployment descriptor.
// The image name is a template the platform expands at build time.
func renderCaptainDefinition(port int) (string, error) {
	def := captainDefinition{
		SchemaVersion:  2,
		DockerfilePath: "./Dockerfile",
		ImageName:      "${APP_NAME}:${BUILD_ID}",
		CaptainPort:    port,
	}
	out, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal captain definition: %w", err)
	}
	return string(out), nil
}
