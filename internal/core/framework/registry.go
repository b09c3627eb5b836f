// Package framework maps framework identifiers to their build and
// runtime profiles. The registry is a fixed table; lookups are pure.
package framework

import (
	"errors"
	"fmt"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrUnknownFramework is returned when an identifier is not registered.
	ErrUnknownFramework = errors.New("unknown framework")
)

// =============================================================================
// Deployment Shapes
// =============================================================================

// Shape classifies how a framework's build output is run in a container.
type Shape string

const (
	// ShapeServer compiles to a self-hosting server process (multi-stage
	// build, standalone output).
	ShapeServer Shape = "server"

	// ShapeStaticServe builds static assets served by a lightweight
	// file server (multi-stage build, serve stage copies the output dir).
	ShapeStaticServe Shape = "static-serve"

	// ShapeDirect runs install then the start command directly in a
	// single stage, with an optional build step.
	ShapeDirect Shape = "direct"
)

// =============================================================================
// Profile
// =============================================================================

// Profile is the declarative build/runtime recipe for a framework.
// BuildCommand may be empty, meaning the framework has no build step.
type Profile struct {
	ID           string
	Label        string
	Shape        Shape
	BuildCommand string
	StartCommand string
	Port         int
	OutputDir    string
	Dependencies []string
	DevDeps      []string
}

// =============================================================================
// Registry
// =============================================================================

// registrationOrder fixes the order List returns identifiers in.
var registrationOrder = []string{"nextjs", "react", "vue", "angular", "static", "node"}

var profiles = map[string]Profile{
	"nextjs": {
		ID:           "nextjs",
		Label:        "Next.js",
		Shape:        ShapeServer,
		BuildCommand: "npm run build",
		StartCommand: "npm start",
		Port:         3000,
		OutputDir:    ".next",
		Dependencies: []string{"next", "react", "react-dom"},
		DevDeps:      []string{"@types/node", "@types/react", "@types/react-dom", "typescript"},
	},
	"react": {
		ID:           "react",
		Label:        "React",
		Shape:        ShapeStaticServe,
		BuildCommand: "npm run build",
		StartCommand: "npx serve -s build",
		Port:         3000,
		OutputDir:    "build",
		Dependencies: []string{"react", "react-dom", "serve"},
		DevDeps:      []string{"@types/react", "@types/react-dom"},
	},
	"vue": {
		ID:           "vue",
		Label:        "Vue.js",
		Shape:        ShapeStaticServe,
		BuildCommand: "npm run build",
		StartCommand: "npx serve -s dist",
		Port:         3000,
		OutputDir:    "dist",
		Dependencies: []string{"vue", "serve"},
		DevDeps:      []string{"@vue/cli-service"},
	},
	"angular": {
		ID:           "angular",
		Label:        "Angular",
		Shape:        ShapeStaticServe,
		BuildCommand: "ng build --prod",
		StartCommand: "npx serve -s dist",
		Port:         3000,
		OutputDir:    "dist",
		Dependencies: []string{"@angular/core", "@angular/cli", "serve"},
		DevDeps:      []string{"@angular/cli"},
	},
	"static": {
		ID:           "static",
		Label:        "Static HTML",
		Shape:        ShapeDirect,
		BuildCommand: "",
		StartCommand: "npx serve -s .",
		Port:         3000,
		OutputDir:    ".",
		Dependencies: []string{"serve"},
	},
	"node": {
		ID:           "node",
		Label:        "Node.js",
		Shape:        ShapeDirect,
		BuildCommand: "npm run build",
		StartCommand: "npm start",
		Port:         3000,
		OutputDir:    "dist",
		Dependencies: []string{"express"},
	},
}

// Resolve looks up a framework profile by identifier.
// An unknown identifier is an error, never a silent default.
func Resolve(id string) (Profile, error) {
	p, ok := profiles[id]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownFramework, id)
	}
	return p, nil
}

// List returns the supported framework identifiers in registration order.
func List() []string {
	out := make([]string, len(registrationOrder))
	copy(out, registrationOrder)
	return out
}
