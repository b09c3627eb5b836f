package artifact

import (
	"fmt"
	"strings"

	"github.com/deployhub/deployhub/internal/core/framework"
)

// =============================================================================
// Dockerfile Rendering
// =============================================================================

const baseImage = "node:18-alpine"

// renderDockerfile branches on the deployment shape. Every variant is a
// plain string build so output is byte-for-byte reproducible.
func renderDockerfile(cfg buildConfig) string {
	switch cfg.Shape {
	case framework.ShapeServer:
		return serverDockerfile(cfg)
	case framework.ShapeStaticServe:
		return staticServeDockerfile(cfg)
	default:
		return directDockerfile(cfg)
	}
}

// serverDockerfile is a multi-stage build for frameworks that compile
// to a self-hosting server process (Next.js standalone output).
func serverDockerfile(cfg buildConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "FROM %s AS base\n\n", baseImage)

	b.WriteString("# Install dependencies only when needed\n")
	b.WriteString("FROM base AS deps\n")
	b.WriteString("RUN apk add --no-cache libc6-compat\n")
	b.WriteString("WORKDIR /app\n\n")
	b.WriteString("COPY package*.json ./\n")
	fmt.Fprintf(&b, "RUN %s && npm cache clean --force\n\n", cfg.InstallCommand)

	b.WriteString("# Rebuild the source code only when needed\n")
	b.WriteString("FROM base AS builder\n")
	b.WriteString("WORKDIR /app\n")
	b.WriteString("COPY --from=deps /app/node_modules ./node_modules\n")
	b.WriteString("COPY . .\n\n")
	if cfg.BuildCommand != "" {
		fmt.Fprintf(&b, "RUN %s\n\n", cfg.BuildCommand)
	}

	b.WriteString("# Production image, run the standalone server as non-root\n")
	b.WriteString("FROM base AS runner\n")
	b.WriteString("WORKDIR /app\n\n")
	b.WriteString("ENV NODE_ENV=production\n")
	b.WriteString("ENV NEXT_TELEMETRY_DISABLED=1\n\n")
	b.WriteString("RUN addgroup --system --gid 1001 nodejs\n")
	b.WriteString("RUN adduser --system --uid 1001 nextjs\n\n")
	b.WriteString("COPY --from=builder /app/public ./public\n")
	fmt.Fprintf(&b, "COPY --from=builder --chown=nextjs:nodejs /app/%s/standalone ./\n", cfg.OutputDir)
	fmt.Fprintf(&b, "COPY --from=builder --chown=nextjs:nodejs /app/%s/static ./%s/static\n\n", cfg.OutputDir, cfg.OutputDir)
	b.WriteString("USER nextjs\n\n")
	fmt.Fprintf(&b, "EXPOSE %d\n", cfg.Port)
	fmt.Fprintf(&b, "ENV PORT=%d\n\n", cfg.Port)
	b.WriteString("CMD [\"node\", \"server.js\"]\n")
	return b.String()
}

// staticServeDockerfile builds the app in one stage and serves only the
// output directory with a static file server in the final stage.
func staticServeDockerfile(cfg buildConfig) string {
	var b strings.Builder
	b.WriteString("# Build stage\n")
	fmt.Fprintf(&b, "FROM %s AS build\n\n", baseImage)
	b.WriteString("WORKDIR /app\n\n")
	b.WriteString("COPY package*.json ./\n")
	fmt.Fprintf(&b, "RUN %s\n\n", cfg.InstallCommand)
	b.WriteString("COPY . .\n\n")
	if cfg.BuildCommand != "" {
		fmt.Fprintf(&b, "RUN %s\n\n", cfg.BuildCommand)
	}

	b.WriteString("# Serve stage\n")
	fmt.Fprintf(&b, "FROM %s AS production\n\n", baseImage)
	b.WriteString("WORKDIR /app\n\n")
	b.WriteString("RUN npm install -g serve\n\n")
	fmt.Fprintf(&b, "COPY --from=build /app/%s ./build\n\n", cfg.OutputDir)
	fmt.Fprintf(&b, "EXPOSE %d\n\n", cfg.Port)
	fmt.Fprintf(&b, "CMD [\"serve\", \"-s\", \"build\", \"-l\", \"%d\"]\n", cfg.Port)
	return b.String()
}

// directDockerfile is a single-stage image that installs dependencies
// and runs the start command. An empty build command emits no RUN build
// step at all.
func directDockerfile(cfg buildConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "FROM %s\n\n", baseImage)
	b.WriteString("WORKDIR /app\n\n")
	b.WriteString("COPY package*.json ./\n")
	fmt.Fprintf(&b, "RUN %s\n\n", cfg.InstallCommand)
	b.WriteString("COPY . .\n\n")
	if cfg.BuildCommand != "" {
		fmt.Fprintf(&b, "RUN %s\n\n", cfg.BuildCommand)
	}
	fmt.Fprintf(&b, "EXPOSE %d\n\n", cfg.Port)
	fmt.Fprintf(&b, "CMD %s\n", cfg.StartCommand)
	return b.String()
}
