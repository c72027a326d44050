// Package render contains pure functions that transform a validated
// deployment descriptor into external deployment documents. This is part of
// the Functional Core - no I/O, no shared state, deterministic output.
package render

import (
	"regexp"
	"strconv"

	"github.com/gravitycloud/matter-deploy/internal/core/descriptor"
)

// =============================================================================
// Render Targets
// =============================================================================

// Target identifies one supported output format.
type Target string

const (
	// TargetCompose renders a Docker Compose document.
	TargetCompose Target = "compose"
	// TargetHelm renders a Helm values document.
	TargetHelm Target = "helm"
)

// Renderer maps a validated descriptor to one external document format.
// Identical validated input always produces byte-identical output, so
// rendered documents are diffable across deployment history.
type Renderer interface {
	Target() Target
	Render(v descriptor.Validated) (string, error)
}

// =============================================================================
// Resource Naming
// =============================================================================

const (
	// BackendServiceName is the Compose service name for the backend role.
	BackendServiceName = "matter-backend"
	// FrontendServiceName is the Compose service name for the frontend role.
	FrontendServiceName = "matter-frontend"
	// NetworkName is the shared bridge network all services attach to.
	NetworkName = "matter-network"
)

// DatabaseServiceName derives the Compose service name for the database role
// from the configured database host, so connection strings resolve inside
// the Compose network without placeholders.
//
// Example:
//
//	DatabaseServiceName("postgres")    // returns "postgres"
//	DatabaseServiceName("db.internal") // returns "db-internal"
func DatabaseServiceName(host string) string {
	slug := ""
	for _, r := range host {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			slug += string(r)
		} else if r >= 'A' && r <= 'Z' {
			slug += string(r + 32)
		} else if r == ' ' || r == '.' || r == '_' {
			slug += "-"
		}
	}
	return slug
}

// DataVolumeName derives the named volume holding the Postgres data
// directory. Pattern: {databaseServiceName}-data
func DataVolumeName(host string) string {
	return DatabaseServiceName(host) + "-data"
}

// =============================================================================
// Placeholder Substitution
// =============================================================================

// placeholderRegex matches ${VAR} placeholders in env values.
var placeholderRegex = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// substituteDatabaseVars replaces the DATABASE_* placeholders in an env
// value with the literal values from DatabaseConfig. The validator has
// already rejected unknown placeholders, so nothing survives unresolved.
func substituteDatabaseVars(value string, db descriptor.DatabaseConfig) string {
	vars := map[string]string{
		"DATABASE_HOST": db.Host,
		"DATABASE_PORT": strconv.Itoa(db.Port),
		"DATABASE_NAME": db.Name,
		"DATABASE_USER": db.User,
	}
	return placeholderRegex.ReplaceAllStringFunc(value, func(match string) string {
		name := placeholderRegex.FindStringSubmatch(match)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return match
	})
}

// environmentMap flattens a service's env list into a name to value map.
// Literal values get database placeholders substituted; secret references
// are emitted verbatim - secret resolution belongs to an external secret
// store, never to a renderer.
func environmentMap(svc *descriptor.ServiceConfig, db descriptor.DatabaseConfig) map[string]string {
	if len(svc.Env) == 0 {
		return nil
	}
	env := make(map[string]string, len(svc.Env))
	for _, e := range svc.Env {
		if e.SecretRef != "" {
			env[e.Name] = e.SecretRef
			continue
		}
		env[e.Name] = substituteDatabaseVars(e.Value, db)
	}
	return env
}
