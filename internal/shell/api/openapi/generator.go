// Package openapi produces the OpenAPI 3.0 document for the render API.
package openapi

import (
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

// =============================================================================
// Generator
// =============================================================================

// Generator builds the OpenAPI 3.0 specification for the render API. The
// endpoint set is fixed, so the document is assembled once and cached.
type Generator struct {
	title       string
	version     string
	description string

	mu         sync.Mutex
	cachedSpec *openapi3.T
}

// Option configures the generator.
type Option func(*Generator)

// WithTitle sets the API title.
func WithTitle(title string) Option {
	return func(g *Generator) {
		g.title = title
	}
}

// WithVersion sets the API version.
func WithVersion(version string) Option {
	return func(g *Generator) {
		g.version = version
	}
}

// NewGenerator creates a new OpenAPI generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		title:       "Matter Deploy API",
		version:     "1.0.0",
		description: "Validates deployment descriptors and renders Docker Compose and Helm values documents.",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns the complete OpenAPI 3.0 specification.
func (g *Generator) Generate() *openapi3.T {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cachedSpec != nil {
		return g.cachedSpec
	}

	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       g.title,
			Version:     g.version,
			Description: g.description,
		},
		Paths: openapi3.NewPaths(),
	}

	spec.Paths.Set("/health", &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: "health",
			Summary:     "Liveness check",
			Responses:   responses(map[string]string{"200": "Service is healthy"}),
		},
	})

	spec.Paths.Set("/api/v1/validate", &openapi3.PathItem{
		Post: &openapi3.Operation{
			OperationID: "validateDescriptor",
			Summary:     "Validate a deployment descriptor",
			Description: "Checks every invariant and returns the complete list of violations, never just the first.",
			RequestBody: renderRequestBody(),
			Responses: responses(map[string]string{
				"200": "Descriptor is valid",
				"400": "Malformed request body",
				"422": "Descriptor is invalid; body lists every violation",
			}),
		},
	})

	spec.Paths.Set("/api/v1/render/compose", &openapi3.PathItem{
		Post: &openapi3.Operation{
			OperationID: "renderCompose",
			Summary:     "Render a Docker Compose document",
			RequestBody: renderRequestBody(),
			Responses: responses(map[string]string{
				"200": "Rendered Compose document",
				"400": "Malformed request body",
				"422": "Descriptor is invalid; body lists every violation",
			}),
		},
	})

	spec.Paths.Set("/api/v1/render/helm", &openapi3.PathItem{
		Post: &openapi3.Operation{
			OperationID: "renderHelmValues",
			Summary:     "Render a Helm values document",
			Description: "Requires explicit storage class and Postgres volume size; capacity is never defaulted.",
			RequestBody: renderRequestBody(),
			Responses: responses(map[string]string{
				"200": "Rendered Helm values document",
				"400": "Malformed request body or missing render options",
				"422": "Descriptor is invalid; body lists every violation",
			}),
		},
	})

	g.cachedSpec = spec
	return spec
}

// =============================================================================
// Schema Helpers
// =============================================================================

func renderRequestBody() *openapi3.RequestBodyRef {
	schema := openapi3.NewObjectSchema().
		WithProperty("descriptor", descriptorSchema()).
		WithProperty("options", openapi3.NewObjectSchema().
			WithProperty("storageClass", openapi3.NewStringSchema()).
			WithProperty("postgresVolumeSize", openapi3.NewStringSchema()))
	schema.Required = []string{"descriptor"}

	return &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().WithJSONSchema(schema).WithRequired(true),
	}
}

func descriptorSchema() *openapi3.Schema {
	service := openapi3.NewObjectSchema().
		WithProperty("role", openapi3.NewStringSchema().WithEnum("backend", "frontend", "database")).
		WithProperty("image", openapi3.NewStringSchema()).
		WithProperty("replicas", openapi3.NewIntegerSchema()).
		WithProperty("resources", openapi3.NewObjectSchema().
			WithProperty("cpuRequest", openapi3.NewStringSchema()).
			WithProperty("cpuLimit", openapi3.NewStringSchema()).
			WithProperty("memoryRequest", openapi3.NewStringSchema()).
			WithProperty("memoryLimit", openapi3.NewStringSchema())).
		WithProperty("ports", openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema().
			WithProperty("containerPort", openapi3.NewIntegerSchema()).
			WithProperty("hostPort", openapi3.NewIntegerSchema()).
			WithProperty("servicePort", openapi3.NewIntegerSchema()))).
		WithProperty("env", openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema().
			WithProperty("name", openapi3.NewStringSchema()).
			WithProperty("value", openapi3.NewStringSchema()).
			WithProperty("secretRef", openapi3.NewStringSchema())))

	schema := openapi3.NewObjectSchema().
		WithProperty("namespace", openapi3.NewStringSchema()).
		WithProperty("emailDomain", openapi3.NewStringSchema()).
		WithProperty("database", openapi3.NewObjectSchema().
			WithProperty("host", openapi3.NewStringSchema()).
			WithProperty("port", openapi3.NewIntegerSchema()).
			WithProperty("name", openapi3.NewStringSchema()).
			WithProperty("user", openapi3.NewStringSchema()).
			WithProperty("password", openapi3.NewStringSchema())).
		WithProperty("services", openapi3.NewArraySchema().WithItems(service)).
		WithProperty("ingress", openapi3.NewObjectSchema().
			WithProperty("enabled", openapi3.NewBoolSchema()).
			WithProperty("host", openapi3.NewStringSchema()).
			WithProperty("tlsSecretName", openapi3.NewStringSchema())).
		WithProperty("registryCredentials", openapi3.NewObjectSchema().
			WithProperty("registry", openapi3.NewStringSchema()).
			WithProperty("username", openapi3.NewStringSchema()).
			WithProperty("password", openapi3.NewStringSchema()).
			WithProperty("authToken", openapi3.NewStringSchema()))
	schema.Required = []string{"namespace", "emailDomain", "database", "services"}
	return schema
}

func responses(byStatus map[string]string) *openapi3.Responses {
	out := openapi3.NewResponses()
	for status, description := range byStatus {
		desc := description
		out.Set(status, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription(desc),
		})
	}
	return out
}
