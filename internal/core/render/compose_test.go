package render

import (
	"testing"

	"github.com/gravitycloud/matter-deploy/internal/core/descriptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Test Fixtures
// =============================================================================

// enterpriseDescriptor is the reference deployment: backend on 8080,
// frontend served on host port 80, Postgres on 5432.
func enterpriseDescriptor() *descriptor.DeploymentDescriptor {
	return &descriptor.DeploymentDescriptor{
		Namespace:   "matterai",
		EmailDomain: "acme.com",
		Database: descriptor.DatabaseConfig{
			Host:     "postgres",
			Port:     5432,
			Name:     "matter",
			User:     "matter",
			Password: "postgres-password",
		},
		Services: []descriptor.ServiceConfig{
			{
				Role:  descriptor.RoleBackend,
				Image: "gravitycloud/matter-enterprise:latest",
				Ports: []descriptor.PortMapping{{ContainerPort: 8080, HostPort: 8080}},
				Resources: descriptor.ResourceLimits{
					CPURequest: "0.25",
					CPULimit:   "0.5",
				},
				Env: []descriptor.EnvVar{
					{Name: "DATABASE_URL", Value: "postgres://${DATABASE_USER}@${DATABASE_HOST}:${DATABASE_PORT}/${DATABASE_NAME}"},
					{Name: "GITHUB_APP_PRIVATE_KEY", SecretRef: "github-app-key"},
				},
			},
			{
				Role:  descriptor.RoleFrontend,
				Image: "gravitycloud/matter-enterprise-frontend:latest",
				Ports: []descriptor.PortMapping{{ContainerPort: 3000, HostPort: 80}},
			},
			{
				Role:  descriptor.RoleDatabase,
				Image: "postgres:16",
				Ports: []descriptor.PortMapping{{ContainerPort: 5432, HostPort: 5432}},
			},
		},
	}
}

func mustValidate(t *testing.T, d *descriptor.DeploymentDescriptor) descriptor.Validated {
	t.Helper()
	v, errs := descriptor.Validate(d)
	require.Empty(t, errs)
	return v
}

// decodeDoc unmarshals a rendered document for structural assertions.
func decodeDoc(t *testing.T, doc string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(doc), &m))
	return m
}

// dig walks nested string-keyed maps.
func dig(t *testing.T, m map[string]any, path ...string) any {
	t.Helper()
	var cur any = m
	for _, key := range path {
		node, ok := cur.(map[string]any)
		require.True(t, ok, "no map at %q", key)
		cur, ok = node[key]
		require.True(t, ok, "key %q missing", key)
	}
	return cur
}

// =============================================================================
// Document Shape
// =============================================================================

// The validator rejects database hosts whose derived service name equals one
// of the fixed service names, so a rendered document can never lose a
// service block to a key collision. This test pins the constants and the
// validator's reserved-name list to each other.
func TestRenderCompose_DatabaseHostCannotShadowOtherServices(t *testing.T) {
	for _, host := range []string{BackendServiceName, FrontendServiceName, "matter.backend"} {
		t.Run(host, func(t *testing.T) {
			d := enterpriseDescriptor()
			d.Database.Host = host
			_, errs := descriptor.Validate(d)
			require.NotEmpty(t, errs)
		})
	}
}

// Hosts that would slug to an empty service name never reach the renderer.
func TestRenderCompose_UnsluggableDatabaseHostRejected(t *testing.T) {
	d := enterpriseDescriptor()
	d.Database.Host = "!!!"
	_, errs := descriptor.Validate(d)
	require.NotEmpty(t, errs)
	assert.Empty(t, DatabaseServiceName(d.Database.Host))
}

func TestRenderCompose_EnterpriseScenario(t *testing.T) {
	doc, err := RenderCompose(mustValidate(t, enterpriseDescriptor()))
	require.NoError(t, err)

	m := decodeDoc(t, doc)
	services, ok := m["services"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, services, 3)

	assert.Equal(t, "gravitycloud/matter-enterprise:latest",
		dig(t, m, "services", "matter-backend", "image"))
	assert.Equal(t, "gravitycloud/matter-enterprise-frontend:latest",
		dig(t, m, "services", "matter-frontend", "image"))
	assert.Equal(t, "postgres:16",
		dig(t, m, "services", "postgres", "image"))

	assert.Equal(t, []any{"8080:8080"}, dig(t, m, "services", "matter-backend", "ports"))
	assert.Equal(t, []any{"80:3000"}, dig(t, m, "services", "matter-frontend", "ports"))
	assert.Equal(t, []any{"5432:5432"}, dig(t, m, "services", "postgres", "ports"))

	assert.Equal(t, "bridge", dig(t, m, "networks", "matter-network", "driver"))
	assert.Equal(t, "local", dig(t, m, "volumes", "postgres-data", "driver"))
}

func TestRenderCompose_DatabaseServiceNamedFromHost(t *testing.T) {
	d := enterpriseDescriptor()
	d.Database.Host = "matter-db"
	doc, err := RenderCompose(mustValidate(t, d))
	require.NoError(t, err)

	m := decodeDoc(t, doc)
	assert.Equal(t, "postgres:16", dig(t, m, "services", "matter-db", "image"))
	assert.Contains(t, dig(t, m, "services", "matter-db", "volumes"), "matter-db-data:/var/lib/postgresql/data")
}

func TestRenderCompose_ResourceMapping(t *testing.T) {
	doc, err := RenderCompose(mustValidate(t, enterpriseDescriptor()))
	require.NoError(t, err)

	m := decodeDoc(t, doc)
	// Requests map to reservations, limits to limits, emitted as given.
	assert.Equal(t, "0.25", dig(t, m, "services", "matter-backend", "deploy", "resources", "reservations", "cpus"))
	assert.Equal(t, "0.5", dig(t, m, "services", "matter-backend", "deploy", "resources", "limits", "cpus"))
}

func TestRenderCompose_NoResourcesOmitsDeploy(t *testing.T) {
	doc, err := RenderCompose(mustValidate(t, enterpriseDescriptor()))
	require.NoError(t, err)

	m := decodeDoc(t, doc)
	frontend, ok := dig(t, m, "services", "matter-frontend").(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, frontend, "deploy")
}

// =============================================================================
// Environment
// =============================================================================

func TestRenderCompose_DatabasePlaceholdersSubstituted(t *testing.T) {
	doc, err := RenderCompose(mustValidate(t, enterpriseDescriptor()))
	require.NoError(t, err)

	m := decodeDoc(t, doc)
	assert.Equal(t, "postgres://matter@postgres:5432/matter",
		dig(t, m, "services", "matter-backend", "environment", "DATABASE_URL"))
	assert.NotContains(t, doc, "${DATABASE_")
}

func TestRenderCompose_SecretRefsEmittedVerbatim(t *testing.T) {
	doc, err := RenderCompose(mustValidate(t, enterpriseDescriptor()))
	require.NoError(t, err)

	m := decodeDoc(t, doc)
	// Secret resolution belongs to the secret store, never the renderer.
	assert.Equal(t, "github-app-key",
		dig(t, m, "services", "matter-backend", "environment", "GITHUB_APP_PRIVATE_KEY"))
	assert.Equal(t, "postgres-password",
		dig(t, m, "services", "postgres", "environment", "POSTGRES_PASSWORD"))
}

func TestRenderCompose_BackendGetsEmailDomain(t *testing.T) {
	doc, err := RenderCompose(mustValidate(t, enterpriseDescriptor()))
	require.NoError(t, err)

	m := decodeDoc(t, doc)
	assert.Equal(t, "acme.com",
		dig(t, m, "services", "matter-backend", "environment", "ALLOWED_EMAIL_DOMAIN"))
}

func TestRenderCompose_ExplicitEmailDomainWins(t *testing.T) {
	d := enterpriseDescriptor()
	d.Services[0].Env = append(d.Services[0].Env,
		descriptor.EnvVar{Name: "ALLOWED_EMAIL_DOMAIN", Value: "corp.acme.com"})
	doc, err := RenderCompose(mustValidate(t, d))
	require.NoError(t, err)

	m := decodeDoc(t, doc)
	assert.Equal(t, "corp.acme.com",
		dig(t, m, "services", "matter-backend", "environment", "ALLOWED_EMAIL_DOMAIN"))
}

func TestRenderCompose_PostgresBootstrapEnv(t *testing.T) {
	doc, err := RenderCompose(mustValidate(t, enterpriseDescriptor()))
	require.NoError(t, err)

	m := decodeDoc(t, doc)
	assert.Equal(t, "matter", dig(t, m, "services", "postgres", "environment", "POSTGRES_DB"))
	assert.Equal(t, "matter", dig(t, m, "services", "postgres", "environment", "POSTGRES_USER"))
}

// =============================================================================
// Port Ordering
// =============================================================================

func TestRenderCompose_PortOrderPreserved(t *testing.T) {
	d := enterpriseDescriptor()
	d.Services[0].Ports = []descriptor.PortMapping{
		{ContainerPort: 9090, HostPort: 9090},
		{ContainerPort: 8080, HostPort: 8080},
	}
	doc, err := RenderCompose(mustValidate(t, d))
	require.NoError(t, err)

	m := decodeDoc(t, doc)
	assert.Equal(t, []any{"9090:9090", "8080:8080"},
		dig(t, m, "services", "matter-backend", "ports"))
}

func TestRenderCompose_PortWithoutHostPort(t *testing.T) {
	d := enterpriseDescriptor()
	d.Services[0].Ports = []descriptor.PortMapping{{ContainerPort: 8080}}
	doc, err := RenderCompose(mustValidate(t, d))
	require.NoError(t, err)

	m := decodeDoc(t, doc)
	assert.Equal(t, []any{"8080"}, dig(t, m, "services", "matter-backend", "ports"))
}

// =============================================================================
// Determinism and Contract
// =============================================================================

func TestRenderCompose_Deterministic(t *testing.T) {
	v := mustValidate(t, enterpriseDescriptor())
	first, err := RenderCompose(v)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := RenderCompose(v)
		require.NoError(t, err)
		assert.Equal(t, first, again, "identical input must render byte-identical output")
	}
}

func TestRenderCompose_UnvalidatedDescriptorIsContractViolation(t *testing.T) {
	var v descriptor.Validated
	_, err := RenderCompose(v)
	require.Error(t, err)

	var cv *descriptor.ContractViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "RenderCompose", cv.Op)
}

func TestComposeRenderer_ImplementsRenderer(t *testing.T) {
	var r Renderer = ComposeRenderer{}
	assert.Equal(t, TargetCompose, r.Target())

	doc, err := r.Render(mustValidate(t, enterpriseDescriptor()))
	require.NoError(t, err)
	assert.NotEmpty(t, doc)
}
