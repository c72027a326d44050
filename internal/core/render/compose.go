package render

import (
	"bytes"
	"fmt"

	"github.com/gravitycloud/matter-deploy/internal/core/descriptor"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Compose Document Shape
// =============================================================================

// composeDocument mirrors the Compose file structure. Field order here fixes
// the top-level key order; map keys are sorted by the YAML encoder, so the
// output is byte-identical for identical input.
type composeDocument struct {
	Services map[string]composeService `yaml:"services"`
	Networks map[string]composeNetwork `yaml:"networks"`
	Volumes  map[string]composeVolume  `yaml:"volumes"`
}

type composeService struct {
	Image       string            `yaml:"image"`
	Restart     string            `yaml:"restart"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Ports       []string          `yaml:"ports,omitempty"`
	Volumes     []string          `yaml:"volumes,omitempty"`
	DependsOn   []string          `yaml:"depends_on,omitempty"`
	Deploy      *composeDeploy    `yaml:"deploy,omitempty"`
	Networks    []string          `yaml:"networks"`
}

type composeDeploy struct {
	Resources composeResources `yaml:"resources"`
}

type composeResources struct {
	Limits       *composeResourcePair `yaml:"limits,omitempty"`
	Reservations *composeResourcePair `yaml:"reservations,omitempty"`
}

type composeResourcePair struct {
	CPUs   string `yaml:"cpus,omitempty"`
	Memory string `yaml:"memory,omitempty"`
}

type composeNetwork struct {
	Driver string `yaml:"driver"`
}

type composeVolume struct {
	Driver string `yaml:"driver"`
}

const postgresDataDir = "/var/lib/postgresql/data"

// =============================================================================
// Compose Renderer
// =============================================================================

// ComposeRenderer renders a validated descriptor into a Docker Compose
// document. The zero value is ready to use.
type ComposeRenderer struct{}

// Target returns TargetCompose.
func (ComposeRenderer) Target() Target {
	return TargetCompose
}

// Render implements Renderer.
func (ComposeRenderer) Render(v descriptor.Validated) (string, error) {
	return RenderCompose(v)
}

// RenderCompose renders a validated descriptor into a complete Docker
// Compose document with services, networks and volumes top-level keys.
//
// The document is never partial: an unvalidated descriptor is a programming
// error in the caller and fails fast with a ContractViolation.
func RenderCompose(v descriptor.Validated) (string, error) {
	d := v.Descriptor()
	if d == nil {
		return "", descriptor.NewContractViolation("RenderCompose", "descriptor has not passed validation")
	}

	dbName := DatabaseServiceName(d.Database.Host)
	volName := DataVolumeName(d.Database.Host)

	doc := composeDocument{
		Services: map[string]composeService{
			BackendServiceName:  composeBackend(d, dbName),
			FrontendServiceName: composeFrontend(d),
			dbName:              composeDatabase(d, volName),
		},
		Networks: map[string]composeNetwork{
			NetworkName: {Driver: "bridge"},
		},
		Volumes: map[string]composeVolume{
			volName: {Driver: "local"},
		},
	}

	return marshalDocument(doc, "RenderCompose")
}

// =============================================================================
// Service Blocks
// =============================================================================

func composeBackend(d *descriptor.DeploymentDescriptor, dbName string) composeService {
	svc := d.ServiceByRole(descriptor.RoleBackend)
	block := composeServiceBlock(svc, d.Database)
	block.DependsOn = []string{dbName}

	// The backend enforces the account email domain restriction.
	if block.Environment == nil {
		block.Environment = make(map[string]string)
	}
	if _, ok := block.Environment["ALLOWED_EMAIL_DOMAIN"]; !ok {
		block.Environment["ALLOWED_EMAIL_DOMAIN"] = d.EmailDomain
	}
	return block
}

func composeFrontend(d *descriptor.DeploymentDescriptor) composeService {
	svc := d.ServiceByRole(descriptor.RoleFrontend)
	block := composeServiceBlock(svc, d.Database)
	block.DependsOn = []string{BackendServiceName}
	return block
}

func composeDatabase(d *descriptor.DeploymentDescriptor, volName string) composeService {
	svc := d.ServiceByRole(descriptor.RoleDatabase)
	block := composeServiceBlock(svc, d.Database)
	block.Volumes = []string{volName + ":" + postgresDataDir}

	// DatabaseConfig is the single source of truth for the Postgres
	// bootstrap variables; explicit env entries do not override it.
	if block.Environment == nil {
		block.Environment = make(map[string]string)
	}
	block.Environment["POSTGRES_DB"] = d.Database.Name
	block.Environment["POSTGRES_USER"] = d.Database.User
	block.Environment["POSTGRES_PASSWORD"] = d.Database.Password
	return block
}

// composeServiceBlock maps the fields shared by every role.
func composeServiceBlock(svc *descriptor.ServiceConfig, db descriptor.DatabaseConfig) composeService {
	block := composeService{
		Image:       svc.Image,
		Restart:     "unless-stopped",
		Environment: environmentMap(svc, db),
		Networks:    []string{NetworkName},
	}

	// Order preserved from the input sequence.
	for _, p := range svc.Ports {
		if p.HostPort != 0 {
			block.Ports = append(block.Ports, fmt.Sprintf("%d:%d", p.HostPort, p.ContainerPort))
		} else {
			block.Ports = append(block.Ports, fmt.Sprintf("%d", p.ContainerPort))
		}
	}

	// Requests map to reservations, limits map to limits. Quantities are
	// emitted as given - validation already checked request <= limit.
	res := svc.Resources
	var limits, reservations *composeResourcePair
	if res.CPULimit != "" || res.MemoryLimit != "" {
		limits = &composeResourcePair{CPUs: res.CPULimit, Memory: res.MemoryLimit}
	}
	if res.CPURequest != "" || res.MemoryRequest != "" {
		reservations = &composeResourcePair{CPUs: res.CPURequest, Memory: res.MemoryRequest}
	}
	if limits != nil || reservations != nil {
		block.Deploy = &composeDeploy{
			Resources: composeResources{Limits: limits, Reservations: reservations},
		}
	}

	return block
}

// =============================================================================
// Marshaling
// =============================================================================

// marshalDocument encodes a document with stable two-space indentation.
func marshalDocument(doc any, op string) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", descriptor.NewContractViolation(op, "document failed to marshal: "+err.Error())
	}
	if err := enc.Close(); err != nil {
		return "", descriptor.NewContractViolation(op, "document failed to marshal: "+err.Error())
	}
	return buf.String(), nil
}
