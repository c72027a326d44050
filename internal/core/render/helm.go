package render

import (
	"github.com/gravitycloud/matter-deploy/internal/core/descriptor"
)

// =============================================================================
// Helm Values Document Shape
// =============================================================================

// helmValues mirrors the values.yaml consumed by the enterprise Helm chart:
// global, imageCredentials, components, persistence and secrets top-level
// keys, in that order.
type helmValues struct {
	Global           helmGlobal               `yaml:"global"`
	ImageCredentials *helmImageCredentials    `yaml:"imageCredentials,omitempty"`
	Components       map[string]helmComponent `yaml:"components"`
	Persistence      helmPersistence          `yaml:"persistence"`
	Secrets          helmSecrets              `yaml:"secrets"`
}

type helmGlobal struct {
	Namespace    string `yaml:"namespace"`
	EmailDomain  string `yaml:"emailDomain"`
	StorageClass string `yaml:"storageClass"`
}

type helmImageCredentials struct {
	Registry  string `yaml:"registry"`
	Username  string `yaml:"username,omitempty"`
	Password  string `yaml:"password,omitempty"`
	AuthToken string `yaml:"authToken,omitempty"`
}

type helmComponent struct {
	Image         helmImage         `yaml:"image"`
	Replicas      int               `yaml:"replicas"`
	Resources     *helmResources    `yaml:"resources,omitempty"`
	Env           map[string]string `yaml:"env,omitempty"`
	Service       helmService       `yaml:"service"`
	Ingress       helmIngress       `yaml:"ingress"`
	NginxConf     string            `yaml:"nginxConf,omitempty"`
	RuntimeConfig string            `yaml:"runtimeConfig,omitempty"`
}

type helmImage struct {
	Repository string `yaml:"repository"`
	Tag        string `yaml:"tag"`
}

type helmResources struct {
	Requests *helmResourcePair `yaml:"requests,omitempty"`
	Limits   *helmResourcePair `yaml:"limits,omitempty"`
}

type helmResourcePair struct {
	CPU    string `yaml:"cpu,omitempty"`
	Memory string `yaml:"memory,omitempty"`
}

type helmService struct {
	Type       string `yaml:"type"`
	Port       int    `yaml:"port"`
	TargetPort int    `yaml:"targetPort"`
}

type helmIngress struct {
	Enabled       bool   `yaml:"enabled"`
	Host          string `yaml:"host,omitempty"`
	TLSSecretName string `yaml:"tlsSecretName,omitempty"`
}

type helmPersistence struct {
	Postgres helmPostgresPersistence `yaml:"postgres"`
}

type helmPostgresPersistence struct {
	Enabled      bool   `yaml:"enabled"`
	Size         string `yaml:"size"`
	StorageClass string `yaml:"storageClass"`
}

type helmSecrets struct {
	Postgres helmPostgresSecrets `yaml:"postgres"`
}

type helmPostgresSecrets struct {
	PasswordRef string `yaml:"passwordRef"`
}

// Component names the chart expects, keyed by role.
const (
	backendComponent  = "matterBackend"
	frontendComponent = "matterFrontend"
	databaseComponent = "postgres"
)

// =============================================================================
// Options
// =============================================================================

// HelmOptions carries the inputs the descriptor does not specify. Capacity
// sizing is an explicit required input: this renderer never invents a
// default volume size or storage class.
type HelmOptions struct {
	// StorageClass is the storage class for the Postgres volume and the
	// global section.
	StorageClass string

	// PostgresVolumeSize is the persistent volume size, e.g. "10Gi".
	PostgresVolumeSize string
}

// =============================================================================
// Helm Values Renderer
// =============================================================================

// HelmRenderer renders a validated descriptor into a Helm values document.
type HelmRenderer struct {
	Options HelmOptions
}

// Target returns TargetHelm.
func (HelmRenderer) Target() Target {
	return TargetHelm
}

// Render implements Renderer.
func (r HelmRenderer) Render(v descriptor.Validated) (string, error) {
	return RenderHelmValues(v, r.Options)
}

// RenderHelmValues renders a validated descriptor into a complete Helm
// values document. An unvalidated descriptor or incomplete options are
// programming errors in the caller and fail fast with a ContractViolation.
func RenderHelmValues(v descriptor.Validated, opts HelmOptions) (string, error) {
	d := v.Descriptor()
	if d == nil {
		return "", descriptor.NewContractViolation("RenderHelmValues", "descriptor has not passed validation")
	}
	if opts.PostgresVolumeSize == "" {
		return "", descriptor.NewContractViolation("RenderHelmValues", "PostgresVolumeSize is a required input")
	}
	if opts.StorageClass == "" {
		return "", descriptor.NewContractViolation("RenderHelmValues", "StorageClass is a required input")
	}

	doc := helmValues{
		Global: helmGlobal{
			Namespace:    d.Namespace,
			EmailDomain:  d.EmailDomain,
			StorageClass: opts.StorageClass,
		},
		ImageCredentials: helmCredentials(d.RegistryCredentials),
		Components: map[string]helmComponent{
			backendComponent:  helmComponentBlock(d, descriptor.RoleBackend),
			frontendComponent: helmFrontendBlock(d),
			databaseComponent: helmComponentBlock(d, descriptor.RoleDatabase),
		},
		Persistence: helmPersistence{
			Postgres: helmPostgresPersistence{
				Enabled:      true,
				Size:         opts.PostgresVolumeSize,
				StorageClass: opts.StorageClass,
			},
		},
		Secrets: helmSecrets{
			Postgres: helmPostgresSecrets{PasswordRef: d.Database.Password},
		},
	}

	return marshalDocument(doc, "RenderHelmValues")
}

// =============================================================================
// Section Builders
// =============================================================================

// helmCredentials emits exactly one of the two mutually exclusive credential
// forms; validation already enforced the exclusion.
func helmCredentials(creds *descriptor.RegistryCredentials) *helmImageCredentials {
	if creds == nil {
		return nil
	}
	if creds.AuthToken != "" {
		return &helmImageCredentials{
			Registry:  creds.Registry,
			AuthToken: creds.AuthToken,
		}
	}
	return &helmImageCredentials{
		Registry: creds.Registry,
		Username: creds.Username,
		Password: creds.Password,
	}
}

// helmFrontendBlock is the frontend component plus its embedded config
// assets and, when enabled, the ingress host and TLS fields. Ingress routes
// to the frontend only.
func helmFrontendBlock(d *descriptor.DeploymentDescriptor) helmComponent {
	block := helmComponentBlock(d, descriptor.RoleFrontend)
	block.NginxConf = NginxConf
	block.RuntimeConfig = RuntimeConfigScript

	if d.Ingress != nil && d.Ingress.Enabled {
		block.Ingress = helmIngress{
			Enabled:       true,
			Host:          d.Ingress.Host,
			TLSSecretName: d.Ingress.TLSSecretName,
		}
	}
	return block
}

func helmComponentBlock(d *descriptor.DeploymentDescriptor, role descriptor.Role) helmComponent {
	svc := d.ServiceByRole(role)

	replicas := svc.Replicas
	if replicas == 0 {
		replicas = 1
	}

	block := helmComponent{
		Image:    splitImage(svc.Image),
		Replicas: replicas,
		Env:      environmentMap(svc, d.Database),
		Service:  helmServiceBlock(svc),
		// Block structure is always present; host and TLS fields are
		// omitted unless ingress is enabled for the frontend.
		Ingress: helmIngress{Enabled: false},
	}

	res := svc.Resources
	var requests, limits *helmResourcePair
	if res.CPURequest != "" || res.MemoryRequest != "" {
		requests = &helmResourcePair{CPU: res.CPURequest, Memory: res.MemoryRequest}
	}
	if res.CPULimit != "" || res.MemoryLimit != "" {
		limits = &helmResourcePair{CPU: res.CPULimit, Memory: res.MemoryLimit}
	}
	if requests != nil || limits != nil {
		block.Resources = &helmResources{Requests: requests, Limits: limits}
	}

	return block
}

// helmServiceBlock maps the first port mapping to the component's Service.
// The service port is the explicit servicePort when set, otherwise the
// container port.
func helmServiceBlock(svc *descriptor.ServiceConfig) helmService {
	block := helmService{Type: "ClusterIP"}
	if len(svc.Ports) > 0 {
		p := svc.Ports[0]
		block.TargetPort = p.ContainerPort
		if p.ServicePort != 0 {
			block.Port = p.ServicePort
		} else {
			block.Port = p.ContainerPort
		}
	}
	return block
}

// splitImage splits "repository:tag" on the tag separator. Validation
// guarantees a non-empty tag is present.
func splitImage(image string) helmImage {
	slash := -1
	for i := len(image) - 1; i >= 0; i-- {
		if image[i] == '/' {
			slash = i
			break
		}
	}
	for i := len(image) - 1; i > slash; i-- {
		if image[i] == ':' {
			return helmImage{Repository: image[:i], Tag: image[i+1:]}
		}
	}
	return helmImage{Repository: image}
}
