// Package descriptor defines the deployment descriptor data model and its
// validator. This is part of the Functional Core - all functions are pure
// with no I/O.
package descriptor

// =============================================================================
// Deployment Descriptor - Root Entity
// =============================================================================

// DeploymentDescriptor is the structured representation of one deployment's
// desired state. It is built by the caller (file, form, or API request),
// passed once through Validate, and treated as immutable afterwards.
type DeploymentDescriptor struct {
	// Namespace is the deployment namespace. Must be a valid DNS label
	// (lowercase alphanumerics and hyphens).
	Namespace string `yaml:"namespace" json:"namespace"`

	// EmailDomain restricts account creation to addresses under this domain.
	// Must contain at least one dot.
	EmailDomain string `yaml:"emailDomain" json:"emailDomain"`

	// Database describes the Postgres instance all services connect to.
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Services is the ordered list of services to deploy. Exactly one
	// backend, one frontend and one database role are required.
	Services []ServiceConfig `yaml:"services" json:"services"`

	// Ingress is the optional ingress configuration (Kubernetes target).
	Ingress *IngressConfig `yaml:"ingress,omitempty" json:"ingress,omitempty"`

	// RegistryCredentials are optional private registry credentials
	// (Kubernetes target only).
	RegistryCredentials *RegistryCredentials `yaml:"registryCredentials,omitempty" json:"registryCredentials,omitempty"`
}

// =============================================================================
// Database
// =============================================================================

// DatabaseConfig holds the Postgres connection parameters.
type DatabaseConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
	Name string `yaml:"name" json:"name"`
	User string `yaml:"user" json:"user"`

	// Password is an opaque secret reference (for example "postgres-password"
	// or "${POSTGRES_PASSWORD}"). It is never a resolved secret value; the
	// renderers emit it verbatim and an external secret store resolves it.
	Password string `yaml:"password" json:"password"`
}

// =============================================================================
// Services
// =============================================================================

// Role is the functional category of a service within a deployment.
type Role string

const (
	RoleBackend  Role = "backend"
	RoleFrontend Role = "frontend"
	RoleDatabase Role = "database"
)

// Valid reports whether the role is one of the closed set of roles.
func (r Role) Valid() bool {
	switch r {
	case RoleBackend, RoleFrontend, RoleDatabase:
		return true
	}
	return false
}

// Roles lists all roles in rendering order.
func Roles() []Role {
	return []Role{RoleBackend, RoleFrontend, RoleDatabase}
}

// ServiceConfig describes one service of the deployment.
type ServiceConfig struct {
	Role  Role   `yaml:"role" json:"role"`
	Image string `yaml:"image" json:"image"`

	// Replicas is the Kubernetes replica count. Zero means unset; the Helm
	// renderer defaults it to one. The Compose target ignores this field.
	Replicas int `yaml:"replicas,omitempty" json:"replicas,omitempty"`

	Resources ResourceLimits `yaml:"resources,omitempty" json:"resources,omitempty"`
	Ports     []PortMapping  `yaml:"ports,omitempty" json:"ports,omitempty"`
	Env       []EnvVar       `yaml:"env,omitempty" json:"env,omitempty"`
}

// ResourceLimits holds CPU and memory requests and limits as resource
// quantity strings ("0.25", "250m", "256Mi", "1G"). Quantities are emitted
// as given; the renderers never convert units.
type ResourceLimits struct {
	CPURequest    string `yaml:"cpuRequest,omitempty" json:"cpuRequest,omitempty"`
	CPULimit      string `yaml:"cpuLimit,omitempty" json:"cpuLimit,omitempty"`
	MemoryRequest string `yaml:"memoryRequest,omitempty" json:"memoryRequest,omitempty"`
	MemoryLimit   string `yaml:"memoryLimit,omitempty" json:"memoryLimit,omitempty"`
}

// Empty reports whether no quantity is set.
func (r ResourceLimits) Empty() bool {
	return r.CPURequest == "" && r.CPULimit == "" && r.MemoryRequest == "" && r.MemoryLimit == ""
}

// PortMapping maps a container port to a host port (Compose target) or a
// service port (Kubernetes target).
type PortMapping struct {
	ContainerPort int `yaml:"containerPort" json:"containerPort"`
	HostPort      int `yaml:"hostPort,omitempty" json:"hostPort,omitempty"`
	ServicePort   int `yaml:"servicePort,omitempty" json:"servicePort,omitempty"`
}

// EnvVar is one environment variable. Exactly one of Value and SecretRef
// must be set. Values may contain ${DATABASE_HOST}, ${DATABASE_PORT},
// ${DATABASE_NAME} and ${DATABASE_USER} placeholders which the renderers
// substitute from DatabaseConfig.
type EnvVar struct {
	Name      string `yaml:"name" json:"name"`
	Value     string `yaml:"value,omitempty" json:"value,omitempty"`
	SecretRef string `yaml:"secretRef,omitempty" json:"secretRef,omitempty"`
}

// =============================================================================
// Ingress
// =============================================================================

// IngressConfig describes the optional ingress in front of the frontend.
type IngressConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled"`
	Host          string `yaml:"host,omitempty" json:"host,omitempty"`
	TLSSecretName string `yaml:"tlsSecretName,omitempty" json:"tlsSecretName,omitempty"`
}

// =============================================================================
// Registry Credentials
// =============================================================================

// RegistryCredentials holds private image registry credentials. Exactly one
// of the two forms must be present: Username+Password, or AuthToken.
type RegistryCredentials struct {
	Registry  string `yaml:"registry" json:"registry"`
	Username  string `yaml:"username,omitempty" json:"username,omitempty"`
	Password  string `yaml:"password,omitempty" json:"password,omitempty"`
	AuthToken string `yaml:"authToken,omitempty" json:"authToken,omitempty"`
}

// =============================================================================
// Lookup Helpers
// =============================================================================

// ServiceByRole returns the first service with the given role, or nil.
func (d *DeploymentDescriptor) ServiceByRole(role Role) *ServiceConfig {
	for i := range d.Services {
		if d.Services[i].Role == role {
			return &d.Services[i]
		}
	}
	return nil
}

// =============================================================================
// Validated Witness
// =============================================================================

// Validated wraps a descriptor that has passed Validate. Only Validate can
// produce a usable Validated value; the zero value is rejected by the
// renderers with a ContractViolation. Renderers never re-check invariants.
type Validated struct {
	d  *DeploymentDescriptor
	ok bool
}

// Descriptor returns the validated descriptor, or nil for the zero value.
func (v Validated) Descriptor() *DeploymentDescriptor {
	if !v.ok {
		return nil
	}
	return v.d
}

// OK reports whether this value was produced by a successful Validate call.
func (v Validated) OK() bool {
	return v.ok
}
