package descriptor

import (
	"fmt"
	"regexp"
	"strings"
)

// =============================================================================
// Syntax Rules
// =============================================================================

// dnsLabelRegex matches a DNS label: lowercase alphanumerics and hyphens,
// not starting or ending with a hyphen.
var dnsLabelRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// hostnameRegex matches a syntactically valid hostname of dot-separated
// DNS labels.
var hostnameRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)*$`)

// envPlaceholderRegex matches ${VAR} placeholders inside env values.
var envPlaceholderRegex = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// knownPlaceholders are the placeholders the renderers substitute from
// DatabaseConfig. Anything else would survive rendering unresolved, so the
// validator rejects it up front.
var knownPlaceholders = map[string]bool{
	"DATABASE_HOST": true,
	"DATABASE_PORT": true,
	"DATABASE_NAME": true,
	"DATABASE_USER": true,
}

const maxDNSLabelLength = 63

// reservedServiceNames are the Compose service names claimed by the backend
// and frontend roles. The database service name is derived from
// database.host, so a host that maps onto one of these would overwrite that
// service block in the rendered document.
var reservedServiceNames = map[string]bool{
	"matter-backend":  true,
	"matter-frontend": true,
}

// =============================================================================
// Validator
// =============================================================================

// Validate checks a descriptor against every invariant of the data model and
// returns either a Validated witness or the complete list of violations.
// It never stops at the first problem and has no side effects.
//
// Example:
//
//	v, errs := descriptor.Validate(d)
//	if len(errs) > 0 {
//	    fmt.Println(descriptor.FormatErrors(errs))
//	    return
//	}
//	doc, err := render.RenderCompose(v)
func Validate(d *DeploymentDescriptor) (Validated, []ValidationError) {
	var errs []ValidationError

	if d == nil {
		errs = append(errs, ValidationError{
			Path:    "",
			Kind:    MissingField,
			Message: "descriptor is nil",
		})
		return Validated{}, errs
	}

	errs = append(errs, validateNamespace(d.Namespace)...)
	errs = append(errs, validateEmailDomain(d.EmailDomain)...)
	errs = append(errs, validateDatabase(d.Database)...)
	errs = append(errs, validateServices(d.Services)...)
	errs = append(errs, validateIngress(d.Ingress)...)
	errs = append(errs, validateRegistryCredentials(d.RegistryCredentials)...)

	if len(errs) > 0 {
		return Validated{}, errs
	}
	return Validated{d: d, ok: true}, nil
}

// =============================================================================
// Field Validators
// =============================================================================

func validateNamespace(namespace string) []ValidationError {
	if namespace == "" {
		return []ValidationError{{
			Path:    "namespace",
			Kind:    MissingField,
			Message: "namespace is required",
		}}
	}
	if len(namespace) > maxDNSLabelLength || !dnsLabelRegex.MatchString(namespace) {
		return []ValidationError{{
			Path:    "namespace",
			Kind:    InvalidFormat,
			Message: "namespace must be a DNS label (lowercase alphanumerics and hyphens)",
		}}
	}
	return nil
}

func validateEmailDomain(domain string) []ValidationError {
	if domain == "" {
		return []ValidationError{{
			Path:    "emailDomain",
			Kind:    MissingField,
			Message: "emailDomain is required",
		}}
	}
	if !strings.Contains(domain, ".") || !hostnameRegex.MatchString(domain) {
		return []ValidationError{{
			Path:    "emailDomain",
			Kind:    InvalidFormat,
			Message: "emailDomain must be a domain name containing at least one dot",
		}}
	}
	return nil
}

func validateDatabase(db DatabaseConfig) []ValidationError {
	var errs []ValidationError

	switch {
	case db.Host == "":
		errs = append(errs, ValidationError{
			Path:    "database.host",
			Kind:    MissingField,
			Message: "database host is required",
		})
	case !hostnameRegex.MatchString(db.Host):
		errs = append(errs, ValidationError{
			Path:    "database.host",
			Kind:    InvalidFormat,
			Message: fmt.Sprintf("%q is not a valid hostname", db.Host),
		})
	// For a valid hostname the derived service name is the host with dots
	// replaced by hyphens.
	case reservedServiceNames[strings.ReplaceAll(db.Host, ".", "-")]:
		errs = append(errs, ValidationError{
			Path:    "database.host",
			Kind:    DuplicateValue,
			Message: fmt.Sprintf("database host %q collides with a fixed service name", db.Host),
		})
	}
	switch {
	case db.Port == 0:
		errs = append(errs, ValidationError{
			Path:    "database.port",
			Kind:    MissingField,
			Message: "database port is required",
		})
	case db.Port < 1 || db.Port > 65535:
		errs = append(errs, ValidationError{
			Path:    "database.port",
			Kind:    RangeViolation,
			Message: "database port must be between 1 and 65535",
		})
	}
	if db.Name == "" {
		errs = append(errs, ValidationError{
			Path:    "database.name",
			Kind:    MissingField,
			Message: "database name is required",
		})
	}
	if db.User == "" {
		errs = append(errs, ValidationError{
			Path:    "database.user",
			Kind:    MissingField,
			Message: "database user is required",
		})
	}
	if db.Password == "" {
		errs = append(errs, ValidationError{
			Path:    "database.password",
			Kind:    MissingField,
			Message: "database password reference is required",
		})
	}

	return errs
}

func validateServices(services []ServiceConfig) []ValidationError {
	var errs []ValidationError

	seenRoles := make(map[Role]bool)
	for i, svc := range services {
		path := fmt.Sprintf("services[%d]", i)

		if !svc.Role.Valid() {
			errs = append(errs, ValidationError{
				Path:    path + ".role",
				Kind:    InvalidFormat,
				Message: fmt.Sprintf("role %q is not one of backend, frontend, database", svc.Role),
			})
		} else if seenRoles[svc.Role] {
			errs = append(errs, ValidationError{
				Path:    path + ".role",
				Kind:    DuplicateValue,
				Message: fmt.Sprintf("role %q appears more than once", svc.Role),
			})
		} else {
			seenRoles[svc.Role] = true
		}

		errs = append(errs, validateImage(path, svc.Image)...)

		if svc.Replicas < 0 {
			errs = append(errs, ValidationError{
				Path:    path + ".replicas",
				Kind:    RangeViolation,
				Message: "replicas must be at least 1",
			})
		}

		errs = append(errs, validateResources(path, svc.Resources)...)
		errs = append(errs, validatePorts(path, svc.Ports)...)
		errs = append(errs, validateEnv(path, svc.Env)...)
	}

	// Every role is required exactly once. The product ships a backend, a
	// frontend and a Postgres container in every deployment.
	for _, role := range Roles() {
		if !seenRoles[role] {
			errs = append(errs, ValidationError{
				Path:    "services",
				Kind:    MissingField,
				Message: fmt.Sprintf("a service with role %q is required", role),
			})
		}
	}

	return errs
}

func validateImage(path, image string) []ValidationError {
	if image == "" {
		return []ValidationError{{
			Path:    path + ".image",
			Kind:    MissingField,
			Message: "image is required",
		}}
	}

	// The tag is whatever follows the last colon after the last slash, so
	// registry ports (registry:5000/app:v1) do not count as tags.
	name := image
	if idx := strings.LastIndex(image, "/"); idx >= 0 {
		name = image[idx+1:]
	}
	colon := strings.LastIndex(name, ":")
	if colon < 0 || name[colon+1:] == "" {
		return []ValidationError{{
			Path:    path + ".image",
			Kind:    InvalidFormat,
			Message: "image must be of the form repository:tag with a non-empty tag",
		}}
	}
	return nil
}

func validateResources(path string, res ResourceLimits) []ValidationError {
	var errs []ValidationError
	path += ".resources"

	parseCPU := func(field, value string) (float64, bool) {
		if value == "" {
			return 0, false
		}
		n, err := ParseCPUQuantity(value)
		if err != nil {
			errs = append(errs, ValidationError{
				Path:    path + "." + field,
				Kind:    InvalidFormat,
				Message: fmt.Sprintf("%q is not a valid CPU quantity", value),
			})
			return 0, false
		}
		return n, true
	}
	parseMemory := func(field, value string) (float64, bool) {
		if value == "" {
			return 0, false
		}
		n, err := ParseMemoryQuantity(value)
		if err != nil {
			errs = append(errs, ValidationError{
				Path:    path + "." + field,
				Kind:    InvalidFormat,
				Message: fmt.Sprintf("%q is not a valid memory quantity", value),
			})
			return 0, false
		}
		return n, true
	}

	cpuReq, okCPUReq := parseCPU("cpuRequest", res.CPURequest)
	cpuLim, okCPULim := parseCPU("cpuLimit", res.CPULimit)
	memReq, okMemReq := parseMemory("memoryRequest", res.MemoryRequest)
	memLim, okMemLim := parseMemory("memoryLimit", res.MemoryLimit)

	// Request must not exceed limit, but only when both sides parsed.
	if okCPUReq && okCPULim && cpuReq > cpuLim {
		errs = append(errs, ValidationError{
			Path:    path + ".cpuRequest",
			Kind:    RangeViolation,
			Message: fmt.Sprintf("cpuRequest %q exceeds cpuLimit %q", res.CPURequest, res.CPULimit),
		})
	}
	if okMemReq && okMemLim && memReq > memLim {
		errs = append(errs, ValidationError{
			Path:    path + ".memoryRequest",
			Kind:    RangeViolation,
			Message: fmt.Sprintf("memoryRequest %q exceeds memoryLimit %q", res.MemoryRequest, res.MemoryLimit),
		})
	}

	return errs
}

func validatePorts(path string, ports []PortMapping) []ValidationError {
	var errs []ValidationError

	seen := make(map[int]bool)
	for i, p := range ports {
		portPath := fmt.Sprintf("%s.ports[%d]", path, i)

		switch {
		case p.ContainerPort == 0:
			errs = append(errs, ValidationError{
				Path:    portPath + ".containerPort",
				Kind:    MissingField,
				Message: "containerPort is required",
			})
		case p.ContainerPort < 1 || p.ContainerPort > 65535:
			errs = append(errs, ValidationError{
				Path:    portPath + ".containerPort",
				Kind:    RangeViolation,
				Message: "containerPort must be between 1 and 65535",
			})
		default:
			if seen[p.ContainerPort] {
				errs = append(errs, ValidationError{
					Path:    portPath + ".containerPort",
					Kind:    DuplicateValue,
					Message: fmt.Sprintf("containerPort %d is mapped more than once", p.ContainerPort),
				})
			}
			seen[p.ContainerPort] = true
		}

		if p.HostPort != 0 && (p.HostPort < 1 || p.HostPort > 65535) {
			errs = append(errs, ValidationError{
				Path:    portPath + ".hostPort",
				Kind:    RangeViolation,
				Message: "hostPort must be between 1 and 65535",
			})
		}
		if p.ServicePort != 0 && (p.ServicePort < 1 || p.ServicePort > 65535) {
			errs = append(errs, ValidationError{
				Path:    portPath + ".servicePort",
				Kind:    RangeViolation,
				Message: "servicePort must be between 1 and 65535",
			})
		}
	}

	return errs
}

func validateEnv(path string, env []EnvVar) []ValidationError {
	var errs []ValidationError

	seen := make(map[string]bool)
	for i, e := range env {
		envPath := fmt.Sprintf("%s.env[%d]", path, i)

		if e.Name == "" {
			errs = append(errs, ValidationError{
				Path:    envPath + ".name",
				Kind:    MissingField,
				Message: "env var name is required",
			})
		} else if seen[e.Name] {
			errs = append(errs, ValidationError{
				Path:    envPath + ".name",
				Kind:    DuplicateValue,
				Message: fmt.Sprintf("env var %q is defined more than once", e.Name),
			})
		} else {
			seen[e.Name] = true
		}

		switch {
		case e.Value != "" && e.SecretRef != "":
			errs = append(errs, ValidationError{
				Path:    envPath,
				Kind:    MutualExclusionViolation,
				Message: fmt.Sprintf("env var %q sets both value and secretRef", e.Name),
			})
		case e.Value == "" && e.SecretRef == "":
			errs = append(errs, ValidationError{
				Path:    envPath,
				Kind:    MissingField,
				Message: fmt.Sprintf("env var %q must set either value or secretRef", e.Name),
			})
		}

		// Unknown placeholders would survive rendering unresolved.
		for _, match := range envPlaceholderRegex.FindAllStringSubmatch(e.Value, -1) {
			if !knownPlaceholders[match[1]] {
				errs = append(errs, ValidationError{
					Path:    envPath + ".value",
					Kind:    InvalidFormat,
					Message: fmt.Sprintf("unknown placeholder ${%s}; only DATABASE_HOST, DATABASE_PORT, DATABASE_NAME and DATABASE_USER are substituted", match[1]),
				})
			}
		}
	}

	return errs
}

func validateIngress(ing *IngressConfig) []ValidationError {
	if ing == nil || !ing.Enabled {
		return nil
	}

	var errs []ValidationError
	if ing.Host == "" {
		errs = append(errs, ValidationError{
			Path:    "ingress.host",
			Kind:    MissingField,
			Message: "ingress host is required when ingress is enabled",
		})
	} else if !hostnameRegex.MatchString(ing.Host) {
		errs = append(errs, ValidationError{
			Path:    "ingress.host",
			Kind:    InvalidFormat,
			Message: fmt.Sprintf("%q is not a valid hostname", ing.Host),
		})
	}
	if ing.TLSSecretName == "" {
		errs = append(errs, ValidationError{
			Path:    "ingress.tlsSecretName",
			Kind:    MissingField,
			Message: "ingress tlsSecretName is required when ingress is enabled",
		})
	}
	return errs
}

func validateRegistryCredentials(creds *RegistryCredentials) []ValidationError {
	if creds == nil {
		return nil
	}

	var errs []ValidationError
	if creds.Registry == "" {
		errs = append(errs, ValidationError{
			Path:    "registryCredentials.registry",
			Kind:    MissingField,
			Message: "registry URL is required",
		})
	}

	hasBasic := creds.Username != "" || creds.Password != ""
	hasToken := creds.AuthToken != ""
	switch {
	case hasBasic && hasToken:
		errs = append(errs, ValidationError{
			Path:    "registryCredentials",
			Kind:    MutualExclusionViolation,
			Message: "username/password and authToken are mutually exclusive",
		})
	case !hasBasic && !hasToken:
		errs = append(errs, ValidationError{
			Path:    "registryCredentials",
			Kind:    MissingField,
			Message: "either username/password or authToken must be set",
		})
	case hasBasic && creds.Username == "":
		errs = append(errs, ValidationError{
			Path:    "registryCredentials.username",
			Kind:    MissingField,
			Message: "username is required when password is set",
		})
	case hasBasic && creds.Password == "":
		errs = append(errs, ValidationError{
			Path:    "registryCredentials.password",
			Kind:    MissingField,
			Message: "password is required when username is set",
		})
	}

	return errs
}
