package render

import _ "embed"

// =============================================================================
// Embedded Frontend Assets
// =============================================================================

// The frontend component ships two inline assets through the Helm values
// document: the Nginx server config and the runtime-config script that
// writes the browser config at container start. They are emitted as string
// literals and never re-parsed by this package.

// NginxConf is the inline Nginx server configuration for the frontend.
//
//go:embed assets/nginx.conf
var NginxConf string

// RuntimeConfigScript is the inline entrypoint script that materializes the
// frontend runtime configuration.
//
//go:embed assets/runtime-config.sh
var RuntimeConfigScript string
