// Command matter-deploy validates deployment descriptors and renders them
// into Docker Compose or Helm values documents. It can also serve the render
// API over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/gravitycloud/matter-deploy/internal/core/descriptor"
	"github.com/gravitycloud/matter-deploy/internal/core/render"
	"github.com/gravitycloud/matter-deploy/internal/shell/loader"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitUsageError      = 2
	ExitInputError      = 3
	ExitValidationError = 4
	ExitRenderError     = 5
	ExitHTTPServerError = 6
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	serve := flag.Bool("serve", false, "Serve the render API over HTTP")
	descriptorPath := flag.String("f", "", "Path to the deployment descriptor file")
	target := flag.String("target", "compose", "Render target: compose or helm")
	output := flag.String("o", "", "Output file (default stdout)")
	validateOnly := flag.Bool("validate", false, "Validate the descriptor and exit")
	verify := flag.Bool("verify", false, "Round-trip rendered Compose output through the compose loader")
	storageClass := flag.String("storage-class", "", "Storage class for the helm target (overrides config)")
	pgSize := flag.String("pg-size", "", "Postgres volume size for the helm target (overrides config)")
	flag.Parse()

	// Handle version flag
	if *showVersion {
		fmt.Printf("matter-deploy %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}

	// Load configuration
	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}

	logger := SetupLogger(cfg)

	if *serve {
		server := NewServer(cfg, logger)
		logger.Info("starting matter-deploy",
			"version", Version,
			"addr", cfg.Server.Address(),
		)
		if err := server.Start(context.Background()); err != nil {
			logger.Error("server error", "error", err)
			return ExitHTTPServerError
		}
		return ExitSuccess
	}

	if *descriptorPath == "" {
		fmt.Fprintln(os.Stderr, "either -serve or -f <descriptor file> is required")
		flag.Usage()
		return ExitUsageError
	}

	// Flags override config for the Helm capacity inputs.
	if *storageClass != "" {
		cfg.Render.StorageClass = *storageClass
	}
	if *pgSize != "" {
		cfg.Render.PostgresVolumeSize = *pgSize
	}

	return runRender(cfg, renderParams{
		descriptorPath: *descriptorPath,
		target:         render.Target(*target),
		output:         *output,
		validateOnly:   *validateOnly,
		verify:         *verify,
	})
}

// =============================================================================
// Render Mode
// =============================================================================

type renderParams struct {
	descriptorPath string
	target         render.Target
	output         string
	validateOnly   bool
	verify         bool
}

func runRender(cfg *Config, params renderParams) int {
	d, err := loader.Load(params.descriptorPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return ExitInputError
	}

	v, errs := descriptor.Validate(d)
	if len(errs) > 0 {
		fmt.Fprintf(os.Stderr, "descriptor is invalid (%d problems):\n%s\n",
			len(errs), descriptor.FormatErrors(errs))
		return ExitValidationError
	}

	if params.validateOnly {
		fmt.Println("descriptor is valid")
		return ExitSuccess
	}

	var doc string
	switch params.target {
	case render.TargetCompose:
		doc, err = render.RenderCompose(v)
	case render.TargetHelm:
		if cfg.Render.StorageClass == "" || cfg.Render.PostgresVolumeSize == "" {
			fmt.Fprintln(os.Stderr, "the helm target requires -storage-class and -pg-size (or render.* config keys): capacity sizing is an explicit input")
			return ExitUsageError
		}
		doc, err = render.RenderHelmValues(v, render.HelmOptions{
			StorageClass:       cfg.Render.StorageClass,
			PostgresVolumeSize: cfg.Render.PostgresVolumeSize,
		})
	default:
		fmt.Fprintf(os.Stderr, "unknown target %q: expected compose or helm\n", params.target)
		return ExitUsageError
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "render error: %v\n", err)
		return ExitRenderError
	}

	if params.verify && params.target == render.TargetCompose {
		if err := render.VerifyCompose(doc); err != nil {
			fmt.Fprintf(os.Stderr, "verification failed: %v\n", err)
			return ExitRenderError
		}
	}

	if params.output == "" {
		fmt.Print(doc)
		return ExitSuccess
	}
	if err := os.WriteFile(params.output, []byte(doc), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", params.output, err)
		return ExitRenderError
	}
	return ExitSuccess
}
