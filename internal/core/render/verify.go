package render

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Compose Round-Trip Verification
// =============================================================================

var (
	// ErrNotLoadable means the rendered document was rejected by the
	// Compose loader.
	ErrNotLoadable = errors.New("rendered document is not loadable by the compose loader")

	// ErrShapeMismatch means the document loaded but is missing an
	// expected service, network or volume.
	ErrShapeMismatch = errors.New("rendered document does not match the expected shape")
)

// VerifyCompose loads a rendered Compose document through the same loader
// Docker Compose uses and checks the expected structure is present: the
// backend and frontend services, the shared network and at least one named
// volume. It proves rendered output is consumable by real tooling, not just
// syntactically valid YAML.
func VerifyCompose(doc string) error {
	if strings.TrimSpace(doc) == "" {
		return fmt.Errorf("%w: document is empty", ErrNotLoadable)
	}

	var dict map[string]interface{}
	if err := yaml.Unmarshal([]byte(doc), &dict); err != nil {
		return fmt.Errorf("%w: %v", ErrNotLoadable, err)
	}

	project, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{
				Content: []byte(doc),
				Config:  dict,
			},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName("matter-verify", false)
		opts.SkipValidation = false
		opts.SkipInterpolation = true // secret placeholders stay literal
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotLoadable, err)
	}

	for _, name := range []string{BackendServiceName, FrontendServiceName} {
		if _, ok := project.Services[name]; !ok {
			return fmt.Errorf("%w: service %q is missing", ErrShapeMismatch, name)
		}
	}
	if _, ok := project.Networks[NetworkName]; !ok {
		return fmt.Errorf("%w: network %q is missing", ErrShapeMismatch, NetworkName)
	}
	if len(project.Volumes) == 0 {
		return fmt.Errorf("%w: no named volumes declared", ErrShapeMismatch)
	}

	return nil
}
