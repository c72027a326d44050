// Package loader reads deployment descriptor files from disk. It is the
// input-source collaborator of the core: everything it produces still goes
// through descriptor.Validate before any rendering happens.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gravitycloud/matter-deploy/internal/core/descriptor"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrEmptyFile means the descriptor file had no content.
	ErrEmptyFile = errors.New("descriptor file is empty")

	// ErrInvalidSyntax means the descriptor file is not valid YAML or
	// contains fields the data model does not define.
	ErrInvalidSyntax = errors.New("descriptor file has invalid syntax")
)

// =============================================================================
// Loading
// =============================================================================

// Load reads and parses a descriptor file. JSON files parse too, since YAML
// is a superset.
func Load(path string) (*descriptor.DeploymentDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor file: %w", err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Parse decodes descriptor YAML with strict field checking, so typos in
// field names surface as errors instead of silently dropped configuration.
func Parse(data []byte) (*descriptor.DeploymentDescriptor, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, ErrEmptyFile
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var d descriptor.DeploymentDescriptor
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSyntax, err)
	}
	return &d, nil
}
