package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Round-Trip Verification Tests
// =============================================================================

// Rendered output must load through the real Compose loader - the same code
// path docker compose itself uses.
func TestVerifyCompose_RenderedDocumentRoundTrips(t *testing.T) {
	doc, err := RenderCompose(mustValidate(t, enterpriseDescriptor()))
	require.NoError(t, err)

	assert.NoError(t, VerifyCompose(doc))
}

func TestVerifyCompose_EmptyDocument(t *testing.T) {
	err := VerifyCompose("")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotLoadable)
}

func TestVerifyCompose_InvalidYAML(t *testing.T) {
	err := VerifyCompose("services: [broken")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotLoadable)
}

func TestVerifyCompose_MissingExpectedService(t *testing.T) {
	err := VerifyCompose(`
services:
  something-else:
    image: nginx:latest
networks:
  matter-network:
    driver: bridge
volumes:
  data: {}
`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestVerifyCompose_MissingNetwork(t *testing.T) {
	err := VerifyCompose(`
services:
  matter-backend:
    image: gravitycloud/matter-enterprise:latest
  matter-frontend:
    image: gravitycloud/matter-enterprise-frontend:latest
volumes:
  data: {}
`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
