package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcplane/mcpd/internal/registry"
)

func chatDescriptor(id string) *registry.Descriptor {
	return &registry.Descriptor{
		ID:   id,
		Name: "Test Model",
		Capabilities: map[registry.Capability]bool{
			registry.CapabilityChat: true,
		},
		ContextLength: 8192,
	}
}

func TestRegisterAndGet(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register(chatDescriptor("gpt-test")))

	got := r.Get("gpt-test")
	require.NotNil(t, got)
	assert.Equal(t, "gpt-test", got.ID)
}

func TestRegisterDuplicateRejected(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register(chatDescriptor("dup")))

	err := r.Register(chatDescriptor("dup"))
	require.Error(t, err)
}

func TestRegisterRequiresCapability(t *testing.T) {
	r := registry.New()
	err := r.Register(&registry.Descriptor{ID: "no-caps"})
	require.Error(t, err)
}

func TestGetUnknownReturnsNil(t *testing.T) {
	r := registry.New()
	assert.Nil(t, r.Get("missing"))
}

func TestUnregister(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register(chatDescriptor("temp")))

	assert.True(t, r.Unregister("temp"))
	assert.False(t, r.Unregister("temp"))
	assert.Nil(t, r.Get("temp"))
}

func TestListEveryModelIDMatches(t *testing.T) {
	r := registry.New()
	ids := []string{"a", "b", "c"}
	for _, id := range ids {
		require.NoError(t, r.Register(chatDescriptor(id)))
	}

	for _, d := range r.List() {
		assert.Equal(t, d.ID, r.Get(d.ID).ID)
	}
	assert.Len(t, r.List(), 3)
}
