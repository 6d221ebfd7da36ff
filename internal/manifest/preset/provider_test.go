package preset

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	present bool
	ensureErr error
}

func (f fakeProvider) Detect(ctx context.Context) (bool, error) { return f.present, nil }
func (f fakeProvider) Ensure(ctx context.Context) error         { return f.ensureErr }

func TestRegisterAndLookup(t *testing.T) {
	Register("test-kind", fakeProvider{present: true})
	p, ok := Lookup("test-kind")
	require.True(t, ok)

	present, err := p.Detect(context.Background())
	require.NoError(t, err)
	assert.True(t, present)
}

func TestLookupMissingKind(t *testing.T) {
	_, ok := Lookup("no-such-kind")
	assert.False(t, ok)
}

func TestRegisteredProviderEnsurePropagatesFailure(t *testing.T) {
	Register("env-test", fakeProvider{present: false, ensureErr: errors.New("not found")})
	p, ok := Lookup("env-test")
	require.True(t, ok)
	assert.Error(t, p.Ensure(context.Background()))
}
