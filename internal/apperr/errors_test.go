package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDependencyWrapsInfrastructureErrors(t *testing.T) {
	cause := errors.New("connection refused")
	err := Dependency("store", cause)

	var de *DependencyError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "store", de.Dependency)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "store unavailable: connection refused", err.Error())
}

func TestDependencyPassesDomainErrorsThrough(t *testing.T) {
	err := fmt.Errorf("dispute abc: %w", ErrNotFound)
	assert.Same(t, err, Dependency("store", err))

	var de *DependencyError
	assert.False(t, errors.As(Dependency("store", err), &de))
}

func TestDependencyKeepsInnermostName(t *testing.T) {
	inner := Dependency("classifier", errors.New("timeout"))
	outer := Dependency("store", inner)

	var de *DependencyError
	require.True(t, errors.As(outer, &de))
	assert.Equal(t, "classifier", de.Dependency)
}

func TestDependencyNil(t *testing.T) {
	assert.NoError(t, Dependency("store", nil))
}
