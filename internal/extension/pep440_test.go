package extension

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePEP440ConstraintSingleClause(t *testing.T) {
	c, err := ParsePEP440Constraint(">=3.10")
	require.NoError(t, err)

	ok, err := c.Satisfies("3.11.4")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Satisfies("3.9.0")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParsePEP440ConstraintRange(t *testing.T) {
	c, err := ParsePEP440Constraint(">=3.10,<3.13")
	require.NoError(t, err)

	ok, _ := c.Satisfies("3.12.1")
	assert.True(t, ok)

	ok, _ = c.Satisfies("3.13.0")
	assert.False(t, ok)

	ok, _ = c.Satisfies("3.9.9")
	assert.False(t, ok)
}

func TestParsePEP440ConstraintCompatibleRelease(t *testing.T) {
	c, err := ParsePEP440Constraint("~=3.11")
	require.NoError(t, err)

	ok, _ := c.Satisfies("3.11.9")
	assert.True(t, ok)

	ok, _ = c.Satisfies("3.12.0")
	assert.True(t, ok)

	ok, _ = c.Satisfies("3.10.9")
	assert.False(t, ok)
}

func TestParsePEP440ConstraintRejectsUnsupportedOperator(t *testing.T) {
	_, err := ParsePEP440Constraint("^3.11")
	assert.Error(t, err)
}

func TestParsePEP440ConstraintRejectsEmpty(t *testing.T) {
	_, err := ParsePEP440Constraint("")
	assert.Error(t, err)
}

func TestSingleBoundSelector(t *testing.T) {
	c, err := ParsePEP440Constraint(">=3.11")
	require.NoError(t, err)
	assert.Equal(t, "3.11", c.SingleBoundSelector())

	c2, err := ParsePEP440Constraint(">=3.10,<3.13")
	require.NoError(t, err)
	assert.Equal(t, "", c2.SingleBoundSelector())
}
