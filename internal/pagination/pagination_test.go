package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	p, err := Parse(0, "")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Offset)
	assert.Equal(t, DefaultMaxResults, p.Limit)
}

func TestParse_ClampsToMax(t *testing.T) {
	p, err := Parse(5000, "")
	require.NoError(t, err)
	assert.Equal(t, MaxMaxResults, p.Limit)
}

func TestParse_TokenRoundTrip(t *testing.T) {
	token := NextToken(30)
	assert.Equal(t, "A0000000030", token)

	p, err := Parse(10, token)
	require.NoError(t, err)
	assert.Equal(t, 30, p.Offset)
	assert.Equal(t, 10, p.Limit)
}

func TestParse_RejectsMalformedToken(t *testing.T) {
	_, err := Parse(10, "not-a-token")
	assert.Error(t, err)

	_, err = Parse(10, "B0000000030")
	assert.Error(t, err)
}
