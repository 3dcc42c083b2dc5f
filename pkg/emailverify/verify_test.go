package emailverify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_EmptyEmail(t *testing.T) {
	t.Parallel()

	_, err := New().Verify(context.Background(), "   ")
	assert.Error(t, err)
}

func TestVerify_InvalidFormat(t *testing.T) {
	t.Parallel()

	tests := []string{
		"not-an-email",
		"missing-domain@",
		"@missing-local.com",
		"spaces in@address.com",
	}
	for _, email := range tests {
		t.Run(email, func(t *testing.T) {
			res, err := New().Verify(context.Background(), email)
			require.NoError(t, err)
			assert.False(t, res.Deliverable)
			assert.Equal(t, "invalid format", res.Reason)
		})
	}
}

func TestVerify_TrimsWhitespace(t *testing.T) {
	t.Parallel()

	res, err := New().Verify(context.Background(), "  bad-address  ")
	require.NoError(t, err)
	assert.Equal(t, "bad-address", res.Email)
	assert.False(t, res.Deliverable)
}
