package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// NewRandomTestAccount generates a fresh account or fails the test
func NewRandomTestAccount(t *testing.T) *Account {
	account, err := NewRandomAccount()
	require.NoError(t, err)
	return account
}
