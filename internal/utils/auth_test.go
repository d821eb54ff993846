package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemaboard/internal/utils"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := utils.Hash("s3cret")
	require.NoError(t, err)

	assert.NoError(t, utils.VerifyPassword(string(hash), "s3cret"))
	assert.Error(t, utils.VerifyPassword(string(hash), "wrong"))

	// Fresh salts mean the same password never hashes the same twice.
	again, err := utils.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, string(hash), string(again))
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	assert.Error(t, utils.VerifyPassword("not-a-hash", "s3cret"))
	assert.Error(t, utils.VerifyPassword("argon2id$v=19$bad-params$AAAA$AAAA", "s3cret"))
}
