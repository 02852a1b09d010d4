package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyPassword(t *testing.T) {
	user := User{Password: HashPassword("correct horse")}

	assert.True(t, user.VerifyPassword("correct horse"))
	assert.False(t, user.VerifyPassword("wrong horse"))
	assert.False(t, user.VerifyPassword(""))
}

func TestVerifyPasswordWithoutHash(t *testing.T) {
	user := User{}

	assert.False(t, user.VerifyPassword("anything"))
	assert.False(t, user.VerifyPassword(""))
}

func TestHashPasswordProducesUniqueHashes(t *testing.T) {
	first := HashPassword("same input")
	second := HashPassword("same input")

	assert.NotEqual(t, first, second, "argon2id salts every hash")
}
