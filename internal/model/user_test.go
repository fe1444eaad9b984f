package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" admin ")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, r)

	r, ok = ParseRole("USER")
	assert.True(t, ok)
	assert.Equal(t, RoleUser, r)

	_, ok = ParseRole("OWNER")
	assert.False(t, ok)
	_, ok = ParseRole("")
	assert.False(t, ok)
}

func TestUserActive(t *testing.T) {
	assert.True(t, User{Status: StatusActive}.Active())
	assert.False(t, User{Status: StatusDisabled}.Active())
	assert.False(t, User{}.Active())
}
