package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunValidatesFlags(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	assert.ErrorContains(t, run([]string{"--holder", "3"}), "no secret")
	assert.ErrorContains(t, run([]string{"--secret", "x", "--role", "ADMIN"}), "unknown role")
	assert.NoError(t, run([]string{"--secret", "x", "--role", "OPERATOR"}))
}
