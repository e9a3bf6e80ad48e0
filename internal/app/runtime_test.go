package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	_ "github.com/meridian-retail/meridian/internal/testing/guard"
)

func TestInTestMode(t *testing.T) {
	t.Setenv("MERIDIAN_TEST_MODE", "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv("MERIDIAN_TEST_MODE", "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
