package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("STUDYBUDDY_TEST_KEY", "value")
	assert.Equal(t, "value", getEnv("STUDYBUDDY_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", getEnv("STUDYBUDDY_TEST_MISSING", "fallback"))
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("STUDYBUDDY_TEST_INT", "42")
	assert.Equal(t, 42, getEnvInt("STUDYBUDDY_TEST_INT", 7))

	t.Setenv("STUDYBUDDY_TEST_INT", "not-a-number")
	assert.Equal(t, 7, getEnvInt("STUDYBUDDY_TEST_INT", 7))

	assert.Equal(t, 7, getEnvInt("STUDYBUDDY_TEST_INT_MISSING", 7))
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("STUDYBUDDY_TEST_BOOL", "false")
	assert.False(t, getEnvBool("STUDYBUDDY_TEST_BOOL", true))

	t.Setenv("STUDYBUDDY_TEST_BOOL", "maybe")
	assert.True(t, getEnvBool("STUDYBUDDY_TEST_BOOL", true))
}
