package commands

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/duckling-ai/duckwatch/internal/core/task"
)

func TestShortID(t *testing.T) {
	assert.Equal(t, "abcd1234", shortID("abcd1234-9999-0000"))
	assert.Equal(t, "short", shortID("short"))
	assert.Equal(t, "", shortID(""))
}

func TestClip(t *testing.T) {
	assert.Equal(t, "hello", clip("hello", 10))
	assert.Equal(t, "hello", clip("hello", 5))

	clipped := clip("hello world", 8)
	assert.True(t, strings.HasSuffix(clipped, "…"))
	assert.Equal(t, "hello w…", clipped)
}

func TestOrDash(t *testing.T) {
	assert.Equal(t, "—", orDash(""))
	assert.Equal(t, "x", orDash("x"))
}

func TestStatusSummary_contains_status_and_description(t *testing.T) {
	s := statusSummary(task.Task{Status: task.StatusRunning, Description: "fix the bug"})
	assert.Contains(t, s, "running")
	assert.Contains(t, s, "fix the bug")
}
