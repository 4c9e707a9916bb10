package logstream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		line string
		want Class
	}{
		{">>> Starting iteration 2", ClassStep},
		{"  --- phase boundary", ClassStep},
		{"=== Run tests", ClassStep},
		{"## Summary", ClassStep},
		{"Step 3 of 8", ClassStep},
		{"error: compilation failed", ClassError},
		{"ERROR timeout waiting for VM", ClassError},
		{"warn: flaky test detected", ClassWarning},
		{"installing dependencies", ClassPlain},
		{"", ClassPlain},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.line), "line %q", tc.line)
	}
}

func TestClassify_error_outranks_step_marker(t *testing.T) {
	assert.Equal(t, ClassError, Classify(">>> error during setup"))
}

func TestAssembler_ApplyFull_appends_only_fresh_lines(t *testing.T) {
	a := New("t1")

	added := a.ApplyFull("line1\nline2\n")
	require.Len(t, added, 2)
	assert.Equal(t, "line1", added[0].Text)
	assert.Equal(t, "line2", added[1].Text)

	added = a.ApplyFull("line1\nline2\nline3\n")
	require.Len(t, added, 1)
	assert.Equal(t, "line3", added[0].Text)

	assert.Len(t, a.Lines(), 3)
}

func TestAssembler_ApplyFull_same_content_is_noop(t *testing.T) {
	a := New("t1")
	a.ApplyFull("line1\nline2\n")

	assert.Empty(t, a.ApplyFull("line1\nline2\n"))
	assert.Len(t, a.Lines(), 2)
}

func TestAssembler_ApplyFull_ignores_stale_shorter_log(t *testing.T) {
	a := New("t1")
	a.ApplyFull("line1\nline2\nline3\n")

	assert.Empty(t, a.ApplyFull("line1\n"))
	assert.Len(t, a.Lines(), 3)
}

func TestAssembler_longest_content_wins_across_sources(t *testing.T) {
	a := New("t1")

	// Push fragments race ahead of the periodic fetch.
	a.ApplyFull("line1\n")
	a.ApplyFragment("line2\nline3\n")
	require.Len(t, a.Lines(), 3)

	// The next fetch catches up to exactly what the fragments already
	// delivered; nothing is duplicated.
	assert.Empty(t, a.ApplyFull("line1\nline2\nline3\n"))
	assert.Len(t, a.Lines(), 3)

	// A longer fetch appends only the tail.
	added := a.ApplyFull("line1\nline2\nline3\nline4\n")
	require.Len(t, added, 1)
	assert.Equal(t, "line4", added[0].Text)
}

func TestAssembler_blank_lines_are_dropped(t *testing.T) {
	a := New("t1")
	added := a.ApplyFull("line1\n\n   \nline2\n")
	require.Len(t, added, 2)
}

func TestAssembler_empty_fragment_is_noop(t *testing.T) {
	a := New("t1")
	assert.Empty(t, a.ApplyFragment(""))
}

func TestAssembler_Reset_rebinds_and_clears(t *testing.T) {
	a := New("t1")
	a.ApplyFull("line1\n")

	a.Reset("t2")
	assert.Equal(t, "t2", a.TaskID())
	assert.Empty(t, a.Lines())
	assert.Zero(t, a.HighWaterMark())

	// Resetting to the current id keeps everything.
	a.ApplyFull("other\n")
	a.Reset("t2")
	assert.Len(t, a.Lines(), 1)
}

func TestAssembler_lines_append_exactly_once(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		full := rapid.StringMatching(`([a-z]{1,8}\n){0,6}`).Draw(t, "full")
		a := New("t1")
		a.ApplyFull(full)

		// Interleave fragment pushes and replayed or extended fetches.
		for i := 0; i < rapid.IntRange(0, 4).Draw(t, "rounds"); i++ {
			if rapid.Bool().Draw(t, "push") {
				frag := rapid.StringMatching(`[a-z]{1,8}\n`).Draw(t, "frag")
				a.ApplyFragment(frag)
			} else {
				a.ApplyFull(a.content) // replay of current state
			}
		}

		// Every buffered line appears in content order and non-blank.
		content := a.content
		cursor := 0
		for _, ln := range a.Lines() {
			idx := strings.Index(content[cursor:], ln.Text)
			if idx < 0 {
				t.Fatalf("line %q not found after offset %d", ln.Text, cursor)
			}
			cursor += idx + len(ln.Text)
		}
		if a.HighWaterMark() != len(content) {
			t.Fatalf("mark %d != content length %d", a.HighWaterMark(), len(content))
		}
	})
}
