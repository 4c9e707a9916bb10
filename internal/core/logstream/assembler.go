// Package logstream incrementally assembles a task's execution log from
// repeated full-log fetches and streamed fragments.
//
// Two independent sources can supply content for the same task: the
// periodic GET /api/tasks/{id}/log fetch, which returns the whole log as a
// single growing string, and the push channel, which may emit incremental
// fragments. The assembler reconciles them by "longest content wins" and
// guarantees each line is appended exactly once, in order.
package logstream

import "strings"

// Class is the presentation class of one log line. Classification is a
// stateless, per-line pattern match; it never depends on earlier lines.
type Class int

const (
	ClassPlain Class = iota
	ClassStep
	ClassWarning
	ClassError
)

// stepPrefixes mark section headers the agent emits between phases.
var stepPrefixes = []string{">>>", "---", "===", "##"}

// Classify assigns a presentation class to a single log line.
func Classify(text string) Class {
	if strings.Contains(text, "error") || strings.Contains(text, "ERROR") {
		return ClassError
	}
	if strings.Contains(text, "warn") {
		return ClassWarning
	}
	trimmed := strings.TrimSpace(text)
	for _, p := range stepPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return ClassStep
		}
	}
	if strings.Contains(text, "Step") {
		return ClassStep
	}
	return ClassPlain
}

// Line is one classified log line.
type Line struct {
	Text  string
	Class Class
}

// Assembler builds the append-only line buffer for one task identifier.
//
// content is the longest log text seen from any source; the high-water
// mark is how much of it has already been split into lines. Both only
// ever grow, so re-applying content that has already been seen is a no-op.
type Assembler struct {
	taskID  string
	content string
	mark    int
	lines   []Line
}

// New returns an assembler observing the given task identifier.
func New(taskID string) *Assembler {
	return &Assembler{taskID: taskID}
}

// TaskID returns the identifier this assembler is bound to.
func (a *Assembler) TaskID() string { return a.taskID }

// Lines returns every line appended so far, oldest first. The returned
// slice is shared; callers must not mutate it.
func (a *Assembler) Lines() []Line { return a.lines }

// HighWaterMark returns the length of log content already incorporated.
func (a *Assembler) HighWaterMark() int { return a.mark }

// Reset rebinds the assembler to a different task identifier, discarding
// all buffered content. Resetting to the current identifier is a no-op.
func (a *Assembler) Reset(taskID string) {
	if taskID == a.taskID {
		return
	}
	a.taskID = taskID
	a.content = ""
	a.mark = 0
	a.lines = nil
}

// ApplyFull merges a full-log string from a fetch and returns the newly
// appended lines. Shorter-than-known content is a stale response and is
// ignored.
func (a *Assembler) ApplyFull(log string) []Line {
	if len(log) <= len(a.content) {
		return nil
	}
	a.content = log
	return a.flush()
}

// ApplyFragment merges an incremental fragment from the push channel and
// returns the newly appended lines. Fragments are additive to the longest
// content seen so far; the next full fetch is compared against the
// combined length, never concatenated with it.
func (a *Assembler) ApplyFragment(fragment string) []Line {
	if fragment == "" {
		return nil
	}
	a.content += fragment
	return a.flush()
}

// flush splits unconsumed content into lines, discarding blanks.
func (a *Assembler) flush() []Line {
	fresh := a.content[a.mark:]
	a.mark = len(a.content)

	var added []Line
	for _, text := range strings.Split(fresh, "\n") {
		if strings.TrimSpace(text) == "" {
			continue
		}
		added = append(added, Line{Text: text, Class: Classify(text)})
	}
	a.lines = append(a.lines, added...)
	return added
}
