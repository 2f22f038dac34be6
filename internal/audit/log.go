// Package audit provides the append-only, human-readable trace of one pipeline run.
package audit

import "fmt"

// Log is an ordered sequence of audit lines. Stages build their own Log and
// hand it back with their result; the orchestrator concatenates them in order.
type Log struct {
	lines []string
}

func (l *Log) Add(line string) {
	l.lines = append(l.lines, line)
}

func (l *Log) Addf(format string, args ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

// Section appends a stage header such as "[Technical Agent]".
func (l *Log) Section(name string) {
	l.lines = append(l.lines, "["+name+"]")
}

// Extend appends every line of other, preserving its order.
func (l *Log) Extend(other Log) {
	l.lines = append(l.lines, other.lines...)
}

func (l Log) Len() int { return len(l.lines) }

// Lines returns a copy; callers cannot mutate the log through it.
func (l Log) Lines() []string {
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}
