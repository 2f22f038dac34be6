package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLog_OrderAndExtend(t *testing.T) {
	var run Log
	run.Section("Sales Agent")
	run.Add("✔ RFP received")

	var stage Log
	stage.Addf("✔ Matching item %s", "1")
	stage.Addf("✔ Found %d matching SKUs", 3)
	run.Extend(stage)

	assert.Equal(t, []string{
		"[Sales Agent]",
		"✔ RFP received",
		"✔ Matching item 1",
		"✔ Found 3 matching SKUs",
	}, run.Lines())
	assert.Equal(t, 4, run.Len())
}

func TestLog_LinesIsACopy(t *testing.T) {
	var l Log
	l.Add("a")
	lines := l.Lines()
	lines[0] = "mutated"
	assert.Equal(t, []string{"a"}, l.Lines())
}

func TestLog_EmptyLinesNotNil(t *testing.T) {
	var l Log
	assert.NotNil(t, l.Lines())
	assert.Empty(t, l.Lines())
}
