package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderStatusLineContainsPathAndStatus(t *testing.T) {
	line := RenderStatusLine("Drifted", ".cursorrules", "checksum mismatch")
	assert.Contains(t, line, "Drifted")
	assert.Contains(t, line, ".cursorrules")
	assert.Contains(t, line, "checksum mismatch")
}

func TestSummaryListsAllFourStatuses(t *testing.T) {
	summary := Summary(map[string]int{"Healthy": 3, "Drifted": 1})
	assert.Contains(t, summary, "3 healthy")
	assert.Contains(t, summary, "1 drifted")
	assert.Contains(t, summary, "0 missing")
	assert.Contains(t, summary, "0 broken")
}
