package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")

	log.Info("hidden")
	log.Warn("shown", "shard", "TRD_Dalyr0")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "shard=TRD_Dalyr0")
}

func TestStageTagsRecords(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug").Stage("gap")

	log.Debug("events detected", "count", 3)
	log.Infof("matched %d of %d", 3, 10)

	out := buf.String()
	assert.Contains(t, out, "stage=gap")
	assert.Contains(t, out, "count=3")
	assert.Contains(t, out, "matched 3 of 10")
}
