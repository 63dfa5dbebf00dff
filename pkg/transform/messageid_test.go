package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMessageIDIsDeterministic(t *testing.T) {
	ts := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	a := messageID("chat-1", ts, 0)
	b := messageID("chat-1", ts, 0)
	assert.Equal(t, a, b)
	assert.Len(t, a, messageIDPrefixLen)
}

func TestMessageIDDiffersByIndex(t *testing.T) {
	ts := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	assert.NotEqual(t, messageID("chat-1", ts, 0), messageID("chat-1", ts, 1))
}

func TestMessageIDDiffersByChat(t *testing.T) {
	ts := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	assert.NotEqual(t, messageID("chat-1", ts, 0), messageID("chat-2", ts, 0))
}

func TestMessageIDDiffersByTimestamp(t *testing.T) {
	ts1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	ts2 := ts1.Add(time.Second)
	assert.NotEqual(t, messageID("chat-1", ts1, 0), messageID("chat-1", ts2, 0))
}
