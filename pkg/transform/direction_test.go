package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chatsync/b2csync/pkg/models"
	"github.com/chatsync/b2csync/pkg/upstream"
)

func rawMsg(t time.Time, incoming, broadcasted bool) upstream.RawMessage {
	return upstream.RawMessage{Timestamp: t, Incoming: incoming, Broadcasted: broadcasted}
}

func TestDetectDirectionNoMessages(t *testing.T) {
	assert.Equal(t, models.DirectionIncoming, detectDirection(nil, nil))
}

func TestDetectDirectionFirstMessageIncoming(t *testing.T) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	messages := []upstream.RawMessage{rawMsg(base, true, false)}
	assert.Equal(t, models.DirectionIncoming, detectDirection(messages, nil))
}

func TestDetectDirectionBroadcastFlagOnFirstMessage(t *testing.T) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	messages := []upstream.RawMessage{rawMsg(base, false, true)}
	assert.Equal(t, models.DirectionOutgoingBroadcast, detectDirection(messages, nil))
}

func TestDetectDirectionBroadcastTagMarker(t *testing.T) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	messages := []upstream.RawMessage{rawMsg(base, false, false)}
	assert.Equal(t, models.DirectionOutgoingBroadcast, detectDirection(messages, []string{"Q1-Campaign"}))
}

func TestDetectDirectionPlainOutgoing(t *testing.T) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	messages := []upstream.RawMessage{rawMsg(base, false, false)}
	assert.Equal(t, models.DirectionOutgoing, detectDirection(messages, []string{"vip"}))
}

func TestNextDirectionConvertsOutgoingToIncomingOnCustomerMessage(t *testing.T) {
	assert.Equal(t, models.DirectionIncoming, nextDirection(models.DirectionOutgoing, true))
	assert.Equal(t, models.DirectionIncoming, nextDirection(models.DirectionOutgoingBroadcast, true))
}

func TestNextDirectionNeverConvertsBack(t *testing.T) {
	assert.Equal(t, models.DirectionIncoming, nextDirection(models.DirectionIncoming, false))
	assert.Equal(t, models.DirectionOutgoing, nextDirection(models.DirectionOutgoing, false))
}

func TestSortMessagesByTimestamp(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	messages := []upstream.RawMessage{rawMsg(t2, false, false), rawMsg(t1, true, false)}
	sortMessagesByTimestamp(messages)
	assert.True(t, messages[0].Incoming)
	assert.Equal(t, t1, messages[0].Timestamp)
}
