package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zakimal/zero-chain-ui/internal/event"
)

func TestFormatEvent(t *testing.T) {
	ts := time.Date(2024, 1, 2, 15, 4, 5, 0, time.Local)
	ev := event.TransferStatusEvent{
		TransferID:    "t-1",
		Status:        "broadcast",
		Text:          "finalising",
		Confirmations: 1,
		Expected:      3,
		Timestamp:     ts,
	}
	assert.Equal(t, "15:04:05 t-1 broadcast finalising (1 of 3)", formatEvent(ev))

	ev.Status, ev.Text, ev.Confirmations, ev.Terminal, ev.TxHash = "finalised", "finalised", 3, true, "0xabc"
	assert.Equal(t, "15:04:05 t-1 finalised finalised 0xabc", formatEvent(ev))
}
