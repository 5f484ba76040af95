package status

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestPresent(t *testing.T) {
	tests := []struct {
		status TransactionStatus
		want   Presentation
	}{
		{NewSigning(), Presentation{"signing", IconKey, ColorGrey, false}},
		{NewSending(), Presentation{"sending", IconWifi, ColorGrey, false}},
		{NewBroadcast(), Presentation{"finalising", IconCog, ColorGrey, true}},
		{NewFinalised("0x1"), Presentation{"finalised", IconCheck, ColorGreen, false}},
		{NewFailed("dropped"), Presentation{"failed", IconExclamation, ColorRed, false}},
		{NewUnknown("future"), Presentation{"future", IconQuestion, ColorBlue, false}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Present(tt.status), "status %s", tt.status)
		// 纯函数: 同一输入多次调用结果相同
		assert.Equal(t, Present(tt.status), Present(tt.status))
	}
}

func TestReadyEquivalentToBroadcast(t *testing.T) {
	ready, err := Decode([]byte(`"ready"`))
	assert.NoError(t, err)
	assert.Equal(t, Present(NewBroadcast()), Present(ready))
	assert.Equal(t, Present(NewInBlock("0x1", 2)), Present(ready))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, NewFinalised("").IsTerminal())
	assert.True(t, NewFailed("x").IsTerminal())
	for _, s := range []TransactionStatus{NewSigning(), NewSending(), NewReady(), NewUnknown("x")} {
		assert.False(t, s.IsTerminal())
	}
}

func TestProgressLabel(t *testing.T) {
	tests := []struct {
		p     Progress
		label string
		shown bool
	}{
		{Progress{Current: 0, Total: 0}, "", false},
		{Progress{Current: 1, Total: 1}, "", false},
		{Progress{Current: 1, Total: 3}, "1 of 3", true},
		{Progress{Current: 5, Total: 3}, "3 of 3", true},
		{Progress{Current: -2, Total: 2}, "0 of 2", true},
	}
	for _, tt := range tests {
		label, shown := tt.p.Label()
		assert.Equal(t, tt.shown, shown)
		assert.Equal(t, tt.label, label)
	}
}

func TestLabel(t *testing.T) {
	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })

	assert.Equal(t, "", Label(nil, Progress{Current: 1, Total: 3}, DefaultLabelOptions()))

	s := NewInBlock("0x1", 2)
	assert.Equal(t, "⚙ finalising… (2 of 3)", Label(&s, Progress{Current: 2, Total: 3}, DefaultLabelOptions()))

	done := NewFinalised("0x1")
	assert.Equal(t, "✓ finalised", Label(&done, Progress{Current: 1, Total: 1}, DefaultLabelOptions()))
	assert.Equal(t, "finalised", Label(&done, Progress{}, LabelOptions{ShowContent: true}))
	assert.Equal(t, "✓", Label(&done, Progress{}, LabelOptions{ShowIcon: true, Color: ColorRed}))
}

func TestPlainLabel(t *testing.T) {
	s := NewInBlock("0x1", 1)
	assert.Equal(t, "finalising… (1 of 3)", PlainLabel(&s, Progress{Current: 1, Total: 3}))
	failed := NewFailed("invalid")
	assert.Equal(t, "failed", PlainLabel(&failed, Progress{}))
	assert.Equal(t, "", PlainLabel(nil, Progress{}))
}
