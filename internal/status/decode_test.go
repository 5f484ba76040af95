package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want TransactionStatus
	}{
		{"ready string", `"ready"`, NewReady()},
		{"broadcast peers", `{"broadcast":["peer-a","peer-b"]}`, NewBroadcast("peer-a", "peer-b")},
		{"in block", `{"inBlock":"0xabc"}`, NewInBlock("0xabc", 0)},
		{"in block confirmations", `{"inBlock":"0xabc","confirmations":2}`, NewInBlock("0xabc", 2)},
		{"finalized", `{"finalized":"0xdef"}`, NewFinalised("0xdef")},
		{"finalised flag", `{"finalised":true}`, NewFinalised("")},
		{"invalid", `"invalid"`, NewFailed("invalid")},
		{"dropped", `"dropped"`, NewFailed("dropped")},
		{"usurped", `{"usurped":"0x01"}`, NewFailed("usurped: 0x01")},
		{"failed with detail", `{"failed":"insufficient balance"}`, NewFailed("insufficient balance")},
		{"future", `"future"`, NewUnknown("future")},
		{"retracted object", `{ "retracted": "0x02" }`, NewUnknown(`{"retracted":"0x02"}`)},
		{"number", `7`, NewUnknown("7")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeFirstMatchWins(t *testing.T) {
	got, err := Decode([]byte(`{"failed":true,"signing":true}`))
	require.NoError(t, err)
	assert.Equal(t, Signing, got.Kind)
	assert.Equal(t, "signing", Present(got).Text)

	got, err = Decode([]byte(`{"sending":1,"broadcast":[],"finalized":"0x1"}`))
	require.NoError(t, err)
	assert.Equal(t, Sending, got.Kind)

	// 假值不参与匹配
	got, err = Decode([]byte(`{"signing":false,"sending":0,"ready":"","finalized":"0x1"}`))
	require.NoError(t, err)
	assert.Equal(t, Finalised, got.Kind)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte(`null`))
	assert.ErrorIs(t, err, ErrNoStatus)
	_, err = Decode(nil)
	assert.ErrorIs(t, err, ErrNoStatus)
	_, err = Decode([]byte(`{"ready"`))
	assert.Error(t, err)
}

func TestEncodeDecode(t *testing.T) {
	for _, s := range []TransactionStatus{
		NewReady(),
		NewBroadcast("p1"),
		NewInBlock("0x10", 0),
		NewInBlock("0x10", 3),
		NewFinalised("0x11"),
		NewFailed("invalid"),
		NewFailed("invalid: bad proof"),
		NewFailed("amount exceeds balance"),
		NewUnknown("future"),
	} {
		got, err := Decode(Encode(s))
		require.NoError(t, err)
		assert.Equal(t, s, got, "status %s", s)
	}
}
