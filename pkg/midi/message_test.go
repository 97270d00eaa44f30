// midimap/pkg/midi/message_test.go

package midi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusDomain(t *testing.T) {
	domain := StatusDomain()

	assert.Len(t, domain, StatusCount)
	assert.Equal(t, uint8(0x80), domain[0])
	assert.Equal(t, uint8(0xEF), domain[len(domain)-2])
	assert.Equal(t, uint8(0xF2), domain[len(domain)-1])
	assert.NotContains(t, domain, uint8(0xF0))
	assert.NotContains(t, domain, uint8(0xF1))
}

func TestFieldValid(t *testing.T) {
	tests := []struct {
		field Field
		value int
		valid bool
	}{
		{FieldStatus, 0x7F, false},
		{FieldStatus, 0x80, true},
		{FieldStatus, 0xEF, true},
		{FieldStatus, 0xF0, false},
		{FieldStatus, 0xF2, true},
		{FieldStatus, 0xF3, false},
		{FieldData1, 0x00, true},
		{FieldData1, 0x7F, true},
		{FieldData1, 0x80, false},
		{FieldData2, -1, false},
		{FieldData2, 0x40, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, tt.field.Valid(tt.value), "%s 0x%x", tt.field, tt.value)
	}
}

func TestMessageTriple(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		ok   bool
	}{
		{"note on", Message{0x90, 0x3C, 0x7F}, true},
		{"song position", Message{0xF2, 0x01, 0x02}, true},
		{"two bytes", Message{0xC0, 0x05}, false},
		{"sysex", Message{0xF0, 0x7E, 0x7F, 0xF7}, false},
		{"system status", Message{0xF3, 0x01, 0x00}, false},
		{"data out of range", Message{0x90, 0x80, 0x00}, false},
		{"empty", Message{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := tt.msg.Triple()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.ok, tt.msg.IsControl())
		})
	}
}

func TestHexCodec(t *testing.T) {
	msg, err := ParseHex("90 3C 7f")
	require.NoError(t, err)
	assert.Equal(t, Message{0x90, 0x3C, 0x7F}, msg)
	assert.Equal(t, "90 3c 7f", msg.Hex())

	_, err = ParseHex("   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = ParseHex("90 zz 00")
	assert.Error(t, err)

	_, err = ParseHex("100")
	assert.Error(t, err)
}

func TestTripleString(t *testing.T) {
	assert.Equal(t, "b3 05 00", Triple{0xB3, 0x05, 0x00}.String())
	assert.Equal(t, Message{0xB3, 0x05, 0x00}, Triple{0xB3, 0x05, 0x00}.Message())
}

func TestTripleIndex(t *testing.T) {
	first, ok := Triple{0x80, 0x00, 0x00}.Index()
	require.True(t, ok)
	assert.Equal(t, 0, first)

	last, ok := Triple{0xF2, 0x7F, 0x7F}.Index()
	require.True(t, ok)
	assert.Equal(t, TripleSpace-1, last)

	for _, tr := range []Triple{{0x90, 0x10, 0x7F}, {0xEF, 0x7F, 0x00}, {0xF2, 0x00, 0x01}} {
		idx, ok := tr.Index()
		require.True(t, ok)
		assert.Equal(t, tr, TripleAt(idx))
	}

	_, ok = Triple{0xF0, 0x00, 0x00}.Index()
	assert.False(t, ok)
	_, ok = Triple{0x90, 0x80, 0x00}.Index()
	assert.False(t, ok)
}
