// midimap/pkg/midi/message.go

package midi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Channel voice status bytes (channel 0).
const (
	NoteOff         uint8 = 0x80
	NoteOn          uint8 = 0x90
	PolyPressure    uint8 = 0xA0
	ControlChange   uint8 = 0xB0
	ProgramChange   uint8 = 0xC0
	ChannelPressure uint8 = 0xD0
	PitchBend       uint8 = 0xE0
	SongPosition    uint8 = 0xF2
)

const (
	StatusMin uint8 = 0x80
	StatusMax uint8 = 0xEF
	DataMax   uint8 = 0x7F

	// StatusCount is the size of the status domain: 0x80-0xEF plus 0xF2.
	StatusCount = int(StatusMax-StatusMin) + 2
	DataCount   = int(DataMax) + 1
)

// Field identifies a position inside a Triple.
type Field int

const (
	FieldStatus Field = iota
	FieldData1
	FieldData2
)

func (f Field) String() string {
	switch f {
	case FieldStatus:
		return "status"
	case FieldData1:
		return "data1"
	case FieldData2:
		return "data2"
	default:
		return "field(" + strconv.Itoa(int(f)) + ")"
	}
}

// Valid reports whether v is inside the domain of the field.
func (f Field) Valid(v int) bool {
	switch f {
	case FieldStatus:
		return ValidStatus(v)
	case FieldData1, FieldData2:
		return ValidData(v)
	default:
		return false
	}
}

// Domain returns every value of the field in ascending order.
func (f Field) Domain() []uint8 {
	if f == FieldStatus {
		return StatusDomain()
	}
	out := make([]uint8, DataCount)
	for i := range out {
		out[i] = uint8(i)
	}
	return out
}

// ValidStatus reports whether v is a status byte of a three-byte control message.
// The domain is not contiguous: 0xF2 sits apart from the channel voice range.
func ValidStatus(v int) bool {
	return (v >= int(StatusMin) && v <= int(StatusMax)) || v == int(SongPosition)
}

func ValidData(v int) bool {
	return v >= 0 && v <= int(DataMax)
}

// StatusDomain enumerates 0x80-0xEF followed by 0xF2.
func StatusDomain() []uint8 {
	out := make([]uint8, 0, StatusCount)
	for s := int(StatusMin); s <= int(StatusMax); s++ {
		out = append(out, uint8(s))
	}
	return append(out, SongPosition)
}

// Triple is the (status, data1, data2) of a control message.
type Triple [3]uint8

func (t Triple) Status() uint8 { return t[FieldStatus] }
func (t Triple) Data1() uint8  { return t[FieldData1] }
func (t Triple) Data2() uint8  { return t[FieldData2] }

// Valid reports whether every position is inside its field domain.
func (t Triple) Valid() bool {
	return ValidStatus(int(t[0])) && ValidData(int(t[1])) && ValidData(int(t[2]))
}

// TripleSpace is the number of distinct valid triples.
const TripleSpace = StatusCount * DataCount * DataCount

// Index maps a valid triple onto [0, TripleSpace). Ordering follows status, data1, data2.
func (t Triple) Index() (int, bool) {
	var si int
	switch s := t[0]; {
	case s >= StatusMin && s <= StatusMax:
		si = int(s - StatusMin)
	case s == SongPosition:
		si = StatusCount - 1
	default:
		return 0, false
	}
	if t[1] > DataMax || t[2] > DataMax {
		return 0, false
	}
	return (si*DataCount+int(t[1]))*DataCount + int(t[2]), true
}

// TripleAt is the inverse of Index.
func TripleAt(idx int) Triple {
	d2 := idx % DataCount
	idx /= DataCount
	d1 := idx % DataCount
	si := idx / DataCount
	s := SongPosition
	if si < StatusCount-1 {
		s = StatusMin + uint8(si)
	}
	return Triple{s, uint8(d1), uint8(d2)}
}

func (t Triple) Message() Message {
	return Message{t[0], t[1], t[2]}
}

func (t Triple) String() string {
	return fmt.Sprintf("%02x %02x %02x", t[0], t[1], t[2])
}

// Message is a raw event message as delivered by a source.
type Message []byte

// Triple returns the control triple of m. ok is false for any other message shape.
func (m Message) Triple() (t Triple, ok bool) {
	if len(m) != 3 {
		return t, false
	}
	t = Triple{m[0], m[1], m[2]}
	return t, t.Valid()
}

// IsControl reports whether m is a three-byte control message.
func (m Message) IsControl() bool {
	_, ok := m.Triple()
	return ok
}

// Hex renders m as space separated lower-case hex bytes.
func (m Message) Hex() string {
	var sb strings.Builder
	for i, b := range m {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02x", b)
	}
	return sb.String()
}

func (m Message) String() string { return m.Hex() }

var ErrEmptyMessage = errors.New("empty message")

// ParseHex decodes a message written as whitespace separated hex bytes, e.g. "90 3c 7f".
func ParseHex(s string) (Message, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, ErrEmptyMessage
	}
	msg := make(Message, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid byte %q: %w", f, err)
		}
		msg = append(msg, byte(v))
	}
	return msg, nil
}
