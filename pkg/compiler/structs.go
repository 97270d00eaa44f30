// midimap/pkg/compiler/structs.go

package compiler

import (
	"fmt"
	"strings"

	"rgehrsitz/midimap/pkg/midi"
)

// Token is one field of a rule side: either a concrete byte or a wildcard.
type Token struct {
	value    uint8
	concrete bool
}

func Wildcard() Token { return Token{} }

func Concrete(v uint8) Token { return Token{value: v, concrete: true} }

func (t Token) Value() (uint8, bool) { return t.value, t.concrete }

func (t Token) IsWildcard() bool { return !t.concrete }

// Values returns the set of input values the token ranges over for field f.
func (t Token) Values(f midi.Field) []uint8 {
	if t.concrete {
		return []uint8{t.value}
	}
	return f.Domain()
}

// Resolve returns the output value for the token given the matching input value.
// A wildcard leaves the input byte as-is.
func (t Token) Resolve(in uint8) uint8 {
	if t.concrete {
		return t.value
	}
	return in
}

func (t Token) String() string {
	if !t.concrete {
		return "*"
	}
	return fmt.Sprintf("%02X", t.value)
}

// Pattern is a rule side: one token per triple position.
type Pattern [3]Token

// Matches reports whether in is covered by p.
func (p Pattern) Matches(in midi.Triple) bool {
	for i, tok := range p {
		if v, ok := tok.Value(); ok && v != in[i] {
			return false
		}
	}
	return true
}

// Size is the number of concrete triples p expands to.
func (p Pattern) Size() int {
	n := 1
	for i, tok := range p {
		if tok.IsWildcard() {
			n *= len(midi.Field(i).Domain())
		}
	}
	return n
}

func (p Pattern) String() string {
	parts := make([]string, len(p))
	for i, tok := range p {
		parts[i] = tok.String()
	}
	return strings.Join(parts, ",")
}

// Rule is one parsed line of a rule set.
type Rule struct {
	Line   int
	Raw    string
	Input  Pattern
	Output Pattern
}

// Apply computes the output triple for an input covered by the rule.
func (r Rule) Apply(in midi.Triple) midi.Triple {
	return midi.Triple{
		r.Output[midi.FieldStatus].Resolve(in[midi.FieldStatus]),
		r.Output[midi.FieldData1].Resolve(in[midi.FieldData1]),
		r.Output[midi.FieldData2].Resolve(in[midi.FieldData2]),
	}
}

// Expand calls fn for every concrete input the rule covers, in ascending order,
// together with the output it maps to. Expansion stops when fn returns false.
func (r Rule) Expand(fn func(in, out midi.Triple) bool) {
	statuses := r.Input[midi.FieldStatus].Values(midi.FieldStatus)
	data1 := r.Input[midi.FieldData1].Values(midi.FieldData1)
	data2 := r.Input[midi.FieldData2].Values(midi.FieldData2)

	for _, s := range statuses {
		for _, d1 := range data1 {
			for _, d2 := range data2 {
				in := midi.Triple{s, d1, d2}
				if !fn(in, r.Apply(in)) {
					return
				}
			}
		}
	}
}

func (r Rule) String() string {
	return r.Input.String() + "|" + r.Output.String()
}

// Table is the compiled, flattened mapping from concrete input triples to output triples.
// It is never modified after Build or ReadTableFromFile returns and is safe for concurrent reads.
type Table struct {
	// slots is indexed by midi.Triple.Index; a non-zero slot holds present<<24 | output.
	slots   []uint32
	entries int
}

const slotPresent = 1 << 24

func (t *Table) Lookup(in midi.Triple) (midi.Triple, bool) {
	if t == nil || t.slots == nil {
		return midi.Triple{}, false
	}
	idx, ok := in.Index()
	if !ok {
		return midi.Triple{}, false
	}
	slot := t.slots[idx]
	if slot == 0 {
		return midi.Triple{}, false
	}
	return midi.Triple{uint8(slot >> 16), uint8(slot >> 8), uint8(slot)}, true
}

// Len returns the number of concrete input triples with a mapping.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.entries
}

// Range calls fn for each entry in ascending input order until fn returns false.
func (t *Table) Range(fn func(in, out midi.Triple) bool) {
	if t == nil {
		return
	}
	for idx, slot := range t.slots {
		if slot == 0 {
			continue
		}
		out := midi.Triple{uint8(slot >> 16), uint8(slot >> 8), uint8(slot)}
		if !fn(midi.TripleAt(idx), out) {
			return
		}
	}
}

// insert adds in -> out unless in already has an entry. Only used while building.
func (t *Table) insert(in, out midi.Triple) bool {
	idx, ok := in.Index()
	if !ok {
		return false
	}
	if t.slots == nil {
		t.slots = make([]uint32, midi.TripleSpace)
	}
	if t.slots[idx] != 0 {
		return false
	}
	t.slots[idx] = slotPresent | uint32(out[0])<<16 | uint32(out[1])<<8 | uint32(out[2])
	t.entries++
	return true
}
