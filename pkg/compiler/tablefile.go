// midimap/pkg/compiler/tablefile.go

package compiler

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"os"

	"rgehrsitz/midimap/pkg/logging"
	"rgehrsitz/midimap/pkg/midi"
)

const (
	Magic      = "MMAP"
	Version    = 1
	HeaderSize = 16
	RecordSize = 6
)

var ErrCorruptTable = errors.New("corrupt table file")

type Header struct {
	Magic      [4]byte
	Version    uint32
	Checksum   uint32
	NumEntries uint32
}

// EncodeTable serialises t as a header followed by one record per entry, in ascending input
// order: in.status in.d1 in.d2 out.status out.d1 out.d2.
func EncodeTable(t *Table) []byte {
	records := make([]byte, 0, t.Len()*RecordSize)
	t.Range(func(in, out midi.Triple) bool {
		records = append(records, in[0], in[1], in[2], out[0], out[1], out[2])
		return true
	})

	header := Header{
		Version:    Version,
		Checksum:   crc32.ChecksumIEEE(records),
		NumEntries: uint32(t.Len()),
	}
	copy(header.Magic[:], Magic)

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+len(records)))
	// Writes into a bytes.Buffer cannot fail.
	_ = binary.Write(buf, binary.LittleEndian, header)
	buf.Write(records)
	return buf.Bytes()
}

// DecodeTable rebuilds a Table from EncodeTable output.
func DecodeTable(data []byte) (*Table, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorruptTable, len(data))
	}

	var header Header
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptTable, err)
	}
	if string(header.Magic[:]) != Magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptTable, header.Magic[:])
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptTable, header.Version)
	}

	records := data[HeaderSize:]
	if len(records) != int(header.NumEntries)*RecordSize {
		return nil, fmt.Errorf("%w: expected %d entries, found %d bytes", ErrCorruptTable, header.NumEntries, len(records))
	}
	if crc32.ChecksumIEEE(records) != header.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptTable)
	}

	table := &Table{}
	for off := 0; off < len(records); off += RecordSize {
		in := midi.Triple{records[off], records[off+1], records[off+2]}
		out := midi.Triple{records[off+3], records[off+4], records[off+5]}
		if !in.Valid() || !out.Valid() {
			return nil, fmt.Errorf("%w: entry %s -> %s outside field domains", ErrCorruptTable, in, out)
		}
		if !table.insert(in, out) {
			return nil, fmt.Errorf("%w: duplicate entry for %s", ErrCorruptTable, in)
		}
	}
	return table, nil
}

func WriteTableToFile(filename string, t *Table) error {
	if err := os.WriteFile(filename, EncodeTable(t), 0644); err != nil {
		return logging.NewError(logging.ErrorTypeCompile, "failed to write table file", err,
			map[string]interface{}{"path": filename})
	}
	logging.Logger.Info().Str("path", filename).Int("entries", t.Len()).Msg("Successfully wrote table file")
	return nil
}

func ReadTableFromFile(filename string) (*Table, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, logging.NewError(logging.ErrorTypeConfig, "failed to read table file", err,
			map[string]interface{}{"path": filename})
	}
	table, err := DecodeTable(data)
	if err != nil {
		return nil, logging.NewError(logging.ErrorTypeCompile, "failed to decode table file", err,
			map[string]interface{}{"path": filename})
	}
	logging.Logger.Info().Str("path", filename).Int("entries", table.Len()).Msg("Loaded table file")
	return table, nil
}
