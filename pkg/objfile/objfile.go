// Package objfile frames instruction words as bytes: big-endian, four
// bytes per word, no header.
package objfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"koala/pkg/opcode"
)

// WordSize is the number of bytes per encoded word.
const WordSize = 4

var ErrTruncated = errors.New("objfile: length is not a multiple of 4")

func Encode(ins opcode.Instructions) []byte {
	out := make([]byte, 0, len(ins)*WordSize)
	for _, w := range ins {
		out = binary.BigEndian.AppendUint32(out, w)
	}
	return out
}

func Decode(data []byte) (opcode.Instructions, error) {
	if len(data)%WordSize != 0 {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTruncated, len(data))
	}

	ins := make(opcode.Instructions, len(data)/WordSize)
	for i := range ins {
		ins[i] = binary.BigEndian.Uint32(data[i*WordSize:])
	}
	return ins, nil
}

func WriteFile(path string, ins opcode.Instructions) error {
	if err := os.WriteFile(path, Encode(ins), 0o644); err != nil {
		return fmt.Errorf("objfile: %w", err)
	}
	return nil
}

func ReadFile(path string) (opcode.Instructions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("objfile: %w", err)
	}
	return Decode(data)
}
