// vgm_commands.go - VGM command stream tokenizer.
//
// Command lengths include the opcode byte:
//   - 0x30-0x3F reserved one-operand commands: 2
//   - 0x40 Mikey, 0x41 K007232, 0x42-0x4E two-operand chip writes: 3
//   - 0x4F GG stereo, 0x50 SN76489: 2
//   - 0x51-0x5F YM family writes: 3
//   - 0x61 wait nn nn: 3; 0x62/0x63 frame waits and 0x66 end: 1
//   - 0x67 data block: 7 + payload size (u32 at +3), never from the table
//   - 0x68 PCM RAM write: 12
//   - 0x70-0x8F short waits / YM2612 DAC + wait: 1
//   - 0x90-0x95 DAC stream control: 5, 5, 6, 11, 2, 5
//   - 0xA0-0xBF: 3, 0xC0-0xDF: 4, 0xE0-0xFF: 5
//
// Anything else is advanced by a single byte.

package main

import "encoding/binary"

type CommandKind int

const (
	CommandFixed CommandKind = iota
	CommandDataBlock
	CommandTruncated
)

func (k CommandKind) String() string {
	switch k {
	case CommandFixed:
		return "fixed"
	case CommandDataBlock:
		return "data-block"
	case CommandTruncated:
		return "truncated"
	}
	return "unknown"
}

// VGMCommand is one byte range of the command stream. Bytes aliases the
// tokenized buffer.
type VGMCommand struct {
	Kind   CommandKind
	Offset int
	Bytes  []byte
}

func (c VGMCommand) Opcode() byte {
	if len(c.Bytes) == 0 {
		return 0
	}
	return c.Bytes[0]
}

func (c VGMCommand) Len() int {
	return len(c.Bytes)
}

var vgmCommandLength = func() [256]uint8 {
	var t [256]uint8
	fill := func(lo, hi int, n uint8) {
		for op := lo; op <= hi; op++ {
			t[op] = n
		}
	}
	fill(0x30, 0x3F, 2)
	fill(0x40, 0x4E, 3)
	fill(0x4F, 0x50, 2)
	fill(0x51, 0x5F, 3)
	t[0x61] = 3
	t[0x62] = 1
	t[0x63] = 1
	t[0x66] = 1
	t[0x68] = 12
	fill(0x70, 0x8F, 1)
	t[0x90] = 5
	t[0x91] = 5
	t[0x92] = 6
	t[0x93] = 11
	t[0x94] = 2
	t[0x95] = 5
	fill(0xA0, 0xBF, 3)
	fill(0xC0, 0xDF, 4)
	fill(0xE0, 0xFF, 5)
	return t
}()

// commandLength returns the table length of a fixed-length opcode.
func commandLength(op byte) int {
	if n := vgmCommandLength[op]; n != 0 {
		return int(n)
	}
	return 1
}

// CommandTokenizer walks a command stream front to back. It cannot be
// rewound; start a new one at offset 0 to tokenize again.
type CommandTokenizer struct {
	data []byte
	pos  int
	done bool
}

func NewCommandTokenizer(stream []byte) *CommandTokenizer {
	return &CommandTokenizer{data: stream}
}

// Offset is the position of the next command.
func (t *CommandTokenizer) Offset() int {
	return t.pos
}

// Next returns the next command. A command whose declared length runs past
// the end of the buffer comes back once as CommandTruncated holding the
// remaining bytes, and the sequence ends there.
func (t *CommandTokenizer) Next() (VGMCommand, bool) {
	if t.done || t.pos >= len(t.data) {
		t.done = true
		return VGMCommand{}, false
	}

	start := t.pos
	remaining := len(t.data) - start
	op := t.data[start]

	kind := CommandFixed
	var total uint64
	if op == VGM_CMD_DATA_BLOCK {
		kind = CommandDataBlock
		if remaining < VGM_DATA_BLOCK_HEADER {
			return t.truncate(start), true
		}
		size := binary.LittleEndian.Uint32(t.data[start+VGM_DATA_BLOCK_SIZE_AT : start+VGM_DATA_BLOCK_HEADER])
		total = VGM_DATA_BLOCK_HEADER + uint64(size)
	} else {
		total = uint64(commandLength(op))
	}

	if total > uint64(remaining) {
		return t.truncate(start), true
	}

	end := start + int(total)
	t.pos = end
	return VGMCommand{Kind: kind, Offset: start, Bytes: t.data[start:end:end]}, true
}

func (t *CommandTokenizer) truncate(start int) VGMCommand {
	t.pos = len(t.data)
	t.done = true
	return VGMCommand{Kind: CommandTruncated, Offset: start, Bytes: t.data[start:]}
}

// Tokenize collects every command of the stream.
func Tokenize(stream []byte) []VGMCommand {
	tok := NewCommandTokenizer(stream)
	cmds := make([]VGMCommand, 0, len(stream)/3)
	for {
		cmd, ok := tok.Next()
		if !ok {
			return cmds
		}
		cmds = append(cmds, cmd)
	}
}
