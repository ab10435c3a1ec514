// vgm_mono.go - K007232 stereo-to-mono volume folding.
//
// Each K007232 instance has four volume registers at base+0..base+3:
// channel 0 left/right, channel 1 left/right. In mono mode channel 0 right
// follows channel 0 left and channel 1 left follows channel 1 right:
//
//	base+0 v  ->  base+0 v, base+1 v
//	base+3 v  ->  base+3 v, base+2 v
//	base+1/2  ->  dropped
//
// Every other command is copied as tokenized, so operand and data block bytes
// are never inspected as opcodes.

package main

import "github.com/pkg/errors"

type ChannelMode int

const (
	ModeStereo ChannelMode = iota
	ModeMono
)

func (m ChannelMode) String() string {
	if m == ModeMono {
		return "mono"
	}
	return "stereo"
}

func ParseChannelMode(s string) (ChannelMode, error) {
	switch s {
	case "stereo", "":
		return ModeStereo, nil
	case "mono":
		return ModeMono, nil
	}
	return ModeStereo, errors.Errorf("unknown channel mode %q (want stereo or mono)", s)
}

type MonoFoldInstance struct {
	Base byte
	Mode ChannelMode
}

// MonoFoldConfig is built once per run and not modified afterwards.
type MonoFoldConfig struct {
	Opcode    byte
	Instances []MonoFoldInstance
}

// NewK007232FoldConfig configures both K007232 instances at their usual
// register bases.
func NewK007232FoldConfig(chip0, chip1 ChannelMode) MonoFoldConfig {
	return MonoFoldConfig{
		Opcode: VGM_CMD_K007232_WRITE,
		Instances: []MonoFoldInstance{
			{Base: K007232_REG_BASE_CHIP0, Mode: chip0},
			{Base: K007232_REG_BASE_CHIP1, Mode: chip1},
		},
	}
}

// Active reports whether any instance folds to mono.
func (c MonoFoldConfig) Active() bool {
	for _, inst := range c.Instances {
		if inst.Mode == ModeMono {
			return true
		}
	}
	return false
}

// match returns the instance index and register slot (0-3) of a write.
func (c MonoFoldConfig) match(reg byte) (int, int, bool) {
	for i, inst := range c.Instances {
		if inst.Mode != ModeMono {
			continue
		}
		if reg >= inst.Base && int(reg) <= int(inst.Base)+3 {
			return i, int(reg - inst.Base), true
		}
	}
	return 0, 0, false
}

type MonoInstanceStats struct {
	Mirrored int
	Dropped  int
}

type MonoFoldStats struct {
	Commands       int
	TruncatedBytes int
	Instances      []MonoInstanceStats
}

// Unanchored reports instances that had base+1/base+2 writes dropped but
// never wrote base+0 or base+3, leaving that channel without any volume.
func (s MonoFoldStats) Unanchored() []int {
	var idx []int
	for i, st := range s.Instances {
		if st.Dropped > 0 && st.Mirrored == 0 {
			idx = append(idx, i)
		}
	}
	return idx
}

// FoldMono rewrites the command stream for every mono instance of cfg.
// loopRel is the loop point relative to the stream start (-1 for none); the
// returned loop point is the output position of the same command.
func FoldMono(stream []byte, cfg MonoFoldConfig, loopRel int) ([]byte, int, MonoFoldStats) {
	stats := MonoFoldStats{Instances: make([]MonoInstanceStats, len(cfg.Instances))}
	out := make([]byte, 0, len(stream)+len(stream)/8)
	newLoop := -1

	tok := NewCommandTokenizer(stream)
	for {
		cmd, ok := tok.Next()
		if !ok {
			break
		}
		stats.Commands++
		if loopRel >= 0 && newLoop < 0 && cmd.Offset >= loopRel {
			newLoop = len(out)
		}

		if cmd.Kind == CommandTruncated {
			stats.TruncatedBytes += cmd.Len()
			out = append(out, cmd.Bytes...)
			continue
		}
		if cmd.Kind != CommandFixed || cmd.Opcode() != cfg.Opcode || cmd.Len() != 3 {
			out = append(out, cmd.Bytes...)
			continue
		}

		reg, val := cmd.Bytes[1], cmd.Bytes[2]
		idx, slot, ok := cfg.match(reg)
		if !ok {
			out = append(out, cmd.Bytes...)
			continue
		}
		base := cfg.Instances[idx].Base
		switch slot {
		case 0:
			out = append(out, cmd.Bytes...)
			out = append(out, cfg.Opcode, base+1, val)
			stats.Instances[idx].Mirrored++
		case 3:
			out = append(out, cmd.Bytes...)
			out = append(out, cfg.Opcode, base+2, val)
			stats.Instances[idx].Mirrored++
		default:
			stats.Instances[idx].Dropped++
		}
	}

	if loopRel >= 0 && newLoop < 0 {
		newLoop = len(out)
	}
	return out, newLoop, stats
}
