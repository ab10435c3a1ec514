// vgm_xheader.go - VGM 1.70 extra header: chip clock and chip volume tables.
//
// Block layout (offsets relative to the block start):
//
//	0x00  u32 block size
//	0x04  u32 chip clock table offset, relative to 0x04 (0 = none)
//	0x08  u32 chip volume table offset, relative to 0x08 (0 = none)
//	      clock table:  count, count * { chip id | instance<<7, u32 clock }
//	      volume table: count, count * { chip id, instance, u16 volume }

package main

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pkg/errors"
)

var ErrVGMBadExtraHeader = errors.New("vgm invalid extra header")

type ChipClockOverride struct {
	ChipID   uint8
	Instance uint8
	ClockHz  uint32
}

// ChipVolumeOverride carries the on-disk volume: 8.8 fixed point, with
// XHDR_VOLUME_RELATIVE set for an adjustment relative to the chip default.
type ChipVolumeOverride struct {
	ChipID   uint8
	Instance uint8
	Volume   uint16
}

func (o ChipClockOverride) String() string {
	return fmt.Sprintf("%s.%d=%d", chipName(o.ChipID), o.Instance, o.ClockHz)
}

func (o ChipVolumeOverride) String() string {
	if o.Volume&XHDR_VOLUME_RELATIVE != 0 {
		return fmt.Sprintf("%s.%d=-0x%X (relative)", chipName(o.ChipID), o.Instance, o.Volume&XHDR_VOLUME_MAX)
	}
	return fmt.Sprintf("%s.%d=0x%X (%.3f)", chipName(o.ChipID), o.Instance, o.Volume, float64(o.Volume)/XHDR_VOLUME_UNITY)
}

// ClockFromFloat rounds half-up to whole Hz.
func ClockFromFloat(hz float64) (uint32, error) {
	if math.IsNaN(hz) || hz < 0 {
		return 0, errors.Errorf("vgm chip clock %v out of range", hz)
	}
	v := math.Floor(hz + 0.5)
	if v > math.MaxUint32 {
		return 0, errors.Errorf("vgm chip clock %v out of range", hz)
	}
	return uint32(v), nil
}

// VolumeFromFloat converts a scale factor (1.0 = 100%) to 8.8 fixed point,
// rounding half away from zero. Negative factors become relative adjustments.
func VolumeFromFloat(scale float64) (uint16, error) {
	if math.IsNaN(scale) || math.IsInf(scale, 0) {
		return 0, errors.Errorf("vgm chip volume %v out of range", scale)
	}
	var fixed float64
	if scale >= 0 {
		fixed = math.Floor(scale*XHDR_VOLUME_UNITY + 0.5)
	} else {
		fixed = math.Ceil(scale*XHDR_VOLUME_UNITY - 0.5)
	}
	if math.Abs(fixed) > XHDR_VOLUME_MAX {
		return 0, errors.Errorf("vgm chip volume %v out of range", scale)
	}
	return VolumeFromFixed(int(fixed))
}

// VolumeFromFixed takes an 8.8 integer (0x100 = 100%). Negative values
// become relative adjustments.
func VolumeFromFixed(v int) (uint16, error) {
	if v < -XHDR_VOLUME_MAX || v > XHDR_VOLUME_MAX {
		return 0, errors.Errorf("vgm chip volume 0x%X out of range", v)
	}
	if v < 0 {
		return XHDR_VOLUME_RELATIVE | uint16(-v), nil
	}
	return uint16(v), nil
}

func encodeClockTable(clocks []ChipClockOverride) ([]byte, error) {
	if len(clocks) == 0 {
		return nil, nil
	}
	if len(clocks) > XHDR_MAX_ENTRIES {
		return nil, errors.Errorf("vgm too many chip clock entries (%d)", len(clocks))
	}
	out := make([]byte, 1, 1+len(clocks)*XHDR_CLOCK_ENTRY_SIZE)
	out[0] = byte(len(clocks))
	for _, c := range clocks {
		if c.ChipID > CHIPID_MAX {
			return nil, errors.Errorf("vgm chip clock entry: chip id 0x%02X out of range", c.ChipID)
		}
		if c.Instance > 1 {
			return nil, errors.Errorf("vgm chip clock entry: instance %d out of range", c.Instance)
		}
		out = append(out, c.Instance<<7|c.ChipID)
		out = binary.LittleEndian.AppendUint32(out, c.ClockHz)
	}
	return out, nil
}

func encodeVolumeTable(vols []ChipVolumeOverride) ([]byte, error) {
	if len(vols) == 0 {
		return nil, nil
	}
	if len(vols) > XHDR_MAX_ENTRIES {
		return nil, errors.Errorf("vgm too many chip volume entries (%d)", len(vols))
	}
	out := make([]byte, 1, 1+len(vols)*XHDR_VOLUME_ENTRY_SIZE)
	out[0] = byte(len(vols))
	for _, v := range vols {
		if v.Instance > 1 {
			return nil, errors.Errorf("vgm chip volume entry: instance %d out of range", v.Instance)
		}
		out = append(out, v.ChipID, v.Instance)
		out = binary.LittleEndian.AppendUint16(out, v.Volume)
	}
	return out, nil
}

// EncodeExtraHeader builds the extra header block. Both pointer slots are
// always present; the block size covers the slots up to the last table that
// is actually written.
func EncodeExtraHeader(clocks []ChipClockOverride, vols []ChipVolumeOverride) ([]byte, error) {
	clockData, err := encodeClockTable(clocks)
	if err != nil {
		return nil, err
	}
	volData, err := encodeVolumeTable(vols)
	if err != nil {
		return nil, err
	}

	slots := 0
	if len(clockData) > 0 {
		slots = 1
	}
	if len(volData) > 0 {
		slots = 2
	}

	out := make([]byte, XHDR_TABLE_SIZE, XHDR_TABLE_SIZE+len(clockData)+len(volData))
	binary.LittleEndian.PutUint32(out[XHDR_OFS_SIZE:], uint32((1+slots)*4))
	if len(clockData) > 0 {
		writeRelOfs(out, XHDR_OFS_CLOCKS, len(out))
		out = append(out, clockData...)
	}
	if len(volData) > 0 {
		writeRelOfs(out, XHDR_OFS_VOLUME, len(out))
		out = append(out, volData...)
	}
	return out, nil
}

// DecodeExtraHeader parses a block produced by EncodeExtraHeader or found in
// a VGM file. Trailing padding is ignored.
func DecodeExtraHeader(block []byte) ([]ChipClockOverride, []ChipVolumeOverride, error) {
	if len(block) < 4 {
		return nil, nil, errors.Wrap(ErrVGMBadExtraHeader, "block too short")
	}
	size := int(binary.LittleEndian.Uint32(block[XHDR_OFS_SIZE:]))
	if size < 4 || size > len(block) {
		return nil, nil, errors.Wrapf(ErrVGMBadExtraHeader, "block size 0x%X", size)
	}

	var clocks []ChipClockOverride
	var vols []ChipVolumeOverride

	if size >= XHDR_OFS_CLOCKS+4 {
		if at := readRelOfs(block, XHDR_OFS_CLOCKS); at != 0 {
			count, entries, err := extraHeaderTable(block, at, XHDR_CLOCK_ENTRY_SIZE)
			if err != nil {
				return nil, nil, errors.Wrap(err, "chip clock table")
			}
			clocks = make([]ChipClockOverride, 0, count)
			for i := 0; i < count; i++ {
				e := entries[i*XHDR_CLOCK_ENTRY_SIZE:]
				clocks = append(clocks, ChipClockOverride{
					ChipID:   e[0] & CHIPID_MAX,
					Instance: e[0] >> 7,
					ClockHz:  binary.LittleEndian.Uint32(e[1:5]),
				})
			}
		}
	}

	if size >= XHDR_OFS_VOLUME+4 {
		if at := readRelOfs(block, XHDR_OFS_VOLUME); at != 0 {
			count, entries, err := extraHeaderTable(block, at, XHDR_VOLUME_ENTRY_SIZE)
			if err != nil {
				return nil, nil, errors.Wrap(err, "chip volume table")
			}
			vols = make([]ChipVolumeOverride, 0, count)
			for i := 0; i < count; i++ {
				e := entries[i*XHDR_VOLUME_ENTRY_SIZE:]
				vols = append(vols, ChipVolumeOverride{
					ChipID:   e[0],
					Instance: e[1],
					Volume:   binary.LittleEndian.Uint16(e[2:4]),
				})
			}
		}
	}

	return clocks, vols, nil
}

func extraHeaderTable(block []byte, at, entrySize int) (int, []byte, error) {
	if at < 0 || at >= len(block) {
		return 0, nil, errors.Wrapf(ErrVGMBadExtraHeader, "table offset 0x%X beyond block", at)
	}
	count := int(block[at])
	end := at + 1 + count*entrySize
	if end > len(block) {
		return 0, nil, errors.Wrapf(ErrVGMBadExtraHeader, "%d entries overrun block", count)
	}
	return count, block[at+1 : end], nil
}

// padExtraHeader zero-pads the block to a multiple of align bytes.
func padExtraHeader(block []byte, align int) []byte {
	if align <= 1 {
		return block
	}
	pad := (align - len(block)%align) % align
	return append(block, make([]byte, pad)...)
}
