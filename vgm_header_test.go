// vgm_header_test.go - Tests for header offsets and extra header placement

package main

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
)

func TestRelOfs_RoundTrip(t *testing.T) {
	buf := make([]byte, 0x100)
	for _, pos := range []int{VGM_OFS_EOF, VGM_OFS_GD3, VGM_OFS_LOOP, VGM_OFS_DATA, VGM_OFS_EXTRA_HEADER} {
		for _, target := range []int{pos + 1, 0x40, 0xC0, 0x12345} {
			writeRelOfs(buf, pos, target)
			if got := readRelOfs(buf, pos); got != target {
				t.Errorf("field 0x%X: wrote target 0x%X, read 0x%X", pos, target, got)
			}
		}
		writeRelOfs(buf, pos, 0)
		if v := binary.LittleEndian.Uint32(buf[pos:]); v != 0 {
			t.Errorf("field 0x%X: absent target stored as 0x%X", pos, v)
		}
		if got := readRelOfs(buf, pos); got != 0 {
			t.Errorf("field 0x%X: absent target read back as 0x%X", pos, got)
		}
	}
}

func TestInsertExtraHeader_PadsShortHeader(t *testing.T) {
	in := buildVGMImage(vgmImage{version: 0x150, dataStart: 0x38, cmds: sampleCmds, gd3: sampleGD3, loopAt: 3})
	orig := cloneBytes(in)
	block, err := EncodeExtraHeader([]ChipClockOverride{{ChipID: CHIPID_SN76496, ClockHz: 3579545}}, nil)
	if err != nil {
		t.Fatalf("EncodeExtraHeader: %v", err)
	}

	out, edit, _, err := insertExtraHeader(in, block)
	if err != nil {
		t.Fatalf("insertExtraHeader: %v", err)
	}
	if !bytes.Equal(in, orig) {
		t.Fatal("input buffer was modified")
	}

	if edit.At != 0xC0 || edit.Gap != 0x88 {
		t.Fatalf("at=0x%X gap=0x%X, want at=0xC0 gap=0x88", edit.At, edit.Gap)
	}
	delta := 0x88 + len(block)
	if edit.Delta != delta {
		t.Fatalf("delta=%d, want %d", edit.Delta, delta)
	}
	if len(out) != len(in)+delta {
		t.Fatalf("len=%d, want %d", len(out), len(in)+delta)
	}
	for i, b := range out[0x38:VGM_OFS_EXTRA_HEADER] {
		if b != 0 {
			t.Fatalf("gap byte 0x%X = 0x%02X, want 0", 0x38+i, b)
		}
	}
	if got := readRelOfs(out, VGM_OFS_EXTRA_HEADER); got != 0xC0 {
		t.Errorf("extra header offset resolves to 0x%X, want 0xC0", got)
	}
	if !bytes.Equal(out[0xC0:0xC0+len(block)], block) {
		t.Error("extra header block not found at 0xC0")
	}

	if got := readRelOfs(out, VGM_OFS_DATA); got != 0x38+delta {
		t.Errorf("data offset 0x%X, want 0x%X", got, 0x38+delta)
	}
	if got := readRelOfs(out, VGM_OFS_LOOP); got != 0x38+3+delta {
		t.Errorf("loop offset 0x%X, want 0x%X", got, 0x38+3+delta)
	}
	gd3 := readRelOfs(out, VGM_OFS_GD3)
	if gd3 != 0x38+len(sampleCmds)+delta {
		t.Errorf("gd3 offset 0x%X, want 0x%X", gd3, 0x38+len(sampleCmds)+delta)
	}
	if !bytes.Equal(out[gd3:], sampleGD3) {
		t.Error("gd3 offset does not point at the gd3 tag")
	}
	data := readRelOfs(out, VGM_OFS_DATA)
	if !bytes.Equal(out[data:data+len(sampleCmds)], sampleCmds) {
		t.Error("command stream not intact after relocation")
	}
	if v := binary.LittleEndian.Uint32(out[VGM_OFS_VERSION:]); v != VGM_VERSION_EXTRA_HEADER {
		t.Errorf("version 0x%X, want 0x170", v)
	}
	if edit.OldVersion != 0x150 || edit.NewVersion != 0x170 {
		t.Errorf("edit versions %X -> %X", edit.OldVersion, edit.NewVersion)
	}
	checkEOF(t, out)
}

func TestInsertExtraHeader_ZeroFieldsStayZero(t *testing.T) {
	in := buildVGMImage(vgmImage{version: 0x161, dataStart: 0x80, cmds: sampleCmds, loopAt: -1})
	block, _ := EncodeExtraHeader(nil, nil)

	out, _, _, err := insertExtraHeader(in, block)
	if err != nil {
		t.Fatalf("insertExtraHeader: %v", err)
	}
	for _, pos := range []int{VGM_OFS_GD3, VGM_OFS_LOOP} {
		if v := binary.LittleEndian.Uint32(out[pos:]); v != 0 {
			t.Errorf("absent field 0x%X rewritten to 0x%X", pos, v)
		}
	}
	checkEOF(t, out)
}

func TestInsertExtraHeader_LargeHeaderNoGap(t *testing.T) {
	in := buildVGMImage(vgmImage{version: 0x171, dataStart: 0x100, cmds: sampleCmds, loopAt: 0})
	block, _ := EncodeExtraHeader(nil, []ChipVolumeOverride{{ChipID: CHIPID_K007232, Volume: 0x80}})

	out, edit, _, err := insertExtraHeader(in, block)
	if err != nil {
		t.Fatalf("insertExtraHeader: %v", err)
	}
	if edit.At != 0x100 || edit.Gap != 0 || edit.Delta != len(block) {
		t.Fatalf("at=0x%X gap=%d delta=%d", edit.At, edit.Gap, edit.Delta)
	}
	if got := readRelOfs(out, VGM_OFS_EXTRA_HEADER); got != 0x100 {
		t.Errorf("extra header at 0x%X, want 0x100", got)
	}
	if got := readRelOfs(out, VGM_OFS_DATA); got != 0x100+len(block) {
		t.Errorf("data at 0x%X, want 0x%X", got, 0x100+len(block))
	}
	if v := binary.LittleEndian.Uint32(out[VGM_OFS_VERSION:]); v != 0x171 {
		t.Errorf("version changed to 0x%X", v)
	}
}

func TestInsertExtraHeader_ReplaceShorterPadsOldRegion(t *testing.T) {
	in := withExtraHeader(vgmImage{version: 0x171, cmds: sampleCmds, gd3: sampleGD3, loopAt: 6}, repeatByte(0xAA, 0x40))
	block, _ := EncodeExtraHeader([]ChipClockOverride{{ChipID: CHIPID_YM2151, Instance: 1, ClockHz: 4000000}}, nil)

	out, edit, _, err := insertExtraHeader(in, block)
	if err != nil {
		t.Fatalf("insertExtraHeader: %v", err)
	}
	if !edit.Replaced || edit.At != 0xC0 || edit.Delta != 0 {
		t.Fatalf("replaced=%v at=0x%X delta=%d", edit.Replaced, edit.At, edit.Delta)
	}
	if len(out) != len(in) {
		t.Fatalf("len=%d, want %d", len(out), len(in))
	}
	if !bytes.Equal(out[0xC0:0xC0+len(block)], block) {
		t.Error("new block not at 0xC0")
	}
	for i, b := range out[0xC0+len(block) : 0x100] {
		if b != 0 {
			t.Fatalf("stale byte 0x%02X at 0x%X", b, 0xC0+len(block)+i)
		}
	}
	if !bytes.Equal(out[0x100:0x100+len(sampleCmds)], sampleCmds) {
		t.Error("command stream moved")
	}
	checkEOF(t, out)
}

func TestInsertExtraHeader_ReplaceLongerMovesPointers(t *testing.T) {
	in := withExtraHeader(vgmImage{version: 0x171, cmds: sampleCmds, gd3: sampleGD3, loopAt: 6}, repeatByte(0xAA, 0x10))
	block := padExtraHeader(mustEncode(t,
		[]ChipClockOverride{{ChipID: CHIPID_SN76496, ClockHz: 3579545}, {ChipID: CHIPID_SN76496, Instance: 1, ClockHz: 1789773}},
		[]ChipVolumeOverride{{ChipID: CHIPID_YM2203_SSG, Volume: 0x8080}}), 0x10)

	out, edit, _, err := insertExtraHeader(in, block)
	if err != nil {
		t.Fatalf("insertExtraHeader: %v", err)
	}
	delta := len(block) - 0x10
	if edit.Delta != delta {
		t.Fatalf("delta=%d, want %d", edit.Delta, delta)
	}
	oldData := readRelOfs(in, VGM_OFS_DATA)
	if got := readRelOfs(out, VGM_OFS_DATA); got != oldData+delta {
		t.Errorf("data 0x%X, want 0x%X", got, oldData+delta)
	}
	if got := readRelOfs(out, VGM_OFS_LOOP); got != readRelOfs(in, VGM_OFS_LOOP)+delta {
		t.Errorf("loop 0x%X not moved by %d", got, delta)
	}
	gd3 := readRelOfs(out, VGM_OFS_GD3)
	if !bytes.Equal(out[gd3:], sampleGD3) {
		t.Error("gd3 offset does not point at the gd3 tag")
	}
	checkEOF(t, out)
}

func TestInsertExtraHeader_ImplicitDataOffset(t *testing.T) {
	in := buildVGMImage(vgmImage{version: 0x150, dataStart: 0x40, cmds: sampleCmds, loopAt: -1})
	binary.LittleEndian.PutUint32(in[VGM_OFS_DATA:], 0)
	block, _ := EncodeExtraHeader(nil, nil)

	out, edit, _, err := insertExtraHeader(in, block)
	if err != nil {
		t.Fatalf("insertExtraHeader: %v", err)
	}
	data := readRelOfs(out, VGM_OFS_DATA)
	if data != 0x40+edit.Delta {
		t.Fatalf("data 0x%X, want 0x%X", data, 0x40+edit.Delta)
	}
	if !bytes.Equal(out[data:], sampleCmds) {
		t.Error("data offset does not point at the commands")
	}
}

func TestInsertExtraHeader_RejectsOldVersion(t *testing.T) {
	in := buildVGMImage(vgmImage{version: 0x110, dataStart: 0x40, cmds: sampleCmds, loopAt: -1})
	orig := cloneBytes(in)

	_, _, _, err := insertExtraHeader(in, nil)
	if !errors.Is(err, ErrVGMUnsupportedVersion) {
		t.Fatalf("expected ErrVGMUnsupportedVersion, got %v", err)
	}
	if !bytes.Equal(in, orig) {
		t.Error("input modified on error")
	}
}

func TestLocateExtraHeader_Errors(t *testing.T) {
	good := buildVGMImage(vgmImage{version: 0x171, dataStart: 0x100, cmds: sampleCmds, loopAt: -1})

	short := good[:0x20]
	if _, err := locateExtraHeader(short); !errors.Is(err, ErrVGMTooShort) {
		t.Errorf("short file: got %v", err)
	}

	badIdent := cloneBytes(good)
	copy(badIdent, "Vgz ")
	if _, err := locateExtraHeader(badIdent); !errors.Is(err, ErrVGMInvalidHeader) {
		t.Errorf("bad ident: got %v", err)
	}

	badPtr := cloneBytes(good)
	writeRelOfs(badPtr, VGM_OFS_EXTRA_HEADER, 0x180)
	if _, err := locateExtraHeader(badPtr); !errors.Is(err, ErrVGMBadExtraHeader) {
		t.Errorf("extra header beyond data: got %v", err)
	}

	beyond := cloneBytes(good)
	writeRelOfs(beyond, VGM_OFS_DATA, len(beyond)+0x10)
	if _, err := locateExtraHeader(beyond); !errors.Is(err, ErrVGMInvalidHeader) {
		t.Errorf("data beyond file: got %v", err)
	}

	backData := cloneBytes(good)
	writeRelOfs(backData, VGM_OFS_DATA, 0x10)
	if _, err := locateExtraHeader(backData); !errors.Is(err, ErrVGMInvalidHeader) {
		t.Errorf("data in front of its field: got %v", err)
	}

	backXhdr := cloneBytes(good)
	writeRelOfs(backXhdr, VGM_OFS_EXTRA_HEADER, 0x40)
	if _, err := locateExtraHeader(backXhdr); !errors.Is(err, ErrVGMBadExtraHeader) {
		t.Errorf("extra header in front of 0xC0: got %v", err)
	}
}

func TestLocateExtraHeader_ExistingBlock(t *testing.T) {
	region := padExtraHeader(mustEncode(t, nil, []ChipVolumeOverride{{ChipID: CHIPID_K007232, Volume: 0x100}}), 0x10)
	buf := withExtraHeader(vgmImage{version: 0x171, cmds: sampleCmds, loopAt: -1}, region)

	l, err := locateExtraHeader(buf)
	if err != nil {
		t.Fatalf("locateExtraHeader: %v", err)
	}
	if l.ExtraHeader != 0xC0 || l.ExtraHeaderSize != len(region) || l.HeaderEnd != 0xC0 {
		t.Fatalf("extra header 0x%X size %d end 0x%X", l.ExtraHeader, l.ExtraHeaderSize, l.HeaderEnd)
	}
	if !bytes.Equal(l.extraHeaderBytes(buf), region) {
		t.Error("extraHeaderBytes mismatch")
	}
}

func mustEncode(t *testing.T, clocks []ChipClockOverride, vols []ChipVolumeOverride) []byte {
	t.Helper()
	block, err := EncodeExtraHeader(clocks, vols)
	if err != nil {
		t.Fatalf("EncodeExtraHeader: %v", err)
	}
	return block
}

func TestRelOfs_TargetBeforeField(t *testing.T) {
	buf := make([]byte, 0x100)
	writeRelOfs(buf, VGM_OFS_EXTRA_HEADER, 0x40)
	if v := binary.LittleEndian.Uint32(buf[VGM_OFS_EXTRA_HEADER:]); v != 0xFFFFFF84 {
		t.Fatalf("stored 0x%X, want 0xFFFFFF84", v)
	}
	if got := readRelOfs(buf, VGM_OFS_EXTRA_HEADER); got != 0x40 {
		t.Errorf("read back 0x%X, want 0x40", got)
	}
}
