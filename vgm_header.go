// vgm_header.go - VGM header offsets and extra header insertion/replacement.

package main

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

var (
	ErrVGMTooShort           = errors.New("vgm too short")
	ErrVGMInvalidHeader      = errors.New("invalid vgm header")
	ErrVGMUnsupportedVersion = errors.New("unsupported vgm version")
)

// readRelOfs resolves the relative offset stored at pos. 0 stays 0 (absent).
// The field is signed, so a target in front of pos reads back as written.
func readRelOfs(buf []byte, pos int) int {
	v := binary.LittleEndian.Uint32(buf[pos : pos+4])
	if v == 0 {
		return 0
	}
	return pos + int(int32(v))
}

// writeRelOfs stores target relative to pos, or 0 when target is 0.
func writeRelOfs(buf []byte, pos, target int) {
	var v uint32
	if target != 0 {
		v = uint32(target - pos)
	}
	binary.LittleEndian.PutUint32(buf[pos:pos+4], v)
}

// vgmLayout holds the absolute positions resolved from a VGM header.
type vgmLayout struct {
	Version uint32
	EOF     int
	GD3     int
	Loop    int
	Data    int

	// dataImplicit marks a zero data offset field (data at 0x40).
	dataImplicit bool

	// HeaderEnd is where the fixed header stops: the extra header start if
	// one exists, else the first of data/GD3.
	HeaderEnd       int
	ExtraHeader     int
	ExtraHeaderSize int
}

func (l *vgmLayout) hasExtraHeader() bool {
	return l.ExtraHeader != 0
}

// locateExtraHeader reads the header offsets and finds an existing extra
// header. The buffer is not modified.
func locateExtraHeader(buf []byte) (*vgmLayout, error) {
	if len(buf) < VGM_MIN_FILE_SIZE {
		return nil, ErrVGMTooShort
	}
	if !bytes.Equal(buf[0:4], []byte(VGM_IDENT)) {
		return nil, ErrVGMInvalidHeader
	}

	l := &vgmLayout{
		Version: binary.LittleEndian.Uint32(buf[VGM_OFS_VERSION:]),
		EOF:     readRelOfs(buf, VGM_OFS_EOF),
		GD3:     readRelOfs(buf, VGM_OFS_GD3),
		Loop:    readRelOfs(buf, VGM_OFS_LOOP),
		Data:    readRelOfs(buf, VGM_OFS_DATA),
	}
	if l.Version < VGM_VERSION_MIN_SUPPORTED {
		return nil, errors.Wrapf(ErrVGMUnsupportedVersion, "version %X.%02X, need 1.50 or newer", l.Version>>8, l.Version&0xFF)
	}
	if l.Data < 0 || (l.Data != 0 && l.Data < VGM_OFS_DATA+4) || l.GD3 < 0 || l.Loop < 0 || l.EOF < 0 {
		return nil, errors.Wrap(ErrVGMInvalidHeader, "offset points in front of the file")
	}
	if l.Data == 0 {
		l.Data = VGM_LEGACY_DATA_START
		l.dataImplicit = true
	}
	if l.EOF == 0 {
		l.EOF = len(buf)
	}

	hdrSize := l.Data
	if l.GD3 != 0 && l.GD3 < hdrSize {
		hdrSize = l.GD3
	}
	if hdrSize > len(buf) {
		return nil, errors.Wrapf(ErrVGMInvalidHeader, "header end 0x%X beyond file size 0x%X", hdrSize, len(buf))
	}
	l.HeaderEnd = hdrSize

	if hdrSize >= VGM_XHDR_MIN_HEADER {
		l.ExtraHeader = readRelOfs(buf, VGM_OFS_EXTRA_HEADER)
	}
	if l.ExtraHeader != 0 {
		if l.ExtraHeader < VGM_XHDR_MIN_HEADER || l.ExtraHeader >= hdrSize {
			return nil, errors.Wrapf(ErrVGMBadExtraHeader, "offset 0x%X outside header 0x%X-0x%X", l.ExtraHeader, VGM_XHDR_MIN_HEADER, hdrSize)
		}
		l.ExtraHeaderSize = hdrSize - l.ExtraHeader
		l.HeaderEnd = l.ExtraHeader
	}
	return l, nil
}

// extraHeaderBytes returns the existing extra header region, or nil.
func (l *vgmLayout) extraHeaderBytes(buf []byte) []byte {
	if !l.hasExtraHeader() {
		return nil
	}
	return buf[l.ExtraHeader : l.ExtraHeader+l.ExtraHeaderSize]
}

// HeaderEdit describes what insertExtraHeader did.
type HeaderEdit struct {
	OldVersion uint32
	NewVersion uint32
	Replaced   bool
	// Position of the extra header in the output.
	At int
	// Zero bytes added in front of the block to reach 0xC0.
	Gap int
	// Shift applied to every pointer behind the header.
	Delta  int
	OldLen int
	NewLen int
}

// insertExtraHeader places block as the extra header of buf, replacing any
// existing one, and moves the data, loop and GD3 pointers by the size change.
// buf is left untouched; the edited file is returned.
func insertExtraHeader(buf, block []byte) ([]byte, *HeaderEdit, *vgmLayout, error) {
	l, err := locateExtraHeader(buf)
	if err != nil {
		return nil, nil, nil, err
	}

	edit := &HeaderEdit{
		OldVersion: l.Version,
		NewVersion: l.Version,
		OldLen:     len(buf),
	}

	var out []byte
	if !l.hasExtraHeader() {
		at := max(VGM_XHDR_MIN_HEADER, l.HeaderEnd)
		gap := at - l.HeaderEnd
		out = make([]byte, 0, len(buf)+gap+len(block))
		out = append(out, buf[:l.HeaderEnd]...)
		out = append(out, make([]byte, gap)...)
		out = append(out, block...)
		out = append(out, buf[l.HeaderEnd:]...)
		edit.At = at
		edit.Gap = gap
		edit.Delta = gap + len(block)
	} else {
		end := l.ExtraHeader + l.ExtraHeaderSize
		if len(block) < l.ExtraHeaderSize {
			// old bytes must not survive behind a shorter block
			block = append(block[:len(block):len(block)], make([]byte, l.ExtraHeaderSize-len(block))...)
		}
		out = make([]byte, 0, len(buf)-l.ExtraHeaderSize+len(block))
		out = append(out, buf[:l.ExtraHeader]...)
		out = append(out, block...)
		out = append(out, buf[end:]...)
		edit.At = l.ExtraHeader
		edit.Replaced = true
		edit.Delta = len(block) - l.ExtraHeaderSize
	}
	writeRelOfs(out, VGM_OFS_EXTRA_HEADER, edit.At)

	l.Data += edit.Delta
	if l.Loop != 0 {
		l.Loop += edit.Delta
	}
	if l.GD3 != 0 {
		l.GD3 += edit.Delta
	}
	l.ExtraHeader = edit.At
	l.ExtraHeaderSize = len(block)
	l.HeaderEnd = edit.At

	if l.Version < VGM_VERSION_EXTRA_HEADER {
		l.Version = VGM_VERSION_EXTRA_HEADER
		binary.LittleEndian.PutUint32(out[VGM_OFS_VERSION:], l.Version)
	}
	edit.NewVersion = l.Version

	// data always moves, so an implicit 0x40 start becomes explicit here
	writeRelOfs(out, VGM_OFS_DATA, l.Data)
	l.dataImplicit = false
	writeRelOfs(out, VGM_OFS_LOOP, l.Loop)
	writeRelOfs(out, VGM_OFS_GD3, l.GD3)
	l.EOF = len(out)
	writeRelOfs(out, VGM_OFS_EOF, l.EOF)

	edit.NewLen = len(out)
	return out, edit, l, nil
}
