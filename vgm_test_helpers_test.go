// vgm_test_helpers_test.go - Synthetic VGM images shared by the tests

package main

import (
	"encoding/binary"
	"testing"
)

// vgmImage describes a synthetic VGM file for tests.
type vgmImage struct {
	version   uint32
	dataStart int    // header length; data offset field resolves here
	cmds      []byte // command stream
	gd3       []byte // appended after cmds when non-nil
	loopAt    int    // loop point inside cmds, -1 for none
}

// buildVGMImage lays out header, commands and GD3 with consistent offsets.
func buildVGMImage(img vgmImage) []byte {
	buf := make([]byte, img.dataStart, img.dataStart+len(img.cmds)+len(img.gd3))
	copy(buf[0:4], VGM_IDENT)
	binary.LittleEndian.PutUint32(buf[VGM_OFS_VERSION:], img.version)
	writeRelOfs(buf, VGM_OFS_DATA, img.dataStart)
	if img.loopAt >= 0 {
		writeRelOfs(buf, VGM_OFS_LOOP, img.dataStart+img.loopAt)
	}
	buf = append(buf, img.cmds...)
	if img.gd3 != nil {
		writeRelOfs(buf, VGM_OFS_GD3, len(buf))
		buf = append(buf, img.gd3...)
	}
	writeRelOfs(buf, VGM_OFS_EOF, len(buf))
	return buf
}

// withExtraHeader builds an image whose header ends with an extra header
// region at 0xC0 filled with fill.
func withExtraHeader(img vgmImage, region []byte) []byte {
	img.dataStart = VGM_XHDR_MIN_HEADER + len(region)
	buf := buildVGMImage(img)
	copy(buf[VGM_XHDR_MIN_HEADER:], region)
	writeRelOfs(buf, VGM_OFS_EXTRA_HEADER, VGM_XHDR_MIN_HEADER)
	return buf
}

func repeatByte(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func cloneBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}

// checkEOF verifies the EOF field resolves to the buffer length.
func checkEOF(t *testing.T, buf []byte) {
	t.Helper()
	if got := readRelOfs(buf, VGM_OFS_EOF); got != len(buf) {
		t.Errorf("eof offset resolves to 0x%X, want 0x%X", got, len(buf))
	}
}

var sampleCmds = []byte{
	0x41, 0x10, 0x7F, // K007232 #0 ch0 left
	0x41, 0x11, 0x00, // ch0 right
	0x41, 0x12, 0x10, // ch1 left
	0x41, 0x13, 0x40, // ch1 right
	0x62,
	0x66,
}

var sampleGD3 = []byte{'G', 'd', '3', ' ', 0x00, 0x01, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x41, 0x11, 0x00, 0x00}
