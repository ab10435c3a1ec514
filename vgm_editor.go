// vgm_editor.go - Two-stage VGM edit: extra header, then command stream.

package main

import (
	log "github.com/sirupsen/logrus"
)

type EditOptions struct {
	Clocks  []ChipClockOverride
	Volumes []ChipVolumeOverride
	Mono    MonoFoldConfig
	// Align pads the extra header block; 0 or 1 disables padding.
	Align int
}

type EditResult struct {
	Data   []byte
	Header *HeaderEdit
	// Folded is false when no instance was in mono mode.
	Folded      bool
	Fold        MonoFoldStats
	StreamDelta int
}

// EditVGM applies the extra header and, if configured, the mono fold to a
// decompressed VGM image. data is not modified.
func EditVGM(data []byte, opts EditOptions) (*EditResult, error) {
	block, err := EncodeExtraHeader(opts.Clocks, opts.Volumes)
	if err != nil {
		return nil, err
	}
	block = padExtraHeader(block, opts.Align)

	out, hdr, layout, err := insertExtraHeader(data, block)
	if err != nil {
		return nil, err
	}
	log.Infof("extra header at 0x%X (%d bytes, gap %d, replaced %v), pointers moved by %d",
		hdr.At, len(block), hdr.Gap, hdr.Replaced, hdr.Delta)

	res := &EditResult{Data: out, Header: hdr}
	if !opts.Mono.Active() {
		return res, nil
	}

	// the stream ends where GD3 starts when the tag trails the data
	start := layout.Data
	end := len(out)
	if layout.GD3 > start && layout.GD3 <= end {
		end = layout.GD3
	}
	if start > end {
		start = end
	}
	loopRel := -1
	if layout.Loop >= start && layout.Loop < end {
		loopRel = layout.Loop - start
	}
	log.Debugf("command stream 0x%X-0x%X, loop %d", start, end, loopRel)

	folded, newLoop, stats := FoldMono(out[start:end], opts.Mono, loopRel)

	edited := make([]byte, 0, start+len(folded)+len(out)-end)
	edited = append(edited, out[:start]...)
	edited = append(edited, folded...)
	edited = append(edited, out[end:]...)

	delta := len(folded) - (end - start)
	if loopRel >= 0 {
		writeRelOfs(edited, VGM_OFS_LOOP, start+newLoop)
	} else if layout.Loop >= end {
		writeRelOfs(edited, VGM_OFS_LOOP, layout.Loop+delta)
	}
	if layout.GD3 != 0 && layout.GD3 >= end {
		writeRelOfs(edited, VGM_OFS_GD3, layout.GD3+delta)
	}
	writeRelOfs(edited, VGM_OFS_EOF, len(edited))

	log.Infof("folded K007232 volume writes, stream %+d bytes", delta)

	res.Data = edited
	res.Folded = true
	res.Fold = stats
	res.StreamDelta = delta
	return res, nil
}
