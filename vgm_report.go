// vgm_report.go - Terminal summaries for edit and info commands.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

type styles struct {
	title lipgloss.Style
	label lipgloss.Style
	value lipgloss.Style
	warn  lipgloss.Style
	dim   lipgloss.Style
}

func newStyles(colour bool) styles {
	if !colour {
		plain := lipgloss.NewStyle()
		return styles{title: plain, label: plain, value: plain, warn: plain, dim: plain}
	}
	return styles{
		title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(5)),
		label: lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(6)),
		value: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(7)),
		warn:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(0)).Background(lipgloss.ANSIColor(3)),
		dim:   lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(8)),
	}
}

func stdoutStyles() styles {
	return newStyles(term.IsTerminal(int(os.Stdout.Fd())))
}

func (s styles) line(w io.Writer, label string, format string, args ...any) {
	fmt.Fprintf(w, "  %s %s\n", s.label.Render(fmt.Sprintf("%-12s", label)), s.value.Render(fmt.Sprintf(format, args...)))
}

func formatVersion(v uint32) string {
	return fmt.Sprintf("%X.%02X", v>>8, v&0xFF)
}

func formatOffset(ofs int) string {
	if ofs == 0 {
		return "-"
	}
	return fmt.Sprintf("0x%X", ofs)
}

func printEditSummary(w io.Writer, s styles, input, output string, res *EditResult, opts EditOptions) {
	fmt.Fprintln(w, s.title.Render(fmt.Sprintf("%s -> %s", input, output)))
	h := res.Header
	if h.OldVersion != h.NewVersion {
		s.line(w, "version", "%s -> %s", formatVersion(h.OldVersion), formatVersion(h.NewVersion))
	} else {
		s.line(w, "version", "%s", formatVersion(h.NewVersion))
	}
	action := "inserted"
	if h.Replaced {
		action = "replaced"
	}
	s.line(w, "extra header", "%s at 0x%X, %d clock / %d volume entries", action, h.At, len(opts.Clocks), len(opts.Volumes))
	s.line(w, "offsets", "moved by %+d", h.Delta)
	if res.Folded {
		for i, inst := range opts.Mono.Instances {
			if inst.Mode != ModeMono {
				continue
			}
			st := res.Fold.Instances[i]
			s.line(w, fmt.Sprintf("mono 0x%02X", inst.Base), "%d mirrored, %d dropped", st.Mirrored, st.Dropped)
		}
		if res.StreamDelta != 0 {
			s.line(w, "stream", "%+d bytes", res.StreamDelta)
		}
		if res.Fold.TruncatedBytes > 0 {
			fmt.Fprintln(w, "  "+s.warn.Render(fmt.Sprintf("%d trailing bytes of a truncated command kept as is", res.Fold.TruncatedBytes)))
		}
	}
	s.line(w, "size", "%d -> %d bytes", h.OldLen, len(res.Data))
}

// printVGMInfo describes the header and extra header of a decompressed image.
func printVGMInfo(w io.Writer, s styles, name string, data []byte, compressed bool) error {
	l, err := locateExtraHeader(data)
	if err != nil {
		return err
	}
	kind := "vgm"
	if compressed {
		kind = "vgz"
	}
	fmt.Fprintln(w, s.title.Render(fmt.Sprintf("%s (%s, %d bytes)", name, kind, len(data))))
	s.line(w, "version", "%s", formatVersion(l.Version))
	s.line(w, "eof", "%s", formatOffset(l.EOF))
	s.line(w, "data", "%s", formatOffset(l.Data))
	s.line(w, "loop", "%s", formatOffset(l.Loop))
	s.line(w, "gd3", "%s", formatOffset(l.GD3))

	if !l.hasExtraHeader() {
		s.line(w, "extra header", "%s", "none")
		return nil
	}
	s.line(w, "extra header", "0x%X (%d bytes)", l.ExtraHeader, l.ExtraHeaderSize)
	clocks, vols, err := DecodeExtraHeader(l.extraHeaderBytes(data))
	if err != nil {
		return err
	}
	for _, c := range clocks {
		s.line(w, "clock", "%s", c)
	}
	for _, v := range vols {
		s.line(w, "volume", "%s", v)
	}
	if len(clocks) == 0 && len(vols) == 0 {
		fmt.Fprintln(w, "  "+s.dim.Render("no overrides"))
	}
	return nil
}
