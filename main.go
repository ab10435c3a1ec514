// main.go - Main entry point for vgmchipvol

/*
vgmchipvol: VGM 1.70 chip clock/volume header tool with K007232 mono folding.

(c) 2024 - 2026 Zayn Otley
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// vgmDebugEnabled caches the VGM_DEBUG environment variable at init time
var vgmDebugEnabled = func() bool {
	value := strings.ToLower(os.Getenv("VGM_DEBUG"))
	return value == "1" || value == "true" || value == "yes"
}()

type editFlags struct {
	chip0      string
	chip1      string
	clocks     []string
	volumes    []string
	configPath string
	align      int
	verbose    bool
}

func setupLogging(verbose bool) {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	if verbose || vgmDebugEnabled {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

func newRootCommand() *cobra.Command {
	var f editFlags

	root := &cobra.Command{
		Use:   "vgmchipvol [flags] input.vgm output.vgm",
		Short: "Insert VGM chip clock/volume headers and fold K007232 volume to mono",
		Long: "Inserts or replaces the VGM 1.70 extra header carrying chip clock and chip volume\n" +
			"overrides, and optionally mirrors K007232 stereo volume writes to mono.\n" +
			"VGZ input is written back as VGZ.\n\n" +
			"Overrides are CHIP[.INSTANCE]=VALUE, e.g. --clock SN76496.1=1789772.5,\n" +
			"--volume YM2203_SSG=-0.5 (relative), --volume YM2608=0xC2 (8.8 fixed).",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogging(f.verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, &f)
			if err != nil {
				return err
			}
			return runEdit(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], args[1], cfg, f.align)
		},
	}

	flags := root.Flags()
	flags.StringVar(&f.chip0, "k007232-0", "stereo", "mode for K007232 chip 0, registers 0x10-0x13 (stereo|mono)")
	flags.StringVar(&f.chip1, "k007232-1", "stereo", "mode for K007232 chip 1, registers 0x90-0x93 (stereo|mono)")
	flags.StringArrayVar(&f.clocks, "clock", nil, "chip clock override CHIP[.N]=HZ (repeatable)")
	flags.StringArrayVar(&f.volumes, "volume", nil, "chip volume override CHIP[.N]=VOL (repeatable)")
	flags.StringVarP(&f.configPath, "config", "c", "", "override file (.lua or .ini)")
	flags.IntVar(&f.align, "align", VGM_XHDR_DEFAULT_ALIGN, "pad the extra header to a multiple of N bytes")
	root.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newInfoCommand())
	return root
}

func newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info file.vgm",
		Short: "Show header offsets and extra header overrides",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, compressed, err := readVGMInput(args[0])
			if err != nil {
				return err
			}
			return printVGMInfo(cmd.OutOrStdout(), stdoutStyles(), args[0], data, compressed)
		},
	}
}

// buildConfig loads --config and appends the command line overrides.
func buildConfig(cmd *cobra.Command, f *editFlags) (*Config, error) {
	cfg := &Config{}
	if f.configPath != "" {
		loaded, err := LoadConfig(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	fromFlags := &Config{}
	for _, arg := range f.clocks {
		o, err := ParseClockOverride(arg)
		if err != nil {
			return nil, errors.Wrap(err, "--clock")
		}
		fromFlags.Clocks = append(fromFlags.Clocks, o)
	}
	for _, arg := range f.volumes {
		o, err := ParseVolumeOverride(arg)
		if err != nil {
			return nil, errors.Wrap(err, "--volume")
		}
		fromFlags.Volumes = append(fromFlags.Volumes, o)
	}
	for i, name := range []string{"k007232-0", "k007232-1"} {
		if !cmd.Flags().Changed(name) {
			continue
		}
		value := f.chip0
		if i == 1 {
			value = f.chip1
		}
		mode, err := ParseChannelMode(value)
		if err != nil {
			return nil, errors.Wrap(err, "--"+name)
		}
		fromFlags.SetK007232Mode(i, mode)
	}
	cfg.Merge(fromFlags)
	return cfg, nil
}

func runEdit(stdout, stderr io.Writer, input, output string, cfg *Config, align int) error {
	data, compressed, err := readVGMInput(input)
	if err != nil {
		return err
	}
	log.Infof("loaded %s (%d bytes, compressed=%v)", input, len(data), compressed)

	opts := cfg.EditOptions(align)
	res, err := EditVGM(data, opts)
	if err != nil {
		return errors.Wrap(err, input)
	}
	for _, i := range res.Fold.Unanchored() {
		inst := opts.Mono.Instances[i]
		log.Warnf("K007232 #%d: registers 0x%02X/0x%02X were never written, its mono volume is missing",
			i, inst.Base, inst.Base+3)
	}

	if err := writeVGMOutput(output, res.Data, compressed); err != nil {
		return err
	}
	log.Infof("wrote %s (%d bytes)", output, len(res.Data))

	summary, s := stdout, stdoutStyles()
	if output == stdioPath {
		summary, s = stderr, newStyles(false)
	}
	printEditSummary(summary, s, input, output, res, opts)
	return nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		setupLogging(false)
		log.Error(err)
		fmt.Fprintln(os.Stderr, "Run 'vgmchipvol --help' for usage.")
		os.Exit(1)
	}
}
