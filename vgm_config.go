// vgm_config.go - Chip override configuration: flags, Lua scripts and INI files.
//
// Overrides are written CHIP[.INSTANCE]=VALUE everywhere, e.g.
//
//	SN76496=3579545        clock of SN76496 #0
//	SN76496.1=1789772.5    clock of SN76496 #1, rounded to 1789773
//	YM2203_SSG=-0.5        volume, relative: 50% of the default
//	YM2608.1=0xC2          volume, 8.8 fixed
//
// Volume values with a decimal point or exponent are scale factors
// (1.0 = 100%); plain integers are already 8.8 fixed.

package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"
	"gopkg.in/ini.v1"
)

var chipIDs = map[string]uint8{
	"SN76496":    CHIPID_SN76496,
	"YM2413":     CHIPID_YM2413,
	"YM2612":     CHIPID_YM2612,
	"YM2151":     CHIPID_YM2151,
	"SEGAPCM":    CHIPID_SEGAPCM,
	"RF5C68":     CHIPID_RF5C68,
	"YM2203":     CHIPID_YM2203,
	"YM2608":     CHIPID_YM2608,
	"YM2610":     CHIPID_YM2610,
	"YM3812":     CHIPID_YM3812,
	"YM3526":     CHIPID_YM3526,
	"Y8950":      CHIPID_Y8950,
	"YMF262":     CHIPID_YMF262,
	"YMF278B":    CHIPID_YMF278B,
	"YMF271":     CHIPID_YMF271,
	"YMZ280B":    CHIPID_YMZ280B,
	"RF5C164":    CHIPID_RF5C164,
	"32X_PWM":    CHIPID_32X_PWM,
	"AY8910":     CHIPID_AY8910,
	"GB_DMG":     CHIPID_GB_DMG,
	"NES_APU":    CHIPID_NES_APU,
	"YMW258":     CHIPID_YMW258,
	"UPD7759":    CHIPID_UPD7759,
	"OKIM6258":   CHIPID_OKIM6258,
	"OKIM6295":   CHIPID_OKIM6295,
	"K051649":    CHIPID_K051649,
	"K054539":    CHIPID_K054539,
	"C6280":      CHIPID_C6280,
	"C140":       CHIPID_C140,
	"K053260":    CHIPID_K053260,
	"POKEY":      CHIPID_POKEY,
	"QSOUND":     CHIPID_QSOUND,
	"SCSP":       CHIPID_SCSP,
	"WSWAN":      CHIPID_WSWAN,
	"VBOY_VSU":   CHIPID_VBOY_VSU,
	"SAA1099":    CHIPID_SAA1099,
	"ES5503":     CHIPID_ES5503,
	"ES5506":     CHIPID_ES5506,
	"X1_010":     CHIPID_X1_010,
	"C352":       CHIPID_C352,
	"GA20":       CHIPID_GA20,
	"MIKEY":      CHIPID_MIKEY,
	"K007232":    CHIPID_K007232,
	"YM2203_SSG": CHIPID_YM2203_SSG,
	"YM2608_SSG": CHIPID_YM2608_SSG,
	"YMF278B_FM": CHIPID_YMF278B_FM,
}

var chipNames = func() map[uint8]string {
	m := make(map[uint8]string, len(chipIDs))
	for name, id := range chipIDs {
		m[id] = name
	}
	return m
}()

func chipName(id uint8) string {
	if name, ok := chipNames[id]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", id)
}

// lookupChip accepts a chip name (any case) or a numeric id.
func lookupChip(s string) (uint8, error) {
	if id, ok := chipIDs[strings.ToUpper(s)]; ok {
		return id, nil
	}
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, errors.Errorf("unknown chip %q", s)
	}
	return uint8(n), nil
}

func parseInstance(s string) (uint8, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || n > 1 {
		return 0, errors.Errorf("chip instance %q must be 0 or 1", s)
	}
	return uint8(n), nil
}

// splitOverride splits CHIP[.N]=VALUE.
func splitOverride(arg string) (chip, inst uint8, value string, err error) {
	key, value, ok := strings.Cut(arg, "=")
	if !ok {
		return 0, 0, "", errors.Errorf("override %q: want CHIP[.N]=VALUE", arg)
	}
	return splitOverrideKey(strings.TrimSpace(key), strings.TrimSpace(value))
}

func splitOverrideKey(key, value string) (chip, inst uint8, v string, err error) {
	name, instStr, hasInst := strings.Cut(key, ".")
	chip, err = lookupChip(name)
	if err != nil {
		return 0, 0, "", err
	}
	if hasInst {
		if inst, err = parseInstance(instStr); err != nil {
			return 0, 0, "", err
		}
	}
	if value == "" {
		return 0, 0, "", errors.Errorf("override %q has no value", key)
	}
	return chip, inst, value, nil
}

func parseClockValue(s string) (uint32, error) {
	if n, err := strconv.ParseUint(s, 0, 32); err == nil {
		return uint32(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Errorf("bad clock value %q", s)
	}
	return ClockFromFloat(f)
}

func isFloatLiteral(s string) bool {
	t := strings.TrimLeft(s, "+-")
	if strings.HasPrefix(t, "0x") || strings.HasPrefix(t, "0X") {
		return false
	}
	return strings.ContainsAny(t, ".eE")
}

func parseVolumeValue(s string) (uint16, error) {
	if isFloatLiteral(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errors.Errorf("bad volume value %q", s)
		}
		return VolumeFromFloat(f)
	}
	n, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, errors.Errorf("bad volume value %q", s)
	}
	return VolumeFromFixed(int(n))
}

func ParseClockOverride(arg string) (ChipClockOverride, error) {
	chip, inst, value, err := splitOverride(arg)
	if err != nil {
		return ChipClockOverride{}, err
	}
	return newClockOverride(chip, inst, value)
}

func ParseVolumeOverride(arg string) (ChipVolumeOverride, error) {
	chip, inst, value, err := splitOverride(arg)
	if err != nil {
		return ChipVolumeOverride{}, err
	}
	return newVolumeOverride(chip, inst, value)
}

func newClockOverride(chip, inst uint8, value string) (ChipClockOverride, error) {
	if chip > CHIPID_MAX {
		return ChipClockOverride{}, errors.Errorf("chip %s has no clock override", chipName(chip))
	}
	hz, err := parseClockValue(value)
	if err != nil {
		return ChipClockOverride{}, err
	}
	return ChipClockOverride{ChipID: chip, Instance: inst, ClockHz: hz}, nil
}

func newVolumeOverride(chip, inst uint8, value string) (ChipVolumeOverride, error) {
	vol, err := parseVolumeValue(value)
	if err != nil {
		return ChipVolumeOverride{}, err
	}
	return ChipVolumeOverride{ChipID: chip, Instance: inst, Volume: vol}, nil
}

// Config is the complete set of user overrides for one run.
type Config struct {
	Clocks  []ChipClockOverride
	Volumes []ChipVolumeOverride
	K007232 [2]ChannelMode

	modeSet [2]bool
}

func (c *Config) SetK007232Mode(chip int, mode ChannelMode) {
	c.K007232[chip] = mode
	c.modeSet[chip] = true
}

// Merge appends other's overrides after c's; modes other sets explicitly win.
func (c *Config) Merge(other *Config) {
	c.Clocks = append(c.Clocks, other.Clocks...)
	c.Volumes = append(c.Volumes, other.Volumes...)
	for i := range other.K007232 {
		if other.modeSet[i] {
			c.SetK007232Mode(i, other.K007232[i])
		}
	}
}

func (c *Config) EditOptions(align int) EditOptions {
	return EditOptions{
		Clocks:  c.Clocks,
		Volumes: c.Volumes,
		Mono:    NewK007232FoldConfig(c.K007232[0], c.K007232[1]),
		Align:   align,
	}
}

// LoadConfig reads an override file; the extension selects the format.
func LoadConfig(path string) (*Config, error) {
	var cfg *Config
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lua":
		cfg, err = loadLuaConfig(path)
	case ".ini":
		cfg, err = loadINIConfig(path)
	default:
		return nil, errors.Errorf("config %s: unsupported format (want .lua or .ini)", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func loadINIConfig(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	for _, key := range f.Section("clocks").Keys() {
		chip, inst, value, err := splitOverrideKey(key.Name(), key.String())
		if err != nil {
			return nil, errors.Wrap(err, "[clocks]")
		}
		o, err := newClockOverride(chip, inst, value)
		if err != nil {
			return nil, errors.Wrapf(err, "[clocks] %s", key.Name())
		}
		cfg.Clocks = append(cfg.Clocks, o)
	}
	for _, key := range f.Section("volumes").Keys() {
		chip, inst, value, err := splitOverrideKey(key.Name(), key.String())
		if err != nil {
			return nil, errors.Wrap(err, "[volumes]")
		}
		o, err := newVolumeOverride(chip, inst, value)
		if err != nil {
			return nil, errors.Wrapf(err, "[volumes] %s", key.Name())
		}
		cfg.Volumes = append(cfg.Volumes, o)
	}
	sec := f.Section("k007232")
	for i, name := range []string{"chip0", "chip1"} {
		if !sec.HasKey(name) {
			continue
		}
		mode, err := ParseChannelMode(strings.ToLower(sec.Key(name).String()))
		if err != nil {
			return nil, errors.Wrapf(err, "[k007232] %s", name)
		}
		cfg.SetK007232Mode(i, mode)
	}
	return cfg, nil
}

// loadLuaConfig runs an override script. The script sets the globals
//
//	clocks  = { { SN76496, 0, 3579545 }, ... }
//	volumes = { { YM2203_SSG, 0, -0.5 }, { YM2608, 1, fixed(0xC2) }, ... }
//	k007232 = { "mono", "stereo" }
//
// Chip ids are predefined globals; numbers are scale factors unless wrapped
// in fixed().
func loadLuaConfig(path string) (*Config, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	// no file access from override scripts
	for _, name := range []string{"dofile", "loadfile", "require"} {
		L.SetGlobal(name, lua.LNil)
	}

	names := make([]string, 0, len(chipIDs))
	for name := range chipIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		L.SetGlobal(name, lua.LNumber(chipIDs[name]))
	}
	L.SetGlobal("fixed", L.NewFunction(func(L *lua.LState) int {
		t := L.NewTable()
		t.RawSetString("fixed", L.CheckNumber(1))
		L.Push(t)
		return 1
	}))

	if err := L.DoFile(path); err != nil {
		return nil, err
	}

	cfg := &Config{}
	err := luaEntries(L.GetGlobal("clocks"), "clocks", func(chip, inst uint8, v lua.LValue) error {
		n, ok := v.(lua.LNumber)
		if !ok {
			return errors.Errorf("clock must be a number, got %s", v.Type())
		}
		hz, err := ClockFromFloat(float64(n))
		if err != nil {
			return err
		}
		if chip > CHIPID_MAX {
			return errors.Errorf("chip %s has no clock override", chipName(chip))
		}
		cfg.Clocks = append(cfg.Clocks, ChipClockOverride{ChipID: chip, Instance: inst, ClockHz: hz})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = luaEntries(L.GetGlobal("volumes"), "volumes", func(chip, inst uint8, v lua.LValue) error {
		var vol uint16
		var err error
		switch val := v.(type) {
		case lua.LNumber:
			vol, err = VolumeFromFloat(float64(val))
		case *lua.LTable:
			n, ok := val.RawGetString("fixed").(lua.LNumber)
			if !ok {
				return errors.New("volume table must come from fixed()")
			}
			vol, err = VolumeFromFixed(int(n))
		default:
			return errors.Errorf("volume must be a number, got %s", v.Type())
		}
		if err != nil {
			return err
		}
		cfg.Volumes = append(cfg.Volumes, ChipVolumeOverride{ChipID: chip, Instance: inst, Volume: vol})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if modes, ok := L.GetGlobal("k007232").(*lua.LTable); ok {
		for i := 0; i < 2; i++ {
			s, ok := modes.RawGetInt(i + 1).(lua.LString)
			if !ok {
				continue
			}
			mode, err := ParseChannelMode(strings.ToLower(string(s)))
			if err != nil {
				return nil, errors.Wrapf(err, "k007232[%d]", i+1)
			}
			cfg.SetK007232Mode(i, mode)
		}
	}
	return cfg, nil
}

// luaEntries walks a list of { chip, instance, value } triples.
func luaEntries(v lua.LValue, global string, fn func(chip, inst uint8, v lua.LValue) error) error {
	if v == lua.LNil {
		return nil
	}
	list, ok := v.(*lua.LTable)
	if !ok {
		return errors.Errorf("%s must be a table", global)
	}
	for i := 1; i <= list.Len(); i++ {
		entry, ok := list.RawGetInt(i).(*lua.LTable)
		if !ok {
			return errors.Errorf("%s[%d] must be a table", global, i)
		}
		chip, err := luaChip(entry.RawGetInt(1))
		if err != nil {
			return errors.Wrapf(err, "%s[%d]", global, i)
		}
		n, ok := entry.RawGetInt(2).(lua.LNumber)
		if !ok || (n != 0 && n != 1) {
			return errors.Errorf("%s[%d]: instance must be 0 or 1", global, i)
		}
		if err := fn(chip, uint8(n), entry.RawGetInt(3)); err != nil {
			return errors.Wrapf(err, "%s[%d]", global, i)
		}
	}
	return nil
}

func luaChip(v lua.LValue) (uint8, error) {
	switch c := v.(type) {
	case lua.LNumber:
		if c < 0 || c > 0xFF || c != lua.LNumber(int(c)) {
			return 0, errors.Errorf("chip id %v out of range", c)
		}
		return uint8(c), nil
	case lua.LString:
		return lookupChip(string(c))
	}
	return 0, errors.Errorf("chip must be an id or name, got %s", v.Type())
}
