// vgm_constants.go - VGM header layout, chip ids and command opcodes.

package main

const (
	VGM_IDENT = "Vgm "

	// Header fields. All but the version are relative offsets.
	VGM_OFS_EOF          = 0x04
	VGM_OFS_VERSION      = 0x08
	VGM_OFS_GD3          = 0x14
	VGM_OFS_LOOP         = 0x1C
	VGM_OFS_DATA         = 0x34
	VGM_OFS_EXTRA_HEADER = 0xBC

	VGM_LEGACY_DATA_START = 0x40
	VGM_MIN_FILE_SIZE     = 0x40
	VGM_XHDR_MIN_HEADER   = 0xC0

	VGM_VERSION_MIN_SUPPORTED = 0x150
	VGM_VERSION_EXTRA_HEADER  = 0x170

	VGM_XHDR_DEFAULT_ALIGN = 0x10
)

// Extra header slots, relative to the start of the block.
const (
	XHDR_OFS_SIZE   = 0x00
	XHDR_OFS_CLOCKS = 0x04
	XHDR_OFS_VOLUME = 0x08
	XHDR_TABLE_SIZE = 0x0C

	XHDR_CLOCK_ENTRY_SIZE  = 5
	XHDR_VOLUME_ENTRY_SIZE = 4
	XHDR_MAX_ENTRIES       = 0xFF

	XHDR_VOLUME_RELATIVE = 0x8000
	XHDR_VOLUME_MAX      = 0x7FFF
	XHDR_VOLUME_UNITY    = 0x100
)

const (
	CHIPID_SN76496  = 0x00
	CHIPID_YM2413   = 0x01
	CHIPID_YM2612   = 0x02
	CHIPID_YM2151   = 0x03
	CHIPID_SEGAPCM  = 0x04
	CHIPID_RF5C68   = 0x05
	CHIPID_YM2203   = 0x06
	CHIPID_YM2608   = 0x07
	CHIPID_YM2610   = 0x08
	CHIPID_YM3812   = 0x09
	CHIPID_YM3526   = 0x0A
	CHIPID_Y8950    = 0x0B
	CHIPID_YMF262   = 0x0C
	CHIPID_YMF278B  = 0x0D
	CHIPID_YMF271   = 0x0E
	CHIPID_YMZ280B  = 0x0F
	CHIPID_RF5C164  = 0x10
	CHIPID_32X_PWM  = 0x11
	CHIPID_AY8910   = 0x12
	CHIPID_GB_DMG   = 0x13
	CHIPID_NES_APU  = 0x14
	CHIPID_YMW258   = 0x15
	CHIPID_UPD7759  = 0x16
	CHIPID_OKIM6258 = 0x17
	CHIPID_OKIM6295 = 0x18
	CHIPID_K051649  = 0x19
	CHIPID_K054539  = 0x1A
	CHIPID_C6280    = 0x1B
	CHIPID_C140     = 0x1C
	CHIPID_K053260  = 0x1D
	CHIPID_POKEY    = 0x1E
	CHIPID_QSOUND   = 0x1F
	CHIPID_SCSP     = 0x20
	CHIPID_WSWAN    = 0x21
	CHIPID_VBOY_VSU = 0x22
	CHIPID_SAA1099  = 0x23
	CHIPID_ES5503   = 0x24
	CHIPID_ES5506   = 0x25
	CHIPID_X1_010   = 0x26
	CHIPID_C352     = 0x27
	CHIPID_GA20     = 0x28
	CHIPID_MIKEY    = 0x29
	CHIPID_K007232  = 0x2A

	// Volume-only ids for the secondary part of a chip.
	CHIPID_YM2203_SSG = 0x80 | CHIPID_YM2203
	CHIPID_YM2608_SSG = 0x80 | CHIPID_YM2608
	CHIPID_YMF278B_FM = 0x80 | CHIPID_YMF278B

	CHIPID_MAX = 0x7F
)

const (
	VGM_CMD_K007232_WRITE = 0x41
	VGM_CMD_WAIT          = 0x61
	VGM_CMD_END           = 0x66
	VGM_CMD_DATA_BLOCK    = 0x67

	// 0x67 0x66 tt ss ss ss ss
	VGM_DATA_BLOCK_HEADER  = 7
	VGM_DATA_BLOCK_SIZE_AT = 3

	K007232_REG_BASE_CHIP0 = 0x10
	K007232_REG_BASE_CHIP1 = 0x90
)
