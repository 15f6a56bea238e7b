// Package page models the fixed-size on-disk page format well enough to
// validate headers and locate the byte ranges the maskers normalize.
package page

import "encoding/binary"

// BlockSize is the fixed page size of the stores being compared.
const BlockSize = 8192

// HeaderSize is the size of the fixed page header.
const HeaderSize = 24

// layoutVersion is the page layout version stamped into the size/version
// header field alongside the page size.
const layoutVersion = 4

// Header field offsets. All multi-byte fields are little-endian.
const (
	offLSN         = 0  // uint64: log position of last change
	offChecksum    = 8  // uint16
	offFlags       = 10 // uint16
	offLower       = 12 // uint16: end of item pointer area
	offUpper       = 14 // uint16: start of tuple area
	offSpecial     = 16 // uint16: start of special area
	offSizeVersion = 18 // uint16: page size | layout version
	offPruneXID    = 20 // uint32
)

// Flag bits stored in the header flags field. HasFreeLines and Full are hint
// bits: allowed to differ between primary and mirror.
const (
	FlagHasFreeLines uint16 = 0x0001
	FlagFull         uint16 = 0x0002
	FlagAllVisible   uint16 = 0x0004

	flagsMask uint16 = 0x0007
)

func LSN(p []byte) uint64      { return binary.LittleEndian.Uint64(p[offLSN:]) }
func Checksum(p []byte) uint16 { return binary.LittleEndian.Uint16(p[offChecksum:]) }
func Flags(p []byte) uint16    { return binary.LittleEndian.Uint16(p[offFlags:]) }
func Lower(p []byte) uint16    { return binary.LittleEndian.Uint16(p[offLower:]) }
func Upper(p []byte) uint16    { return binary.LittleEndian.Uint16(p[offUpper:]) }
func Special(p []byte) uint16  { return binary.LittleEndian.Uint16(p[offSpecial:]) }

func SetLSN(p []byte, lsn uint64)    { binary.LittleEndian.PutUint64(p[offLSN:], lsn) }
func SetChecksum(p []byte, c uint16) { binary.LittleEndian.PutUint16(p[offChecksum:], c) }
func SetFlags(p []byte, f uint16)    { binary.LittleEndian.PutUint16(p[offFlags:], f) }
func SetLower(p []byte, n uint16)    { binary.LittleEndian.PutUint16(p[offLower:], n) }
func SetUpper(p []byte, n uint16)    { binary.LittleEndian.PutUint16(p[offUpper:], n) }

// Init formats p as an empty page with a special area of specialSize bytes at
// the end. p must be BlockSize long.
func Init(p []byte, specialSize uint16) {
	clear(p)
	special := uint16(BlockSize) - specialSize
	SetLower(p, HeaderSize)
	SetUpper(p, special)
	binary.LittleEndian.PutUint16(p[offSpecial:], special)
	binary.LittleEndian.PutUint16(p[offSizeVersion:], uint16(BlockSize)|layoutVersion)
}

// IsNew reports whether the page has never been initialized. A freshly
// extended, zero-filled page has a zero upper pointer.
func IsNew(p []byte) bool {
	return Upper(p) == 0
}

// IsEmpty reports whether the page is initialized but holds no items.
func IsEmpty(p []byte) bool {
	return Lower(p) <= HeaderSize
}

// Verified performs the basic header sanity checks a page must pass before it
// is handed to a masker. An all-zero page is valid: bulk file extension can
// momentarily expose such pages, and the comparator treats them as new rather
// than corrupt.
func Verified(p []byte, blockno uint32) bool {
	if len(p) != BlockSize {
		return false
	}

	if IsNew(p) {
		for _, b := range p {
			if b != 0 {
				return false
			}
		}
		return true
	}

	sizeVersion := binary.LittleEndian.Uint16(p[offSizeVersion:])
	if sizeVersion != uint16(BlockSize)|layoutVersion {
		return false
	}

	lower, upper, special := Lower(p), Upper(p), Special(p)
	if lower < HeaderSize || lower > upper {
		return false
	}
	if upper > special || special > BlockSize {
		return false
	}
	if Flags(p)&^flagsMask != 0 {
		return false
	}

	return true
}
