package decoder

import (
	"encoding/binary"
	"errors"
	"testing"
)

// tiffBlock builds a little-endian header and one IFD at offset 8 holding
// the given 12 byte entries, followed by extra.
func tiffBlock(entries [][12]byte, next uint32, extra []byte) []byte {
	out := []byte("II*\x00\x08\x00\x00\x00")
	out = binary.LittleEndian.AppendUint16(out, uint16(len(entries)))
	for _, e := range entries {
		out = append(out, e[:]...)
	}
	out = binary.LittleEndian.AppendUint32(out, next)
	return append(out, extra...)
}

func entry(tag, kind uint16, count, value uint32) [12]byte {
	var e [12]byte
	binary.LittleEndian.PutUint16(e[0:], tag)
	binary.LittleEndian.PutUint16(e[2:], kind)
	binary.LittleEndian.PutUint32(e[4:], count)
	binary.LittleEndian.PutUint32(e[8:], value)
	return e
}

func TestCheckTIFF(t *testing.T) {
	cases := []struct {
		name    string
		payload []byte
		wantErr bool
	}{
		{"inline short", tiffBlock([][12]byte{entry(0x0112, 3, 1, 1)}, 0, nil), false},
		{"value after ifd", tiffBlock([][12]byte{entry(0x010F, 2, 6, 26)}, 0, []byte("Canon\x00")), false},
		{"missing next pointer", tiffBlock([][12]byte{entry(0x0112, 3, 1, 1)}, 0, nil)[:22], false},
		{"count wraps uint32", tiffBlock([][12]byte{entry(0x0100, 4, 0x40000001, 1)}, 0, nil), true},
		{"rational count wraps", tiffBlock([][12]byte{entry(0x011A, 5, 0x20000000, 0)}, 0, nil), true},
		{"value past end", tiffBlock([][12]byte{entry(0x010F, 2, 6, 24)}, 0, []byte("Can")), true},
		{"unknown type counts bytes", tiffBlock([][12]byte{entry(0x9999, 99, 1000, 0)}, 0, nil), true},
		{"exif pointer outside", tiffBlock([][12]byte{entry(tagExifIFD, 4, 1, 4096)}, 0, nil), true},
		{"exif pointer to self", tiffBlock([][12]byte{entry(tagExifIFD, 4, 1, 8)}, 0, nil), true},
		{"next ifd loops", tiffBlock([][12]byte{entry(0x0112, 3, 1, 1)}, 8, nil), true},
		{"entries past end", []byte("II*\x00\x08\x00\x00\x00\x05\x00"), true},
		{"short header", []byte("II*\x00"), true},
		{"bad byte order", []byte("XX*\x00\x08\x00\x00\x00"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := checkTIFF(tc.payload)
			if tc.wantErr {
				if !errors.Is(err, ErrCorrupt) {
					t.Fatalf("expected ErrCorrupt, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
