package decoder

import (
	"encoding/binary"
	"fmt"
)

const (
	ifdEntrySize = 12
	maxIFDs      = 32

	tagExifIFD    = 0x8769
	tagGPSIFD     = 0x8825
	tagInteropIFD = 0xA005
)

// tiffTypeSizes is indexed by TIFF field type; unknown types count as one
// byte per value.
var tiffTypeSizes = [...]uint64{0, 1, 1, 2, 4, 8, 1, 1, 2, 4, 8, 4, 8}

// checkTIFF walks every IFD reachable from the header and rejects entries
// whose value block does not fit in payload. goexif sizes its allocations
// from the entry count alone, so this must run before exif.Decode.
func checkTIFF(payload []byte) error {
	if len(payload) < 8 {
		return fmt.Errorf("%w: exif: tiff header truncated", ErrCorrupt)
	}
	var order binary.ByteOrder
	switch string(payload[:4]) {
	case "II*\x00":
		order = binary.LittleEndian
	case "MM\x00*":
		order = binary.BigEndian
	default:
		return fmt.Errorf("%w: exif: bad tiff byte order", ErrCorrupt)
	}
	w := ifdWalker{data: payload, order: order, seen: map[uint32]struct{}{}}
	return w.walk(order.Uint32(payload[4:8]))
}

type ifdWalker struct {
	data  []byte
	order binary.ByteOrder
	seen  map[uint32]struct{}
}

func (w *ifdWalker) walk(offset uint32) error {
	size := uint64(len(w.data))
	for offset != 0 {
		if _, ok := w.seen[offset]; ok {
			return fmt.Errorf("%w: exif: ifd at %d referenced twice", ErrCorrupt, offset)
		}
		if len(w.seen) >= maxIFDs {
			return fmt.Errorf("%w: exif: more than %d ifds", ErrCorrupt, maxIFDs)
		}
		w.seen[offset] = struct{}{}

		start := uint64(offset)
		if start+2 > size {
			return fmt.Errorf("%w: exif: ifd offset %d outside %d byte block", ErrCorrupt, offset, size)
		}
		count := uint64(w.order.Uint16(w.data[start:]))
		end := start + 2 + count*ifdEntrySize
		if end > size {
			return fmt.Errorf("%w: exif: ifd at %d holds %d entries past end of block", ErrCorrupt, offset, count)
		}

		var children []uint32
		for i := uint64(0); i < count; i++ {
			entry := w.data[start+2+i*ifdEntrySize:]
			tag := w.order.Uint16(entry)
			kind := w.order.Uint16(entry[2:])
			n := w.order.Uint32(entry[4:])
			valueOffset := w.order.Uint32(entry[8:])

			unit := uint64(1)
			if int(kind) < len(tiffTypeSizes) && tiffTypeSizes[kind] > 0 {
				unit = tiffTypeSizes[kind]
			}
			total := uint64(n) * unit
			if total > size {
				return fmt.Errorf("%w: exif: tag 0x%04x declares %d values (%d bytes) in a %d byte block", ErrCorrupt, tag, n, total, size)
			}
			if total > 4 && uint64(valueOffset)+total > size {
				return fmt.Errorf("%w: exif: tag 0x%04x value at %d overruns block", ErrCorrupt, tag, valueOffset)
			}
			switch tag {
			case tagExifIFD, tagGPSIFD, tagInteropIFD:
				children = append(children, valueOffset)
			}
		}
		for _, child := range children {
			if err := w.walk(child); err != nil {
				return err
			}
		}

		if end+4 > size {
			return nil
		}
		offset = w.order.Uint32(w.data[end:])
	}
	return nil
}
