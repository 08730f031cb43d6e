package testsupport

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sort"
	"testing"

	"github.com/klauspost/compress/zlib"
)

// TIFF field types used by the fixture builders.
const (
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeUndefined = 7
)

// Tag is one IFD entry in little-endian encoding.
type Tag struct {
	ID    uint16
	Type  uint16
	Count uint32
	Data  []byte
}

func ASCII(id uint16, s string) Tag {
	data := append([]byte(s), 0)
	return Tag{ID: id, Type: typeASCII, Count: uint32(len(data)), Data: data}
}

func Short(id uint16, values ...uint16) Tag {
	data := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(data[i*2:], v)
	}
	return Tag{ID: id, Type: typeShort, Count: uint32(len(values)), Data: data}
}

func Long(id uint16, values ...uint32) Tag {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], v)
	}
	return Tag{ID: id, Type: typeLong, Count: uint32(len(values)), Data: data}
}

// Rational takes numerator/denominator pairs.
func Rational(id uint16, pairs ...uint32) Tag {
	data := make([]byte, 4*len(pairs))
	for i, v := range pairs {
		binary.LittleEndian.PutUint32(data[i*4:], v)
	}
	return Tag{ID: id, Type: typeRational, Count: uint32(len(pairs) / 2), Data: data}
}

func Undefined(id uint16, data []byte) Tag {
	return Tag{ID: id, Type: typeUndefined, Count: uint32(len(data)), Data: append([]byte(nil), data...)}
}

const (
	tagExifPointer = 0x8769
	tagGPSPointer  = 0x8825
)

// EXIF assembles a little-endian TIFF structure with IFD0 and optional EXIF
// and GPS sub-directories. Pointer tags are added automatically.
func EXIF(ifd0, exifIFD, gpsIFD []Tag) []byte {
	ifd0 = append([]Tag(nil), ifd0...)
	if len(exifIFD) > 0 {
		ifd0 = append(ifd0, Long(tagExifPointer, 0))
	}
	if len(gpsIFD) > 0 {
		ifd0 = append(ifd0, Long(tagGPSPointer, 0))
	}
	sortTags(ifd0)
	exifIFD = sortTags(append([]Tag(nil), exifIFD...))
	gpsIFD = sortTags(append([]Tag(nil), gpsIFD...))

	off0 := 8
	offExif := off0 + ifdSize(ifd0)
	offGPS := offExif + ifdSize(exifIFD)
	for i := range ifd0 {
		switch ifd0[i].ID {
		case tagExifPointer:
			ifd0[i] = Long(tagExifPointer, uint32(offExif))
		case tagGPSPointer:
			ifd0[i] = Long(tagGPSPointer, uint32(offGPS))
		}
	}

	var buf bytes.Buffer
	buf.WriteString("II*\x00")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(off0))
	buf.Write(writeIFD(ifd0, off0))
	buf.Write(writeIFD(exifIFD, offExif))
	buf.Write(writeIFD(gpsIFD, offGPS))
	return buf.Bytes()
}

func sortTags(tags []Tag) []Tag {
	sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
	return tags
}

func ifdSize(tags []Tag) int {
	if len(tags) == 0 {
		return 0
	}
	n := 2 + 12*len(tags) + 4
	for _, tag := range tags {
		if len(tag.Data) > 4 {
			n += len(tag.Data) + len(tag.Data)%2
		}
	}
	return n
}

func writeIFD(tags []Tag, base int) []byte {
	if len(tags) == 0 {
		return nil
	}
	var head, data bytes.Buffer
	dataOff := base + 2 + 12*len(tags) + 4
	_ = binary.Write(&head, binary.LittleEndian, uint16(len(tags)))
	for _, tag := range tags {
		_ = binary.Write(&head, binary.LittleEndian, tag.ID)
		_ = binary.Write(&head, binary.LittleEndian, tag.Type)
		_ = binary.Write(&head, binary.LittleEndian, tag.Count)
		if len(tag.Data) <= 4 {
			inline := make([]byte, 4)
			copy(inline, tag.Data)
			head.Write(inline)
			continue
		}
		_ = binary.Write(&head, binary.LittleEndian, uint32(dataOff+data.Len()))
		data.Write(tag.Data)
		if len(tag.Data)%2 == 1 {
			data.WriteByte(0)
		}
	}
	_ = binary.Write(&head, binary.LittleEndian, uint32(0))
	head.Write(data.Bytes())
	return head.Bytes()
}

// SampleEXIF returns a TIFF block with camera identity, capture settings and
// a GPS position of 51.5N 0.1W at 35 m.
func SampleEXIF() []byte {
	return EXIF(
		[]Tag{
			ASCII(0x010F, "Canon"),
			ASCII(0x0110, "Canon EOS R5"),
			Short(0x0112, 1),
			Rational(0x011A, 72, 1),
		},
		[]Tag{
			Rational(0x829A, 1, 200),
			Rational(0x829D, 28, 10),
			Short(0x8827, 400),
			Undefined(0x9000, []byte("0231")),
			Short(0x9209, 16),
			Rational(0x920A, 50, 1),
			Undefined(0x9286, append([]byte("ASCII\x00\x00\x00"), []byte("hello")...)),
		},
		[]Tag{
			ASCII(0x0001, "N"),
			Rational(0x0002, 51, 1, 30, 1, 0, 1),
			ASCII(0x0003, "W"),
			Rational(0x0004, 0, 1, 6, 1, 0, 1),
			{ID: 0x0005, Type: 1, Count: 1, Data: []byte{0}},
			Rational(0x0006, 35, 1),
		},
	)
}

func encodedImage(t testing.TB, encode func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for x := 0; x < 16; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 32), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

// JPEG builds a 16x8 JPEG. exifBlock is inserted as the first APP1 segment
// when non-nil; extra segments follow it verbatim.
func JPEG(t testing.TB, exifBlock []byte, extra ...[]byte) []byte {
	t.Helper()
	base := encodedImage(t, func(buf *bytes.Buffer, img image.Image) error {
		return jpeg.Encode(buf, img, nil)
	})
	var out bytes.Buffer
	out.Write(base[:2])
	if exifBlock != nil {
		out.Write(Segment(0xE1, append([]byte("Exif\x00\x00"), exifBlock...)))
	}
	for _, seg := range extra {
		out.Write(seg)
	}
	out.Write(base[2:])
	return out.Bytes()
}

// Segment wraps payload in a JPEG marker segment.
func Segment(marker byte, payload []byte) []byte {
	out := []byte{0xFF, marker, 0, 0}
	binary.BigEndian.PutUint16(out[2:], uint16(len(payload)+2))
	return append(out, payload...)
}

// XMPSegment wraps an XMP packet in its APP1 namespace header.
func XMPSegment(packet string) []byte {
	return Segment(0xE1, append([]byte("http://ns.adobe.com/xap/1.0/\x00"), packet...))
}

// ICCSegments splits profile into APP2 ICC_PROFILE segments of at most size bytes.
func ICCSegments(profile []byte, size int) [][]byte {
	var parts [][]byte
	for start := 0; start < len(profile); start += size {
		end := start + size
		if end > len(profile) {
			end = len(profile)
		}
		parts = append(parts, profile[start:end])
	}
	segs := make([][]byte, 0, len(parts))
	for i, part := range parts {
		payload := append([]byte("ICC_PROFILE\x00"), byte(i+1), byte(len(parts)))
		segs = append(segs, Segment(0xE2, append(payload, part...)))
	}
	return segs
}

// PNG builds a 16x8 PNG with optional eXIf and iCCP chunks after IHDR.
func PNG(t testing.TB, exifBlock, iccProfile []byte) []byte {
	t.Helper()
	base := encodedImage(t, func(buf *bytes.Buffer, img image.Image) error {
		return png.Encode(buf, img)
	})
	const ihdrEnd = 8 + 8 + 13 + 4
	var out bytes.Buffer
	out.Write(base[:ihdrEnd])
	if iccProfile != nil {
		var z bytes.Buffer
		zw := zlib.NewWriter(&z)
		if _, err := zw.Write(iccProfile); err != nil {
			t.Fatalf("compress icc: %v", err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("compress icc: %v", err)
		}
		body := append([]byte("fixture\x00\x00"), z.Bytes()...)
		out.Write(pngChunk("iCCP", body))
	}
	if exifBlock != nil {
		out.Write(pngChunk("eXIf", exifBlock))
	}
	out.Write(base[ihdrEnd:])
	return out.Bytes()
}

// PNGWithXMP builds a 16x8 PNG carrying packet in an uncompressed iTXt chunk.
func PNGWithXMP(t testing.TB, packet string) []byte {
	t.Helper()
	base := PNG(t, nil, nil)
	const ihdrEnd = 8 + 8 + 13 + 4
	body := append([]byte("XML:com.adobe.xmp\x00\x00\x00\x00\x00"), packet...)
	var out bytes.Buffer
	out.Write(base[:ihdrEnd])
	out.Write(pngChunk("iTXt", body))
	out.Write(base[ihdrEnd:])
	return out.Bytes()
}

func pngChunk(kind string, body []byte) []byte {
	out := make([]byte, 8, 12+len(body))
	binary.BigEndian.PutUint32(out, uint32(len(body)))
	copy(out[4:], kind)
	out = append(out, body...)
	crc := crc32.NewIEEE()
	crc.Write([]byte(kind))
	crc.Write(body)
	return binary.BigEndian.AppendUint32(out, crc.Sum32())
}

// ICCProfile builds a minimal v2 display profile whose 'desc' tag carries description.
func ICCProfile(description string) []byte {
	text := append([]byte(description), 0)
	desc := make([]byte, 12, 12+len(text))
	copy(desc, "desc")
	binary.BigEndian.PutUint32(desc[8:], uint32(len(text)))
	desc = append(desc, text...)

	const tableLen = 4 + 12
	header := make([]byte, 128)
	total := 128 + tableLen + len(desc)
	binary.BigEndian.PutUint32(header[0:], uint32(total))
	copy(header[4:], "lcms")
	header[8], header[9] = 2, 0x10
	copy(header[12:], "mntr")
	copy(header[16:], "RGB ")
	copy(header[20:], "XYZ ")
	for i, v := range []uint16{2024, 1, 2, 3, 4, 5} {
		binary.BigEndian.PutUint16(header[24+i*2:], v)
	}
	copy(header[36:], "acsp")
	copy(header[40:], "APPL")
	binary.BigEndian.PutUint32(header[64:], 0)
	copy(header[80:], "test")

	table := make([]byte, tableLen)
	binary.BigEndian.PutUint32(table[0:], 1)
	copy(table[4:], "desc")
	binary.BigEndian.PutUint32(table[8:], uint32(128+tableLen))
	binary.BigEndian.PutUint32(table[12:], uint32(len(desc)))

	out := append(header, table...)
	return append(out, desc...)
}

// SampleXMP is a packet with attribute, bag and alt properties.
const SampleXMP = `<x:xmpmeta xmlns:x="adobe:ns:meta/">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about=""
    xmlns:xmp="http://ns.adobe.com/xap/1.0/"
    xmlns:dc="http://purl.org/dc/elements/1.1/"
    xmlns:tiff="http://ns.adobe.com/tiff/1.0/"
    xmp:CreatorTool="Darktable" xmp:Rating="4" tiff:Make="XMP Maker">
   <dc:subject><rdf:Bag><rdf:li>harbour</rdf:li><rdf:li>dusk</rdf:li></rdf:Bag></dc:subject>
   <dc:title><rdf:Alt><rdf:li xml:lang="x-default">Evening</rdf:li></rdf:Alt></dc:title>
  </rdf:Description>
 </rdf:RDF>
</x:xmpmeta>`

// WebP builds an extended RIFF container with a 16x8 VP8X canvas and the
// given EXIF, ICCP and XMP chunks. It carries no bitstream.
func WebP(exifBlock, iccProfile, xmpPacket []byte) []byte {
	vp8x := make([]byte, 10)
	if iccProfile != nil {
		vp8x[0] |= 0x20
	}
	if exifBlock != nil {
		vp8x[0] |= 0x08
	}
	if xmpPacket != nil {
		vp8x[0] |= 0x04
	}
	putUint24(vp8x[4:], 16-1)
	putUint24(vp8x[7:], 8-1)

	var body bytes.Buffer
	body.Write(riffChunk("VP8X", vp8x))
	if iccProfile != nil {
		body.Write(riffChunk("ICCP", iccProfile))
	}
	if exifBlock != nil {
		body.Write(riffChunk("EXIF", exifBlock))
	}
	if xmpPacket != nil {
		body.Write(riffChunk("XMP ", xmpPacket))
	}

	out := make([]byte, 12, 12+body.Len())
	copy(out, "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(4+body.Len()))
	copy(out[8:], "WEBP")
	return append(out, body.Bytes()...)
}

func riffChunk(kind string, body []byte) []byte {
	out := make([]byte, 8, 8+len(body)+1)
	copy(out, kind)
	binary.LittleEndian.PutUint32(out[4:], uint32(len(body)))
	out = append(out, body...)
	if len(body)%2 == 1 {
		out = append(out, 0)
	}
	return out
}

func putUint24(b []byte, v uint32) {
	b[0], b[1], b[2] = byte(v), byte(v>>8), byte(v>>16)
}

// OverflowingEXIF returns a 26 byte TIFF block whose single LONG entry
// declares 0x40000001 values. Multiplied by the LONG size the count wraps a
// uint32 to 4 bytes, which makes the entry look inline.
func OverflowingEXIF() []byte {
	block := EXIF([]Tag{Long(0x0100, 1)}, nil, nil)
	binary.LittleEndian.PutUint32(block[14:18], 0x40000001)
	return block
}
