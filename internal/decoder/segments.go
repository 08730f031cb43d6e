package decoder

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
	pngstructure "github.com/dsoprea/go-png-image-structure/v2"
	"golang.org/x/image/riff"
)

const (
	markerAPP1 = 0xE1
	markerAPP2 = 0xE2
)

var (
	exifHeader    = []byte("Exif\x00\x00")
	jpegICCHeader = []byte("ICC_PROFILE\x00")
	jpegXMPHeader = []byte("http://ns.adobe.com/xap/1.0/\x00")
	pngXMPKeyword = []byte("XML:com.adobe.xmp\x00")
	xmpOpen       = []byte("<x:xmpmeta")
	xmpClose      = []byte("</x:xmpmeta>")

	webpFormType = riff.FourCC{'W', 'E', 'B', 'P'}
	webpEXIF     = riff.FourCC{'E', 'X', 'I', 'F'}
	webpICCP     = riff.FourCC{'I', 'C', 'C', 'P'}
	webpXMP      = riff.FourCC{'X', 'M', 'P', ' '}
)

// blocks holds the raw metadata payloads located inside a container.
type blocks struct {
	exif []byte
	icc  []byte
	xmp  []byte
}

// exifPayload returns the TIFF structure goexif should read. TIFF files are
// their own EXIF block.
func (b blocks) exifPayload(format Format, data []byte) []byte {
	if format == FormatTIFF {
		return data
	}
	return bytes.TrimPrefix(b.exif, exifHeader)
}

// xmpPacket returns the x:xmpmeta packet of the container, falling back to a
// byte scan for formats without a dedicated XMP block.
func (b blocks) xmpPacket(data []byte) []byte {
	if len(b.xmp) > 0 {
		if packet := findXMP(b.xmp); packet != nil {
			return packet
		}
	}
	return findXMP(data)
}

// collectBlocks locates the metadata blocks of data. A container that breaks
// part way through still reports the blocks found before the damage.
func collectBlocks(format Format, data []byte) (out blocks, err error) {
	defer func() {
		if state := recover(); state != nil {
			err = fmt.Errorf("%s structure: %v", format.Name(), state)
		}
	}()
	switch format {
	case FormatJPEG:
		return scanJPEG(data)
	case FormatPNG:
		return scanPNG(data)
	case FormatWebP:
		return scanWebP(data)
	default:
		return blocks{}, nil
	}
}

type iccChunk struct {
	seq  int
	data []byte
}

// scanJPEG reads the APP1 EXIF and XMP segments and reassembles the APP2 ICC
// profile, which may be split over several segments.
func scanJPEG(data []byte) (blocks, error) {
	var out blocks
	mc, err := jpegstructure.NewJpegMediaParser().ParseBytes(data)
	sl, ok := mc.(*jpegstructure.SegmentList)
	if !ok || sl == nil {
		if err == nil {
			err = errors.New("jpeg structure: no segments")
		}
		return out, err
	}

	var chunks []iccChunk
	for _, segment := range sl.Segments() {
		switch {
		case segment.MarkerId == markerAPP1 && bytes.HasPrefix(segment.Data, exifHeader):
			if out.exif == nil {
				out.exif = segment.Data
			}
		case segment.MarkerId == markerAPP1 && bytes.HasPrefix(segment.Data, jpegXMPHeader):
			if out.xmp == nil {
				out.xmp = segment.Data[len(jpegXMPHeader):]
			}
		case segment.MarkerId == markerAPP2 && bytes.HasPrefix(segment.Data, jpegICCHeader) && len(segment.Data) > len(jpegICCHeader)+2:
			body := segment.Data[len(jpegICCHeader):]
			chunks = append(chunks, iccChunk{seq: int(body[0]), data: body[2:]})
		}
	}
	if len(chunks) > 0 {
		sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].seq < chunks[j].seq })
		var buf bytes.Buffer
		for _, chunk := range chunks {
			buf.Write(chunk.data)
		}
		out.icc = buf.Bytes()
	}
	return out, err
}

// scanPNG collects the eXIf, iCCP and XMP iTXt chunks.
func scanPNG(data []byte) (blocks, error) {
	var out blocks
	mc, err := pngstructure.NewPngMediaParser().ParseBytes(data)
	cs, ok := mc.(*pngstructure.ChunkSlice)
	if !ok || cs == nil {
		if err == nil {
			err = errors.New("png structure: no chunks")
		}
		return out, err
	}

	for _, chunk := range cs.Chunks() {
		switch chunk.Type {
		case "eXIf":
			out.exif = chunk.Data
		case "iCCP":
			profile, iccErr := inflateICCP(chunk.Data)
			if iccErr != nil {
				err = errors.Join(err, iccErr)
				continue
			}
			out.icc = profile
		case "iTXt":
			if out.xmp == nil && bytes.HasPrefix(chunk.Data, pngXMPKeyword) {
				out.xmp = itxtText(chunk.Data[len(pngXMPKeyword):])
			}
		}
	}
	return out, err
}

// itxtText skips the compression flag, method, language and translated
// keyword of an uncompressed iTXt chunk.
func itxtText(rest []byte) []byte {
	if len(rest) < 2 || rest[0] != 0 {
		return nil
	}
	rest = rest[2:]
	for range 2 {
		nul := bytes.IndexByte(rest, 0)
		if nul < 0 {
			return nil
		}
		rest = rest[nul+1:]
	}
	return rest
}

// scanWebP collects the EXIF, ICCP and XMP chunks of an extended RIFF
// container.
func scanWebP(data []byte) (blocks, error) {
	var out blocks
	formType, r, err := riff.NewReader(bytes.NewReader(data))
	if err != nil {
		return out, err
	}
	if formType != webpFormType {
		return out, fmt.Errorf("riff form %q is not WEBP", formType[:])
	}
	for {
		id, _, chunk, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		var dst *[]byte
		switch id {
		case webpEXIF:
			dst = &out.exif
		case webpICCP:
			dst = &out.icc
		case webpXMP:
			dst = &out.xmp
		default:
			continue
		}
		body, err := io.ReadAll(chunk)
		if err != nil {
			return out, err
		}
		*dst = body
	}
}

// findXMP returns the first x:xmpmeta packet in data, if any.
func findXMP(data []byte) []byte {
	start := bytes.Index(data, xmpOpen)
	if start < 0 {
		return nil
	}
	end := bytes.Index(data[start:], xmpClose)
	if end < 0 {
		return nil
	}
	return data[start : start+end+len(xmpClose)]
}
