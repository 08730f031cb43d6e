package decoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/text/encoding/unicode"

	"metaview/internal/metadata"
)

const (
	iccHeaderLen    = 128
	iccMaxInflated  = 16 << 20
	iccTagEntrySize = 12
)

var iccClasses = map[string]string{
	"scnr": "Input Device Profile",
	"mntr": "Display Device Profile",
	"prtr": "Output Device Profile",
	"link": "DeviceLink Profile",
	"spac": "ColorSpace Conversion Profile",
	"abst": "Abstract Profile",
	"nmcl": "Named Color Profile",
}

var iccPlatforms = map[string]string{
	"APPL": "Apple Computer Inc.",
	"MSFT": "Microsoft Corporation",
	"SGI ": "Silicon Graphics Inc.",
	"SUNW": "Sun Microsystems Inc.",
}

var iccIntents = []string{
	"Perceptual",
	"Media-Relative Colorimetric",
	"Saturation",
	"ICC-Absolute Colorimetric",
}

// inflateICCP unpacks a PNG iCCP chunk: name, NUL, method byte, zlib stream.
func inflateICCP(chunk []byte) ([]byte, error) {
	nul := bytes.IndexByte(chunk, 0)
	if nul < 0 || nul+2 > len(chunk) {
		return nil, errors.New("iCCP: malformed header")
	}
	if chunk[nul+1] != 0 {
		return nil, fmt.Errorf("iCCP: unknown compression method %d", chunk[nul+1])
	}
	r, err := zlib.NewReader(bytes.NewReader(chunk[nul+2:]))
	if err != nil {
		return nil, fmt.Errorf("iCCP: %w", err)
	}
	defer r.Close()
	profile, err := io.ReadAll(io.LimitReader(r, iccMaxInflated+1))
	if err != nil {
		return nil, fmt.Errorf("iCCP: %w", err)
	}
	if len(profile) > iccMaxInflated {
		return nil, fmt.Errorf("%w: iCCP: profile inflates past %d bytes", ErrCorrupt, iccMaxInflated)
	}
	return profile, nil
}

// parseICC reads the fixed header and the description tag of an ICC profile.
func parseICC(profile []byte) (metadata.Map, error) {
	if len(profile) < iccHeaderLen {
		return nil, fmt.Errorf("icc: profile too short (%d bytes)", len(profile))
	}
	if string(profile[36:40]) != "acsp" {
		return nil, errors.New("icc: missing acsp signature")
	}
	out := metadata.Map{}
	putSig := func(key string, raw []byte) {
		if sig := strings.TrimRight(string(raw), "\x00 "); sig != "" {
			out[key] = metadata.String(sig)
		}
	}

	putSig("ProfileCMMType", profile[4:8])
	out["ProfileVersion"] = metadata.String(fmt.Sprintf("%d.%d.%d", profile[8], profile[9]>>4, profile[9]&0x0F))
	class := string(profile[12:16])
	if label, ok := iccClasses[class]; ok {
		out["ProfileClass"] = metadata.String(label)
	} else {
		putSig("ProfileClass", profile[12:16])
	}
	putSig("ColorSpaceData", profile[16:20])
	putSig("ProfileConnectionSpace", profile[20:24])
	if ts, ok := iccDateTime(profile[24:36]); ok {
		out["ProfileDateTime"] = metadata.String(ts.Format(time.RFC3339))
	}
	out["ProfileFileSignature"] = metadata.String("acsp")
	platform := string(profile[40:44])
	if label, ok := iccPlatforms[platform]; ok {
		out["PrimaryPlatform"] = metadata.String(label)
	} else {
		putSig("PrimaryPlatform", profile[40:44])
	}
	intent := binary.BigEndian.Uint32(profile[64:68])
	if int(intent) < len(iccIntents) {
		out["RenderingIntent"] = metadata.String(iccIntents[intent])
	}
	putSig("ProfileCreator", profile[80:84])

	if desc, ok := iccDescription(profile); ok {
		out["ProfileDescription"] = metadata.String(desc)
	}
	return out, nil
}

func iccDateTime(raw []byte) (time.Time, bool) {
	parts := make([]int, 6)
	for i := range parts {
		parts[i] = int(binary.BigEndian.Uint16(raw[i*2 : i*2+2]))
	}
	if parts[0] == 0 {
		return time.Time{}, false
	}
	return time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], 0, time.UTC), true
}

func iccDescription(profile []byte) (string, bool) {
	if len(profile) < iccHeaderLen+4 {
		return "", false
	}
	count := int(binary.BigEndian.Uint32(profile[iccHeaderLen : iccHeaderLen+4]))
	table := profile[iccHeaderLen+4:]
	for i := 0; i < count && (i+1)*iccTagEntrySize <= len(table); i++ {
		entry := table[i*iccTagEntrySize : (i+1)*iccTagEntrySize]
		if string(entry[0:4]) != "desc" {
			continue
		}
		offset := int(binary.BigEndian.Uint32(entry[4:8]))
		size := int(binary.BigEndian.Uint32(entry[8:12]))
		if offset < 0 || size < 12 || offset+size > len(profile) {
			return "", false
		}
		return decodeICCText(profile[offset : offset+size])
	}
	return "", false
}

// decodeICCText handles the v2 'desc' and v4 'mluc' tag types. For 'mluc'
// the first record wins.
func decodeICCText(tag []byte) (string, bool) {
	switch string(tag[0:4]) {
	case "desc":
		n := int(binary.BigEndian.Uint32(tag[8:12]))
		if n <= 0 || 12+n > len(tag) {
			return "", false
		}
		return cleanText(string(tag[12 : 12+n])), true
	case "mluc":
		if len(tag) < 28 {
			return "", false
		}
		records := int(binary.BigEndian.Uint32(tag[8:12]))
		if records == 0 {
			return "", false
		}
		length := int(binary.BigEndian.Uint32(tag[20:24]))
		offset := int(binary.BigEndian.Uint32(tag[24:28]))
		if offset+length > len(tag) {
			return "", false
		}
		text, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(tag[offset : offset+length])
		if err != nil {
			return "", false
		}
		return cleanText(string(text)), true
	default:
		return "", false
	}
}
