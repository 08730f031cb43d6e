package classify

import "strings"

// Bucket names in presentation order.
const (
	BucketFileInfo       = "File Information"
	BucketEXIF           = "EXIF Data"
	BucketGPS            = "GPS Information"
	BucketCameraSettings = "Camera Settings"
	BucketAdditional     = "Additional Data"
)

// Predicate decides whether a field name belongs to a rule's bucket.
type Predicate func(key string) bool

// Rule pairs a bucket with its membership test.
type Rule struct {
	Bucket string
	Match  Predicate
}

// InSet matches keys that are exactly one of names (case-sensitive).
func InSet(names ...string) Predicate {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return func(key string) bool {
		_, ok := set[key]
		return ok
	}
}

// HasPrefix matches keys starting with prefix (case-sensitive).
func HasPrefix(prefix string) Predicate {
	return func(key string) bool {
		return strings.HasPrefix(key, prefix)
	}
}

// Any matches when at least one predicate matches.
func Any(preds ...Predicate) Predicate {
	return func(key string) bool {
		for _, pred := range preds {
			if pred != nil && pred(key) {
				return true
			}
		}
		return false
	}
}

var fileInfoNames = []string{
	"Name", "FileName", "fileName", "FileType", "fileType", "FileSize", "fileSize",
	"ImageWidth", "ImageHeight", "PixelXDimension", "PixelYDimension", "Orientation",
	"lastModified", "lastModifiedDate", "MimeType", "type", "size", "width", "height",
	"AspectRatio", "ColorDepth", "Format", "format", "Dimensions", "ResolutionUnit",
	"Resolution", "XResolution", "YResolution", "ComponentsConfiguration",
}

// exifNames repeats several capture-parameter names that also
// appear in cameraSettingNames. EXIF Data is evaluated first, so those keys
// never reach Camera Settings.
var exifNames = []string{
	"Make", "Model", "Software", "ExifVersion", "DateTimeOriginal", "DateTimeDigitized",
	"DateTime", "FlashpixVersion", "ColorSpace", "YCbCrPositioning", "SceneCaptureType",
	"ExposureProgram", "MeteringMode", "WhiteBalance", "ExposureMode", "Flash",
	"FocalLength", "ExposureTime", "ApertureValue", "ShutterSpeedValue", "BrightnessValue",
	"ExposureBias", "SubjectArea", "MakerNote", "ComponentsConfiguration", "SensingMethod",
	"SubSecTime", "SubSecTimeOriginal", "SubSecTimeDigitized", "ISOSpeedRatings", "ISOSpeed",
	"ISOSpeedLatitudeyyy", "ISOSpeedLatitudezzz", "LightSource", "Saturation", "Sharpness",
	"Contrast", "CustomRendered", "DigitalZoomRatio", "FocalLengthIn35mmFilm", "GainControl",
	"MaxApertureValue", "UserComment", "FileSource", "SceneType", "CFAPattern",
	"DeviceSettingDescription", "ImageUniqueID",
	"GPSProcessingMethod", "GPSAreaInformation", "GPSDateStamp", "GPSDifferential",
	"GPSHPositioningError", "GPSImgDirection", "GPSImgDirectionRef", "GPSLatitude",
	"GPSLatitudeRef", "GPSLongitude", "GPSLongitudeRef", "GPSMapDatum", "GPSMeasureMode",
	"GPSSatellites", "GPSSpeed", "GPSSpeedRef", "GPSStatus", "GPSTimeStamp", "GPSVersionID",
	"GPSAltitude", "GPSAltitudeRef", "GPSDestBearing", "GPSDestBearingRef", "GPSDestDistance",
	"GPSDestDistanceRef", "GPSDestLatitude", "GPSDestLatitudeRef", "GPSDestLongitude",
	"GPSDestLongitudeRef", "GPSDOP", "GPSTrack", "GPSTrackRef",
}

var gpsAliases = []string{"latitude", "longitude", "altitude", "gps", "GPS"}

var cameraSettingNames = []string{
	"FNumber", "ExposureTime", "FocalLength", "Flash", "WhiteBalance", "ExposureMode",
	"ExposureProgram", "SceneCaptureType", "ApertureValue", "ShutterSpeedValue",
	"BrightnessValue", "ExposureBias", "MeteringMode", "ISOSpeedRatings", "ISOSpeed",
	"ISOSpeedLatitudeyyy", "ISOSpeedLatitudezzz", "LightSource", "Saturation", "Sharpness",
	"Contrast", "CustomRendered", "DigitalZoomRatio", "FocalLengthIn35mmFilm", "GainControl",
	"MaxApertureValue", "UserComment", "FileSource", "SceneType", "CFAPattern",
	"DeviceSettingDescription", "ImageUniqueID",
}

var defaultTable = NewTable(BucketAdditional,
	Rule{Bucket: BucketFileInfo, Match: InSet(fileInfoNames...)},
	Rule{Bucket: BucketEXIF, Match: InSet(exifNames...)},
	Rule{Bucket: BucketGPS, Match: Any(HasPrefix("GPS"), InSet(gpsAliases...))},
	Rule{Bucket: BucketCameraSettings, Match: InSet(cameraSettingNames...)},
)

// DefaultTable returns the rule table used for presentation.
func DefaultTable() *Table { return defaultTable }

// RuleNames exposes the literal name lists behind the default table, keyed by
// bucket, for listing in the CLI.
func RuleNames() map[string][]string {
	cp := func(in []string) []string {
		out := make([]string, len(in))
		copy(out, in)
		return out
	}
	return map[string][]string{
		BucketFileInfo:       cp(fileInfoNames),
		BucketEXIF:           cp(exifNames),
		BucketGPS:            append([]string{"GPS*"}, gpsAliases...),
		BucketCameraSettings: cp(cameraSettingNames),
	}
}
