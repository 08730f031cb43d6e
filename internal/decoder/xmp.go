package decoder

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"metaview/internal/metadata"
)

const rdfNS = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

// parseXMP flattens the rdf:Description properties of an XMP packet into a
// map keyed by local property name. Containers (rdf:Seq, rdf:Bag, rdf:Alt)
// become arrays; structured properties become nested objects.
func parseXMP(packet []byte) (metadata.Map, error) {
	dec := xml.NewDecoder(bytes.NewReader(packet))
	dec.Strict = false
	out := metadata.Map{}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("xmp: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || !isRDF(start.Name, "Description") {
			continue
		}
		for k, v := range attrFields(start.Attr) {
			setDefault(out, k, v)
		}
		if err := readDescription(dec, out); err != nil {
			return out, err
		}
	}
}

// readDescription consumes the children of a top-level rdf:Description.
func readDescription(dec *xml.Decoder, out metadata.Map) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("xmp: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			value, err := readProperty(dec, t)
			if err != nil {
				return err
			}
			setDefault(out, t.Name.Local, value)
		case xml.EndElement:
			return nil
		}
	}
}

func readProperty(dec *xml.Decoder, start xml.StartElement) (metadata.Value, error) {
	for _, attr := range start.Attr {
		if attr.Name.Space == rdfNS && attr.Name.Local == "resource" {
			if err := dec.Skip(); err != nil {
				return metadata.Null(), fmt.Errorf("xmp: %w", err)
			}
			return metadata.String(attr.Value), nil
		}
	}

	fields := attrFields(start.Attr)
	var text strings.Builder
	var list []metadata.Value
	isList, isAlt := false, false

	for {
		tok, err := dec.Token()
		if err != nil {
			return metadata.Null(), fmt.Errorf("xmp: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			switch {
			case isRDF(t.Name, "Seq"), isRDF(t.Name, "Bag"), isRDF(t.Name, "Alt"):
				isList = true
				isAlt = isRDF(t.Name, "Alt")
				items, err := readList(dec)
				if err != nil {
					return metadata.Null(), err
				}
				list = append(list, items...)
			case isRDF(t.Name, "Description"):
				for k, v := range attrFields(t.Attr) {
					fields[k] = v
				}
				nested := metadata.Map{}
				if err := readDescription(dec, nested); err != nil {
					return metadata.Null(), err
				}
				for k, v := range nested {
					fields[k] = v
				}
			default:
				value, err := readProperty(dec, t)
				if err != nil {
					return metadata.Null(), err
				}
				fields[t.Name.Local] = value
			}
		case xml.EndElement:
			switch {
			case isList && isAlt && len(list) == 1:
				return list[0], nil
			case isList:
				return metadata.Array(list...), nil
			case len(fields) > 0:
				return metadata.Object(fields), nil
			default:
				return reviveXMP(text.String()), nil
			}
		}
	}
}

func readList(dec *xml.Decoder) ([]metadata.Value, error) {
	var items []metadata.Value
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("xmp: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			value, err := readProperty(dec, t)
			if err != nil {
				return nil, err
			}
			items = append(items, value)
		case xml.EndElement:
			return items, nil
		}
	}
}

func attrFields(attrs []xml.Attr) map[string]metadata.Value {
	fields := map[string]metadata.Value{}
	for _, attr := range attrs {
		if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" || attr.Name.Space == rdfNS {
			continue
		}
		if attr.Name.Space == "xml" || attr.Name.Space == "http://www.w3.org/XML/1998/namespace" {
			continue
		}
		fields[attr.Name.Local] = reviveXMP(attr.Value)
	}
	return fields
}

func isRDF(name xml.Name, local string) bool {
	return name.Space == rdfNS && name.Local == local
}

// reviveXMP turns numeric and boolean literals into typed values.
func reviveXMP(raw string) metadata.Value {
	s := strings.TrimSpace(raw)
	switch s {
	case "True", "true":
		return metadata.Bool(true)
	case "False", "false":
		return metadata.Bool(false)
	}
	if s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r >= '0' && r <= '9') && r != '.' && r != '-' && r != '+'
	}) < 0 {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return metadata.Number(f)
		}
	}
	return metadata.String(s)
}
