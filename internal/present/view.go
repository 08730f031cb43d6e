package present

import (
	"encoding/json"

	"metaview/internal/classify"
	"metaview/internal/extract"
	"metaview/internal/metadata"
)

// Classifier partitions a metadata map into buckets.
type Classifier interface {
	Classify(m metadata.Map) classify.Buckets
}

// Row is one displayed field.
type Row struct {
	Key   string
	Value metadata.Value
}

// Text is the display form of the value.
func (r Row) Text() string { return r.Value.Text() }

// Section is a titled, non-empty group of rows sorted by key.
type Section struct {
	Title string
	Rows  []Row
}

// View is what a host renders for one source: either an error message or
// the non-empty sections in bucket order.
type View struct {
	Source   string
	Error    string
	Sections []Section
}

// Failed reports whether the view carries an error instead of sections.
func (v View) Failed() bool { return v.Error != "" }

// Build turns m into a View. A map holding the reserved error key yields an
// error view and c is not consulted.
func Build(m metadata.Map, c Classifier) View {
	if msg, ok := m.ErrorMessage(); ok {
		return View{Error: msg}
	}
	buckets := c.Classify(m)
	var sections []Section
	for _, bucket := range buckets.NonEmpty() {
		rows := make([]Row, 0, len(bucket.Entries))
		for _, key := range bucket.Entries.Keys() {
			rows = append(rows, Row{Key: key, Value: bucket.Entries[key]})
		}
		sections = append(sections, Section{Title: bucket.Name, Rows: rows})
	}
	return View{Sections: sections}
}

// FromResult builds the view for an extraction result.
func FromResult(res extract.Result, c Classifier) View {
	return Build(res.AsMap(), c)
}

type jsonSection struct {
	Title  string       `json:"title"`
	Fields metadata.Map `json:"fields"`
}

type jsonView struct {
	Source   string        `json:"source,omitempty"`
	Error    string        `json:"error,omitempty"`
	Sections []jsonSection `json:"sections,omitempty"`
}

// MarshalJSON emits {"source", "error"} for failures and {"source",
// "sections"} otherwise, keeping section order.
func (v View) MarshalJSON() ([]byte, error) {
	out := jsonView{Source: v.Source, Error: v.Error}
	if !v.Failed() {
		out.Sections = make([]jsonSection, 0, len(v.Sections))
		for _, section := range v.Sections {
			fields := make(metadata.Map, len(section.Rows))
			for _, row := range section.Rows {
				fields[row.Key] = row.Value
			}
			out.Sections = append(out.Sections, jsonSection{Title: section.Title, Fields: fields})
		}
	}
	return json.Marshal(out)
}
