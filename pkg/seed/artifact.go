package seed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"time"

	"gorm.io/datatypes"
)

const (
	// Extension is appended to seeder names to form file/object names.
	Extension = ".json"

	// prefixLen covers "YYYY_MM_DD_HHMMSS_".
	prefixLen = 18

	nameTimeLayout = "2006_01_02_150405"

	keyRecords = "RECORDS"
	keyTag     = "TAG"

	// ColumnID selects upsert semantics when present in a record.
	ColumnID = "id"
	// ColumnCreatedAt is injected when absent and present on the table.
	ColumnCreatedAt = "created_at"
)

var namePattern = regexp.MustCompile(`^\d{4}_\d{2}_\d{2}_\d{6}_.+$`)

// Record is a single flat row of field values.
type Record map[string]any

// Artifact is a parsed seed document.
type Artifact struct {
	Name    string
	Table   string
	Tag     *string
	Records []Record
}

// Columns returns the union of keys across all records in first-seen order.
func (a *Artifact) Columns() []string {
	seen := make(map[string]struct{})
	var columns []string
	for _, rec := range a.Records {
		for _, key := range sortedKeys(rec) {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			columns = append(columns, key)
		}
	}
	return columns
}

// DeriveTable strips the timestamp prefix from a seeder name.
func DeriveTable(name string) (string, error) {
	if len(name) <= prefixLen || !namePattern.MatchString(name) {
		return "", &Error{Kind: KindNaming, Seeder: name}
	}
	return name[prefixLen:], nil
}

// NewName builds the seeder name for table at t.
func NewName(table string, t time.Time) string {
	return t.Format(nameTimeLayout) + "_" + table
}

// Parse decodes body into an Artifact. Name errors are reported before document errors.
func Parse(name string, body []byte) (*Artifact, error) {
	table, err := DeriveTable(name)
	if err != nil {
		return nil, err
	}

	malformed := func(cause error) error {
		return &Error{Kind: KindMalformedDocument, Seeder: name, Table: table, Err: cause}
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, malformed(err)
	}
	if doc == nil {
		return nil, malformed(fmt.Errorf("document is not an object"))
	}

	raw, ok := doc[keyRecords]
	if !ok {
		return nil, malformed(fmt.Errorf("missing %s", keyRecords))
	}
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		return nil, malformed(fmt.Errorf("%s must be an array", keyRecords))
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, malformed(err)
	}

	records := make([]Record, 0, len(items))
	for i, item := range items {
		rec, err := decodeRecord(item)
		if err != nil {
			return nil, malformed(fmt.Errorf("%s[%d]: %w", keyRecords, i, err))
		}
		records = append(records, rec)
	}

	artifact := &Artifact{Name: name, Table: table, Records: records}
	if rawTag, ok := doc[keyTag]; ok {
		var tag *string
		if err := json.Unmarshal(rawTag, &tag); err != nil {
			return nil, malformed(fmt.Errorf("%s must be a string: %w", keyTag, err))
		}
		artifact.Tag = tag
	}

	return artifact, nil
}

func decodeRecord(raw json.RawMessage) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("record must be an object")
	}

	rec := make(Record, len(fields))
	for key, value := range fields {
		v, err := normalizeValue(value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		rec[key] = v
	}
	return rec, nil
}

// normalizeValue converts decoded JSON into values database drivers accept.
func normalizeValue(value any) (any, error) {
	switch v := value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		return v.Float64()
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return datatypes.JSON(data), nil
	default:
		return v, nil
	}
}

// document is the on-disk form written by the generator.
type document struct {
	Tag     *string      `json:"TAG,omitempty"`
	Records []orderedRow `json:"RECORDS"`
}

// orderedRow marshals its fields in column order rather than map order.
type orderedRow struct {
	columns []string
	values  Record
}

func (r orderedRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[col])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Encode renders records as a seed document, keeping fields in columns order.
func Encode(tag *string, columns []string, records []Record) ([]byte, error) {
	doc := document{Tag: tag, Records: make([]orderedRow, 0, len(records))}
	for _, rec := range records {
		cols := columns
		if len(cols) == 0 {
			cols = sortedKeys(rec)
		}
		doc.Records = append(doc.Records, orderedRow{columns: cols, values: rec})
	}
	if doc.Tag != nil && *doc.Tag == "" {
		doc.Tag = nil
	}
	return json.MarshalIndent(doc, "", "    ")
}

func tagsEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// TagLabel renders an optional tag for humans.
func TagLabel(tag *string) string {
	if tag == nil {
		return "(none)"
	}
	return *tag
}

func sortedKeys(rec Record) []string {
	return slices.Sorted(maps.Keys(rec))
}
