package model

import (
	"encoding/json"
	"fmt"
)

// MetadataField is the platform-internal field attached to every record.
// It is never displayed, exported by default or profiled.
const MetadataField = "attributes"

// Record is a schema-agnostic row returned by the upstream platform
type Record map[string]interface{}

// ResultSet is the accumulated result of a query run
type ResultSet struct {
	Records        []Record `json:"data"`
	Columns        []string `json:"columns"`
	TotalAvailable int      `json:"totalSize"`
	FetchedCount   int      `json:"fetchedCount"`
	Done           bool     `json:"done"`
	RecordLimit    int      `json:"recordLimit"`
	Unlimited      bool     `json:"isUnlimited"`
	Iterations     int      `json:"-"` // page fetches after the first page
}

// Field type names, as reported in FieldStatistic.Type
const (
	FieldTypeNumber    = "number"
	FieldTypeString    = "string"
	FieldTypeBoolean   = "boolean"
	FieldTypeObject    = "object"
	FieldTypeUndefined = "undefined"
)

// TopValue is a (value, frequency) pair. It encodes as a two element JSON array.
type TopValue struct {
	Value string
	Count int
}

func (tv TopValue) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{tv.Value, tv.Count})
}

func (tv *TopValue) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("top value: expected [value, count], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &tv.Value); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &tv.Count)
}

// FieldStatistic holds descriptive statistics for one field of a record set
type FieldStatistic struct {
	Field          string `json:"field"`
	Type           string `json:"type"`
	TotalCount     int    `json:"totalCount"`
	NonNullCount   int    `json:"nonNullCount"`
	NullCount      int    `json:"nullCount"`
	NullPercentage string `json:"nullPercentage"`

	// numeric fields
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Mean   string   `json:"mean,omitempty"`
	Median string   `json:"median,omitempty"`

	// string fields
	UniqueCount    *int       `json:"uniqueCount,omitempty"`
	DuplicateCount *int       `json:"duplicateCount,omitempty"`
	TopValues      []TopValue `json:"topValues,omitempty"`
}
