package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soql-workbench/internal/model"
)

func recordsWithField(field string, values ...interface{}) []model.Record {
	records := make([]model.Record, len(values))
	for i, v := range values {
		records[i] = model.Record{
			model.MetadataField: map[string]interface{}{"type": "Account"},
			field:               v,
		}
	}
	return records
}

func TestComputeStatistics_Empty(t *testing.T) {
	stats := ComputeStatistics(nil)
	assert.NotNil(t, stats)
	assert.Empty(t, stats)
}

func TestComputeStatistics_NullPercentage(t *testing.T) {
	values := []interface{}{1.0, nil, 2.0, nil, 3.0, 4.0, nil, 5.0, 6.0, 7.0}
	stats := ComputeStatistics(recordsWithField("a", values...))

	a := stats["a"]
	require.NotNil(t, a)
	assert.Equal(t, 10, a.TotalCount)
	assert.Equal(t, 7, a.NonNullCount)
	assert.Equal(t, 3, a.NullCount)
	assert.Equal(t, "30.0", a.NullPercentage)
	assert.NotContains(t, stats, model.MetadataField)
}

func TestComputeStatistics_MissingKeysCountAsNull(t *testing.T) {
	records := []model.Record{
		{"a": "x", "b": 1.0},
		{"b": 2.0},
		{"b": 3.0},
	}
	stats := ComputeStatistics(records)
	assert.Equal(t, 2, stats["a"].NullCount)
	assert.Equal(t, "66.7", stats["a"].NullPercentage)
}

func TestComputeStatistics_StringFrequencies(t *testing.T) {
	stats := ComputeStatistics(recordsWithField("s", "x", "y", "x", "z", "x"))

	s := stats["s"]
	require.NotNil(t, s)
	assert.Equal(t, model.FieldTypeString, s.Type)
	require.NotNil(t, s.UniqueCount)
	assert.Equal(t, 3, *s.UniqueCount)
	assert.Equal(t, 2, *s.DuplicateCount)
	require.NotEmpty(t, s.TopValues)
	assert.Equal(t, model.TopValue{Value: "x", Count: 3}, s.TopValues[0])
	// ties keep first appearance order
	assert.Equal(t, []model.TopValue{{Value: "x", Count: 3}, {Value: "y", Count: 1}, {Value: "z", Count: 1}}, s.TopValues)
	assert.Nil(t, s.Min)
	assert.Empty(t, s.Mean)
}

func TestComputeStatistics_TopValuesLimitedToFive(t *testing.T) {
	stats := ComputeStatistics(recordsWithField("s", "a", "b", "c", "d", "e", "f", "f"))
	s := stats["s"]
	assert.Len(t, s.TopValues, 5)
	assert.Equal(t, model.TopValue{Value: "f", Count: 2}, s.TopValues[0])
	assert.Equal(t, 6, *s.UniqueCount)
}

func TestComputeStatistics_Numeric(t *testing.T) {
	tests := []struct {
		name   string
		values []interface{}
		min    float64
		max    float64
		mean   string
		median string
	}{
		{"odd count", []interface{}{3.0, 1.0, 2.0}, 1, 3, "2.00", "2.00"},
		{"even count", []interface{}{10.0, 1.0, 3.0, 2.0}, 1, 10, "4.00", "2.50"},
		{"single", []interface{}{7.5}, 7.5, 7.5, "7.50", "7.50"},
		{"repeating mean", []interface{}{1.0, 1.0, 2.0}, 1, 2, "1.33", "1.00"},
		{"with nulls", []interface{}{nil, 4.0, nil, 8.0}, 4, 8, "6.00", "6.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := ComputeStatistics(recordsWithField("n", tt.values...))
			n := stats["n"]
			require.NotNil(t, n)
			assert.Equal(t, model.FieldTypeNumber, n.Type)
			require.NotNil(t, n.Min)
			require.NotNil(t, n.Max)
			assert.Equal(t, tt.min, *n.Min)
			assert.Equal(t, tt.max, *n.Max)
			assert.Equal(t, tt.mean, n.Mean)
			assert.Equal(t, tt.median, n.Median)
			assert.Nil(t, n.UniqueCount)
		})
	}
}

// The type of a field is fixed by its first non-null value. Later values
// of another type are not reclassified.
func TestComputeStatistics_FirstValueDecidesType(t *testing.T) {
	t.Run("number first", func(t *testing.T) {
		stats := ComputeStatistics(recordsWithField("m", nil, 1.0, "x", 3.0))
		m := stats["m"]
		assert.Equal(t, model.FieldTypeNumber, m.Type)
		assert.Equal(t, "2.00", m.Mean, "strings are left out of numeric aggregates")
		assert.Equal(t, 3, m.NonNullCount)
	})

	t.Run("string first", func(t *testing.T) {
		stats := ComputeStatistics(recordsWithField("m", "x", 5.0, "x"))
		m := stats["m"]
		assert.Equal(t, model.FieldTypeString, m.Type)
		assert.Equal(t, 2, *m.UniqueCount)
		assert.Equal(t, []model.TopValue{{Value: "x", Count: 2}, {Value: "5", Count: 1}}, m.TopValues)
	})
}

func TestComputeStatistics_OtherTypes(t *testing.T) {
	records := []model.Record{
		{"flag": true, "owner": map[string]interface{}{"Name": "Ada"}, "empty": nil},
		{"flag": false, "owner": nil, "empty": nil},
	}
	stats := ComputeStatistics(records)

	assert.Equal(t, model.FieldTypeBoolean, stats["flag"].Type)
	assert.Nil(t, stats["flag"].UniqueCount)
	assert.Nil(t, stats["flag"].Min)

	assert.Equal(t, model.FieldTypeObject, stats["owner"].Type)
	assert.Equal(t, 1, stats["owner"].NullCount)

	assert.Equal(t, model.FieldTypeUndefined, stats["empty"].Type)
	assert.Equal(t, "100.0", stats["empty"].NullPercentage)
}

func TestComputeStatistics_FieldsComeFromFirstRecord(t *testing.T) {
	records := []model.Record{
		{"a": "x"},
		{"a": "y", "late": "z"},
	}
	stats := ComputeStatistics(records)
	assert.Contains(t, stats, "a")
	assert.NotContains(t, stats, "late")
}

func TestColumns(t *testing.T) {
	records := []model.Record{{model.MetadataField: nil, "Name": "n", "Id": "i"}}
	assert.Equal(t, []string{"Id", "Name"}, Columns(records))
	assert.Nil(t, Columns(nil))
}
