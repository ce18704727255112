package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"soql-workbench/internal/model"
	"soql-workbench/pkg/utils"
)

const topValuesLimit = 5

// ComputeStatistics profiles every field of the first record (except the
// platform metadata field) over the whole record list. An empty list
// yields an empty mapping.
//
// A field's type is decided by its first non-null value and never revised,
// so a column mixing numbers and strings is profiled by whichever came first.
func ComputeStatistics(records []model.Record) map[string]*model.FieldStatistic {
	stats := make(map[string]*model.FieldStatistic)
	if len(records) == 0 {
		return stats
	}

	total := len(records)
	for field := range records[0] {
		if field == model.MetadataField {
			continue
		}

		values := make([]interface{}, 0, total)
		for _, rec := range records {
			if v, ok := rec[field]; ok && v != nil {
				values = append(values, v)
			}
		}

		nullCount := total - len(values)
		stat := &model.FieldStatistic{
			Field:          field,
			Type:           model.FieldTypeUndefined,
			TotalCount:     total,
			NonNullCount:   len(values),
			NullCount:      nullCount,
			NullPercentage: utils.RoundFixed(float64(nullCount)/float64(total)*100, 1),
		}
		if len(values) > 0 {
			stat.Type = typeOf(values[0])
		}

		switch stat.Type {
		case model.FieldTypeNumber:
			updateNumericStats(stat, values)
		case model.FieldTypeString:
			updateStringStats(stat, values)
		}

		stats[field] = stat
	}

	return stats
}

// updateNumericStats fills min, max, mean and median from the numeric values only
func updateNumericStats(stat *model.FieldStatistic, values []interface{}) {
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		if num, ok := utils.Numeric(v); ok {
			nums = append(nums, num)
		}
	}
	if len(nums) == 0 {
		return
	}

	min, max, sum := math.Inf(1), math.Inf(-1), 0.0
	for _, n := range nums {
		if n < min {
			min = n
		}
		if n > max {
			max = n
		}
		sum += n
	}
	stat.Min = &min
	stat.Max = &max
	stat.Mean = utils.RoundFixed(sum/float64(len(nums)), 2)
	stat.Median = utils.RoundFixed(median(nums), 2)
}

// median sorts nums in place
func median(nums []float64) float64 {
	sort.Float64s(nums)
	mid := len(nums) / 2
	if len(nums)%2 == 0 {
		return (nums[mid-1] + nums[mid]) / 2
	}
	return nums[mid]
}

// updateStringStats fills cardinality and the most frequent values
func updateStringStats(stat *model.FieldStatistic, values []interface{}) {
	frequency := make(map[string]int)
	var order []string // first appearance
	for _, v := range values {
		key := stringOf(v)
		if _, seen := frequency[key]; !seen {
			order = append(order, key)
		}
		frequency[key]++
	}

	unique := len(order)
	duplicates := len(values) - unique
	stat.UniqueCount = &unique
	stat.DuplicateCount = &duplicates

	top := make([]model.TopValue, 0, len(order))
	for _, key := range order {
		top = append(top, model.TopValue{Value: key, Count: frequency[key]})
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Count > top[j].Count
	})
	if len(top) > topValuesLimit {
		top = top[:topValuesLimit]
	}
	stat.TopValues = top
}

func typeOf(v interface{}) string {
	switch v.(type) {
	case string:
		return model.FieldTypeString
	case bool:
		return model.FieldTypeBoolean
	case map[string]interface{}, model.Record, []interface{}:
		return model.FieldTypeObject
	}
	if utils.IsNumeric(v) {
		return model.FieldTypeNumber
	}
	return model.FieldTypeObject
}

// stringOf renders a value the way it shows up in a table cell
func stringOf(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case map[string]interface{}, model.Record, []interface{}:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	default:
		if num, ok := utils.Numeric(v); ok {
			return strconv.FormatFloat(num, 'f', -1, 64)
		}
		return fmt.Sprintf("%v", val)
	}
}

// ------------------- Columns -------------------

// Columns lists the display columns of a record set: the keys of the first
// record without the metadata field, sorted since map order is not stable.
func Columns(records []model.Record) []string {
	if len(records) == 0 {
		return nil
	}
	cols := make([]string, 0, len(records[0]))
	for key := range records[0] {
		cols = append(cols, key)
	}
	sort.Strings(cols)
	return displayColumns(cols)
}

// displayColumns drops the metadata field, keeping order
func displayColumns(cols []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if c != model.MetadataField {
			out = append(out, c)
		}
	}
	return out
}
