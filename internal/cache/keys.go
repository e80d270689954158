package cache

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Key builds a stable cache key for a filter context. Filters are
// normalized first (empty values dropped, keys sorted, array members
// sorted) so that equivalent requests hash identically regardless of
// parameter order. The canonical encoding is hashed to a 32-bit value
// and prefixed with the result kind, which is also the eviction prefix.
func Key(kind string, filters map[string]any, page, limit int) string {
	canonical := Canonical(filters, page, limit, kind)
	h := fnv.New32a()
	h.Write([]byte(canonical))
	return fmt.Sprintf("%s:%d", kind, h.Sum32())
}

// Canonical renders the normalized filter context as
// "k:v|...|page:P|limit:L|type:T". Exported so tests can assert
// normalization without reversing the hash.
func Canonical(filters map[string]any, page, limit int, kind string) string {
	keys := make([]string, 0, len(filters))
	for k, v := range filters {
		if isEmpty(v) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(encodeValue(filters[k]))
		b.WriteByte('|')
	}
	b.WriteString("page:")
	b.WriteString(strconv.Itoa(page))
	b.WriteString("|limit:")
	b.WriteString(strconv.Itoa(limit))
	b.WriteString("|type:")
	b.WriteString(kind)
	return b.String()
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []string:
		return len(val) == 0
	case *float64:
		return val == nil
	case *int:
		return val == nil
	case *bool:
		return val == nil
	}
	return false
}

func encodeValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		sorted := make([]string, len(val))
		copy(sorted, val)
		sort.Strings(sorted)
		return strings.Join(sorted, ",")
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case *float64:
		return strconv.FormatFloat(*val, 'f', -1, 64)
	case *int:
		return strconv.Itoa(*val)
	case *bool:
		return strconv.FormatBool(*val)
	}
	return fmt.Sprintf("%v", v)
}
