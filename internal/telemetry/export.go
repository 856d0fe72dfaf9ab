package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ExportFilename is the attachment name advertised for CSV downloads.
const ExportFilename = "temperature_data.csv"

// ExportHeader returns the fixed CSV column names.
func ExportHeader() []string {
	return append([]string{TimestampField}, Channels...)
}

// ExportCSV renders readings as CSV. Fields are joined with "," and rows with "\n";
// values are not quoted, so the output is only well-formed for scalar sensor values.
func ExportCSV(readings []Reading) ([]byte, error) {
	if len(readings) == 0 {
		return nil, ErrNoData
	}

	header := ExportHeader()
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))

	row := make([]string, len(header))
	for _, r := range readings {
		for i, key := range header {
			row[i] = FormatValue(r[key])
		}
		b.WriteByte('\n')
		b.WriteString(strings.Join(row, ","))
	}
	return []byte(b.String()), nil
}

// FormatValue renders a single cell. Missing and null values become "".
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func formatFloat(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e21 || abs < 1e-6) {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		// Single-digit exponents are written without padding: 1e-7, not 1e-07.
		if i := strings.IndexByte(s, 'e'); i >= 0 && len(s) == i+4 && s[i+2] == '0' {
			s = s[:i+2] + s[i+3:]
		}
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
