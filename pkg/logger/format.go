package logger

import (
	"fmt"
	"sort"
	"strings"
)

const timestampLayout = "2006-01-02 15:04:05"

// formatLine renders the console layout: "[ts] [LEVEL] msg | k=v k=v".
// Keys are sorted so identical records always render identically.
func formatLine(rec Record, label string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s", rec.Time.Format(timestampLayout), label, rec.Message)

	if len(rec.Fields) > 0 {
		keys := make([]string, 0, len(rec.Fields))
		for k := range rec.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString(" |")
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, rec.Fields[k])
		}
	}

	return b.String()
}
