package util

import "fmt"

var byteUnits = []struct {
	limit int64
	name  string
}{
	{1 << 30, "GB"},
	{1 << 20, "MB"},
	{1 << 10, "KB"},
}

// Human formats a byte count for log lines and progress decorators.
func Human(n int64) string {
	for _, u := range byteUnits {
		if n >= u.limit {
			return fmt.Sprintf("%.2f %s", float64(n)/float64(u.limit), u.name)
		}
	}
	return fmt.Sprintf("%d B", n)
}
