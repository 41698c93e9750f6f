package chapters

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSpec parses a chapter selection: whitespace/comma separated integers
// and inclusive a-b ranges. Descending ranges count down. Input order is
// preserved and duplicates are dropped.
func ParseSpec(spec string) ([]int, error) {
	fields := strings.FieldsFunc(spec, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})

	if len(fields) == 0 {
		return nil, fmt.Errorf("empty chapter spec")
	}

	seen := map[int]bool{}
	var out []int

	push := func(n int) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}

	for _, f := range fields {
		a, b, isRange, err := parseItem(f)
		if err != nil {
			return nil, err
		}

		if !isRange {
			push(a)
			continue
		}

		if a <= b {
			for n := a; n <= b; n++ {
				push(n)
			}
		} else {
			for n := a; n >= b; n-- {
				push(n)
			}
		}
	}

	return out, nil
}

func parseItem(f string) (a, b int, isRange bool, err error) {
	// A leading minus is a sign, not a range separator (ByIndex uses
	// negative indices).
	body := f
	neg := strings.HasPrefix(body, "-")
	if neg {
		body = body[1:]
	}

	if i := strings.Index(body, "-"); i >= 0 && !neg {
		a, err1 := strconv.Atoi(strings.TrimSpace(body[:i]))
		b, err2 := strconv.Atoi(strings.TrimSpace(body[i+1:]))
		if err1 != nil || err2 != nil {
			return 0, 0, false, fmt.Errorf("bad range %q", f)
		}
		return a, b, true, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(f))
	if err != nil {
		return 0, 0, false, fmt.Errorf("bad chapter %q", f)
	}

	return n, 0, false, nil
}

// ParseViewerIDs splits an explicit viewer-id list.
func ParseViewerIDs(spec string) []string {
	fields := strings.FieldsFunc(spec, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})

	seen := map[string]bool{}
	var out []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}

	return out
}
