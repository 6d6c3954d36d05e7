package service

import (
	"sort"
	"strconv"
	"strings"
)

// RenderTemplate fills {key} placeholders from data. Unknown placeholders
// are left untouched so a missing field shows up in review.
func RenderTemplate(template string, data map[string]string) string {
	if len(data) == 0 {
		return template
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", data[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func itoa(n int) string { return strconv.Itoa(n) }
