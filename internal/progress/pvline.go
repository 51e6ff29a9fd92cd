package progress

import (
	"regexp"
	"strconv"
)

// pvSizeRE matches the leading size field of pv(1)'s default
// human-readable progress line, e.g. "1.23GiB 0:00:05 [102MiB/s] ...".
var pvSizeRE = regexp.MustCompile(`^\s*([0-9.]+)\s*(B|KiB|MiB|GiB|TiB)\b`)

var pvUnitScale = map[string]int64{
	"B":   1,
	"KiB": 1 << 10,
	"MiB": 1 << 20,
	"GiB": 1 << 30,
	"TiB": 1 << 40,
}

// ParsePVBytes extracts the cumulative byte count pv(1) reports at the
// start of each progress line it writes to stderr. Returns ok == false
// for lines that don't start with a recognizable size field.
func ParsePVBytes(line string) (bytes int64, ok bool) {
	m := pvSizeRE.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	scale, known := pvUnitScale[m[2]]
	if !known {
		return 0, false
	}
	return int64(v * float64(scale)), true
}
