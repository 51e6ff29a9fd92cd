package config

import (
	"bufio"
	"os"
	"strings"
)

// ExpandFileRefs expands "@file"/"+file" indirection entries within a
// rule list: any spec beginning with '@' or '+' is replaced by the
// (UTF-8, one-entry-per-line) contents of the named file. Kept outside
// internal/filter since reading regex lists from a file is a pure
// loader concern, not part of the Filter Engine proper.
func ExpandFileRefs(specs []string) ([]string, error) {
	out := make([]string, 0, len(specs))
	for _, s := range specs {
		if len(s) == 0 || (s[0] != '@' && s[0] != '+') {
			out = append(out, s)
			continue
		}
		lines, err := readLines(s[1:])
		if err != nil {
			return nil, err
		}
		out = append(out, lines...)
	}
	return out, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
