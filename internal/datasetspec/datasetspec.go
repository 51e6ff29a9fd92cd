// Package datasetspec parses the "[[user@]host:]pool/path" dataset
// argument grammar and the "+file" pair-file indirection
// used in place of a literal SRC_DATASET DST_DATASET pair.
package datasetspec

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/zfsmirror/zfsync/internal/endpoint"
	"github.com/zfsmirror/zfsync/internal/zfs"
)

// Spec is one parsed "[[user@]host:]pool/path" argument. It names an
// endpoint location without yet being bound to a command.Runner;
// cmd/zfsync turns a Spec into an *endpoint.Endpoint once it knows
// the shared runner and any --xxx-program overrides.
type Spec struct {
	User string
	Host string // "" or endpoint.LocalMarker both mean local
	Port int    // 0 means default (22)
	Path zfs.DatasetPath
}

// IsLocal reports whether this spec names the local machine.
func (s Spec) IsLocal() bool {
	return s.Host == "" || s.Host == endpoint.LocalMarker
}

// Parse splits raw into its optional "[user@]host[:port]:" prefix and
// its required "pool/path" dataset path.
//
// Grammar: "[[user@]host:]pool/path; host `-` or omitted
// with no `:` forces local."
func Parse(raw string) (Spec, error) {
	if raw == "" {
		return Spec{}, fmt.Errorf("datasetspec: empty argument")
	}

	hostPart, pathPart, hasHost := splitHostPrefix(raw)
	if !hasHost {
		path, err := zfs.NewDatasetPath(raw)
		if err != nil {
			return Spec{}, err
		}
		return Spec{Path: path}, nil
	}

	var s Spec
	if at := strings.IndexByte(hostPart, '@'); at >= 0 {
		s.User = hostPart[:at]
		hostPart = hostPart[at+1:]
	}
	if colon := strings.LastIndexByte(hostPart, ':'); colon >= 0 {
		port, err := strconv.Atoi(hostPart[colon+1:])
		if err != nil {
			return Spec{}, fmt.Errorf("datasetspec: bad port in %q: %w", raw, err)
		}
		s.Port = port
		hostPart = hostPart[:colon]
	}
	s.Host = hostPart

	path, err := zfs.NewDatasetPath(pathPart)
	if err != nil {
		return Spec{}, err
	}
	s.Path = path
	return s, nil
}

// splitHostPrefix finds the "[user@]host[:port]:" prefix, if any. A
// dataset path never contains a colon, so the final colon-delimited
// segment is always the path and everything before it is the host
// (and optional port). A bare local path with no colon at all yields
// ok == false.
func splitHostPrefix(raw string) (host, path string, ok bool) {
	parts := strings.Split(raw, ":")
	if len(parts) == 1 {
		return "", raw, false
	}
	return strings.Join(parts[:len(parts)-1], ":"), parts[len(parts)-1], true
}

// Pair is one parsed SRC_DATASET DST_DATASET argument pair.
type Pair struct {
	Src Spec
	Dst Spec
}

// ResolvePairs turns the CLI's positional dataset arguments into Pairs.
// A "+file" leading marker on the dataset argument reads tab-separated
// src->dst pairs from the file, when args is exactly one argument
// starting with '+'.
func ResolvePairs(args []string) ([]Pair, error) {
	if len(args) == 1 && strings.HasPrefix(args[0], "+") {
		return readPairsFile(args[0][1:])
	}
	if len(args) == 0 || len(args)%2 != 0 {
		return nil, fmt.Errorf("datasetspec: expected SRC_DATASET DST_DATASET pairs, got %d argument(s)", len(args))
	}

	pairs := make([]Pair, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		src, err := Parse(args[i])
		if err != nil {
			return nil, err
		}
		dst, err := Parse(args[i+1])
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, Pair{Src: src, Dst: dst})
	}
	return pairs, nil
}

func readPairsFile(path string) ([]Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("datasetspec: open pairs file: %w", err)
	}
	defer f.Close()

	var pairs []Pair
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 2 {
			return nil, fmt.Errorf("datasetspec: %s:%d: expected src\\tdst, got %d field(s)", path, lineNo, len(fields))
		}
		src, err := Parse(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("datasetspec: %s:%d: %w", path, lineNo, err)
		}
		dst, err := Parse(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("datasetspec: %s:%d: %w", path, lineNo, err)
		}
		pairs = append(pairs, Pair{Src: src, Dst: dst})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return pairs, nil
}
