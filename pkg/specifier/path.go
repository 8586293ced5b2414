package specifier

import (
	"regexp"
	"strconv"
	"strings"
)

// Segment is one step of an access path: either a mapping key / attribute
// name or an integer sequence index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// String renders the segment in path form, quoting keys that need it.
func (s Segment) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	if isBareKey(s.Key) {
		return s.Key
	}
	return `"` + strings.ReplaceAll(strings.ReplaceAll(s.Key, `\`, `\\`), `"`, `\"`) + `"`
}

// Path is a parsed dotted access path.
type Path []Segment

// String renders the path in its dotted source form.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

const (
	fieldPlain        = `(?:[^\f\n\r\t\v."']+)`
	fieldDoubleQuoted = `(?:"(?:\\"|\\\\|[^\f\n\r\t\v"\\])+")`
	fieldSingleQuoted = `(?:'(?:\\\\|\\'|[^\f\n\r\t\v'\\])+')`
	fieldPattern      = `(?:` + fieldPlain + `|` + fieldDoubleQuoted + `|` + fieldSingleQuoted + `)`
)

var (
	formatPattern = regexp.MustCompile(`^` + fieldPattern + `(?:\.` + fieldPattern + `)*$`)
	groupPattern  = regexp.MustCompile(`(` + fieldPlain + `|` + fieldDoubleQuoted + `|` + fieldSingleQuoted + `)`)
)

// IsPathString reports whether raw matches the dotted path grammar.
func IsPathString(raw string) bool {
	return formatPattern.MatchString(raw)
}

// ParsePath parses a dotted path string into segments. The empty string
// is the empty path, meaning the whole source.
func ParsePath(raw string) (Path, error) {
	if raw == "" {
		return Path{}, nil
	}
	if !formatPattern.MatchString(raw) {
		return nil, &FormatError{Raw: raw}
	}
	fields := groupPattern.FindAllString(raw, -1)
	path := make(Path, 0, len(fields))
	for _, field := range fields {
		path = append(path, toSegment(field))
	}
	return path, nil
}

// toSegment converts one matched field to a segment: integers become
// indices, quoted fields are unescaped, everything else is a bare key.
func toSegment(field string) Segment {
	if n, err := strconv.Atoi(field); err == nil {
		return Segment{Index: n, IsIndex: true}
	}
	switch field[0] {
	case '"':
		key := strings.Trim(field, `"`)
		key = strings.ReplaceAll(key, `\"`, `"`)
		key = strings.ReplaceAll(key, `\\`, `\`)
		return Segment{Key: key}
	case '\'':
		key := strings.Trim(field, `'`)
		key = strings.ReplaceAll(key, `\'`, `'`)
		key = strings.ReplaceAll(key, `\\`, `\`)
		return Segment{Key: key}
	default:
		return Segment{Key: field}
	}
}

func isBareKey(key string) bool {
	if key == "" {
		return false
	}
	if _, err := strconv.Atoi(key); err == nil {
		return false
	}
	return formatPattern.MatchString(key) && !strings.ContainsAny(key, `."'`)
}
