package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	intPattern       = regexp.MustCompile(`^[+-]?[0-9]+$`)
	hexPattern       = regexp.MustCompile(`^0[xX][0-9a-fA-F]+$`)
	floatPattern     = regexp.MustCompile(`^[+-]?([0-9]+\.[0-9]*|\.[0-9]+|[0-9]+)([eE][+-]?[0-9]+)?$`)
	identPattern     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	listMacroPattern = regexp.MustCompile(`^LIST_([0-9]+)\(\s*(.*?)\s*\)$`)
)

// classify turns raw value text into the matching Value variant.
func classify(raw string) Value {
	if s, ok := unquote(raw); ok {
		return String(s)
	}

	switch {
	case intPattern.MatchString(raw):
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return Integer(i)
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return Number(f)
		}
	case hexPattern.MatchString(raw):
		if i, err := strconv.ParseInt(raw[2:], 16, 64); err == nil {
			return Integer(i)
		}
	case floatPattern.MatchString(raw):
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return Number(f)
		}
	case strings.EqualFold(raw, "true"):
		return Boolean(true)
	case strings.EqualFold(raw, "false"):
		return Boolean(false)
	case identPattern.MatchString(raw):
		return Reference(raw)
	}

	if m := listMacroPattern.FindStringSubmatch(raw); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			arg := m[2]
			if u, ok := unquote(arg); ok {
				arg = u
			}
			return Macro(n, arg)
		}
	}

	return Expression(raw)
}

// unquote reports whether raw is exactly one quoted literal and returns
// its contents with doubled quotes collapsed.
func unquote(raw string) (string, bool) {
	if len(raw) < 2 || (raw[0] != '"' && raw[0] != '\'') {
		return "", false
	}
	q := raw[0]
	var sb strings.Builder
	for i := 1; i < len(raw); i++ {
		c := raw[i]
		if c != q {
			sb.WriteByte(c)
			continue
		}
		if i+1 < len(raw) && raw[i+1] == q {
			sb.WriteByte(q)
			i++
			continue
		}
		if i == len(raw)-1 {
			return sb.String(), true
		}
		return "", false
	}
	return "", false
}
