package routing

import (
	"fmt"
	"regexp"
	"strings"
)

// WildcardParam is the key a bare trailing "*" is captured under.
const WildcardParam = "*"

type segmentKind int

const (
	literalSegment segmentKind = iota
	paramSegment
	wildcardSegment
)

type segment struct {
	kind  segmentKind
	value string // literal text or parameter name
	re    *regexp.Regexp
}

// pattern is a compiled route path:
//
//	/users/active          literal segments
//	/users/{id}            named placeholder
//	/users/{id:[0-9]+}     placeholder with an inline constraint
//	/files/*               trailing wildcard, captured under "*"
//	/files/{path*}         trailing wildcard, captured under "path"
type pattern struct {
	raw      string
	segments []segment
}

func compilePattern(path string) (*pattern, error) {
	p := &pattern{raw: path}
	parts := splitPath(path)
	for i, part := range parts {
		seg, err := parseSegment(part)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", path, err)
		}
		if seg.kind == wildcardSegment && i != len(parts)-1 {
			return nil, fmt.Errorf("route %q: wildcard must be the last segment", path)
		}
		p.segments = append(p.segments, seg)
	}
	return p, nil
}

func parseSegment(part string) (segment, error) {
	if part == "*" {
		return segment{kind: wildcardSegment, value: WildcardParam}, nil
	}
	if !strings.HasPrefix(part, "{") || !strings.HasSuffix(part, "}") {
		return segment{kind: literalSegment, value: part}, nil
	}

	inner := part[1 : len(part)-1]
	if name, ok := strings.CutSuffix(inner, "*"); ok && !strings.Contains(name, ":") {
		if name == "" {
			return segment{}, fmt.Errorf("empty wildcard name in %q", part)
		}
		return segment{kind: wildcardSegment, value: name}, nil
	}

	name, expr, constrained := strings.Cut(inner, ":")
	if name == "" {
		return segment{}, fmt.Errorf("empty parameter name in %q", part)
	}
	seg := segment{kind: paramSegment, value: name}
	if constrained {
		re, err := regexp.Compile("^(?:" + expr + ")$")
		if err != nil {
			return segment{}, fmt.Errorf("parameter %s: %w", name, err)
		}
		seg.re = re
	}
	return seg, nil
}

// match reports whether path satisfies every segment rule and returns the
// captured parameters.
func (p *pattern) match(path string) (map[string]string, bool) {
	parts := splitPath(path)
	n := len(p.segments)

	wild := n > 0 && p.segments[n-1].kind == wildcardSegment
	if wild {
		// The wildcard needs at least one segment of its own.
		if len(parts) < n {
			return nil, false
		}
	} else if len(parts) != n {
		return nil, false
	}

	params := make(map[string]string)
	for i, seg := range p.segments {
		switch seg.kind {
		case literalSegment:
			if parts[i] != seg.value {
				return nil, false
			}
		case paramSegment:
			if seg.re != nil && !seg.re.MatchString(parts[i]) {
				return nil, false
			}
			params[seg.value] = parts[i]
		case wildcardSegment:
			params[seg.value] = strings.Join(parts[i:], "/")
		}
	}
	return params, true
}

// splitPath drops the query string and surrounding slashes, then splits on
// "/". The root path has no segments.
func splitPath(path string) []string {
	path, _, _ = strings.Cut(path, "?")
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// joinPath joins a group prefix and a route path with exactly one slash.
func joinPath(prefix, path string) string {
	prefix = strings.TrimRight(prefix, "/")
	if path == "" || path == "/" {
		if prefix == "" {
			return "/"
		}
		return prefix
	}
	return prefix + "/" + strings.TrimLeft(path, "/")
}
