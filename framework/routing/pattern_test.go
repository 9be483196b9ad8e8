package routing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPattern_Match(t *testing.T) {
	t.Parallel()
	tests := []struct {
		pattern string
		path    string
		ok      bool
		params  map[string]string
	}{
		{"/", "/", true, map[string]string{}},
		{"/", "/x", false, nil},
		{"/user/active", "/user/active", true, map[string]string{}},
		{"/user/active", "/user/other", false, nil},
		{"/user/{id}", "/user/42", true, map[string]string{"id": "42"}},
		{"/user/{id}", "/user/42/", true, map[string]string{"id": "42"}},
		{"/user/{id}", "/user/42?x=1", true, map[string]string{"id": "42"}},
		{"/user/{id}", "/user", false, nil},
		{"/user/{id}", "/user/42/posts", false, nil},
		{"/user/{id:[0-9]+}", "/user/42", true, map[string]string{"id": "42"}},
		{"/user/{id:[0-9]+}", "/user/ada", false, nil},
		{"/code/{c:[a-z]{2}}", "/code/en", true, map[string]string{"c": "en"}},
		{"/code/{c:[a-z]{2}}", "/code/eng", false, nil},
		{"/files/*", "/files/a/b/c.txt", true, map[string]string{"*": "a/b/c.txt"}},
		{"/files/*", "/files/a", true, map[string]string{"*": "a"}},
		{"/files/*", "/files", false, nil},
		{"/files/{path*}", "/files/a/b", true, map[string]string{"path": "a/b"}},
		{"/{a}/{b}", "/x/y", true, map[string]string{"a": "x", "b": "y"}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			p, err := compilePattern(tt.pattern)
			require.NoError(t, err)
			params, ok := p.match(tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.params, params)
			}
		})
	}
}

func TestPattern_Invalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"/files/*/x", "/a/{path*}/b", "/u/{}", "/u/{:[0-9]}", "/u/{id:[}", "/u/{*}"} {
		_, err := compilePattern(raw)
		assert.Error(t, err, raw)
	}
}

func TestJoinPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "/", joinPath("", "/"))
	assert.Equal(t, "/api", joinPath("/api/", ""))
	assert.Equal(t, "/api/users", joinPath("/api", "users"))
	assert.Equal(t, "/api/users", joinPath("/api/", "/users"))
	assert.Equal(t, "/greet", joinPath("", "/greet"))
}

func TestPattern_PlaceholdersCaptureAnySegment(t *testing.T) {
	segment := rapid.StringMatching(`[A-Za-z0-9._~-]{1,12}`)
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(t, "n")
		names := make([]string, n)
		values := make([]string, n)
		for i := range n {
			names[i] = "p" + strings.Repeat("x", i)
			values[i] = segment.Draw(t, "value")
		}

		p, err := compilePattern("/{" + strings.Join(names, "}/{") + "}")
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		params, ok := p.match("/" + strings.Join(values, "/"))
		if !ok {
			t.Fatalf("no match for %v", values)
		}
		for i, name := range names {
			if params[name] != values[i] {
				t.Fatalf("%s: got %q, want %q", name, params[name], values[i])
			}
		}

		// One segment more or less never matches without a wildcard.
		if _, ok := p.match("/" + strings.Join(append(values, "extra"), "/")); ok {
			t.Fatalf("matched with an extra segment")
		}
		if _, ok := p.match("/" + strings.Join(values[:n-1], "/")); ok {
			t.Fatalf("matched with a missing segment")
		}
	})
}

func TestPattern_WildcardJoinsRemainder(t *testing.T) {
	segment := rapid.StringMatching(`[a-z0-9]{1,8}`)
	rapid.Check(t, func(t *rapid.T) {
		rest := rapid.SliceOfN(segment, 1, 8).Draw(t, "rest")
		p, err := compilePattern("/static/*")
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		params, ok := p.match("/static/" + strings.Join(rest, "/"))
		if !ok {
			t.Fatalf("no match for %v", rest)
		}
		if got, want := params[WildcardParam], strings.Join(rest, "/"); got != want {
			t.Fatalf("wildcard: got %q, want %q", got, want)
		}
	})
}
