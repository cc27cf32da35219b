package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		minLen int
		want   map[string]uint64
	}{
		{
			name:   "trailing token is flushed",
			line:   "the cat sat",
			minLen: 1,
			want:   map[string]uint64{"the": 1, "cat": 1, "sat": 1},
		},
		{
			name:   "min length filter",
			line:   "a bee cat dogs",
			minLen: 4,
			want:   map[string]uint64{"dogs": 1},
		},
		{
			name:   "case folding and repeats",
			line:   "Foo foo FOO fOo",
			minLen: 1,
			want:   map[string]uint64{"foo": 4},
		},
		{
			name:   "underscore and digits are word characters",
			line:   "user_42 logged in, code=503",
			minLen: 1,
			want:   map[string]uint64{"user_42": 1, "logged": 1, "in": 1, "code": 1, "503": 1},
		},
		{
			name:   "punctuation and path separators split",
			line:   "/api/v1/items?id=7 -- done.",
			minLen: 2,
			want:   map[string]uint64{"api": 1, "v1": 1, "items": 1, "id": 1, "done": 1},
		},
		{
			name:   "non ascii bytes are delimiters",
			line:   "café naïve",
			minLen: 1,
			want:   map[string]uint64{"caf": 1, "na": 1, "ve": 1},
		},
		{
			name:   "carriage return does not leak into token",
			line:   "end of line\r\n",
			minLen: 1,
			want:   map[string]uint64{"end": 1, "of": 1, "line": 1},
		},
		{
			name:   "empty line",
			line:   "",
			minLen: 1,
			want:   map[string]uint64{},
		},
		{
			name:   "only delimiters",
			line:   " ,.;:-| ",
			minLen: 1,
			want:   map[string]uint64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := map[string]uint64{}
			n := New(tt.minLen).CountLine(tt.line, got)

			assert.Equal(t, tt.want, got)

			var total uint64
			for _, c := range tt.want {
				total += c
			}
			assert.Equal(t, int(total), n)
		})
	}
}

func TestCountLineIsPure(t *testing.T) {
	tok := New(2)
	line := "Go is fun, go is FAST and go_routines are 2 cheap"

	first := map[string]uint64{}
	second := map[string]uint64{}
	tok.CountLine(line, first)
	tok.CountLine(line, second)

	assert.Equal(t, first, second)
}

func TestCountLineAccumulates(t *testing.T) {
	tok := New(1)
	dst := map[string]uint64{}

	tok.CountLine("foo foo bar", dst)
	tok.CountLine("bar baz foo", dst)

	assert.Equal(t, map[string]uint64{"foo": 3, "bar": 2, "baz": 1}, dst)
}

func TestNewClampsMinLen(t *testing.T) {
	assert.Equal(t, 1, New(0).MinLen())
	assert.Equal(t, 1, New(-5).MinLen())
	assert.Equal(t, 3, New(3).MinLen())
}

func TestIsWordChar(t *testing.T) {
	for _, c := range []byte("azAZ09_") {
		assert.True(t, IsWordChar(c), "%q", c)
	}
	for _, c := range []byte(" -.,/\t\n\x00\x7f\x80\xff") {
		assert.False(t, IsWordChar(c), "%q", c)
	}
}

func BenchmarkCountLine(b *testing.B) {
	tok := New(3)
	line := "1700000123 - INFO | ip=10.2.3.4 : code=200 request handled for user_1234 [tag_42] /api/v1/items/list?id=99"
	dst := map[string]uint64{}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		tok.CountLine(line, dst)
	}
}
