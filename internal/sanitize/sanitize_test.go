package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "Ivan Petrov", want: "Ivan Petrov"},
		{name: "trims", in: "   Ivan Petrov \t", want: "Ivan Petrov"},
		{name: "collapses runs", in: "Ivan \n\t  Petrov", want: "Ivan Petrov"},
		{name: "forbidden chars", in: `a\b/c:d*e?f"g<h>i|j%k`, want: "abcdefghijk"},
		{name: "control chars", in: "Iv\x00an\x1b Pe\x7ftrov", want: "Ivan Petrov"},
		{name: "forbidden between spaces", in: "Ivan / Petrov", want: "Ivan Petrov"},
		{name: "cyrillic", in: " Иванов  Иван ", want: "Иванов Иван"},
		{name: "empty", in: "", want: ""},
		{name: "whitespace only", in: " \t\n ", want: ""},
		{name: "all stripped", in: `/\:*?"<>|%`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Name(tt.in))
		})
	}
}

func TestName_Truncates(t *testing.T) {
	in := strings.Repeat("я", 200)
	got := Name(in)
	assert.Equal(t, MaxLen, utf8.RuneCountInString(got))

	// A cut that lands on a space must not leave a trailing space.
	in = strings.Repeat("a", MaxLen-1) + " bcd"
	got = Name(in)
	assert.Equal(t, strings.Repeat("a", MaxLen-1), got)
}

func TestFilenamePart(t *testing.T) {
	assert.Equal(t, "Ivan_Petrov", FilenamePart("  Ivan   Petrov "))
	assert.Equal(t, "", FilenamePart("???"))
}

func TestExt(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a.txt", ".txt"},
		{"archive.tar.gz", ".gz"},
		{"noext", ""},
		{".bashrc", ""},
		{"dir/report.pdf", ".pdf"},
		{`C:\Users\me\scan.JPG`, ".JPG"},
		{"file.", ""},
		{"weird.t|x\x00t", ".txt"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Ext(tt.in), "Ext(%q)", tt.in)
	}
}

func FuzzName(f *testing.F) {
	for _, seed := range []string{
		"Ivan Petrov",
		"  a  /  b  ",
		"\x00\x01\x1f\x7f",
		strings.Repeat("x ", 100),
		`C:\path\to\*file?.txt`,
		"100% <done>",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, in string) {
		out := Name(in)
		if utf8.ValidString(in) && utf8.RuneCountInString(out) > MaxLen {
			t.Fatalf("output longer than %d: %q", MaxLen, out)
		}
		if strings.ContainsAny(out, forbidden) {
			t.Fatalf("output contains forbidden char: %q", out)
		}
		for _, r := range out {
			if isControl(r) {
				t.Fatalf("output contains control char: %q", out)
			}
		}
		if strings.Contains(out, "  ") {
			t.Fatalf("output contains whitespace run: %q", out)
		}
		if out != strings.TrimSpace(out) {
			t.Fatalf("output not trimmed: %q", out)
		}
	})
}
