package tokenizer

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single command", "help", []string{"help"}},
		{"quoted pattern", `search "foo bar"`, []string{"search", "foo bar"}},
		{"collapsed spaces", "echo  a   b", []string{"echo", "a", "b"}},
		{"leading spaces", "   state", []string{"state"}},
		{"trailing spaces", "echo a   ", []string{"echo", "a"}},
		{"trailing newline", "log on\n", []string{"log", "on"}},
		{"newline ends line", "echo a\nignored words", []string{"echo", "a"}},
		{"escaped quote", `echo \"hi\"`, []string{"echo", `"hi"`}},
		{"escaped space", `echo a\ b`, []string{"echo", "a b"}},
		{"escaped backslash", `echo a\\b`, []string{"echo", `a\b`}},
		{"trailing backslash", `echo a\`, []string{"echo", `a\`}},
		{"empty quoted token", `echo ""`, []string{"echo", ""}},
		{"quotes join adjacent text", `echo ab"c d"e`, []string{"echo", "abc de"}},
		{"newline inside quotes", "echo \"a\nb\"", []string{"echo", "a\nb"}},
		{"tab is not a separator", "echo a\tb", []string{"echo", "a\tb"}},
		{"unicode", "echo héllo wörld", []string{"echo", "héllo", "wörld"}},
		{"invalid utf-8", "search caf\xe9", []string{"search", "caf\xe9"}},
		{"escaped invalid utf-8", "echo \\\xff\xfe", []string{"echo", "\xff\xfe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("Tokenize(%q) unexpected error: %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTokenize_Blank(t *testing.T) {
	for _, input := range []string{"", " ", "     ", "\n", "  \n"} {
		got, err := Tokenize(input)
		if err != nil {
			t.Fatalf("Tokenize(%q) unexpected error: %v", input, err)
		}
		if len(got) != 0 {
			t.Errorf("Tokenize(%q) = %q, want empty", input, got)
		}
	}
}

func TestTokenize_UnterminatedQuote(t *testing.T) {
	for _, input := range []string{`echo "unterminated`, `"`, `search "a" "b`} {
		got, err := Tokenize(input)
		if !errors.Is(err, ErrUnterminatedQuote) {
			t.Errorf("Tokenize(%q) error = %v, want ErrUnterminatedQuote", input, err)
		}
		if got != nil {
			t.Errorf("Tokenize(%q) = %q, want nil vector", input, got)
		}
	}
}

// Every character that is not whitespace or a quote/escape marker must survive
// tokenizing, in order.
func TestTokenize_PreservesCharacters(t *testing.T) {
	inputs := []string{
		"echo a b c",
		`search "daft punk" around`,
		"log   on",
		`echo "x y" z "w"`,
		"quit",
		"search caf\xe9 \"\xff bar\"",
	}

	// Byte-wise, so invalid UTF-8 is compared as-is.
	strip := func(s string) string {
		var sb strings.Builder
		for i := 0; i < len(s); i++ {
			switch s[i] {
			case ' ', '"', '\\', '\n':
			default:
				sb.WriteByte(s[i])
			}
		}
		return sb.String()
	}

	for _, input := range inputs {
		got, err := Tokenize(input)
		if err != nil {
			t.Fatalf("Tokenize(%q) unexpected error: %v", input, err)
		}
		if joined, want := strip(strings.Join(got, "")), strip(input); joined != want {
			t.Errorf("Tokenize(%q) characters = %q, want %q", input, joined, want)
		}
	}
}
