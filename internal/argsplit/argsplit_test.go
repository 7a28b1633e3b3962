package argsplit_test

import (
	"reflect"
	"testing"

	"cexd/internal/argsplit"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{}},
		{"blank", "   \t ", []string{}},
		{"plain", "-hello --world etc --std=c++20", []string{"-hello", "--world", "etc", "--std=c++20"}},
		{"hash inside word", "-Wno#warnings -Wno-#pragma-messages", []string{"-Wno#warnings", "-Wno-#pragma-messages"}},
		{"double quoted", `--hello "-world etc"`, []string{"--hello", "-world etc"}},
		{"single quoted", `--hello '-world etc'`, []string{"--hello", "-world etc"}},
		{"comment truncates", "hello #veryfancy etc", []string{"hello"}},
		{"leading comment", "# nothing here", []string{}},
		{"escaped hash", `hello \#veryfancy etc`, []string{"hello", "#veryfancy", "etc"}},
		{"escaped space", `-DNAME=a\ b -O2`, []string{"-DNAME=a b", "-O2"}},
		{"trailing backslash", `hello \`, []string{"hello", `\`}},
		{"backslash kept before letters", `-I C:\include`, []string{"-I", `C:\include`}},
		{"quoted empty", `-D ""`, []string{"-D", ""}},
		{"quote glued to word", `-DX="a b"c`, []string{"-DX=a bc"}},
		{"escaped quote in quotes", `"say \"hi\""`, []string{`say "hi"`}},
		{"unterminated quote", `-x "abc def`, []string{"-x", "abc def"}},
		{"newlines separate", "-O2\n-g", []string{"-O2", "-g"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsplit.Split(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Split(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitNeverNil(t *testing.T) {
	if got := argsplit.Split(""); got == nil {
		t.Fatal("Split must return an empty slice, not nil")
	}
}
