package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"koala/pkg/objfile"
	"koala/pkg/vm"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	os.Exit(m.Run())
}

func TestOutputPath(t *testing.T) {
	tests := map[string]string{
		"prog.koala":       "prog.kbc",
		"dir/prog.json":    "dir/prog.kbc",
		"noext":            "noext.kbc",
		"a.b/prog.v2.cbor": "a.b/prog.v2.kbc",
	}
	for input, want := range tests {
		if got := outputPath(input); got != want {
			t.Errorf("outputPath(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCompileFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "hello.koala")
	out := filepath.Join(dir, "hello.kbc")
	source := "fn main() { println(square(12)) }\nfn square(x) ? { return x * x }\n"
	if err := os.WriteFile(input, []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := compileFile(input, out); err != nil {
		t.Fatalf("compile: %v", err)
	}

	ins, err := objfile.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}

	var printed strings.Builder
	machine := vm.New(vm.WriterOutput(&printed))
	machine.Load(ins)
	if err := machine.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if printed.String() != "144\n" {
		t.Fatalf("wrong output: %q", printed.String())
	}

	bad := filepath.Join(dir, "bad.koala")
	os.WriteFile(bad, []byte("fn helper() { }"), 0o644)
	if err := compileFile(bad, filepath.Join(dir, "bad.kbc")); err == nil {
		t.Fatal("expected an error for a program without main")
	}
}
