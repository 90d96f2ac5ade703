package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"koala/pkg/compiler"
	"koala/pkg/config"
	"koala/pkg/logging"
	"koala/pkg/objfile"
	"koala/pkg/parser"
	"koala/pkg/version"
)

func main() {
	output := flag.String("o", "", "output file (default: input name with .kbc)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Koala compiler v"+version.Version)
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  koalac [-o out.kbc] <file.koala|file.json|file.cbor>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("koalac %s (%s)\n", version.Version, version.GitCommit)
		return
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(os.Getenv("KOALA_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Pretty); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	input := flag.Arg(0)
	out := *output
	if out == "" {
		out = outputPath(input)
	}

	if err := compileFile(input, out); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func compileFile(input, out string) error {
	program, err := parser.LoadFile(input)
	if err != nil {
		return err
	}

	ins, err := compiler.Compile(program)
	if err != nil {
		return err
	}

	if err := objfile.WriteFile(out, ins); err != nil {
		return err
	}
	log.Info().Str("input", input).Str("output", out).Int("words", len(ins)).Msg("compiled")
	return nil
}

func outputPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".kbc"
}
