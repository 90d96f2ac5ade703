package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"koala/pkg/ast"
	"koala/pkg/compiler"
	"koala/pkg/config"
	"koala/pkg/lexer"
	"koala/pkg/logging"
	"koala/pkg/objfile"
	"koala/pkg/opcode"
	"koala/pkg/parser"
	"koala/pkg/playground"
	"koala/pkg/version"
	"koala/pkg/vm"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	command := os.Args[1]

	switch command {
	case "--version", "-v", "version":
		printVersion()
		return
	case "--help", "-h", "help":
		printHelp()
		return
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

	// A bare source file is shorthand for 'koala run'.
	if strings.HasSuffix(command, ".koala") {
		os.Exit(runFile(cfg, command))
	}

	args := os.Args[2:]
	switch command {
	case "run":
		fs := flag.NewFlagSet("run", flag.ExitOnError)
		trace := fs.Bool("trace", cfg.VM.Trace, "log every executed instruction")
		fs.Parse(args)
		requireArg(fs, "koala run [--trace] <file>")
		cfg.VM.Trace = *trace
		os.Exit(runFile(cfg, fs.Arg(0)))
	case "exec":
		if len(args) < 1 {
			usageExit("koala exec <file.kbc>")
		}
		os.Exit(execFile(cfg, args[0]))
	case "ast":
		fs := flag.NewFlagSet("ast", flag.ExitOnError)
		asCBOR := fs.Bool("cbor", false, "write CBOR instead of JSON")
		fs.Parse(args)
		requireArg(fs, "koala ast [--cbor] <file>")
		os.Exit(printProgramAST(fs.Arg(0), *asCBOR))
	case "disasm":
		if len(args) < 1 {
			usageExit("koala disasm <file>")
		}
		os.Exit(disassembleFile(args[0]))
	case "inspect":
		if len(args) < 1 {
			usageExit("koala inspect <file>")
		}
		os.Exit(inspectFile(args[0]))
	case "tokens":
		if len(args) < 1 {
			usageExit("koala tokens <file>")
		}
		os.Exit(printTokens(args[0]))
	case "grammar":
		fmt.Println(parser.EBNF())
	case "serve":
		fs := flag.NewFlagSet("serve", flag.ExitOnError)
		addr := fs.String("addr", cfg.Playground.Addr, "listen address")
		db := fs.String("db", cfg.Playground.Database, "snippet database path")
		fs.Parse(args)
		cfg.Playground.Addr = *addr
		cfg.Playground.Database = *db
		os.Exit(serve(cfg))
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printHelp()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Koala toolchain v" + version.Version)
	fmt.Println("\nUsage:")
	fmt.Println("  koala <file.koala>       Compile and run a Koala program")
	fmt.Println("  koala run <file>         Compile and run (explicit)")
	fmt.Println("  koala exec <file.kbc>    Run a compiled word file")
	fmt.Println("  koala version            Show version information")
	fmt.Println("  koala help               Show all commands")
}

func printHelp() {
	fmt.Println("Koala: a small language compiled to a word-oriented stack machine")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  koala <file.koala>            Compile and run (shortcut for 'koala run')")
	fmt.Println("  koala run [--trace] <file>    Compile and run source or an AST document")
	fmt.Println("  koala exec <file.kbc>         Run a compiled word file")
	fmt.Println("  koala ast [--cbor] <file>     Print the AST interchange document")
	fmt.Println("  koala disasm <file>           Disassemble source, an AST document or a .kbc file")
	fmt.Println("  koala inspect <file>          Summarize functions and globals")
	fmt.Println("  koala tokens <file>           Print the token stream")
	fmt.Println("  koala grammar                 Print the grammar in EBNF")
	fmt.Println("  koala serve [--addr] [--db]   Start the playground server")
	fmt.Println("  koala version                 Display build metadata")
	fmt.Println("  koala help                    Show this help message")
	fmt.Println()
	fmt.Println("Configuration is read from koala.toml (or $KOALA_CONFIG), .env and KOALA_* variables.")
}

func printVersion() {
	fmt.Printf("Koala %s\n", version.Version)
	fmt.Printf("Build Date: %s\n", version.BuildDate)
	fmt.Printf("Git Commit: %s\n", version.GitCommit)
}

func usageExit(usage string) {
	fmt.Println("Usage: " + usage)
	os.Exit(1)
}

func requireArg(fs *flag.FlagSet, usage string) {
	if fs.NArg() < 1 {
		usageExit(usage)
	}
}

// compileFile loads and compiles path, returning the program alongside
// the function table for labelled output.
func compileFile(path string) (*compiler.Bytecode, error) {
	program, err := parser.LoadFile(path)
	if err != nil {
		return nil, err
	}

	comp := compiler.New()
	if err := comp.Compile(program); err != nil {
		return nil, err
	}
	return comp.Bytecode(), nil
}

func runFile(cfg *config.Config, path string) int {
	bytecode, err := compileFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return execute(cfg, bytecode.Instructions)
}

func execFile(cfg *config.Config, path string) int {
	ins, err := objfile.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return execute(cfg, ins)
}

func execute(cfg *config.Config, ins opcode.Instructions) int {
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	machine := vm.New(vm.WriterOutput(out), cfg.VMOptions()...)
	machine.Load(ins)

	if err := machine.Run(); err != nil {
		out.Flush()
		fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
		return 1
	}
	log.Debug().Int("steps", machine.Steps()).Msg("program halted")
	return 0
}

func printProgramAST(path string, asCBOR bool) int {
	program, err := parser.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	format := ast.JSON
	if asCBOR {
		format = ast.CBOR
	}
	data, err := ast.Encode(program, format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	os.Stdout.Write(data)
	if !asCBOR {
		fmt.Println()
	}
	return 0
}

func disassembleFile(path string) int {
	var (
		ins    opcode.Instructions
		labels map[int]string
	)

	if filepath.Ext(path) == ".kbc" {
		var err error
		if ins, err = objfile.ReadFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
	} else {
		bytecode, err := compileFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		ins = bytecode.Instructions
		labels = make(map[int]string, len(bytecode.Functions))
		for name, addr := range bytecode.Functions {
			labels[addr] = name
		}
	}

	fmt.Print(opcode.Disassemble(ins, labels))
	return 0
}

func printTokens(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		return 1
	}

	tokens, err := lexer.Tokenize(path, string(data))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	for _, tok := range tokens {
		fmt.Printf("%-10s %-20s (line %d, col %d)\n", tok.Type, fmt.Sprintf("'%s'", tok.Literal), tok.Line, tok.Column)
	}
	return 0
}

func serve(cfg *config.Config) int {
	store, err := playground.OpenStore(cfg.Playground.Database)
	if err != nil {
		log.Error().Err(err).Str("database", cfg.Playground.Database).Msg("open snippet store")
		return 1
	}
	defer store.Close()

	srv := playground.New(
		playground.WithStore(store),
		playground.WithCache(playground.NewCache(cfg.Playground.CacheSize)),
		playground.WithVMOptions(cfg.PlaygroundVMOptions()...),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx, cfg.Playground.Addr); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("playground stopped")
		return 1
	}
	return 0
}
