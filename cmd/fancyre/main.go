package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/term"

	fancyregex "github.com/wippyai/fancy-regex"
	"github.com/wippyai/fancy-regex/engine"
	"github.com/wippyai/fancy-regex/ffi"
	"github.com/wippyai/fancy-regex/guest"
	"github.com/wippyai/fancy-regex/native"
)

// config is the validated command line.
type config struct {
	Pattern     string
	Texts       []string
	Backend     string `flag:"backend" validate:"oneof=inproc wasm native"`
	WasmFile    string `flag:"wasm" validate:"required_if=Backend wasm"`
	MemoryPages uint   `flag:"pages" validate:"lte=65536"`
	Color       string `flag:"color" validate:"oneof=auto always never"`
	Find        bool   `flag:"find"`
	Count       bool   `flag:"count" validate:"excluded_with=Find"`
	Replacing   bool   `flag:"replace" validate:"excluded_with=Find Count"`
	Replacement string
	Verbose     bool
	Interactive bool
}

var flagValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("flag"); name != "" {
			return "-" + name
		}
		return f.Name
	})
	return v
}

func (c *config) validate() error {
	err := flagValidator.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		case "required_if":
			msgs = append(msgs, fmt.Sprintf("%s is required when %s", fe.Field(), fe.Param()))
		case "excluded_with":
			msgs = append(msgs, fmt.Sprintf("%s cannot be combined with %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s fails %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return fmt.Errorf("invalid flags: %s", strings.Join(msgs, "; "))
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// execute runs the command and returns its exit status: 0 when a line
// matched, 1 when none did and 2 on error.
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if cfg.Verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			setLoggers(l)
			defer l.Sync()
		}
	}

	if cfg.Interactive {
		if err := runInteractive(cfg); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		return 0
	}

	matched, err := run(cfg, stdin, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if !matched {
		return 1
	}
	return 0
}

func parseFlags(args []string) (*config, error) {
	fs := flag.NewFlagSet("fancyre", flag.ContinueOnError)
	cfg := &config{}
	fs.StringVar(&cfg.Backend, "backend", "inproc", "Engine backend: inproc, wasm or native")
	fs.StringVar(&cfg.WasmFile, "wasm", "", "Path to the engine guest module (with -backend wasm)")
	fs.UintVar(&cfg.MemoryPages, "pages", 0, "Guest memory limit in 64KB pages (0 = default)")
	fs.StringVar(&cfg.Color, "color", "auto", "Highlight matches: auto, always or never")
	fs.BoolVar(&cfg.Find, "find", false, "Print the first match of each matching line")
	fs.BoolVar(&cfg.Count, "count", false, "Print the number of matching lines")
	fs.StringVar(&cfg.Replacement, "replace", "", "Print every line with all matches replaced")
	fs.BoolVar(&cfg.Verbose, "v", false, "Log engine activity to stderr")
	fs.BoolVar(&cfg.Interactive, "i", false, "Interactive mode with TUI")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: fancyre [flags] PATTERN [TEXT...]")
		fmt.Fprintln(fs.Output(), "       fancyre -i [PATTERN]  (interactive mode)")
		fmt.Fprintln(fs.Output(), "Without TEXT, lines are read from stdin.")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "replace" {
			cfg.Replacing = true
		}
	})
	rest := fs.Args()
	switch {
	case len(rest) > 0:
		cfg.Pattern, cfg.Texts = rest[0], rest[1:]
	case !cfg.Interactive:
		fs.Usage()
		return nil, fmt.Errorf("missing PATTERN")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setLoggers(l *zap.Logger) {
	fancyregex.SetLogger(l.Named("regex"))
	engine.SetLogger(l.Named("engine"))
	guest.SetLogger(l.Named("guest"))
	native.SetLogger(l.Named("native"))
}

// openBoundary returns the boundary selected by cfg and a function that
// releases it.
func openBoundary(ctx context.Context, cfg *config) (ffi.Boundary, func(), error) {
	switch cfg.Backend {
	case "wasm":
		data, err := os.ReadFile(cfg.WasmFile)
		if err != nil {
			return nil, nil, fmt.Errorf("read guest: %w", err)
		}
		mod, err := guest.Load(ctx, data, guest.Config{
			MemoryLimitPages: uint32(cfg.MemoryPages),
			WASI:             true,
			Name:             "fancy-regex",
		})
		if err != nil {
			return nil, nil, fmt.Errorf("load guest: %w", err)
		}
		return mod, func() { mod.Close(ctx) }, nil
	case "native":
		lib, err := native.Open()
		if err != nil {
			return nil, nil, err
		}
		return lib, func() {}, nil
	default:
		return engine.Default(), func() {}, nil
	}
}

func colorEnabled(mode string, out io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// run applies the pattern to every input line and reports whether any
// line matched.
func run(cfg *config, stdin io.Reader, stdout io.Writer) (bool, error) {
	ctx := context.Background()

	b, release, err := openBoundary(ctx, cfg)
	if err != nil {
		return false, err
	}
	defer release()

	re, err := fancyregex.Compile(cfg.Pattern, fancyregex.WithBoundary(b))
	if err != nil {
		return false, err
	}
	defer re.Close()

	hl := newHighlighter(re, stdout, colorEnabled(cfg.Color, stdout))
	w := bufio.NewWriter(stdout)
	defer w.Flush()

	count := 0
	process := func(line string) error {
		if cfg.Replacing {
			ok, err := re.IsMatch(line)
			if err != nil {
				return err
			}
			if ok {
				count++
			}
			out, err := re.ReplaceAll(line, cfg.Replacement)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, out)
			return nil
		}

		if cfg.Find {
			match, found, err := re.Find(line)
			if err != nil || !found {
				return err
			}
			count++
			fmt.Fprintln(w, hl.paint(match))
			return nil
		}

		ok, err := re.IsMatch(line)
		if err != nil || !ok {
			return err
		}
		count++
		if !cfg.Count {
			fmt.Fprintln(w, hl.render(line))
		}
		return nil
	}

	if len(cfg.Texts) > 0 {
		for _, text := range cfg.Texts {
			if err := process(text); err != nil {
				return false, err
			}
		}
	} else {
		sc := bufio.NewScanner(stdin)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			if err := process(sc.Text()); err != nil {
				return false, err
			}
		}
		if err := sc.Err(); err != nil {
			return false, fmt.Errorf("read input: %w", err)
		}
	}

	if cfg.Count {
		fmt.Fprintln(w, count)
	}
	return count > 0, nil
}
