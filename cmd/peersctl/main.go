package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	flags "github.com/jessevdk/go-flags"

	"example.com/peersgate/internal/common"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// Exit codes.
const (
	exitOK         = 0
	exitUsage      = 1
	exitStructural = 2
	exitChecksum   = 3
)

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

type globalOptions struct {
	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}" default:"warn"`
}

type versionCommand struct {
	out io.Writer
}

func (c *versionCommand) Execute(args []string) error {
	fmt.Fprintf(c.out, "peersctl %s (built %s, %s %s/%s)\n", version, buildDate,
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return nil
}

func newParser(out io.Writer) (*flags.Parser, error) {
	var opts globalOptions
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "peersctl"
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if err := setLogLevels(opts.DebugLevel); err != nil {
			return &exitError{code: exitUsage, err: err}
		}
		return cmd.Execute(args)
	}

	commands := []struct {
		name, short, long string
		data              any
	}{
		{"decode", "Decode a peers.dat file",
			"Decode a peers.dat file and print its unique addresses as JSON or text.",
			&decodeCommand{out: out}},
		{"report", "Render a PDF report",
			"Render a PDF report for a peers.dat file or a saved summary.",
			&reportCommand{out: out}},
		{"batch", "Decode every peers file in a directory",
			"Decode every *.dat file below a directory in parallel and write per-file results and a manifest.",
			&batchCommand{out: out}},
		{"version", "Print version information", "Print version information.",
			&versionCommand{out: out}},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			return nil, err
		}
	}
	return parser, nil
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	parser, err := newParser(stdout)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	_, err = parser.ParseArgs(args)
	if err == nil {
		return exitOK
	}

	var ferr *flags.Error
	if errors.As(err, &ferr) {
		if ferr.Type == flags.ErrHelp {
			fmt.Fprintln(stdout, ferr.Message)
			return exitOK
		}
		fmt.Fprintln(stderr, ferr.Message)
		return exitUsage
	}
	fmt.Fprintln(stderr, "peersctl:", err)
	var eerr *exitError
	if errors.As(err, &eerr) {
		return eerr.code
	}
	return exitUsage
}

func main() {
	err := common.InitLogging(common.LogOptions{Console: os.Stderr})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}
	code := run(os.Args[1:], os.Stdout, os.Stderr)
	common.CloseLogging()
	os.Exit(code)
}
