package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/RowanDark/cipherlab/internal/config"
)

const cliBanner = "cipherlab CLI (cipherlabctl)"

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// globals are the flags shared by every subcommand.
type globals struct {
	server  string
	timeout time.Duration
	raw     bool
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

func defaultServer() string {
	if env := strings.TrimSpace(os.Getenv("CIPHERLAB_SERVER")); env != "" {
		return env
	}
	return "http://" + config.Default().Addr
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cipherlabctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, cliBanner)
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "usage: cipherlabctl [flags] <caesar|mono|des|keys|ops|pipeline|version> ...")
		fs.PrintDefaults()
	}
	server := fs.String("server", defaultServer(), "base URL of the cipherlab HTTP API")
	timeout := fs.Duration("timeout", 30*time.Second, "request timeout")
	raw := fs.Bool("json", false, "print the raw JSON response")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}
	g := &globals{
		server:  strings.TrimRight(strings.TrimSpace(*server), "/"),
		timeout: *timeout,
		raw:     *raw,
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
	}

	switch rest[0] {
	case "caesar":
		return runCaesar(g, rest[1:])
	case "mono", "monoalphabetic":
		return runMono(g, rest[1:])
	case "des":
		return runDES(g, rest[1:])
	case "keys":
		return runKeys(g, rest[1:])
	case "ops":
		return runOps(g, rest[1:])
	case "pipeline":
		return runPipeline(g, rest[1:])
	case "version":
		fmt.Fprintln(stdout, version)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", rest[0])
		fs.Usage()
		return 2
	}
}

// subcommand splits "<action> [flags]" and checks the action is known.
func subcommand(g *globals, name string, args []string, actions ...string) (string, []string, bool) {
	if len(args) == 0 {
		fmt.Fprintf(g.stderr, "%s subcommand required (%s)\n", name, strings.Join(actions, ", "))
		return "", nil, false
	}
	for _, a := range actions {
		if args[0] == a {
			return a, args[1:], true
		}
	}
	fmt.Fprintf(g.stderr, "unknown %s subcommand: %s\n", name, args[0])
	return "", nil, false
}

// inputText returns the -text flag, then positional arguments, then stdin.
func inputText(g *globals, flagValue string, positional []string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if len(positional) > 0 {
		return strings.Join(positional, " "), nil
	}
	data, err := io.ReadAll(g.stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimRight(string(data), "\r\n")
	if text == "" {
		return "", fmt.Errorf("no input text: pass -text, arguments or stdin")
	}
	return text, nil
}
