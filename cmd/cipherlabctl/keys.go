package main

import (
	"flag"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

func runKeys(g *globals, args []string) int {
	_, rest, ok := subcommand(g, "keys", args, "generate")
	if !ok {
		return 2
	}
	fs := flag.NewFlagSet("keys generate", flag.ContinueOnError)
	fs.SetOutput(g.stderr)
	cipherName := fs.String("cipher", "", "caesar, monoalphabetic or des")
	if err := fs.Parse(rest); err != nil {
		return 2
	}
	if *cipherName == "" && fs.NArg() > 0 {
		*cipherName = fs.Arg(0)
	}
	if *cipherName == "" {
		fmt.Fprintln(g.stderr, "--cipher is required")
		return 2
	}

	body, err := sjson.Set("", "cipher", *cipherName)
	if err != nil {
		return g.fail(err)
	}
	resp, err := g.post("/keys/generate", body)
	if err != nil {
		return g.fail(err)
	}
	// The envelope is printed as-is so it can be pasted back as a key.
	fmt.Fprintln(g.stdout, gjson.Get(resp, "@ugly").String())
	return 0
}

func runOps(g *globals, args []string) int {
	fs := flag.NewFlagSet("ops", flag.ContinueOnError)
	fs.SetOutput(g.stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	resp, err := g.get("/operations")
	if err != nil {
		return g.fail(err)
	}
	if g.emit(resp) {
		return 0
	}
	gjson.Get(resp, "operations").ForEach(func(_, op gjson.Result) bool {
		reversible := ""
		if op.Get("reversible").Bool() {
			reversible = " (reversible)"
		}
		fmt.Fprintf(g.stdout, "%-22s %-8s %s%s\n", op.Get("name").String(), op.Get("type").String(), op.Get("description").String(), reversible)
		return true
	})
	return 0
}

func runPipeline(g *globals, args []string) int {
	fs := flag.NewFlagSet("pipeline", flag.ContinueOnError)
	fs.SetOutput(g.stderr)
	text := fs.String("text", "", "input text (defaults to arguments or stdin)")
	ops := fs.String("ops", "", `operations as JSON, e.g. [{"name":"caesar_encrypt","parameters":{"shift":3}}]`)
	reverse := fs.Bool("reverse", false, "run the inverse pipeline")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !gjson.Valid(*ops) || !gjson.Parse(*ops).IsArray() {
		fmt.Fprintln(g.stderr, "--ops must be a JSON array")
		return 2
	}
	input, err := inputText(g, *text, fs.Args())
	if err != nil {
		return g.fail(err)
	}

	body, err := sjson.Set("", "input", input)
	if err != nil {
		return g.fail(err)
	}
	if body, err = sjson.SetRaw(body, "operations", *ops); err != nil {
		return g.fail(err)
	}
	if *reverse {
		if body, err = sjson.Set(body, "reverse", true); err != nil {
			return g.fail(err)
		}
	}

	resp, err := g.post("/pipeline", body)
	if err != nil {
		return g.fail(err)
	}
	if g.emit(resp) {
		return 0
	}
	fmt.Fprintln(g.stdout, gjson.Get(resp, "output").String())
	return 0
}
