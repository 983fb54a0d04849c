package main

import (
	"flag"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

func runMono(g *globals, args []string) int {
	action, rest, ok := subcommand(g, "mono", args, "encrypt", "decrypt", "attack")
	if !ok {
		return 2
	}

	fs := flag.NewFlagSet("mono "+action, flag.ContinueOnError)
	fs.SetOutput(g.stderr)
	text := fs.String("text", "", "input text (defaults to arguments or stdin)")
	key := fs.String("key", "", `substitution key as JSON, e.g. {"a":"q","b":"w"} or a key envelope`)
	if err := fs.Parse(rest); err != nil {
		return 2
	}
	input, err := inputText(g, *text, fs.Args())
	if err != nil {
		return g.fail(err)
	}

	body, err := sjson.Set("", "text", input)
	if err != nil {
		return g.fail(err)
	}
	if *key != "" && action != "attack" {
		if !gjson.Valid(*key) {
			fmt.Fprintln(g.stderr, "--key must be valid JSON")
			return 2
		}
		if body, err = sjson.SetRaw(body, "substitution_key", *key); err != nil {
			return g.fail(err)
		}
	}

	resp, err := g.post("/monoalphabetic/"+action, body)
	if err != nil {
		return g.fail(err)
	}
	if g.emit(resp) {
		return 0
	}
	switch action {
	case "encrypt":
		fmt.Fprintln(g.stdout, gjson.Get(resp, "result").String())
		fmt.Fprintf(g.stdout, "key: %s\n", gjson.Get(resp, "key").Raw)
	case "decrypt":
		fmt.Fprintln(g.stdout, gjson.Get(resp, "result").String())
	case "attack":
		gjson.Get(resp, "results").ForEach(func(_, v gjson.Result) bool {
			fmt.Fprintf(g.stdout, "%s\n  %s\n", v.Get("description").String(), v.Get("frequencies").String())
			return true
		})
	}
	return 0
}
