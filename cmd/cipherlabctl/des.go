package main

import (
	"flag"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

func runDES(g *globals, args []string) int {
	action, rest, ok := subcommand(g, "des", args, "encrypt", "decrypt")
	if !ok {
		return 2
	}

	fs := flag.NewFlagSet("des "+action, flag.ContinueOnError)
	fs.SetOutput(g.stderr)
	text := fs.String("text", "", "plaintext, or hex ciphertext for decrypt (defaults to arguments or stdin)")
	key := fs.String("key", "", "64-character binary key (generated on encrypt when omitted)")
	padding := fs.String("padding", "", "pkcs7 or zero (server default when omitted)")
	if err := fs.Parse(rest); err != nil {
		return 2
	}
	if action == "decrypt" && *key == "" {
		fmt.Fprintln(g.stderr, "--key is required for decrypt")
		return 2
	}
	input, err := inputText(g, *text, fs.Args())
	if err != nil {
		return g.fail(err)
	}

	field := "plaintext"
	if action == "decrypt" {
		field = "ciphertext"
	}
	body, err := sjson.Set("", field, input)
	if err != nil {
		return g.fail(err)
	}
	for path, value := range map[string]string{"key": *key, "padding": *padding} {
		if value == "" {
			continue
		}
		if body, err = sjson.Set(body, path, value); err != nil {
			return g.fail(err)
		}
	}

	resp, err := g.post("/"+action, body)
	if err != nil {
		return g.fail(err)
	}
	if g.emit(resp) {
		return 0
	}
	if action == "encrypt" {
		fmt.Fprintln(g.stdout, gjson.Get(resp, "encrypted").String())
		fmt.Fprintf(g.stdout, "key: %s\n", gjson.Get(resp, "key").String())
		return 0
	}
	fmt.Fprintln(g.stdout, gjson.Get(resp, "decrypted").String())
	return 0
}
