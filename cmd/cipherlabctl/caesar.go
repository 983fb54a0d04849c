package main

import (
	"flag"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

func runCaesar(g *globals, args []string) int {
	action, rest, ok := subcommand(g, "caesar", args, "encrypt", "decrypt", "attack")
	if !ok {
		return 2
	}

	fs := flag.NewFlagSet("caesar "+action, flag.ContinueOnError)
	fs.SetOutput(g.stderr)
	text := fs.String("text", "", "input text (defaults to arguments or stdin)")
	shift := fs.Int("shift", -1, "shift 0-255 (server default when omitted)")
	top := fs.Int("top", 5, "number of attack candidates to print")
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
	if action != "attack" && *shift >= 0 {
		if body, err = sjson.Set(body, "shift", *shift); err != nil {
			return g.fail(err)
		}
	}

	resp, err := g.post("/caesar/"+action, body)
	if err != nil {
		return g.fail(err)
	}
	if g.emit(resp) {
		return 0
	}
	if action != "attack" {
		fmt.Fprintln(g.stdout, gjson.Get(resp, "result").String())
		return 0
	}
	printCandidates(g, resp, *top)
	return 0
}

type candidate struct {
	shift     int64
	score     float64
	decrypted string
}

// printCandidates lists the lowest-scoring hypotheses first.
func printCandidates(g *globals, resp string, top int) {
	var candidates []candidate
	gjson.Get(resp, "results").ForEach(func(_, v gjson.Result) bool {
		candidates = append(candidates, candidate{
			shift:     v.Get("shift").Int(),
			score:     v.Get("score").Float(),
			decrypted: v.Get("decrypted").String(),
		})
		return true
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score < candidates[j].score
	})
	if top > 0 && len(candidates) > top {
		candidates = candidates[:top]
	}
	fmt.Fprintf(g.stdout, "best shift: %d\n", gjson.Get(resp, "best_shift").Int())
	for _, c := range candidates {
		fmt.Fprintf(g.stdout, "%3d  %10.2f  %q\n", c.shift, c.score, c.decrypted)
	}
}
