package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fpang/ai-stylist/internal/outfit"
	"github.com/fpang/ai-stylist/internal/refine"
)

const sessionHelp = `Commands:
  a, b        toggle an option
  f <text>    set feedback ("벨트가 없어요")
  r           refine: route items and get a new pair
  w           add the selected options to the wardrobe
  q           end the session`

// RunSession drives one refinement session through p. It returns when the
// user quits or input ends.
func RunSession(ctx context.Context, c *refine.Controller, s *refine.Session, info outfit.RequestInfo, p *Prompter) error {
	out := p.out
	view, err := c.Start(ctx, s, info)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, sessionHelp)
	printView(out, view)

	for {
		line, ok := p.Ask(">", "")
		if !ok {
			return c.End(s)
		}
		cmd, arg, _ := strings.Cut(line, " ")
		switch strings.ToLower(cmd) {
		case "":
		case "a", "b":
			opt, _ := outfit.ParseOption(cmd)
			if view, err = c.Toggle(s, opt); err != nil {
				return err
			}
			fmt.Fprintf(out, "selected: %s\n", strings.Join(view.Selected, ", "))
		case "f":
			if view, err = c.SetFeedback(s, arg); err != nil {
				return err
			}
		case "r":
			res, err := c.Refine(ctx, s)
			if res != nil {
				printCycle(out, res)
			}
			if err != nil {
				fmt.Fprintf(out, "refine failed: %v\n", err)
				continue
			}
			printView(out, res.Session)
		case "w":
			res, err := c.AddToWardrobe(ctx, s)
			if errors.Is(err, refine.ErrNoSelection) {
				fmt.Fprintln(out, "select A or B first")
				continue
			}
			if err != nil {
				fmt.Fprintf(out, "add to wardrobe failed: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "added %d items to the wardrobe\n", res.Count)
		case "q":
			return c.End(s)
		default:
			fmt.Fprintln(out, sessionHelp)
		}
	}
}

func printView(out io.Writer, v refine.View) {
	if v.Weather != "" {
		fmt.Fprintf(out, "\n날씨: %s\n", v.Weather)
	}
	if v.Pair == nil {
		return
	}
	for _, o := range outfit.Options() {
		r, _ := v.Pair.Option(o)
		fmt.Fprintf(out, "\n[%s] %s\n", o, r.Summary)
		for _, cat := range outfit.Categories() {
			if item := r.Item(cat); !outfit.IsNotApplicable(item) {
				fmt.Fprintf(out, "    %-8s %s\n", cat, item)
			}
		}
	}
	fmt.Fprintf(out, "\n(%d pairs excluded so far)\n", len(v.History))
}

func printCycle(out io.Writer, res *refine.CycleResult) {
	if len(res.Missing) > 0 {
		names := make([]string, len(res.Missing))
		for i, c := range res.Missing {
			names[i] = string(c)
		}
		fmt.Fprintf(out, "missing: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(out, "shopping list +%d, wardrobe +%d\n", len(res.Shopping), len(res.Wardrobe))
	for _, n := range res.Notices {
		fmt.Fprintf(out, "warning (%s): %s\n", n.Destination, n.Message)
	}
}
