package command

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"

	"github.com/keshon/commandclient/pkg/cmd"
)

var (
	tokenRegex = regexp.MustCompile(`(?i)(\d*d\d+|\d+|[+\-*/])`)
	diceRegex  = regexp.MustCompile(`(?i)^(\d*)d(\d+)$`)
	validOps   = map[string]bool{"+": true, "-": true, "*": true, "/": true}

	// rollDie returns a value in [1, sides].
	rollDie = func(sides int) int { return rand.IntN(sides) + 1 }
)

var (
	errEmptyFormula = errors.New("can't parse your formula, try something like `2d6+1d4*2-3`")
	errNothing      = errors.New("can't multiply or divide by nothing")
	errDivByZero    = errors.New("can't divide by zero")
)

type term struct {
	value int
	desc  string
	op    string
}

type RollCommand struct {
	cmd.Base
}

func NewRoll() *RollCommand {
	return &RollCommand{Base: cmd.Base{
		Label:   "roll",
		Alias:   []string{"dice"},
		Summary: "Roll dice like `2d20+1d6-2`",
		Params:  []cmd.Param{{Name: "formula", Rest: true, Default: "1d6"}},
	}}
}

func (c *RollCommand) Category() string { return categoryGameplay }

func (c *RollCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	formula := strings.ReplaceAll(inv.Args.Get("formula"), " ", "")

	total, pretty, err := evaluate(formula)
	if err != nil {
		_, rerr := inv.Reply(ctx, err.Error())
		return rerr
	}

	_, err = inv.Reply(ctx, fmt.Sprintf("🎲 `%s`: %s = **%d**", formula, pretty, total))
	return err
}

// evaluate computes formula left to right, with * and / binding to the term
// before them.
func evaluate(formula string) (int, string, error) {
	tokens := tokenRegex.FindAllString(formula, -1)
	if len(tokens) == 0 {
		return 0, "", errEmptyFormula
	}

	var terms []term
	currentOp := "+"
	for _, token := range tokens {
		if validOps[token] {
			currentOp = token
			continue
		}
		val, desc, err := evaluateToken(token)
		if err != nil {
			return 0, "", fmt.Errorf("failed to evaluate `%s`: %w", token, err)
		}
		terms = append(terms, term{value: val, desc: desc, op: currentOp})
		currentOp = "+"
	}

	var merged []term
	for _, t := range terms {
		if t.op != "*" && t.op != "/" {
			merged = append(merged, t)
			continue
		}
		if len(merged) == 0 {
			return 0, "", errNothing
		}
		prev := merged[len(merged)-1]
		merged = merged[:len(merged)-1]

		switch t.op {
		case "*":
			prev.value *= t.value
		case "/":
			if t.value == 0 {
				return 0, "", errDivByZero
			}
			prev.value /= t.value
		}
		prev.desc = fmt.Sprintf("%s %s %s", prev.desc, t.op, t.desc)
		merged = append(merged, prev)
	}

	total := 0
	var sb strings.Builder
	for i, t := range merged {
		if i > 0 {
			sb.WriteString(" " + t.op + " ")
		}
		sb.WriteString(t.desc)
		if t.op == "-" {
			total -= t.value
		} else {
			total += t.value
		}
	}
	return total, sb.String(), nil
}

func evaluateToken(token string) (int, string, error) {
	matches := diceRegex.FindStringSubmatch(token)
	if matches == nil {
		n, err := strconv.Atoi(token)
		if err != nil {
			return 0, "", fmt.Errorf("invalid number")
		}
		return n, token, nil
	}

	count := 1
	if matches[1] != "" {
		n, err := strconv.Atoi(matches[1])
		if err != nil || n < 1 {
			return 0, "", fmt.Errorf("invalid dice count")
		}
		count = n
	}
	sides, err := strconv.Atoi(matches[2])
	if err != nil || sides < 2 {
		return 0, "", fmt.Errorf("invalid dice sides")
	}
	if count > 100 || sides > 1000 {
		return 0, "", fmt.Errorf("too big. max 100 dice, 1000 sides")
	}

	sum := 0
	rolls := make([]string, count)
	for i := range count {
		r := rollDie(sides)
		sum += r
		rolls[i] = strconv.Itoa(r)
	}
	return sum, fmt.Sprintf("%dd%d[%s]", count, sides, strings.Join(rolls, ",")), nil
}

func init() {
	cmd.Provide(NewRoll())
}
