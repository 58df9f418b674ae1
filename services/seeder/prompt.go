package seeder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"afterseed/pkg/seed"
)

// Prompter asks generator questions on a terminal. Empty answers take the
// default: "no" for columns, the offered bounds for the id range.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer

	announced map[string]bool
}

var (
	_ seed.ColumnSelector = (*Prompter)(nil)
	_ seed.RangePrompt    = (*Prompter)(nil)
)

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, announced: map[string]bool{}}
}

func (p *Prompter) SelectColumn(ctx context.Context, table, column string) (bool, error) {
	p.section("Columns")
	for {
		answer, err := p.ask(ctx, fmt.Sprintf("Add column %q ? (yes/no) [no]", column))
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "", "n", "no":
			return false, nil
		case "y", "yes":
			return true, nil
		}
		fmt.Fprintln(p.out, "Please answer yes or no.")
	}
}

func (p *Prompter) Range(ctx context.Context, table string, defaultFrom, defaultTo int64) (int64, int64, error) {
	p.section("Range")
	from, err := p.askInt(ctx, fmt.Sprintf("%s.id from", table), defaultFrom)
	if err != nil {
		return 0, 0, err
	}
	to, err := p.askInt(ctx, fmt.Sprintf("%s.id to", table), defaultTo)
	if err != nil {
		return 0, 0, err
	}
	return from, to, nil
}

func (p *Prompter) section(title string) {
	if p.announced[title] {
		return
	}
	p.announced[title] = true
	fmt.Fprintln(p.out, title)
}

func (p *Prompter) askInt(ctx context.Context, question string, def int64) (int64, error) {
	for {
		answer, err := p.ask(ctx, fmt.Sprintf("%s [%d]", question, def))
		if err != nil {
			return 0, err
		}
		if answer == "" {
			return def, nil
		}
		n, err := strconv.ParseInt(answer, 10, 64)
		if err == nil {
			return n, nil
		}
		fmt.Fprintf(p.out, "%q is not a whole number.\n", answer)
	}
}

func (p *Prompter) ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintf(p.out, " %s:\n > ", question)
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", errors.New("input closed before an answer was given")
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
