package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-go-golems/carechat/pkg/chat"
	"github.com/go-go-golems/carechat/pkg/render"
	"github.com/pkg/errors"
)

// QuitCommand ends a line-mode session.
const QuitCommand = "/quit"

// LinePrinter writes the blocks a conversation gained since the last Flush.
// The crisis banner is written once, the first time it becomes visible.
type LinePrinter struct {
	out      io.Writer
	renderer *render.TerminalRenderer
	width    int

	printed     int
	bannerShown bool
}

func NewLinePrinter(out io.Writer, renderer *render.TerminalRenderer, width int) *LinePrinter {
	return &LinePrinter{out: out, renderer: renderer, width: width}
}

func (p *LinePrinter) Flush(conv *chat.Conversation) error {
	v := render.Project(conv.Snapshot())
	messages := 0
	for _, b := range v.Blocks {
		switch b.Kind {
		case render.BlockCrisisBanner:
			if p.bannerShown {
				continue
			}
			p.bannerShown = true
		case render.BlockMessage:
			messages++
			if messages <= p.printed {
				continue
			}
		default:
			continue
		}
		if _, err := fmt.Fprintln(p.out, p.renderer.Block(b, v.Helplines, p.width, "")); err != nil {
			return errors.Wrap(err, "write output")
		}
	}
	p.printed = messages
	return nil
}

// Run reads one message per line from in and flushes after each exchange.
// It returns when in is exhausted, the quit command is read, or ctx is done.
func (p *LinePrinter) Run(ctx context.Context, conv *chat.Conversation, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == QuitCommand {
			return nil
		}
		if _, err := conv.Submit(ctx, line); err != nil && ctx.Err() != nil {
			_ = p.Flush(conv)
			return ctx.Err()
		}
		if err := p.Flush(conv); err != nil {
			return err
		}
	}
	return errors.Wrap(scanner.Err(), "read input")
}

// RunLineMode runs a line-mode session with a fresh printer.
func RunLineMode(
	ctx context.Context,
	conv *chat.Conversation,
	in io.Reader,
	out io.Writer,
	renderer *render.TerminalRenderer,
	width int,
) error {
	return NewLinePrinter(out, renderer, width).Run(ctx, conv, in)
}
