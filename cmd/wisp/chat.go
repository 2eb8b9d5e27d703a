package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wispchat/wisp/pkg/chat"
	"github.com/wispchat/wisp/pkg/transcript"
)

func newChatCmd() *cobra.Command {
	var elevated bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			if elevated {
				a.cfg.Elevated = true
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return runRepl(ctx, a) })
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&elevated, "elevated", false, "grant elevated privilege (enables search augmentation)")
	return cmd
}

func runRepl(ctx context.Context, a *app) error {
	var printed int
	orch, err := a.orchestrator(func(t transcript.Turn) {
		if t.Sender != transcript.SenderAssistant {
			return
		}
		// Print only what streaming added since the last update; a shrink
		// means the text was replaced (placeholder or secondary round).
		if len(t.Text) < printed {
			fmt.Print("\n---\n")
			printed = 0
		}
		fmt.Print(t.Text[printed:])
		printed = len(t.Text)
	})
	if err != nil {
		return err
	}

	fmt.Println("wisp: type a message, /summarize <file>, /describe <file>, /clear or /quit")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if done, err := handleCommand(ctx, a, line); done {
			return err
		} else if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		} else if strings.HasPrefix(line, "/") {
			continue
		}

		printed = 0
		turn, err := orch.Send(ctx, chat.Submission{Text: line})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Println()
		renderSettled(turn)
	}
}

// handleCommand processes slash commands. It returns done=true when the
// REPL should exit.
func handleCommand(ctx context.Context, a *app, line string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/clear":
		return false, a.transcript.Clear()
	case "/summarize", "/describe":
		if len(fields) < 2 {
			return false, errors.Errorf("usage: %s <file>", fields[0])
		}
		return false, describeFile(ctx, a, fields[0], fields[1])
	default:
		if strings.HasPrefix(fields[0], "/") {
			return false, errors.Errorf("unknown command %s", fields[0])
		}
		return false, nil
	}
}

func describeFile(ctx context.Context, a *app, cmd, path string) error {
	client, err := a.describeClient()
	if err != nil {
		return err
	}
	uri, err := fileDataURI(path)
	if err != nil {
		return err
	}
	var out string
	if cmd == "/summarize" {
		out, err = client.SummarizeDocument(ctx, uri)
	} else {
		out, err = client.DescribeImage(ctx, uri)
	}
	if err != nil {
		return err
	}
	fmt.Println(out)

	// Keep the result in the transcript so later turns can refer to it.
	summary := transcript.NewTurn(transcript.SenderAssistant, out)
	summary.Kind = transcript.KindSummary
	summary.AttachmentName = filepath.Base(path)
	return a.transcript.Append(summary)
}

func fileDataURI(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "read attachment")
	}
	mt := mime.TypeByExtension(filepath.Ext(path))
	if mt == "" {
		mt = "application/octet-stream"
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}

// renderSettled re-renders the settled turn through glamour on a terminal,
// after the raw fragments already streamed to stdout.
func renderSettled(t transcript.Turn) {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return
	}
	out, err := r.Render(t.Text)
	if err != nil {
		return
	}
	fmt.Print("\n" + out)
	if t.Reasoning != "" {
		fmt.Printf("  (%s, %.1fs)\n", t.Reasoning, t.DurationSeconds)
	}
}
