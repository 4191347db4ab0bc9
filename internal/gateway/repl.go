package gateway

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"wassistant/internal/chat"
)

var (
	titleStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("28")).
			Foreground(lipgloss.Color("230")).
			Padding(0, 1).
			Bold(true)
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	replyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).PaddingLeft(2)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const replHelp = "/image <path> [caption]  send an image turn\n/help  show this help\n/exit  quit"

// Run is an interactive session that plays the user userID/name against the
// assistant, reading lines from in and writing replies to out. imagePath, if
// set, is attached to the first message only.
func (g *Gateway) Run(ctx context.Context, in io.Reader, out io.Writer, userID, name, imagePath string) error {
	fmt.Fprintln(out, titleStyle.Render("wassistant"))
	fmt.Fprintln(out, helpStyle.Render(fmt.Sprintf("chatting as %s (%s), assistant=%s", name, userID, g.cfg.OpenAI.AssistantID)))
	fmt.Fprintln(out, helpStyle.Render(replHelp))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, promptStyle.Render("> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		req := chat.Request{UserID: userID, Name: name, Body: line, ImagePath: imagePath}
		switch {
		case line == "/exit" || line == "exit" || line == "quit":
			return nil
		case line == "/help":
			fmt.Fprintln(out, helpStyle.Render(replHelp))
			continue
		case line == "/image" || strings.HasPrefix(line, "/image "):
			path, caption, ok := parseImageCommand(line)
			if !ok {
				fmt.Fprintln(out, errorStyle.Render("usage: /image <path> [caption]"))
				continue
			}
			req.ImagePath, req.Body = path, caption
		}
		imagePath = ""

		reply := g.Execute(ctx, req)
		fmt.Fprintln(out, replyStyle.Render(reply))
	}
}

func parseImageCommand(line string) (path, caption string, ok bool) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "/image"))
	if rest == "" {
		return "", "", false
	}
	path, caption, _ = strings.Cut(rest, " ")
	return path, strings.TrimSpace(caption), true
}
