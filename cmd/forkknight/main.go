// Package main implements the interactive terminal client for the forkknight
// server: games against the computer, puzzles and lessons.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"forkknight/internal/client/commands"
	"forkknight/internal/client/display"
	"forkknight/internal/client/session"
)

func main() {
	apiURL := flag.String("api", "http://localhost:8080", "Server base URL")
	history := flag.String("history", ".forkknight_history", "Command history file, empty to disable")
	flag.Parse()

	s := session.New(*apiURL, os.Stdout)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          display.Prompt("forkknight"),
		HistoryFile:     *history,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s%s%s\n", display.Red, err.Error(), display.Reset)
		os.Exit(1)
	}
	defer rl.Close()

	// Command output shares the terminal with the prompt
	s.Out = rl.Stdout()
	s.Client.Out = s.Out

	fmt.Fprintf(s.Out, "%sForkknight%s\n", display.Cyan, display.Reset)
	fmt.Fprintf(s.Out, "%sAPI: %s%s\n", display.Cyan, s.APIBaseURL, display.Reset)
	fmt.Fprintf(s.Out, "Type 'help' for commands\n\n")

	registry := commands.NewRegistry(s)

	for !s.Quit {
		rl.SetPrompt(buildPrompt(s))

		line, err := rl.Readline()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Interrupt clears the line
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" {
			break
		}

		s.Verbose = false
		if strings.HasSuffix(line, " -v") {
			s.Verbose = true
			line = strings.TrimSuffix(line, " -v")
		}

		registry.Execute(line)
	}
}

func buildPrompt(s *session.Session) string {
	var parts []string

	if s.Username != "" {
		parts = append(parts, display.Magenta+s.Username+display.Reset)
	}
	if s.CurrentGame != "" {
		game := s.CurrentGame
		if len(game) > 8 {
			game = game[:8]
		}
		parts = append(parts, display.White+game+display.Reset)
	}
	if s.PuzzleID != "" {
		parts = append(parts, display.Green+s.PuzzleID+display.Reset)
	}

	prompt := "forkknight"
	if len(parts) > 0 {
		prompt += display.Yellow + " [" + display.Reset +
			strings.Join(parts, display.Yellow+" - "+display.Reset) + display.Yellow + "]"
	}

	if g := s.CurrentGameState; g != nil {
		who := "h"
		next := g.Players.White
		if g.Turn == "b" {
			next = g.Players.Black
		}
		if next.IsComputer() {
			who = "c"
		}
		if color := s.PlayerColor(); color != "" && color == g.Turn {
			who = "you"
		}
		prompt += fmt.Sprintf(" - Turn:%s(%s)", display.ColorForTurn(g.Turn), who)
	}

	return display.Prompt(prompt)
}
