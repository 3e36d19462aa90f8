package commands

import (
	"fmt"
	"strings"

	"forkknight/internal/client/display"
	"forkknight/internal/client/session"
)

// Command defines a client command with its handler
type Command struct {
	Name        string
	ShortName   string
	Description string
	Usage       string
	Handler     func(*session.Session, []string) error
}

// Registry manages command registration and execution
type Registry struct {
	session  *session.Session
	commands map[string]*Command
}

func NewRegistry(s *session.Session) *Registry {
	r := &Registry{
		session:  s,
		commands: make(map[string]*Command),
	}

	r.registerGameCommands()
	r.registerPuzzleCommands()
	r.registerLessonCommands()
	r.registerAuthCommands()
	r.registerDebugCommands()

	r.Register(&Command{
		Name:        "help",
		ShortName:   "?",
		Description: "Show available commands",
		Usage:       "help [command]",
		Handler:     r.helpHandler,
	})

	r.Register(&Command{
		Name:        "exit",
		ShortName:   "x",
		Description: "Exit the client",
		Usage:       "exit",
		Handler:     exitHandler,
	})

	return r
}

func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	if cmd.ShortName != "" {
		r.commands[cmd.ShortName] = cmd
	}
}

func (r *Registry) Execute(input string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	out := r.session.Out
	cmd, exists := r.commands[parts[0]]
	if !exists {
		fmt.Fprintf(out, "%sUnknown command: %s%s\n", display.Red, parts[0], display.Reset)
		fmt.Fprintln(out, "Type 'help' for available commands")
		return
	}

	r.session.Client.SetVerbose(r.session.Verbose)

	if err := cmd.Handler(r.session, parts[1:]); err != nil {
		fmt.Fprintf(out, "%sError: %s%s\n", display.Red, err.Error(), display.Reset)
	}
}

var commandGroups = []struct {
	title string
	names []string
}{
	{"Game Commands", []string{"new", "join", "players", "move", "computer", "undo", "show", "state", "legal", "hint", "resign", "delete", "poll"}},
	{"Puzzle Commands", []string{"daily", "next", "puzzle", "pmove", "phint", "preset", "pstate"}},
	{"Lesson Commands", []string{"lessons", "lesson", "check", "complete", "progress"}},
	{"Auth Commands", []string{"register", "login", "logout", "whoami"}},
	{"Utility Commands", []string{"health", "url", "raw", "clear", "help", "exit"}},
}

func (r *Registry) helpHandler(s *session.Session, args []string) error {
	out := s.Out
	if len(args) > 0 {
		cmd, exists := r.commands[args[0]]
		if !exists {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		fmt.Fprintf(out, "\n%s%s%s - %s\n", display.Cyan, cmd.Name, display.Reset, cmd.Description)
		if cmd.ShortName != "" {
			fmt.Fprintf(out, "Short form: %s%s%s\n", display.Cyan, cmd.ShortName, display.Reset)
		}
		fmt.Fprintf(out, "Usage: %s\n", cmd.Usage)
		return nil
	}

	fmt.Fprintf(out, "\n%sAvailable Commands:%s\n", display.Cyan, display.Reset)
	for _, group := range commandGroups {
		fmt.Fprintf(out, "\n%s%s:%s\n", display.Yellow, group.title, display.Reset)
		for _, name := range group.names {
			cmd, exists := r.commands[name]
			if !exists {
				continue
			}
			shortPart := "    "
			if cmd.ShortName != "" {
				shortPart = fmt.Sprintf("[%s%s%s] ", display.Cyan, cmd.ShortName, display.Reset)
				if len(cmd.ShortName) == 1 {
					shortPart += " "
				}
			}
			fmt.Fprintf(out, "  %s%-10s %s\n", shortPart, cmd.Name, cmd.Description)
		}
	}

	fmt.Fprintln(out, "\nType 'help <command>' for detailed usage")
	fmt.Fprintln(out, "Add '-v' to any command for verbose output")
	return nil
}

func exitHandler(s *session.Session, args []string) error {
	fmt.Fprintf(s.Out, "%sGoodbye!%s\n", display.Cyan, display.Reset)
	s.Quit = true
	return nil
}

// requireGame returns the current game id or a usage error
func requireGame(s *session.Session) (string, error) {
	if s.CurrentGame == "" {
		return "", fmt.Errorf("no current game, use 'new' or 'join <gameId>'")
	}
	return s.CurrentGame, nil
}
