package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"forkknight/internal/client/api"
	"forkknight/internal/client/display"
	"forkknight/internal/client/session"
)

func (r *Registry) registerAuthCommands() {
	r.Register(&Command{
		Name:        "register",
		ShortName:   "r",
		Description: "Register a new user",
		Usage:       "register <username> [email]",
		Handler:     registerHandler,
	})

	r.Register(&Command{
		Name:        "login",
		ShortName:   "l",
		Description: "Login with credentials",
		Usage:       "login <username|email>",
		Handler:     loginHandler,
	})

	r.Register(&Command{
		Name:        "logout",
		ShortName:   "o",
		Description: "End the session",
		Usage:       "logout",
		Handler:     logoutHandler,
	})

	r.Register(&Command{
		Name:        "whoami",
		ShortName:   "i",
		Description: "Show current user",
		Usage:       "whoami",
		Handler:     whoamiHandler,
	})
}

// readPassword prompts without echo on a terminal and reads a plain line
// otherwise
var readPassword = func(s *session.Session, prompt string) (string, error) {
	fmt.Fprint(s.Out, prompt)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(s.Out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func registerHandler(s *session.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: register <username> [email]")
	}
	email := ""
	if len(args) > 1 {
		email = args[1]
	}

	password, err := readPassword(s, display.Yellow+"Password: "+display.Reset)
	if err != nil {
		return err
	}

	resp, err := s.Client.Register(args[0], password, email)
	if err != nil {
		return err
	}
	signedIn(s, resp, "Registered successfully")
	return nil
}

func loginHandler(s *session.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: login <username|email>")
	}

	password, err := readPassword(s, display.Yellow+"Password: "+display.Reset)
	if err != nil {
		return err
	}

	resp, err := s.Client.Login(args[0], password)
	if err != nil {
		return err
	}
	signedIn(s, resp, "Logged in successfully")
	return nil
}

func signedIn(s *session.Session, resp *api.AuthResponse, msg string) {
	s.SetAuth(resp.Token, resp.UserID, resp.Username)

	fmt.Fprintf(s.Out, "%s%s%s\n", display.Green, msg, display.Reset)
	fmt.Fprintf(s.Out, "User ID:  %s\n", resp.UserID)
	fmt.Fprintf(s.Out, "Username: %s\n", resp.Username)
	fmt.Fprintf(s.Out, "Session expires %s\n", resp.ExpiresAt.Local().Format(time.DateTime))
}

func logoutHandler(s *session.Session, args []string) error {
	if s.AuthToken == "" {
		fmt.Fprintf(s.Out, "%sNot authenticated%s\n", display.Yellow, display.Reset)
		return nil
	}

	err := s.Client.Logout()
	s.SetAuth("", "", "")
	if err != nil {
		// Local credentials are gone either way
		fmt.Fprintf(s.Out, "%sServer logout failed: %s%s\n", display.Yellow, err.Error(), display.Reset)
	}

	fmt.Fprintf(s.Out, "%sLogged out%s\n", display.Green, display.Reset)
	return nil
}

func whoamiHandler(s *session.Session, args []string) error {
	if s.AuthToken == "" {
		fmt.Fprintf(s.Out, "%sNot authenticated%s\n", display.Yellow, display.Reset)
		return nil
	}

	user, err := s.Client.GetCurrentUser()
	if err != nil {
		return err
	}

	fmt.Fprintf(s.Out, "%sCurrent User:%s\n", display.Cyan, display.Reset)
	fmt.Fprintf(s.Out, "  User ID:  %s\n", user.UserID)
	fmt.Fprintf(s.Out, "  Username: %s\n", user.Username)
	if user.Email != "" {
		fmt.Fprintf(s.Out, "  Email:    %s\n", user.Email)
	}
	fmt.Fprintf(s.Out, "  Account:  %s\n", user.AccountType)
	fmt.Fprintf(s.Out, "  Created:  %s\n", user.CreatedAt.Local().Format(time.DateTime))
	if user.ExpiresAt != nil {
		fmt.Fprintf(s.Out, "  Expires:  %s\n", user.ExpiresAt.Local().Format(time.DateTime))
	}
	return nil
}
