// Package cli holds the server's offline admin commands: database setup
// and queries, user management, and puzzle catalog import.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/lixenwraith/auth"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"forkknight/internal/server/core"
	"forkknight/internal/server/puzzle"
	"forkknight/internal/server/storage"
)

const minPasswordLength = 8

// stdout is where command output goes
var stdout io.Writer = os.Stdout

// Run dispatches "db", "user" and "puzzles" commands
func Run(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: db init|delete|query, user add|delete|set-password|promote|list, puzzles import|validate|list")
	}

	group, sub, rest := args[0], args[1], args[2:]
	switch group {
	case "db":
		switch sub {
		case "init":
			return runInit(rest)
		case "delete":
			return runDelete(rest)
		case "query":
			return runQuery(rest)
		}
	case "user":
		switch sub {
		case "add":
			return runUserAdd(rest)
		case "delete":
			return runUserDelete(rest)
		case "set-password":
			return runUserSetPassword(rest)
		case "promote":
			return runUserPromote(rest)
		case "list":
			return runUserList(rest)
		}
	case "puzzles":
		switch sub {
		case "import":
			return runPuzzlesImport(rest)
		case "validate":
			return runPuzzlesValidate(rest)
		case "list":
			return runPuzzlesList(rest)
		}
	default:
		return fmt.Errorf("unknown command group: %s", group)
	}
	return fmt.Errorf("unknown %s subcommand: %s", group, sub)
}

func openStore(path string) (*storage.Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path required")
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)
	store, err := storage.NewStore(path, false, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, nil
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("db init", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.InitDB(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	fmt.Fprintf(stdout, "Database initialized at: %s\n", *path)
	return nil
}

func runDelete(args []string) error {
	fs := flag.NewFlagSet("db delete", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*path)
	if err != nil {
		return err
	}
	if err := store.DeleteDB(); err != nil {
		return fmt.Errorf("failed to delete database: %w", err)
	}

	fmt.Fprintf(stdout, "Database deleted: %s\n", *path)
	return nil
}

func short(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}

func runQuery(args []string) error {
	fs := flag.NewFlagSet("db query", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	gameID := fs.String("gameId", "", "Game ID to filter (optional, * for all)")
	playerID := fs.String("playerId", "", "Player ID to filter (optional, * for all)")
	moves := fs.Bool("moves", false, "Print the move list of each game")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	games, err := store.QueryGames(*gameID, *playerID)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if len(games) == 0 {
		fmt.Fprintln(stdout, "No games found")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Game ID\tWhite\tBlack\tStarted\tResult")
	fmt.Fprintln(w, strings.Repeat("-", 90))

	for _, g := range games {
		result := g.Result
		if result == "" {
			result = "(running)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			short(g.GameID),
			playerInfo(g.WhitePlayerID, g.WhiteType, g.WhiteRating),
			playerInfo(g.BlackPlayerID, g.BlackType, g.BlackRating),
			g.StartTimeUTC.Format("2006-01-02 15:04:05"),
			result,
		)
	}
	w.Flush()

	if *moves {
		for _, g := range games {
			records, err := store.QueryMoves(g.GameID)
			if err != nil {
				return fmt.Errorf("query moves of %s: %w", g.GameID, err)
			}
			san := make([]string, len(records))
			for i, m := range records {
				san[i] = m.MoveSAN
			}
			fmt.Fprintf(stdout, "\n%s: %s\n", g.GameID, strings.Join(san, " "))
		}
	}

	fmt.Fprintf(stdout, "\nFound %d game(s)\n", len(games))
	return nil
}

func playerInfo(id string, playerType, rating int) string {
	if playerType == int(core.PlayerComputer) {
		return fmt.Sprintf("computer (%d)", rating)
	}
	return short(id)
}

// readPassword takes the -password flag value or prompts on the terminal
func readPassword(flagValue string, interactive bool, prompt string) (string, error) {
	switch {
	case interactive && flagValue != "":
		return "", fmt.Errorf("cannot use -interactive with -password")
	case interactive:
		fmt.Fprint(stdout, prompt)
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(stdout)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		flagValue = string(pw)
	case flagValue == "":
		return "", fmt.Errorf("password required: use -password or -interactive")
	}

	if len(flagValue) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return flagValue, nil
}

func runUserAdd(args []string) error {
	fs := flag.NewFlagSet("user add", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	username := fs.String("username", "", "Username (required)")
	email := fs.String("email", "", "Email address (optional)")
	password := fs.String("password", "", "Password")
	interactive := fs.Bool("interactive", false, "Interactive password prompt")
	temp := fs.Bool("temp", false, "Create as temporary user (default: permanent)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" {
		return fmt.Errorf("username required")
	}
	pw, err := readPassword(*password, *interactive, "Enter password: ")
	if err != nil {
		return err
	}
	passwordHash, err := auth.HashPassword(pw)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	store, err := openStore(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	now := time.Now().UTC()
	record := storage.UserRecord{
		UserID:       uuid.New().String(),
		Username:     strings.ToLower(*username),
		Email:        strings.ToLower(*email),
		PasswordHash: passwordHash,
		AccountType:  storage.AccountPermanent,
		CreatedAt:    now,
	}
	if *temp {
		expires := now.Add(storage.DefaultUserLimits().TempTTL)
		record.AccountType = storage.AccountTemp
		record.ExpiresAt = &expires
	}

	if err := store.CreateUser(record); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User created: %s (%s, %s)\n", record.Username, record.UserID, record.AccountType)
	return nil
}

func runUserDelete(args []string) error {
	fs := flag.NewFlagSet("user delete", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	username := fs.String("username", "", "Username to delete")
	userID := fs.String("id", "", "User ID to delete")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if (*username == "") == (*userID == "") {
		return fmt.Errorf("exactly one of -username or -id required")
	}

	store, err := openStore(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	target := *userID
	if target == "" {
		user, err := store.GetUserByUsername(strings.ToLower(*username))
		if err != nil {
			return fmt.Errorf("user not found: %s", *username)
		}
		target = user.UserID
	}

	if err := store.DeleteUserByID(target); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	fmt.Fprintf(stdout, "User deleted: %s\n", target)
	return nil
}

func runUserSetPassword(args []string) error {
	fs := flag.NewFlagSet("user set-password", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	username := fs.String("username", "", "Username (required)")
	password := fs.String("password", "", "New password")
	interactive := fs.Bool("interactive", false, "Interactive password prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" {
		return fmt.Errorf("username required")
	}
	pw, err := readPassword(*password, *interactive, "Enter new password: ")
	if err != nil {
		return err
	}

	store, err := openStore(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	user, err := store.GetUserByUsername(strings.ToLower(*username))
	if err != nil {
		return fmt.Errorf("user not found: %s", *username)
	}

	passwordHash, err := auth.HashPassword(pw)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := store.UpdateUserPassword(user.UserID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	// Existing tokens stop validating
	if err := store.DeleteSessionByUserID(user.UserID); err != nil {
		return fmt.Errorf("failed to end sessions: %w", err)
	}

	fmt.Fprintf(stdout, "Password updated for user: %s\n", user.Username)
	return nil
}

// runUserPromote makes a temporary account permanent
func runUserPromote(args []string) error {
	fs := flag.NewFlagSet("user promote", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	username := fs.String("username", "", "Username (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" {
		return fmt.Errorf("username required")
	}

	store, err := openStore(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	user, err := store.GetUserByUsername(strings.ToLower(*username))
	if err != nil {
		return fmt.Errorf("user not found: %s", *username)
	}
	if err := store.PromoteToPermanent(user.UserID); err != nil {
		return fmt.Errorf("failed to promote user: %w", err)
	}

	fmt.Fprintf(stdout, "User promoted to permanent: %s\n", user.Username)
	return nil
}

func runUserList(args []string) error {
	fs := flag.NewFlagSet("user list", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	users, err := store.GetAllUsers()
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if len(users) == 0 {
		fmt.Fprintln(stdout, "No users found")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "User ID\tUsername\tType\tEmail\tCreated\tExpires\tLast Login")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for _, u := range users {
		email := u.Email
		if email == "" {
			email = "(none)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			short(u.UserID),
			u.Username,
			u.AccountType,
			email,
			u.CreatedAt.Format("2006-01-02 15:04"),
			timeOr(u.ExpiresAt, "never"),
			timeOr(u.LastLoginAt, "never"),
		)
	}
	w.Flush()

	fmt.Fprintf(stdout, "\nTotal users: %d\n", len(users))
	return nil
}

func timeOr(t *time.Time, fallback string) string {
	if t == nil {
		return fallback
	}
	return t.Format("2006-01-02 15:04")
}

// loadPuzzles reads a JSON puzzle file, or the embedded set when file is
// empty
func loadPuzzles(file string) ([]puzzle.Puzzle, error) {
	if file == "" {
		return puzzle.EmbeddedPuzzles()
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return puzzle.ReadPuzzles(f)
}

func runPuzzlesImport(args []string) error {
	fs := flag.NewFlagSet("puzzles import", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	file := fs.String("file", "", "Puzzle JSON file (default: built-in set)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	puzzles, err := loadPuzzles(*file)
	if err != nil {
		return fmt.Errorf("failed to read puzzles: %w", err)
	}
	// Refuse to replace a working catalog with a broken one
	if err := puzzle.ValidateCatalog(puzzles, nil); err != nil {
		return fmt.Errorf("puzzle set rejected: %w", err)
	}

	store, err := openStore(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	records := make([]storage.PuzzleRecord, len(puzzles))
	for i, p := range puzzles {
		records[i] = storage.PuzzleRecord{
			PuzzleID: p.ID,
			FEN:      p.FEN,
			Moves:    p.Moves,
			Rating:   p.Rating,
			Themes:   p.Themes,
			GameURL:  p.GameURL,
		}
	}
	if err := store.ReplacePuzzles(records); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Fprintf(stdout, "Imported %d puzzle(s)\n", len(records))
	return nil
}

func runPuzzlesValidate(args []string) error {
	fs := flag.NewFlagSet("puzzles validate", flag.ContinueOnError)
	file := fs.String("file", "", "Puzzle JSON file (default: built-in set)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	puzzles, err := loadPuzzles(*file)
	if err != nil {
		return fmt.Errorf("failed to read puzzles: %w", err)
	}

	var lessons []puzzle.Lesson
	if *file == "" {
		if lessons, err = puzzle.EmbeddedLessons(); err != nil {
			return fmt.Errorf("failed to read lessons: %w", err)
		}
	}

	if err := puzzle.ValidateCatalog(puzzles, lessons); err != nil {
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) {
			for _, e := range joined.Unwrap() {
				fmt.Fprintf(stdout, "  %v\n", e)
			}
			return fmt.Errorf("%d problem(s) found", len(joined.Unwrap()))
		}
		return err
	}

	fmt.Fprintf(stdout, "OK: %d puzzle(s), %d lesson(s)\n", len(puzzles), len(lessons))
	return nil
}

func runPuzzlesList(args []string) error {
	fs := flag.NewFlagSet("puzzles list", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	theme := fs.String("theme", "", "Only puzzles with this theme")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListPuzzles()
	if err != nil {
		return fmt.Errorf("failed to list puzzles: %w", err)
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Puzzle ID\tRating\tMoves\tThemes")
	shown := 0
	for _, r := range records {
		p := puzzle.Puzzle{Themes: r.Themes}
		if *theme != "" && !p.HasTheme(*theme) {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", r.PuzzleID, r.Rating, len(r.Moves), strings.Join(r.Themes, ","))
		shown++
	}
	w.Flush()

	fmt.Fprintf(stdout, "\nTotal puzzles: %d\n", shown)
	return nil
}
