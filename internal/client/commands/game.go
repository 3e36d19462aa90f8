package commands

import (
	"fmt"
	"strconv"
	"strings"

	"forkknight/internal/client/display"
	"forkknight/internal/client/session"
	"forkknight/internal/server/core"
)

// Long-poll rounds before giving up on a computer move
const computerWaitRounds = 3

func (r *Registry) registerGameCommands() {
	r.Register(&Command{
		Name:        "new",
		ShortName:   "n",
		Description: "Create a new game",
		Usage:       "new [white] [black] [fen]  (player: h, c, c:<rating> or c:<rating>:<ms>; default h c)",
		Handler:     newGameHandler,
	})

	r.Register(&Command{
		Name:        "join",
		ShortName:   "j",
		Description: "Switch to an existing game",
		Usage:       "join <gameId>",
		Handler:     joinGameHandler,
	})

	r.Register(&Command{
		Name:        "players",
		ShortName:   "pl",
		Description: "Change who plays each side",
		Usage:       "players <white> <black>",
		Handler:     playersHandler,
	})

	r.Register(&Command{
		Name:        "move",
		ShortName:   "m",
		Description: "Play a move in SAN or UCI",
		Usage:       "move <move>",
		Handler:     moveHandler,
	})

	r.Register(&Command{
		Name:        "computer",
		ShortName:   "c",
		Description: "Ask the computer side to move",
		Usage:       "computer",
		Handler:     computerMoveHandler,
	})

	r.Register(&Command{
		Name:        "undo",
		ShortName:   "u",
		Description: "Take back moves",
		Usage:       "undo [count]",
		Handler:     undoHandler,
	})

	r.Register(&Command{
		Name:        "show",
		ShortName:   "b",
		Description: "Show the board",
		Usage:       "show",
		Handler:     showBoardHandler,
	})

	r.Register(&Command{
		Name:        "state",
		ShortName:   "s",
		Description: "Show game state",
		Usage:       "state",
		Handler:     gameStateHandler,
	})

	r.Register(&Command{
		Name:        "legal",
		ShortName:   "lm",
		Description: "List legal moves",
		Usage:       "legal [square]",
		Handler:     legalMovesHandler,
	})

	r.Register(&Command{
		Name:        "hint",
		ShortName:   "h",
		Description: "Ask the engine for the best move",
		Usage:       "hint",
		Handler:     hintHandler,
	})

	r.Register(&Command{
		Name:        "resign",
		ShortName:   "rs",
		Description: "Resign the current game",
		Usage:       "resign",
		Handler:     resignHandler,
	})

	r.Register(&Command{
		Name:        "delete",
		ShortName:   "d",
		Description: "Delete the current game",
		Usage:       "delete",
		Handler:     deleteGameHandler,
	})

	r.Register(&Command{
		Name:        "poll",
		ShortName:   "p",
		Description: "Wait for the game to change",
		Usage:       "poll",
		Handler:     pollHandler,
	})
}

// parsePlayer reads "h", "c", "c:<rating>" or "c:<rating>:<ms>"
func parsePlayer(spec string) (core.PlayerConfig, error) {
	parts := strings.Split(strings.ToLower(spec), ":")
	switch parts[0] {
	case "h", "human":
		if len(parts) > 1 {
			return core.PlayerConfig{}, fmt.Errorf("human player takes no options: %s", spec)
		}
		return core.PlayerConfig{Type: core.PlayerHuman}, nil
	case "c", "computer":
	default:
		return core.PlayerConfig{}, fmt.Errorf("unknown player type %q, want h or c", parts[0])
	}

	cfg := core.PlayerConfig{Type: core.PlayerComputer}
	if len(parts) > 3 {
		return cfg, fmt.Errorf("too many player options: %s", spec)
	}
	if len(parts) > 1 {
		v, err := strconv.Atoi(parts[1])
		if err != nil {
			return cfg, fmt.Errorf("invalid rating %q", parts[1])
		}
		cfg.Rating = v
	}
	if len(parts) > 2 {
		v, err := strconv.Atoi(parts[2])
		if err != nil {
			return cfg, fmt.Errorf("invalid move time %q", parts[2])
		}
		cfg.MoveTime = v
	}
	return cfg, nil
}

func parsePlayers(args []string, white, black string) (core.PlayerConfig, core.PlayerConfig, error) {
	if len(args) > 0 {
		white = args[0]
	}
	if len(args) > 1 {
		black = args[1]
	}
	w, err := parsePlayer(white)
	if err != nil {
		return w, core.PlayerConfig{}, err
	}
	b, err := parsePlayer(black)
	return w, b, err
}

func newGameHandler(s *session.Session, args []string) error {
	white, black, err := parsePlayers(args, "h", "c")
	if err != nil {
		return err
	}

	req := &core.CreateGameRequest{White: white, Black: black}
	if len(args) > 2 {
		req.FEN = strings.Join(args[2:], " ")
	}

	resp, err := s.Client.CreateGame(req)
	if err != nil {
		return err
	}
	s.SetGame(resp)

	fmt.Fprintf(s.Out, "%sGame created: %s%s\n", display.Green, resp.GameID, display.Reset)
	fmt.Fprintf(s.Out, "%sCurrent game set to: %s%s\n", display.Cyan, resp.GameID, display.Reset)

	return maybeComputerMove(s, resp)
}

func joinGameHandler(s *session.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: join <gameId>")
	}

	resp, err := s.Client.GetGame(args[0])
	if err != nil {
		return err
	}
	s.SetGame(resp)

	fmt.Fprintf(s.Out, "%sJoined game: %s%s\n", display.Green, resp.GameID, display.Reset)
	fmt.Fprintf(s.Out, "Turn: %s | State: %s | Moves: %d\n", display.ColorForTurn(resp.Turn), resp.State, len(resp.Moves))
	return nil
}

func playersHandler(s *session.Session, args []string) error {
	gameID, err := requireGame(s)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("usage: players <white> <black>")
	}
	white, black, err := parsePlayers(args, "", "")
	if err != nil {
		return err
	}

	resp, err := s.Client.ConfigurePlayers(gameID, &core.ConfigurePlayersRequest{White: white, Black: black})
	if err != nil {
		return err
	}
	s.SetGame(resp)
	fmt.Fprintf(s.Out, "%sPlayers updated%s\n", display.Green, display.Reset)

	return maybeComputerMove(s, resp)
}

func moveHandler(s *session.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: move <move>")
	}
	gameID, err := requireGame(s)
	if err != nil {
		return err
	}

	resp, err := s.Client.MakeMove(gameID, args[0])
	if err != nil {
		return err
	}
	s.SetGame(resp)

	fmt.Fprintf(s.Out, "%sMove accepted%s", display.Green, display.Reset)
	if resp.LastMove != nil && resp.LastMove.SAN != "" {
		fmt.Fprintf(s.Out, ": %s", resp.LastMove.SAN)
	}
	fmt.Fprintln(s.Out)
	printGameOver(s, resp)

	return maybeComputerMove(s, resp)
}

func computerMoveHandler(s *session.Session, args []string) error {
	gameID, err := requireGame(s)
	if err != nil {
		return err
	}

	resp, err := s.Client.MakeMove(gameID, "cccc")
	if err != nil {
		return err
	}
	return waitForComputer(s, resp)
}

// maybeComputerMove triggers the computer when it holds the move in an
// ongoing game
func maybeComputerMove(s *session.Session, g *core.GameResponse) error {
	if g.State != core.StateOngoing.String() {
		return nil
	}
	next := g.Players.White
	if g.Turn == "b" {
		next = g.Players.Black
	}
	if !next.IsComputer() {
		return nil
	}

	fmt.Fprintf(s.Out, "\n%sComputer's turn, triggering move...%s\n", display.Magenta, display.Reset)
	resp, err := s.Client.MakeMove(g.GameID, "cccc")
	if err != nil {
		return err
	}
	return waitForComputer(s, resp)
}

// waitForComputer long-polls a pending game until the computer has moved
func waitForComputer(s *session.Session, g *core.GameResponse) error {
	if g.State == core.StatePending.String() {
		fmt.Fprintf(s.Out, "%sComputer is thinking...%s\n", display.Magenta, display.Reset)
	}

	moveCount := len(g.Moves)
	for i := 0; g.State == core.StatePending.String(); i++ {
		if i == computerWaitRounds {
			return fmt.Errorf("computer did not move, try 'poll'")
		}
		next, err := s.Client.GetGameWithPoll(g.GameID, moveCount)
		if err != nil {
			return err
		}
		g = next
	}
	s.SetGame(g)

	if g.LastMove != nil && len(g.Moves) > moveCount {
		fmt.Fprintf(s.Out, "%sComputer played: %s%s", display.Magenta, moveLabel(g.LastMove), display.Reset)
		if g.LastMove.Random {
			fmt.Fprint(s.Out, " (random)")
		} else if g.LastMove.Depth > 0 {
			fmt.Fprintf(s.Out, " (depth %d, score %d)", g.LastMove.Depth, g.LastMove.Score)
		}
		fmt.Fprintln(s.Out)
	}
	if g.State == core.StateStuck.String() {
		fmt.Fprintf(s.Out, "%sComputer failed to move, try 'computer' again%s\n", display.Red, display.Reset)
	}
	printGameOver(s, g)
	return nil
}

func moveLabel(m *core.MoveInfo) string {
	if m.SAN != "" {
		return m.SAN
	}
	return m.Move
}

func printGameOver(s *session.Session, g *core.GameResponse) {
	switch g.State {
	case core.StateOngoing.String(), core.StatePending.String(), core.StateStuck.String():
		if g.Check {
			fmt.Fprintf(s.Out, "%sCheck!%s\n", display.Yellow, display.Reset)
		}
		return
	}
	fmt.Fprintf(s.Out, "%sGame over: %s%s", display.Yellow, g.State, display.Reset)
	if g.DrawReason != "" {
		fmt.Fprintf(s.Out, " (%s)", g.DrawReason)
	}
	fmt.Fprintln(s.Out)
}

func undoHandler(s *session.Session, args []string) error {
	gameID, err := requireGame(s)
	if err != nil {
		return err
	}

	count := 1
	if len(args) > 0 {
		count, err = strconv.Atoi(args[0])
		if err != nil || count < 1 {
			return fmt.Errorf("invalid count: %s", args[0])
		}
	}

	resp, err := s.Client.UndoMoves(gameID, count)
	if err != nil {
		return err
	}
	s.SetGame(resp)

	fmt.Fprintf(s.Out, "%sUndid %d move(s)%s\n", display.Green, count, display.Reset)
	return nil
}

func showBoardHandler(s *session.Session, args []string) error {
	gameID, err := requireGame(s)
	if err != nil {
		return err
	}

	resp, err := s.Client.GetBoard(gameID)
	if err != nil {
		return err
	}

	fmt.Fprintln(s.Out)
	display.RenderBoard(s.Out, resp.Board)
	fmt.Fprintf(s.Out, "\nFEN: %s\n", resp.FEN)
	return nil
}

func gameStateHandler(s *session.Session, args []string) error {
	gameID, err := requireGame(s)
	if err != nil {
		return err
	}

	resp, err := s.Client.GetGame(gameID)
	if err != nil {
		return err
	}
	s.SetGame(resp)
	printGameState(s, resp)
	return nil
}

func printGameState(s *session.Session, g *core.GameResponse) {
	out := s.Out
	fmt.Fprintf(out, "%sGame %s%s\n", display.Cyan, g.GameID, display.Reset)
	fmt.Fprintf(out, "  White:  %s\n", playerLabel(g.Players.White))
	fmt.Fprintf(out, "  Black:  %s\n", playerLabel(g.Players.Black))
	fmt.Fprintf(out, "  Turn:   %s\n", display.ColorForTurn(g.Turn))
	fmt.Fprintf(out, "  State:  %s\n", g.State)
	if g.DrawReason != "" {
		fmt.Fprintf(out, "  Reason: %s\n", g.DrawReason)
	}
	fmt.Fprintf(out, "  Moves:  %d\n", len(g.Moves))
	if len(g.Moves) > 0 {
		fmt.Fprintf(out, "  History: %s\n", strings.Join(g.Moves, " "))
	}
	fmt.Fprintf(out, "  FEN:    %s\n", g.FEN)
}

func playerLabel(p *core.Player) string {
	switch {
	case p == nil:
		return "-"
	case p.IsComputer():
		return fmt.Sprintf("computer (rating %d)", p.Rating)
	case p.UserID != "":
		return "human (" + p.UserID + ")"
	default:
		return "human"
	}
}

func legalMovesHandler(s *session.Session, args []string) error {
	gameID, err := requireGame(s)
	if err != nil {
		return err
	}

	square := ""
	if len(args) > 0 {
		square = args[0]
	}

	resp, err := s.Client.LegalMoves(gameID, square)
	if err != nil {
		return err
	}

	if len(resp.Moves) == 0 {
		fmt.Fprintf(s.Out, "%sNo legal moves%s\n", display.Yellow, display.Reset)
		return nil
	}
	fmt.Fprintf(s.Out, "%sLegal moves (%d):%s %s\n", display.Cyan, len(resp.Moves), display.Reset, strings.Join(resp.Moves, " "))
	return nil
}

func hintHandler(s *session.Session, args []string) error {
	gameID, err := requireGame(s)
	if err != nil {
		return err
	}

	resp, err := s.Client.Hint(gameID)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.Out, "%sHint: %s%s", display.Magenta, resp.SAN, display.Reset)
	if resp.IsMate {
		fmt.Fprintf(s.Out, " (mate in %d)", resp.MateIn)
	} else {
		fmt.Fprintf(s.Out, " (depth %d, score %d)", resp.Depth, resp.Score)
	}
	fmt.Fprintf(s.Out, " - hints used: %d\n", resp.Hints)
	return nil
}

func resignHandler(s *session.Session, args []string) error {
	gameID, err := requireGame(s)
	if err != nil {
		return err
	}

	resp, err := s.Client.Resign(gameID)
	if err != nil {
		return err
	}
	s.SetGame(resp)
	printGameOver(s, resp)
	return nil
}

func deleteGameHandler(s *session.Session, args []string) error {
	gameID, err := requireGame(s)
	if err != nil {
		return err
	}

	if err := s.Client.DeleteGame(gameID); err != nil {
		return err
	}
	s.ClearGame()

	fmt.Fprintf(s.Out, "%sGame deleted%s\n", display.Green, display.Reset)
	return nil
}

func pollHandler(s *session.Session, args []string) error {
	gameID, err := requireGame(s)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.Out, "%sLong-polling for updates (move count: %d)...%s\n",
		display.Cyan, s.LastMoveCount, display.Reset)

	resp, err := s.Client.GetGameWithPoll(gameID, s.LastMoveCount)
	if err != nil {
		return err
	}

	switch n := len(resp.Moves); {
	case n == s.LastMoveCount:
		fmt.Fprintln(s.Out, "No new moves")
	case n < s.LastMoveCount:
		fmt.Fprintf(s.Out, "%s%d move(s) taken back%s\n", display.Yellow, s.LastMoveCount-n, display.Reset)
	default:
		fmt.Fprintf(s.Out, "%s%d new move(s):%s %s\n", display.Green, n-s.LastMoveCount,
			display.Reset, strings.Join(resp.Moves[s.LastMoveCount:], " "))
	}
	s.SetGame(resp)
	printGameOver(s, resp)
	return nil
}
