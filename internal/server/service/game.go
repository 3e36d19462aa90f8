package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"forkknight/internal/server/board"
	"forkknight/internal/server/core"
	"forkknight/internal/server/game"
	"forkknight/internal/server/rating"
	"forkknight/internal/server/storage"
)

var (
	ErrGameNotFound   = errors.New("game not found")
	ErrTooManyGames   = errors.New("too many computer games")
	ErrGameIDConflict = errors.New("game id already in use")
)

// GenerateGameID creates a new unique game ID
func (s *Service) GenerateGameID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for {
		id := uuid.New().String()
		if _, exists := s.games[id]; !exists {
			return id
		}
	}
}

// CreateGame registers a new game on the given position
func (s *Service) CreateGame(id string, b *board.Board, whitePlayer, blackPlayer *core.Player) (*game.Game, error) {
	computer := whitePlayer.IsComputer() || blackPlayer.IsComputer()
	if computer && !s.CanCreateComputerGame() {
		return nil, ErrTooManyGames
	}

	s.mu.Lock()
	if _, exists := s.games[id]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrGameIDConflict, id)
	}
	g := game.New(id, b, whitePlayer, blackPlayer)
	s.games[id] = g
	s.mu.Unlock()

	if computer {
		s.computerGames.Add(1)
	}

	if s.store != nil {
		s.store.RecordNewGame(storage.GameRecord{
			GameID:        id,
			InitialFEN:    g.InitialFEN(),
			WhitePlayerID: whitePlayer.ID,
			WhiteType:     int(whitePlayer.Type),
			WhiteRating:   whitePlayer.Rating,
			WhiteMoveTime: whitePlayer.MoveTime,
			BlackPlayerID: blackPlayer.ID,
			BlackType:     int(blackPlayer.Type),
			BlackRating:   blackPlayer.Rating,
			BlackMoveTime: blackPlayer.MoveTime,
			StartTimeUTC:  g.CreatedAt(),
		})
	}

	s.log.Debug().Str("game", id).Str("fen", g.InitialFEN()).Msg("game created")

	// A starting position may already be terminal
	s.settle(g)
	return g, nil
}

// UpdatePlayers replaces players in an existing game
func (s *Service) UpdatePlayers(gameID string, whitePlayer, blackPlayer *core.Player) error {
	g, err := s.GetGame(gameID)
	if err != nil {
		return err
	}

	before := g.GetPlayer(core.ColorWhite).IsComputer() || g.GetPlayer(core.ColorBlack).IsComputer()
	after := whitePlayer.IsComputer() || blackPlayer.IsComputer()
	switch {
	case after && !before:
		if !s.CanCreateComputerGame() {
			return ErrTooManyGames
		}
		s.computerGames.Add(1)
	case before && !after:
		s.computerGames.Add(-1)
	}

	g.UpdatePlayers(whitePlayer, blackPlayer)
	return nil
}

// GetGame retrieves a game by ID
func (s *Service) GetGame(gameID string) (*game.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return g, nil
}

// GameCount returns the number of games in memory
func (s *Service) GameCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}

// ApplyMove validates and plays a move, then records and announces it
func (s *Service) ApplyMove(gameID string, in board.MoveInput) (board.AppliedMove, error) {
	g, err := s.GetGame(gameID)
	if err != nil {
		return board.AppliedMove{}, err
	}

	applied, err := g.ApplyMove(in)
	if err != nil {
		return board.AppliedMove{}, err
	}
	s.afterMove(g, applied)
	return applied, nil
}

// ApplySearchedMove plays an engine move if the game has not moved on
// from the searched position
func (s *Service) ApplySearchedMove(gameID, fen string, m board.Move, search game.MoveResult) (board.AppliedMove, error) {
	g, err := s.GetGame(gameID)
	if err != nil {
		return board.AppliedMove{}, err
	}

	applied, err := g.ApplyIfAt(fen, m, search)
	if err != nil {
		return board.AppliedMove{}, err
	}
	s.afterMove(g, applied)
	return applied, nil
}

func (s *Service) afterMove(g *game.Game, applied board.AppliedMove) {
	moveNumber := g.MoveCount()

	if s.store != nil {
		s.store.RecordMove(storage.MoveRecord{
			GameID:       g.ID(),
			MoveNumber:   moveNumber,
			MoveUCI:      applied.Move.UCI(),
			MoveSAN:      applied.SAN,
			FENAfterMove: g.CurrentFEN(),
			PlayerColor:  applied.Piece.Color().String(),
			MoveTimeUTC:  time.Now().UTC(),
		})
	}

	s.settle(g)
	s.waiter.NotifyGame(g.ID())
}

// UpdateGameState sets the game state and wakes waiting clients
func (s *Service) UpdateGameState(gameID string, state core.State) error {
	g, err := s.GetGame(gameID)
	if err != nil {
		return err
	}

	g.SetState(state)
	s.settle(g)
	s.waiter.NotifyGame(gameID)
	return nil
}

// CompareAndSetState moves a game from one state to another and wakes
// waiting clients when it did
func (s *Service) CompareAndSetState(gameID string, from, to core.State) (bool, error) {
	g, err := s.GetGame(gameID)
	if err != nil {
		return false, err
	}
	if !g.CompareAndSetState(from, to) {
		return false, nil
	}
	s.waiter.NotifyGame(gameID)
	return true, nil
}

// Resign ends the game in favour of the other side
func (s *Service) Resign(gameID string, color core.Color) error {
	g, err := s.GetGame(gameID)
	if err != nil {
		return err
	}
	if err := g.Resign(color); err != nil {
		return err
	}
	s.settle(g)
	s.waiter.NotifyGame(gameID)
	return nil
}

// UndoMoves removes the specified number of moves from game history
func (s *Service) UndoMoves(gameID string, count int) error {
	g, err := s.GetGame(gameID)
	if err != nil {
		return err
	}

	if err := g.UndoMoves(count); err != nil {
		return err
	}

	s.waiter.NotifyGame(gameID)

	if s.store != nil {
		s.store.DeleteUndoneMoves(gameID, g.MoveCount())
	}

	return nil
}

// DeleteGame removes a game from memory
func (s *Service) DeleteGame(gameID string) error {
	s.mu.Lock()
	g, ok := s.games[gameID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	delete(s.games, gameID)
	s.mu.Unlock()

	if g.GetPlayer(core.ColorWhite).IsComputer() || g.GetPlayer(core.ColorBlack).IsComputer() {
		s.computerGames.Add(-1)
	}

	// Wake waiters so they see the game is gone
	s.waiter.RemoveGame(gameID)
	return nil
}

// settle records a finished game once and credits human players who
// faced the computer
func (s *Service) settle(g *game.Game) {
	if !g.MarkRecorded() {
		return
	}
	state := g.State()
	now := time.Now().UTC()

	if s.store != nil {
		s.store.RecordGameResult(g.ID(), state.String(), now)
	}

	for _, color := range []core.Color{core.ColorWhite, core.ColorBlack} {
		player, opponent := g.GetPlayer(color), g.GetPlayer(color.Opposite())
		if player.IsComputer() || player.UserID == "" || !opponent.IsComputer() {
			continue
		}
		outcome := outcomeFor(state, color)
		p, xp, err := s.RecordGameResult(player.UserID, opponent.Rating, outcome, g.HintsUsed(color), now)
		if err != nil {
			s.log.Warn().Err(err).Str("game", g.ID()).Str("user", player.UserID).Msg("failed to credit game result")
			continue
		}
		s.log.Info().
			Str("game", g.ID()).
			Str("user", player.UserID).
			Stringer("outcome", outcome).
			Int("rating", p.GameRating).
			Int("xp", xp).
			Msg("game result credited")
	}
}

// outcomeFor reads a finished state from one side's point of view
func outcomeFor(state core.State, color core.Color) rating.Outcome {
	switch state {
	case core.WinState(color):
		return rating.Win
	case core.WinState(color.Opposite()):
		return rating.Loss
	default:
		return rating.Draw
	}
}
