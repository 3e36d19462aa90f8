package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"forkknight/internal/server/board"
	"forkknight/internal/server/core"
	"forkknight/internal/server/game"
	"forkknight/internal/server/service"
)

const (
	// ComputerMoveToken asks the computer side to play
	ComputerMoveToken = "cccc"

	hintWait = 20 * time.Second
)

// Processor handles command execution and coordinates between service and engine layers
type Processor struct {
	svc   *service.Service
	queue *EngineQueue
	log   zerolog.Logger
}

// New creates a processor over a service and a running engine queue
func New(svc *service.Service, queue *EngineQueue, log zerolog.Logger) *Processor {
	return &Processor{
		svc:   svc,
		queue: queue,
		log:   log.With().Str("component", "processor").Logger(),
	}
}

func (p *Processor) Execute(cmd Command) ProcessorResponse {
	switch cmd.Type {
	case CmdCreateGame:
		return p.handleCreateGame(cmd)
	case CmdConfigurePlayers:
		return p.handleConfigurePlayers(cmd)
	case CmdGetGame:
		return p.handleGetGame(cmd)
	case CmdMakeMove:
		return p.handleMakeMove(cmd)
	case CmdUndoMove:
		return p.handleUndoMove(cmd)
	case CmdDeleteGame:
		return p.handleDeleteGame(cmd)
	case CmdGetBoard:
		return p.handleGetBoard(cmd)
	case CmdLegalMoves:
		return p.handleLegalMoves(cmd)
	case CmdHint:
		return p.handleHint(cmd)
	case CmdResign:
		return p.handleResign(cmd)
	default:
		return p.errorResponse("unknown command", core.ErrInvalidRequest)
	}
}

// newPlayers builds both players, drawing a rating for computers that
// were not given one and binding human seats to the caller
func (p *Processor) newPlayers(userID string, white, black core.PlayerConfig) (*core.Player, *core.Player) {
	players := make([]*core.Player, 2)
	for i, cfg := range []core.PlayerConfig{white, black} {
		color := core.ColorWhite
		if i == 1 {
			color = core.ColorBlack
		}
		if cfg.Type == core.PlayerComputer && cfg.Rating == 0 {
			cfg.Rating = p.svc.ComputerRating(userID)
		}
		player := core.NewPlayer(cfg, color)
		if cfg.Type == core.PlayerHuman && userID != "" {
			player.ID = userID
			player.UserID = userID
		}
		players[i] = player
	}
	return players[0], players[1]
}

// handleCreateGame creates a new game on the start or a given position
func (p *Processor) handleCreateGame(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.CreateGameRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	b := board.New()
	if fen := strings.TrimSpace(args.FEN); fen != "" {
		var err error
		if b, err = board.FromFEN(fen); err != nil {
			return p.errorResponse(err.Error(), core.ErrInvalidFEN)
		}
	}

	whitePlayer, blackPlayer := p.newPlayers(cmd.UserID, args.White, args.Black)

	g, err := p.svc.CreateGame(p.svc.GenerateGameID(), b, whitePlayer, blackPlayer)
	if err != nil {
		if errors.Is(err, service.ErrTooManyGames) {
			return p.errorResponse("too many computer games, try again later", core.ErrResourceLimit)
		}
		return p.errorResponse(fmt.Sprintf("failed to create game: %v", err), core.ErrInternalError)
	}

	return ProcessorResponse{
		Success: true,
		Data:    p.buildGameResponse(g),
	}
}

// handleConfigurePlayers updates player configuration mid-game
func (p *Processor) handleConfigurePlayers(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.ConfigurePlayersRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	// Block configuration changes during computer move
	if g.State() == core.StatePending {
		return p.errorResponse("cannot change players while computer is calculating", core.ErrInvalidRequest)
	}

	whitePlayer, blackPlayer := p.newPlayers(cmd.UserID, args.White, args.Black)
	if err = p.svc.UpdatePlayers(cmd.GameID, whitePlayer, blackPlayer); err != nil {
		if errors.Is(err, service.ErrTooManyGames) {
			return p.errorResponse("too many computer games, try again later", core.ErrResourceLimit)
		}
		return p.errorResponse(fmt.Sprintf("failed to update players: %v", err), core.ErrInternalError)
	}

	return ProcessorResponse{
		Success: true,
		Data:    p.buildGameResponse(g),
	}
}

func (p *Processor) handleGetGame(cmd Command) ProcessorResponse {
	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	return ProcessorResponse{
		Success: true,
		Data:    p.buildGameResponse(g),
	}
}

// checkPlayable rejects moves in games that cannot take one
func (p *Processor) checkPlayable(g *game.Game) *ProcessorResponse {
	var resp ProcessorResponse
	switch state := g.State(); {
	case state == core.StateOngoing:
		return nil
	case state == core.StatePending:
		resp = p.errorResponse("computer move in progress", core.ErrInvalidRequest)
	case state == core.StateStuck:
		resp = p.errorResponse("game is stuck due to engine error", core.ErrGameOver)
	case state.IsFinished():
		resp = p.errorResponse(fmt.Sprintf("game is over: %s", state), core.ErrGameOver)
	default:
		resp = p.errorResponse("game is in invalid state", core.ErrInvalidRequest)
	}
	return &resp
}

// handleMakeMove plays a human move, or starts the computer's search when
// the move is the computer token
func (p *Processor) handleMakeMove(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.MoveRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}
	if resp := p.checkPlayable(g); resp != nil {
		return *resp
	}

	move := strings.TrimSpace(args.Move)
	if move == ComputerMoveToken {
		return p.startComputerMove(g)
	}

	if g.NextPlayer().IsComputer() {
		return p.errorResponse("not human player's turn", core.ErrNotHumanTurn)
	}

	if _, err := p.svc.ApplyMove(cmd.GameID, board.Notation(move)); err != nil {
		return p.moveError(err)
	}

	return ProcessorResponse{
		Success: true,
		Data:    p.buildGameResponse(g),
	}
}

// moveError maps a rejected move to its API error
func (p *Processor) moveError(err error) ProcessorResponse {
	switch {
	case errors.Is(err, board.ErrAmbiguousMove):
		return p.errorResponse(err.Error(), core.ErrAmbiguousMove)
	case errors.Is(err, board.ErrIllegalMove), errors.Is(err, board.ErrInvalidNotation):
		return p.errorResponse(err.Error(), core.ErrInvalidMove)
	case errors.Is(err, service.ErrGameNotFound):
		return p.errorResponse("game not found", core.ErrGameNotFound)
	default:
		return p.errorResponse(err.Error(), core.ErrGameOver)
	}
}

// startComputerMove marks the game pending and hands the position to the
// engine queue; the result lands asynchronously
func (p *Processor) startComputerMove(g *game.Game) ProcessorResponse {
	player := g.NextPlayer()
	if !player.IsComputer() {
		return p.errorResponse("not computer player's turn", core.ErrNotHumanTurn)
	}

	swapped, err := p.svc.CompareAndSetState(g.ID(), core.StateOngoing, core.StatePending)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}
	if !swapped {
		return p.errorResponse("computer move in progress", core.ErrInvalidRequest)
	}

	b := g.Board()
	fen := b.FEN()
	color := b.SideToMove()
	gameID := g.ID()

	err = p.queue.SubmitAsync(gameID, b, player, func(result EngineResult) {
		p.finishComputerMove(gameID, fen, color, result)
	})
	if err != nil {
		p.svc.CompareAndSetState(gameID, core.StatePending, core.StateOngoing)
		return p.errorResponse(fmt.Sprintf("engine unavailable: %v", err), core.ErrResourceLimit)
	}

	resp := p.buildGameResponse(g)
	resp.LastMove = &core.MoveInfo{
		PlayerColor: color.String(),
	}

	return ProcessorResponse{
		Success: true,
		Pending: true,
		Data:    resp,
	}
}

// finishComputerMove applies a search result if the game is still waiting
// for it on the searched position
func (p *Processor) finishComputerMove(gameID, fen string, color core.Color, result EngineResult) {
	g, err := p.svc.GetGame(gameID)
	if err != nil {
		return // Game was deleted
	}
	if g.State() != core.StatePending {
		return
	}

	if result.Error != nil {
		p.log.Error().Err(result.Error).Str("game", gameID).Msg("engine search failed")
		p.svc.CompareAndSetState(gameID, core.StatePending, core.StateStuck)
		return
	}

	applied, err := p.svc.ApplySearchedMove(gameID, fen, result.Result.Move, game.MoveResult{
		Score:  result.Result.Score,
		Depth:  result.Result.Depth,
		Random: result.Result.Random,
	})
	if err != nil {
		p.log.Warn().Err(err).Str("game", gameID).Str("move", result.Result.Move.UCI()).Msg("search result discarded")
		p.svc.CompareAndSetState(gameID, core.StatePending, core.StateOngoing)
		return
	}

	p.log.Info().
		Str("game", gameID).
		Stringer("color", color).
		Str("move", applied.SAN).
		Int("score", result.Result.Score).
		Int("depth", result.Result.Depth).
		Dur("elapsed", result.Elapsed).
		Msg("computer moved")
}

// handleUndoMove reverts game state
func (p *Processor) handleUndoMove(cmd Command) ProcessorResponse {
	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	switch g.State() {
	case core.StatePending:
		return p.errorResponse("cannot undo while computer move is in progress", core.ErrInvalidRequest)
	case core.StateStuck:
		return p.errorResponse("cannot undo in stuck game", core.ErrInvalidRequest)
	}

	args := core.UndoRequest{Count: 1}
	if req, ok := cmd.Args.(core.UndoRequest); ok && req.Count > 0 {
		args = req
	}

	if err = p.svc.UndoMoves(cmd.GameID, args.Count); err != nil {
		if errors.Is(err, service.ErrGameNotFound) {
			return p.errorResponse("game not found", core.ErrGameNotFound)
		}
		return p.errorResponse(err.Error(), core.ErrInvalidRequest)
	}

	return ProcessorResponse{
		Success: true,
		Data:    p.buildGameResponse(g),
	}
}

// handleDeleteGame removes a game
func (p *Processor) handleDeleteGame(cmd Command) ProcessorResponse {
	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	// Only block deletion if actively computing
	if g.State() == core.StatePending {
		return p.errorResponse("cannot delete game while computer move is in progress", core.ErrInvalidRequest)
	}

	if err = p.svc.DeleteGame(cmd.GameID); err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	return ProcessorResponse{
		Success: true,
	}
}

// handleGetBoard returns the ASCII diagram and the piece list
func (p *Processor) handleGetBoard(cmd Command) ProcessorResponse {
	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	b := g.Board()
	snapshot := b.Snapshot()
	pieces := make([]core.PieceInfo, 0, len(snapshot))
	for _, ps := range snapshot {
		pieces = append(pieces, core.PieceInfo{Square: ps.Square, Type: ps.Type, Color: ps.Color})
	}

	return ProcessorResponse{
		Success: true,
		Data: core.BoardResponse{
			FEN:    b.FEN(),
			Board:  b.String(),
			Pieces: pieces,
		},
	}
}

// handleLegalMoves lists legal moves in UCI, optionally from one square
func (p *Processor) handleLegalMoves(cmd Command) ProcessorResponse {
	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	args, _ := cmd.Args.(LegalMovesArgs)
	b := g.Board()

	var moves []board.Move
	if args.Square != "" {
		sq, err := board.ParseSquare(strings.ToLower(args.Square))
		if err != nil {
			return p.errorResponse(err.Error(), core.ErrInvalidRequest)
		}
		moves = b.LegalMovesFrom(sq)
	} else if !g.State().IsFinished() {
		moves = b.LegalMoves()
	}

	list := make([]string, 0, len(moves))
	for _, m := range moves {
		list = append(list, m.UCI())
	}

	return ProcessorResponse{
		Success: true,
		Data: core.LegalMovesResponse{
			FEN:    b.FEN(),
			Square: args.Square,
			Moves:  list,
		},
	}
}

// handleHint runs a full-strength search for the side to move and counts
// the hint against that side
func (p *Processor) handleHint(cmd Command) ProcessorResponse {
	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}
	if resp := p.checkPlayable(g); resp != nil {
		return *resp
	}
	if g.NextPlayer().IsComputer() {
		return p.errorResponse("not human player's turn", core.ErrNotHumanTurn)
	}

	b := g.Board()
	color := b.SideToMove()

	ctx, cancel := context.WithTimeout(context.Background(), hintWait)
	defer cancel()

	result, err := p.queue.Search(ctx, cmd.GameID, b.Clone())
	if err != nil {
		if errors.Is(err, ErrQueueFull) || errors.Is(err, ErrQueueShutdown) {
			return p.errorResponse(fmt.Sprintf("engine unavailable: %v", err), core.ErrResourceLimit)
		}
		return p.errorResponse(fmt.Sprintf("hint search failed: %v", err), core.ErrInternalError)
	}

	applied, err := b.ApplyMove(result.Result.Move)
	if err != nil {
		return p.errorResponse(fmt.Sprintf("hint search failed: %v", err), core.ErrInternalError)
	}

	return ProcessorResponse{
		Success: true,
		Data: core.HintResponse{
			Move:   applied.Move.UCI(),
			SAN:    applied.SAN,
			Score:  result.Result.Score,
			Depth:  result.Result.Depth,
			IsMate: result.Result.IsMate,
			MateIn: result.Result.MateIn,
			Hints:  g.AddHint(color),
		},
	}
}

// handleResign ends the game for the human side; with two humans the side
// to move resigns
func (p *Processor) handleResign(cmd Command) ProcessorResponse {
	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	color := g.NextTurnColor()
	white, black := g.GetPlayer(core.ColorWhite), g.GetPlayer(core.ColorBlack)
	switch {
	case white.IsComputer() && black.IsComputer():
		return p.errorResponse("no human player to resign", core.ErrInvalidRequest)
	case white.IsComputer():
		color = core.ColorBlack
	case black.IsComputer():
		color = core.ColorWhite
	}

	if err := p.svc.Resign(cmd.GameID, color); err != nil {
		if errors.Is(err, service.ErrGameNotFound) {
			return p.errorResponse("game not found", core.ErrGameNotFound)
		}
		return p.errorResponse(err.Error(), core.ErrGameOver)
	}

	return ProcessorResponse{
		Success: true,
		Data:    p.buildGameResponse(g),
	}
}

// buildGameResponse constructs standard game response
func (p *Processor) buildGameResponse(g *game.Game) core.GameResponse {
	status := g.Status()
	resp := core.GameResponse{
		GameID: g.ID(),
		FEN:    g.CurrentFEN(),
		Turn:   g.NextTurnColor().String(),
		State:  g.State().String(),
		Check:  status.Check,
		Moves:  g.Moves(),
		Players: core.PlayersResponse{
			White: g.GetPlayer(core.ColorWhite),
			Black: g.GetPlayer(core.ColorBlack),
		},
	}
	if status.IsDraw() {
		resp.DrawReason = status.DrawReason.String()
	}

	if result := g.LastResult(); result != nil {
		resp.LastMove = &core.MoveInfo{
			Move:        result.Move,
			SAN:         result.SAN,
			PlayerColor: result.PlayerColor.String(),
			Score:       result.Score,
			Depth:       result.Depth,
			Random:      result.Random,
		}
	}

	return resp
}

// errorResponse creates error response
func (p *Processor) errorResponse(message, code string) ProcessorResponse {
	return ProcessorResponse{
		Success: false,
		Error: &core.ErrorResponse{
			Error: message,
			Code:  code,
		},
	}
}

// Close stops the engine workers
func (p *Processor) Close() error {
	return p.queue.Shutdown(5 * time.Second)
}
