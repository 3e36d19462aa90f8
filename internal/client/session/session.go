// Package session holds the terminal client's state between commands
package session

import (
	"io"

	"forkknight/internal/client/api"
	"forkknight/internal/server/core"
)

type Session struct {
	APIBaseURL string
	Client     *api.Client
	Out        io.Writer
	Verbose    bool

	AuthToken   string
	CurrentUser string
	Username    string

	CurrentGame      string
	CurrentGameState *core.GameResponse
	LastMoveCount    int

	PuzzleSession string
	PuzzleID      string

	// Set by the exit command, read by the prompt loop
	Quit bool
}

func New(baseURL string, out io.Writer) *Session {
	c := api.New(baseURL)
	c.Out = out
	return &Session{
		APIBaseURL: c.BaseURL,
		Client:     c,
		Out:        out,
	}
}

// SetGame tracks a game response as the current game
func (s *Session) SetGame(g *core.GameResponse) {
	s.CurrentGame = g.GameID
	s.CurrentGameState = g
	s.LastMoveCount = len(g.Moves)
}

func (s *Session) ClearGame() {
	s.CurrentGame = ""
	s.CurrentGameState = nil
	s.LastMoveCount = 0
}

func (s *Session) SetAuth(token, userID, username string) {
	s.AuthToken = token
	s.CurrentUser = userID
	s.Username = username
	s.Client.SetToken(token)
}

// PlayerColor is the side the signed in user plays in the current game,
// or "" when the user owns neither side
func (s *Session) PlayerColor() string {
	g := s.CurrentGameState
	if g == nil || s.CurrentUser == "" {
		return ""
	}
	if p := g.Players.White; p != nil && p.UserID == s.CurrentUser {
		return "w"
	}
	if p := g.Players.Black; p != nil && p.UserID == s.CurrentUser {
		return "b"
	}
	return ""
}
