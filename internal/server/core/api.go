package core

// Request types

type CreateGameRequest struct {
	White PlayerConfig `json:"white" validate:"required"`
	Black PlayerConfig `json:"black" validate:"required"`
	FEN   string       `json:"fen,omitempty" validate:"omitempty,max=100"`
}

type ConfigurePlayersRequest struct {
	White PlayerConfig `json:"white" validate:"required"`
	Black PlayerConfig `json:"black" validate:"required"`
}

// MoveRequest carries UCI ("e2e4", "e7e8q") or SAN ("Nf3", "O-O", "e8=Q+").
// "cccc" asks the computer to move.
type MoveRequest struct {
	Move string `json:"move" validate:"required,min=2,max=10"`
}

type UndoRequest struct {
	Count int `json:"count" validate:"required,min=1,max=300"` // Max based on longest games in history (272), theoretical max 5949
}

// StepCheckRequest answers an exercise with a move or a quiz with an option
type StepCheckRequest struct {
	Move     string `json:"move,omitempty" validate:"omitempty,min=2,max=10"`
	OptionID string `json:"optionId,omitempty" validate:"omitempty,max=20"`
}

// Response types

type GameResponse struct {
	GameID     string          `json:"gameId"`
	FEN        string          `json:"fen"`
	Turn       string          `json:"turn"`  // "w" or "b"
	State      string          `json:"state"` // "ongoing", "white wins", etc
	Check      bool            `json:"check,omitempty"`
	DrawReason string          `json:"drawReason,omitempty"`
	Moves      []string        `json:"moves"`
	Players    PlayersResponse `json:"players"`
	LastMove   *MoveInfo       `json:"lastMove,omitempty"`
}

type MoveInfo struct {
	Move        string `json:"move"`
	SAN         string `json:"san,omitempty"`
	PlayerColor string `json:"playerColor"` // "w" or "b"
	Score       int    `json:"score,omitempty"`
	Depth       int    `json:"depth,omitempty"`
	Random      bool   `json:"random,omitempty"`
}

// PieceInfo is one occupied square of a board snapshot
type PieceInfo struct {
	Square string `json:"square"`
	Type   string `json:"type"`
	Color  string `json:"color"`
}

type BoardResponse struct {
	FEN    string      `json:"fen"`
	Board  string      `json:"board"` // ASCII representation
	Pieces []PieceInfo `json:"pieces"`
}

type LegalMovesResponse struct {
	FEN    string   `json:"fen"`
	Square string   `json:"square,omitempty"`
	Moves  []string `json:"moves"`
}

type HintResponse struct {
	Move   string `json:"move"`
	SAN    string `json:"san"`
	Score  int    `json:"score"`
	Depth  int    `json:"depth"`
	IsMate bool   `json:"isMate,omitempty"`
	MateIn int    `json:"mateIn,omitempty"`
	Hints  int    `json:"hintsUsed"`
}

// PuzzleResponse never carries the solution line
type PuzzleResponse struct {
	ID      string   `json:"id"`
	FEN     string   `json:"fen"`
	Rating  int      `json:"rating"`
	Themes  []string `json:"themes"`
	ToMove  string   `json:"toMove"`
	GameURL string   `json:"gameUrl,omitempty"`
	Date    string   `json:"date,omitempty"` // set for the daily puzzle
}

type PuzzleSessionResponse struct {
	SessionID string `json:"sessionId"`
	PuzzleID  string `json:"puzzleId"`
	FEN       string `json:"fen"`
	Solved    bool   `json:"solved"`
	HintsUsed int    `json:"hintsUsed"`
	Mistakes  int    `json:"mistakes"`
}

type PuzzleMoveResponse struct {
	PuzzleSessionResponse
	Result   string `json:"result"` // "correct", "incorrect" or "solved"
	Move     string `json:"move"`
	Reply    string `json:"reply,omitempty"`
	XPEarned int    `json:"xpEarned,omitempty"`
	Rating   int    `json:"rating,omitempty"` // puzzle rating after a solve, authenticated only
}

type PuzzleHintResponse struct {
	Count   int    `json:"count"`
	Message string `json:"message"`
	From    string `json:"from"`
	To      string `json:"to,omitempty"`
}

type LessonSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty"`
	Steps       int    `json:"steps"`
	Completed   bool   `json:"completed,omitempty"`
}

type StepCheckResponse struct {
	LessonID string `json:"lessonId"`
	StepID   string `json:"stepId"`
	Correct  bool   `json:"correct"`
}

type LessonCompleteResponse struct {
	LessonID string `json:"lessonId"`
	XPEarned int    `json:"xpEarned"`
	Level    int    `json:"level"`
}
