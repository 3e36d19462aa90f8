package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"forkknight/internal/client/display"
	"forkknight/internal/server/core"
	"forkknight/internal/server/puzzle"
	"forkknight/internal/server/rating"
)

type Client struct {
	BaseURL    string
	AuthToken  string
	HTTPClient *http.Client
	Verbose    bool
	Out        io.Writer
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			// Long-poll waits end server side before this
			Timeout: 40 * time.Second,
		},
		Out: os.Stdout,
	}
}

func (c *Client) SetVerbose(v bool) {
	c.Verbose = v
}

// SetBaseURL updates the API base URL for the client
func (c *Client) SetBaseURL(url string) {
	c.BaseURL = strings.TrimRight(url, "/")
}

func (c *Client) SetToken(token string) {
	c.AuthToken = token
}

func (c *Client) doRequest(method, path string, body any, result any) error {
	var bodyReader io.Reader
	var bodyData []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyData = data
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	fmt.Fprintf(c.Out, "\n%s[API] %s %s%s\n", display.Blue, method, path, display.Reset)
	if len(bodyData) > 0 {
		if c.Verbose {
			fmt.Fprintf(c.Out, "%sRequest Body:%s\n%s\n", display.Cyan, display.Reset, display.IndentJSON(bodyData))
		} else {
			fmt.Fprintf(c.Out, "%s%s%s\n", display.Blue, bodyData, display.Reset)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		fmt.Fprintf(c.Out, "%s[ERROR] %s%s\n", display.Red, err.Error(), display.Reset)
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	statusColor := display.Green
	if resp.StatusCode >= 400 {
		statusColor = display.Red
	}
	fmt.Fprintf(c.Out, "%s[%d %s]%s\n", statusColor, resp.StatusCode, http.StatusText(resp.StatusCode), display.Reset)

	if c.Verbose && len(respBody) > 0 {
		fmt.Fprintf(c.Out, "%sResponse Body:%s\n%s\n", display.Cyan, display.Reset, display.IndentJSON(respBody))
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{Status: resp.StatusCode}
		var errResp core.ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil {
			apiErr.Code = errResp.Code
			apiErr.Message = errResp.Error
			apiErr.Details = errResp.Details
		}
		if !c.Verbose {
			switch {
			case apiErr.Code != "":
				fmt.Fprintf(c.Out, "%sError: %s%s\n", display.Red, apiErr.Message, display.Reset)
				fmt.Fprintf(c.Out, "%sCode: %s%s\n", display.Red, apiErr.Code, display.Reset)
				if apiErr.Details != "" {
					fmt.Fprintf(c.Out, "%sDetails: %s%s\n", display.Red, apiErr.Details, display.Reset)
				}
			case len(respBody) > 0:
				fmt.Fprintf(c.Out, "%s%s%s\n", display.Red, respBody, display.Reset)
			}
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			fmt.Fprintf(c.Out, "%sResponse parse error: %s%s\n", display.Red, err.Error(), display.Reset)
			fmt.Fprintf(c.Out, "%sRaw response: %s%s\n", display.Green, respBody, display.Reset)
			return err
		}
	}

	return nil
}

// API Methods

func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	err := c.doRequest(http.MethodGet, "/health", nil, &resp)
	return &resp, err
}

// Games

func (c *Client) CreateGame(req *core.CreateGameRequest) (*core.GameResponse, error) {
	var resp core.GameResponse
	err := c.doRequest(http.MethodPost, "/api/v1/games", req, &resp)
	return &resp, err
}

func (c *Client) ConfigurePlayers(gameID string, req *core.ConfigurePlayersRequest) (*core.GameResponse, error) {
	var resp core.GameResponse
	err := c.doRequest(http.MethodPut, "/api/v1/games/"+gameID+"/players", req, &resp)
	return &resp, err
}

func (c *Client) GetGame(gameID string) (*core.GameResponse, error) {
	var resp core.GameResponse
	err := c.doRequest(http.MethodGet, "/api/v1/games/"+gameID, nil, &resp)
	return &resp, err
}

// GetGameWithPoll holds until the game moves past moveCount or the server
// wait expires
func (c *Client) GetGameWithPoll(gameID string, moveCount int) (*core.GameResponse, error) {
	var resp core.GameResponse
	path := fmt.Sprintf("/api/v1/games/%s?wait=true&moveCount=%d", gameID, moveCount)
	err := c.doRequest(http.MethodGet, path, nil, &resp)
	return &resp, err
}

func (c *Client) DeleteGame(gameID string) error {
	return c.doRequest(http.MethodDelete, "/api/v1/games/"+gameID, nil, nil)
}

// MakeMove plays a move in SAN or UCI; "cccc" asks the computer to move
func (c *Client) MakeMove(gameID string, move string) (*core.GameResponse, error) {
	var resp core.GameResponse
	err := c.doRequest(http.MethodPost, "/api/v1/games/"+gameID+"/moves", &core.MoveRequest{Move: move}, &resp)
	return &resp, err
}

func (c *Client) UndoMoves(gameID string, count int) (*core.GameResponse, error) {
	var resp core.GameResponse
	err := c.doRequest(http.MethodPost, "/api/v1/games/"+gameID+"/undo", &core.UndoRequest{Count: count}, &resp)
	return &resp, err
}

func (c *Client) GetBoard(gameID string) (*core.BoardResponse, error) {
	var resp core.BoardResponse
	err := c.doRequest(http.MethodGet, "/api/v1/games/"+gameID+"/board", nil, &resp)
	return &resp, err
}

func (c *Client) LegalMoves(gameID, square string) (*core.LegalMovesResponse, error) {
	path := "/api/v1/games/" + gameID + "/legal"
	if square != "" {
		path += "?square=" + url.QueryEscape(square)
	}
	var resp core.LegalMovesResponse
	err := c.doRequest(http.MethodGet, path, nil, &resp)
	return &resp, err
}

func (c *Client) Hint(gameID string) (*core.HintResponse, error) {
	var resp core.HintResponse
	err := c.doRequest(http.MethodPost, "/api/v1/games/"+gameID+"/hint", nil, &resp)
	return &resp, err
}

func (c *Client) Resign(gameID string) (*core.GameResponse, error) {
	var resp core.GameResponse
	err := c.doRequest(http.MethodPost, "/api/v1/games/"+gameID+"/resign", nil, &resp)
	return &resp, err
}

// Puzzles

// DailyPuzzle fetches the puzzle of a YYYY-MM-DD date, today when empty
func (c *Client) DailyPuzzle(date string) (*core.PuzzleResponse, error) {
	path := "/api/v1/puzzles/daily"
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}
	var resp core.PuzzleResponse
	err := c.doRequest(http.MethodGet, path, nil, &resp)
	return &resp, err
}

func (c *Client) NextPuzzle() (*core.PuzzleResponse, error) {
	var resp core.PuzzleResponse
	err := c.doRequest(http.MethodGet, "/api/v1/puzzles/next", nil, &resp)
	return &resp, err
}

func (c *Client) GetPuzzle(puzzleID string) (*core.PuzzleResponse, error) {
	var resp core.PuzzleResponse
	err := c.doRequest(http.MethodGet, "/api/v1/puzzles/"+puzzleID, nil, &resp)
	return &resp, err
}

func (c *Client) StartPuzzle(puzzleID string) (*core.PuzzleSessionResponse, error) {
	var resp core.PuzzleSessionResponse
	err := c.doRequest(http.MethodPost, "/api/v1/puzzles/"+puzzleID+"/attempts", nil, &resp)
	return &resp, err
}

func (c *Client) GetPuzzleSession(sessionID string) (*core.PuzzleSessionResponse, error) {
	var resp core.PuzzleSessionResponse
	err := c.doRequest(http.MethodGet, "/api/v1/puzzle-sessions/"+sessionID, nil, &resp)
	return &resp, err
}

func (c *Client) PuzzleMove(sessionID, move string) (*core.PuzzleMoveResponse, error) {
	var resp core.PuzzleMoveResponse
	err := c.doRequest(http.MethodPost, "/api/v1/puzzle-sessions/"+sessionID+"/moves", &core.MoveRequest{Move: move}, &resp)
	return &resp, err
}

func (c *Client) PuzzleHint(sessionID string) (*core.PuzzleHintResponse, error) {
	var resp core.PuzzleHintResponse
	err := c.doRequest(http.MethodPost, "/api/v1/puzzle-sessions/"+sessionID+"/hint", nil, &resp)
	return &resp, err
}

func (c *Client) ResetPuzzle(sessionID string) (*core.PuzzleSessionResponse, error) {
	var resp core.PuzzleSessionResponse
	err := c.doRequest(http.MethodPost, "/api/v1/puzzle-sessions/"+sessionID+"/reset", nil, &resp)
	return &resp, err
}

// Lessons

func (c *Client) Lessons(category, difficulty string) ([]core.LessonSummary, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if difficulty != "" {
		q.Set("difficulty", difficulty)
	}
	path := "/api/v1/lessons"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp []core.LessonSummary
	err := c.doRequest(http.MethodGet, path, nil, &resp)
	return resp, err
}

func (c *Client) Lesson(lessonID string) (*puzzle.Lesson, error) {
	var resp puzzle.Lesson
	err := c.doRequest(http.MethodGet, "/api/v1/lessons/"+lessonID, nil, &resp)
	return &resp, err
}

// CheckStep grades an exercise move or, for quizzes, an option id
func (c *Client) CheckStep(lessonID, stepID string, req *core.StepCheckRequest) (*core.StepCheckResponse, error) {
	var resp core.StepCheckResponse
	path := "/api/v1/lessons/" + lessonID + "/steps/" + stepID + "/check"
	err := c.doRequest(http.MethodPost, path, req, &resp)
	return &resp, err
}

func (c *Client) CompleteLesson(lessonID string) (*core.LessonCompleteResponse, error) {
	var resp core.LessonCompleteResponse
	err := c.doRequest(http.MethodPost, "/api/v1/lessons/"+lessonID+"/complete", nil, &resp)
	return &resp, err
}

func (c *Client) Progress() (*rating.Progress, error) {
	var resp rating.Progress
	err := c.doRequest(http.MethodGet, "/api/v1/progress", nil, &resp)
	return &resp, err
}

// Auth

func (c *Client) Register(username, password, email string) (*AuthResponse, error) {
	req := &RegisterRequest{
		Username: username,
		Password: password,
		Email:    email,
	}
	var resp AuthResponse
	err := c.doRequest(http.MethodPost, "/api/v1/auth/register", req, &resp)
	return &resp, err
}

func (c *Client) Login(identifier, password string) (*AuthResponse, error) {
	req := &LoginRequest{
		Identifier: identifier,
		Password:   password,
	}
	var resp AuthResponse
	err := c.doRequest(http.MethodPost, "/api/v1/auth/login", req, &resp)
	return &resp, err
}

func (c *Client) Logout() error {
	return c.doRequest(http.MethodPost, "/api/v1/auth/logout", nil, nil)
}

func (c *Client) GetCurrentUser() (*UserResponse, error) {
	var resp UserResponse
	err := c.doRequest(http.MethodGet, "/api/v1/auth/me", nil, &resp)
	return &resp, err
}

// RawRequest performs a raw HTTP request for debugging purposes
func (c *Client) RawRequest(method, path string, body string) error {
	var bodyData any
	if body != "" {
		if err := json.Unmarshal([]byte(body), &bodyData); err != nil {
			// Send as a JSON string
			bodyData = body
		}
	}

	if !c.Verbose {
		// Raw requests always show what came back
		c.Verbose = true
		defer func() { c.Verbose = false }()
	}
	return c.doRequest(strings.ToUpper(method), path, bodyData, nil)
}
