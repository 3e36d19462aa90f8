package storage

import "time"

// UserRecord represents a user account in the database
type UserRecord struct {
	UserID       string     `db:"user_id"`
	Username     string     `db:"username"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	AccountType  string     `db:"account_type"` // "permanent" or "temp"
	CreatedAt    time.Time  `db:"created_at"`
	ExpiresAt    *time.Time `db:"expires_at"` // nil for permanent
	LastLoginAt  *time.Time `db:"last_login_at"`
}

const (
	AccountPermanent = "permanent"
	AccountTemp      = "temp"
)

// SessionRecord represents an active user session
type SessionRecord struct {
	SessionID string    `db:"session_id"`
	UserID    string    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

// GameRecord represents a row in the games table
type GameRecord struct {
	GameID        string     `db:"game_id"`
	InitialFEN    string     `db:"initial_fen"`
	WhitePlayerID string     `db:"white_player_id"`
	WhiteType     int        `db:"white_type"`
	WhiteRating   int        `db:"white_rating"`
	WhiteMoveTime int        `db:"white_move_time"`
	BlackPlayerID string     `db:"black_player_id"`
	BlackType     int        `db:"black_type"`
	BlackRating   int        `db:"black_rating"`
	BlackMoveTime int        `db:"black_move_time"`
	StartTimeUTC  time.Time  `db:"start_time_utc"`
	Result        string     `db:"result"` // empty while the game is running
	EndTimeUTC    *time.Time `db:"end_time_utc"`
}

// MoveRecord represents a row in the moves table
type MoveRecord struct {
	MoveID       int64     `db:"move_id"`
	GameID       string    `db:"game_id"`
	MoveNumber   int       `db:"move_number"`
	MoveUCI      string    `db:"move_uci"`
	MoveSAN      string    `db:"move_san"`
	FENAfterMove string    `db:"fen_after_move"`
	PlayerColor  string    `db:"player_color"`
	MoveTimeUTC  time.Time `db:"move_time_utc"`
}

// ProgressRecord is a player's learning record; the id lists are stored
// as JSON arrays
type ProgressRecord struct {
	UserID           string     `db:"user_id"`
	XP               int        `db:"xp"`
	Level            int        `db:"level"`
	PuzzleRating     int        `db:"puzzle_rating"`
	GameRating       int        `db:"game_rating"`
	CompletedLessons []string   `db:"completed_lessons"`
	CompletedPuzzles []string   `db:"completed_puzzles"`
	CurrentStreak    int        `db:"current_streak"`
	LongestStreak    int        `db:"longest_streak"`
	LastActiveAt     *time.Time `db:"last_active_at"`
}

// PuzzleRecord is one row of the imported puzzle catalog
type PuzzleRecord struct {
	PuzzleID string   `db:"puzzle_id"`
	FEN      string   `db:"fen"`
	Moves    []string `db:"moves"`  // space separated UCI in the table
	Rating   int      `db:"rating"`
	Themes   []string `db:"themes"` // space separated in the table
	GameURL  string   `db:"game_url"`
}

// PuzzleAttemptRecord logs one finished puzzle session
type PuzzleAttemptRecord struct {
	AttemptID    int64     `db:"attempt_id"`
	UserID       string    `db:"user_id"`
	PuzzleID     string    `db:"puzzle_id"`
	Solved       bool      `db:"solved"`
	HintsUsed    int       `db:"hints_used"`
	Mistakes     int       `db:"mistakes"`
	RatingAfter  int       `db:"rating_after"`
	XPEarned     int       `db:"xp_earned"`
	AttemptedUTC time.Time `db:"attempted_utc"`
}

// Schema defines the SQLite database structure
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id TEXT PRIMARY KEY,
	username TEXT UNIQUE NOT NULL COLLATE NOCASE,
	email TEXT COLLATE NOCASE,
	password_hash TEXT NOT NULL,
	account_type TEXT NOT NULL DEFAULT 'temp' CHECK(account_type IN ('permanent', 'temp')),
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	expires_at DATETIME,
	last_login_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
CREATE INDEX IF NOT EXISTS idx_users_account_type ON users(account_type);
CREATE INDEX IF NOT EXISTS idx_users_expires_at ON users(expires_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_unique ON users(email) WHERE email IS NOT NULL AND email != '';

CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	expires_at DATETIME NOT NULL,
	FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);

CREATE TABLE IF NOT EXISTS games (
	game_id TEXT PRIMARY KEY,
	initial_fen TEXT NOT NULL,
	white_player_id TEXT NOT NULL,
	white_type INTEGER NOT NULL,
	white_rating INTEGER NOT NULL DEFAULT 0,
	white_move_time INTEGER NOT NULL DEFAULT 0,
	black_player_id TEXT NOT NULL,
	black_type INTEGER NOT NULL,
	black_rating INTEGER NOT NULL DEFAULT 0,
	black_move_time INTEGER NOT NULL DEFAULT 0,
	start_time_utc DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	result TEXT NOT NULL DEFAULT '',
	end_time_utc DATETIME
);

CREATE TABLE IF NOT EXISTS moves (
	move_id INTEGER PRIMARY KEY AUTOINCREMENT,
	game_id TEXT NOT NULL,
	move_number INTEGER NOT NULL,
	move_uci TEXT NOT NULL,
	move_san TEXT NOT NULL DEFAULT '',
	fen_after_move TEXT NOT NULL,
	player_color TEXT NOT NULL CHECK(player_color IN ('w', 'b')),
	move_time_utc DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (game_id) REFERENCES games(game_id) ON DELETE CASCADE,
	UNIQUE(game_id, move_number)
);

CREATE INDEX IF NOT EXISTS idx_moves_game_id ON moves(game_id);
CREATE INDEX IF NOT EXISTS idx_games_white_player ON games(white_player_id);
CREATE INDEX IF NOT EXISTS idx_games_black_player ON games(black_player_id);

CREATE TABLE IF NOT EXISTS progress (
	user_id TEXT PRIMARY KEY,
	xp INTEGER NOT NULL DEFAULT 0,
	level INTEGER NOT NULL DEFAULT 1,
	puzzle_rating INTEGER NOT NULL DEFAULT 600,
	game_rating INTEGER NOT NULL DEFAULT 600,
	completed_lessons TEXT NOT NULL DEFAULT '[]',
	completed_puzzles TEXT NOT NULL DEFAULT '[]',
	current_streak INTEGER NOT NULL DEFAULT 0,
	longest_streak INTEGER NOT NULL DEFAULT 0,
	last_active_at DATETIME,
	FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS puzzles (
	puzzle_id TEXT PRIMARY KEY,
	fen TEXT NOT NULL,
	moves TEXT NOT NULL,
	rating INTEGER NOT NULL,
	themes TEXT NOT NULL DEFAULT '',
	game_url TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_puzzles_rating ON puzzles(rating);

CREATE TABLE IF NOT EXISTS puzzle_attempts (
	attempt_id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	puzzle_id TEXT NOT NULL,
	solved INTEGER NOT NULL,
	hints_used INTEGER NOT NULL DEFAULT 0,
	mistakes INTEGER NOT NULL DEFAULT 0,
	rating_after INTEGER NOT NULL,
	xp_earned INTEGER NOT NULL DEFAULT 0,
	attempted_utc DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_puzzle_attempts_user ON puzzle_attempts(user_id);
`
