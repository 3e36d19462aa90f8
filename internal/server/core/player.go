package core

import (
	"github.com/google/uuid"
)

type PlayerType int

const (
	PlayerHuman PlayerType = iota + 1
	PlayerComputer
)

func (t PlayerType) String() string {
	switch t {
	case PlayerHuman:
		return "human"
	case PlayerComputer:
		return "computer"
	default:
		return "unknown"
	}
}

// Player is the complete game entity with all state
type Player struct {
	ID       string     `json:"id"`
	Color    Color      `json:"color"`
	Type     PlayerType `json:"type"`
	UserID   string     `json:"userId,omitempty"`   // Authenticated owner, humans only
	Rating   int        `json:"rating,omitempty"`   // Target strength, computer only
	MoveTime int        `json:"moveTime,omitempty"` // Search budget in ms, computer only
}

// PlayerConfig for API requests and configuration
type PlayerConfig struct {
	Type     PlayerType `json:"type" validate:"required,oneof=1 2"`
	Rating   int        `json:"rating,omitempty" validate:"omitempty,min=100,max=3000"`
	MoveTime int        `json:"moveTime,omitempty" validate:"omitempty,min=100,max=10000"` // Processor sets the min value
}

// PlayersResponse for API responses
type PlayersResponse struct {
	White *Player `json:"white"`
	Black *Player `json:"black"`
}

// NewPlayer creates a Player from PlayerConfig
func NewPlayer(config PlayerConfig, color Color) *Player {
	player := &Player{
		ID:    uuid.New().String(),
		Color: color,
		Type:  config.Type,
	}

	if config.Type == PlayerComputer {
		player.Rating = config.Rating
		player.MoveTime = config.MoveTime
	}

	return player
}

func (p *Player) IsComputer() bool {
	return p != nil && p.Type == PlayerComputer
}
