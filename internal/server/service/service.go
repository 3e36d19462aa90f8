package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"forkknight/internal/server/game"
	"forkknight/internal/server/puzzle"
	"forkknight/internal/server/rating"
	"forkknight/internal/server/storage"
)

const (
	MaxComputerGames   = 10
	SessionTTL         = 7 * 24 * time.Hour
	PuzzleSessionTTL   = 2 * time.Hour
	CleanupJobInterval = 1 * time.Hour
)

var ErrStorageDisabled = errors.New("storage disabled")

// Service coordinates game state, users, puzzles, lessons, progress, and storage
type Service struct {
	games         map[string]*game.Game
	mu            sync.RWMutex
	store         *storage.Store
	jwtSecret     []byte
	limits        storage.UserLimits
	waiter        *WaitRegistry
	computerGames atomic.Int32 // Active games with computer players

	catalog        *puzzle.Catalog
	puzzleSessions map[string]*puzzleSession
	puzzleMu       sync.Mutex

	progress   map[string]*rating.Progress // cache, write-through to store
	progressMu sync.Mutex

	rng *lockedRand
	log zerolog.Logger
}

// New creates a new service instance with optional storage
func New(store *storage.Store, jwtSecret []byte, catalog *puzzle.Catalog, log zerolog.Logger) *Service {
	return &Service{
		games:          make(map[string]*game.Game),
		store:          store,
		jwtSecret:      jwtSecret,
		limits:         storage.DefaultUserLimits(),
		waiter:         NewWaitRegistry(WaitTimeout),
		catalog:        catalog,
		puzzleSessions: make(map[string]*puzzleSession),
		progress:       make(map[string]*rating.Progress),
		rng:            newLockedRand(),
		log:            log.With().Str("component", "service").Logger(),
	}
}

// lockedRand shares one generator between request goroutines
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newLockedRand() *lockedRand {
	return &lockedRand{r: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))}
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// Seed makes selections reproducible, for tests
func (s *Service) Seed(seed uint64) {
	s.rng.mu.Lock()
	defer s.rng.mu.Unlock()
	s.rng.r = rand.New(rand.NewPCG(seed, seed))
}

// LoadCatalog prefers puzzles imported into storage and falls back to the
// embedded set; lessons always come from the embedded content
func LoadCatalog(store *storage.Store) (*puzzle.Catalog, error) {
	lessons, err := puzzle.EmbeddedLessons()
	if err != nil {
		return nil, err
	}

	if store != nil {
		records, err := store.ListPuzzles()
		if err != nil {
			return nil, fmt.Errorf("load stored puzzles: %w", err)
		}
		if len(records) > 0 {
			puzzles := make([]puzzle.Puzzle, 0, len(records))
			for _, r := range records {
				puzzles = append(puzzles, puzzle.Puzzle{
					ID:      r.PuzzleID,
					FEN:     r.FEN,
					Moves:   r.Moves,
					Rating:  r.Rating,
					Themes:  r.Themes,
					GameURL: r.GameURL,
				})
			}
			return puzzle.NewCatalog(puzzles, lessons), nil
		}
	}

	puzzles, err := puzzle.EmbeddedPuzzles()
	if err != nil {
		return nil, err
	}
	return puzzle.NewCatalog(puzzles, lessons), nil
}

// GetStorageHealth returns the storage component status
func (s *Service) GetStorageHealth() string {
	if s.store == nil {
		return "disabled"
	}
	if s.store.IsHealthy() {
		return "ok"
	}
	return "degraded"
}

// RegisterWait registers a client to wait for game state changes
func (s *Service) RegisterWait(ctx context.Context, gameID string, moveCount int) <-chan struct{} {
	return s.waiter.RegisterWait(ctx, gameID, moveCount)
}

// CanCreateComputerGame checks if a new computer game can be created
func (s *Service) CanCreateComputerGame() bool {
	return s.computerGames.Load() < MaxComputerGames
}

// GetComputerGameCount returns current computer game count
func (s *Service) GetComputerGameCount() int32 {
	return s.computerGames.Load()
}

// Shutdown gracefully shuts down the service
func (s *Service) Shutdown(timeout time.Duration) error {
	var errs []error

	if err := s.waiter.Shutdown(timeout); err != nil {
		errs = append(errs, fmt.Errorf("wait registry: %w", err))
	}

	s.mu.Lock()
	s.games = make(map[string]*game.Game)
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	return errors.Join(errs...)
}

// RunCleanupJob runs periodic cleanup of expired users, sessions and
// abandoned puzzle sessions
func (s *Service) RunCleanupJob(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanupExpired(time.Now())
		}
	}
}

func (s *Service) cleanupExpired(now time.Time) {
	if n := s.expirePuzzleSessions(now); n > 0 {
		s.log.Info().Int("count", n).Msg("cleanup: dropped idle puzzle sessions")
	}

	if s.store == nil {
		return
	}

	if deleted, err := s.store.DeleteExpiredTempUsers(); err != nil {
		s.log.Warn().Err(err).Msg("cleanup: failed to delete expired users")
	} else if deleted > 0 {
		s.log.Info().Int64("count", deleted).Msg("cleanup: deleted expired temp users")
	}

	if deleted, err := s.store.DeleteExpiredSessions(); err != nil {
		s.log.Warn().Err(err).Msg("cleanup: failed to delete expired sessions")
	} else if deleted > 0 {
		s.log.Info().Int64("count", deleted).Msg("cleanup: deleted expired sessions")
	}
}
