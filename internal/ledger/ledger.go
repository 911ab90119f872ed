// Package ledger keeps an append-only audit of finished rounds in
// postgres. The session never reads it back.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/DoyleJ11/liars-dice/internal/engine"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Round is one row per finished round. Hands are only stored once the
// round is over and both were revealed.
type Round struct {
	ID          uint `gorm:"primaryKey"`
	Round       int  `gorm:"index"`
	Seed        int64
	Player0     string
	Player1     string
	Hand0       string `gorm:"size:6"`
	Hand1       string `gorm:"size:6"`
	ClaimCount  uint8
	ClaimFace   uint8
	Claimant    string
	Challenger  string
	Winner      string
	Outcome     string `gorm:"index"`
	CompletedAt time.Time
}

// Recorder accepts finished rounds. Record must not block the caller.
type Recorder interface {
	Record(Round)
}

type Nop struct{}

func (Nop) Record(Round) {}

// FromState builds the row for a session that has just left play.
func FromState(s engine.State, seed int64, at time.Time) Round {
	name := func(id engine.PlayerID) string {
		for _, seat := range s.Seats {
			if seat.ID == id {
				return seat.Name
			}
		}
		return ""
	}
	return Round{
		Round:       s.Round,
		Seed:        seed,
		Player0:     s.Seats[0].Name,
		Player1:     s.Seats[1].Name,
		Hand0:       handString(s.Seats[0].Hand),
		Hand1:       handString(s.Seats[1].Hand),
		ClaimCount:  s.Claim.Count,
		ClaimFace:   s.Claim.Face,
		Claimant:    name(s.Claimant),
		Challenger:  name(s.Challenger),
		Winner:      name(s.Winner),
		Outcome:     string(s.Outcome),
		CompletedAt: at.UTC(),
	}
}

func handString(h engine.Hand) string {
	b := make([]byte, len(h))
	for i, d := range h {
		b[i] = '0' + d
	}
	return string(b)
}

// Open connects to postgres, retrying a few times while the database comes
// up, and migrates the schema.
func Open(dsn string, log *zap.Logger) (*gorm.DB, error) {
	const maxRetries = 3
	const retryInterval = 2 * time.Second

	var err error
	for i := 0; i <= maxRetries; i++ {
		var db *gorm.DB
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err == nil {
			if err = db.AutoMigrate(&Round{}); err != nil {
				return nil, fmt.Errorf("migrate ledger: %w", err)
			}
			return db, nil
		}
		log.Warn("ledger connect retry", zap.Int("retry", i), zap.Error(err))
		if i < maxRetries {
			time.Sleep(retryInterval)
		}
	}
	return nil, fmt.Errorf("connect ledger: %w", err)
}

// Store writes rows from a background goroutine so the tick loop never
// waits on the database.
type Store struct {
	db    *gorm.DB
	log   *zap.Logger
	queue chan Round
}

func NewStore(db *gorm.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log, queue: make(chan Round, 64)}
}

// Record queues r. When the queue is full the row is dropped and logged.
func (s *Store) Record(r Round) {
	select {
	case s.queue <- r:
	default:
		s.log.Warn("ledger queue full, dropping round", zap.Int("round", r.Round))
	}
}

// Run drains the queue until ctx is done.
func (s *Store) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case r := <-s.queue:
			if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
				s.log.Error("ledger insert", zap.Int("round", r.Round), zap.Error(err))
			}
		}
	}
}
