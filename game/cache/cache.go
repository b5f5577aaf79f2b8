package cache

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/mcp-training/mummymaze/game/solver"
)

var (
	ErrNotFound      = errors.New("solution not found")
	ErrNotCacheable  = errors.New("aborted results are not cached")
	ErrLocked        = errors.New("solution is being computed elsewhere")
	errMissingResult = errors.New("entry has no result")
)

// Key prefixes shared by every process using the same Redis
const (
	KeyPrefix  = "mummymaze:solution:"
	idPrefix   = "mummymaze:solution-id:"
	lockPrefix = "mummymaze:lock:"
)

// Entry is a cached search result for one level fingerprint
type Entry struct {
	ID          string         `json:"id"`
	Fingerprint string         `json:"fingerprint"`
	LevelName   string         `json:"level_name,omitempty"`
	Result      *solver.Result `json:"result"`
	CreatedAt   time.Time      `json:"created_at"`
}

// SolutionCache stores final search verdicts by level fingerprint. Each
// fingerprint keeps the ID it was first stored under; Put rewrites e.ID to
// that ID when replacing an entry.
// Lock serializes solving of one fingerprint so concurrent callers can wait
// for the first result instead of repeating the search.
type SolutionCache interface {
	Get(ctx context.Context, fingerprint string) (*Entry, error)
	GetByID(ctx context.Context, id string) (*Entry, error)
	Put(ctx context.Context, fingerprint string, e *Entry) error
	Lock(ctx context.Context, fingerprint string) (unlock func(), err error)
}

func checkCacheable(e *Entry) error {
	if e == nil || e.Result == nil {
		return errMissingResult
	}
	if e.Result.Status == solver.Aborted {
		return ErrNotCacheable
	}
	return nil
}
