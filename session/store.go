package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is an exported constant or variable used by the authentication engine.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrStateNotFound is returned when no state record exists for the session.
var ErrStateNotFound = errors.New("session state not found")

// ErrAuthorizationNotFound is returned when no live recovery authorization
// exists for the session, or it was already consumed.
var ErrAuthorizationNotFound = errors.New("recovery authorization not found")

// watchRetryBackoff spaces out WATCH retries after a transaction conflict so
// contending goroutines do not spin against each other.
const watchRetryBackoff = 2 * time.Millisecond

// maxIdentifierBytes is the longest identifier the state codec can hold; the
// wire format length-prefixes strings with a single byte.
const maxIdentifierBytes = 255

// Store is a Redis-backed store for per-session login/recovery state and
// single-use recovery authorizations.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace; ttl bounds how long idle session
// state survives.
func NewStore(redis redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	return &Store{
		redis:  redis,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *Store) stateKey(sessionID string) string {
	return s.prefix + ":ls:" + sessionID
}

func (s *Store) authorizationKey(sessionID string) string {
	return s.prefix + ":ra:" + sessionID
}

// Get retrieves the state record for a session. Returns ErrStateNotFound
// when the session has no record yet or it expired.
func (s *Store) Get(ctx context.Context, sessionID string) (*State, error) {
	data, err := s.redis.Get(ctx, s.stateKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	state, err := Decode(data)
	if err != nil {
		return nil, err
	}
	state.SessionID = sessionID

	return state, nil
}

// Save persists a state record, refreshing the idle TTL.
func (s *Store) Save(ctx context.Context, state *State) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.stateKey(state.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Delete removes the state record and any outstanding recovery
// authorization for the session. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.stateKey(sessionID))
		pipe.Del(ctx, s.authorizationKey(sessionID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// RecordFailure increments the session failure counter for the given
// identifier and returns the updated state. A different identifier than the
// previous attempt restarts the count at one. The read-modify-write is
// serialized with WATCH so concurrent attempts on one session never lose
// increments. Identifiers longer than the codec's field limit are truncated
// before storing.
func (s *Store) RecordFailure(ctx context.Context, sessionID, identifier string, showRecoveryAfter int) (*State, error) {
	key := s.stateKey(sessionID)

	if len(identifier) > maxIdentifierBytes {
		identifier = identifier[:maxIdentifierBytes]
	}

	for {
		var updated *State

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			state := &State{
				SessionID: sessionID,
				CreatedAt: time.Now().Unix(),
			}

			data, err := tx.Get(ctx, key).Bytes()
			if err == nil {
				decoded, decodeErr := Decode(data)
				if decodeErr != nil {
					return decodeErr
				}
				decoded.SessionID = sessionID
				state = decoded
			} else if !errors.Is(err, redis.Nil) {
				return err
			}

			if state.LastIdentifier != identifier {
				state.FailureCount = 0
				state.ShowRecoveryLink = false
			}
			state.LastIdentifier = identifier
			state.FailureCount++
			if showRecoveryAfter > 0 && state.FailureCount >= uint32(showRecoveryAfter) {
				state.ShowRecoveryLink = true
			}

			encoded, err := Encode(state)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, s.ttl)
				return nil
			})
			if err != nil {
				return err
			}

			updated = state
			return nil
		}, key)

		if err == redis.TxFailedErr {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, ctx.Err())
			case <-time.After(watchRetryBackoff):
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}

		return updated, nil
	}
}

// SetRecoveryUser stamps the matched user onto the session state so the
// answer step can verify against the same account.
func (s *Store) SetRecoveryUser(ctx context.Context, sessionID, userID string) error {
	key := s.stateKey(sessionID)

	for {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			state := &State{
				SessionID: sessionID,
				CreatedAt: time.Now().Unix(),
			}

			data, err := tx.Get(ctx, key).Bytes()
			if err == nil {
				decoded, decodeErr := Decode(data)
				if decodeErr != nil {
					return decodeErr
				}
				decoded.SessionID = sessionID
				state = decoded
			} else if !errors.Is(err, redis.Nil) {
				return err
			}

			state.RecoveryUserID = userID

			encoded, err := Encode(state)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, s.ttl)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, ctx.Err())
			case <-time.After(watchRetryBackoff):
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}

		return nil
	}
}

// SaveAuthorization grants a recovery authorization to the session. A newer
// grant overwrites any outstanding one, so a session never holds more than a
// single live authorization.
func (s *Store) SaveAuthorization(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.authorizationKey(sessionID), userID, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// ConsumeAuthorization atomically removes and returns the session's recovery
// authorization. GETDEL guarantees exactly one caller wins when two consume
// concurrently; the loser gets ErrAuthorizationNotFound.
func (s *Store) ConsumeAuthorization(ctx context.Context, sessionID string) (string, error) {
	userID, err := s.redis.GetDel(ctx, s.authorizationKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrAuthorizationNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return userID, nil
}
