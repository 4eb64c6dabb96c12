package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
	"github.com/vncsmyrnk/presencepoll/internal/core/ports"
)

const keyPrefix = "presence:"

// DefaultRetention keeps expired credentials readable long enough to
// answer "expired" rather than "not found".
const DefaultRetention = 24 * time.Hour

// CredentialStore keeps presence credentials in Redis. Each credential is a
// JSON value under its token; each poll has a sorted set of its tokens
// scored by issue time.
type CredentialStore struct {
	client    *goredis.Client
	retention time.Duration
}

func NewCredentialStore(client *goredis.Client, retention time.Duration) ports.CredentialRepository {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &CredentialStore{client: client, retention: retention}
}

func credentialKey(token string) string {
	return keyPrefix + "credential:" + token
}

func pollKey(pollID uuid.UUID) string {
	return keyPrefix + "poll:" + pollID.String()
}

func issueScore(t time.Time) float64 {
	return float64(t.UnixMicro())
}

func (s *CredentialStore) Issue(ctx context.Context, cred *domain.PresenceCredential) error {
	score := issueScore(cred.IssuedAt)

	older, err := s.client.ZRangeByScore(ctx, pollKey(cred.PollID), &goredis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatFloat(score, 'f', -1, 64),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to list poll credentials: %w", err)
	}

	for _, token := range older {
		prev, err := s.GetByToken(ctx, token)
		if errors.Is(err, domain.ErrTokenNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if !prev.ExpiresAt.After(cred.IssuedAt) {
			continue
		}
		prev.ExpiresAt = cred.IssuedAt
		payload, err := json.Marshal(prev)
		if err != nil {
			return fmt.Errorf("failed to encode credential: %w", err)
		}
		if err := s.client.SetArgs(ctx, credentialKey(token), payload, goredis.SetArgs{KeepTTL: true}).Err(); err != nil {
			return fmt.Errorf("failed to supersede credential: %w", err)
		}
	}

	payload, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}
	ttl := cred.ExpiresAt.Sub(cred.IssuedAt) + s.retention

	var stored *goredis.BoolCmd
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		stored = pipe.SetNX(ctx, credentialKey(cred.Token), payload, ttl)
		pipe.ZAdd(ctx, pollKey(cred.PollID), goredis.Z{Score: score, Member: cred.Token})
		pipe.Expire(ctx, pollKey(cred.PollID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	if !stored.Val() {
		return domain.ErrConflict
	}
	return nil
}

func (s *CredentialStore) Active(ctx context.Context, pollID uuid.UUID, now time.Time) (*domain.PresenceCredential, error) {
	tokens, err := s.client.ZRevRange(ctx, pollKey(pollID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list poll credentials: %w", err)
	}

	for _, token := range tokens {
		cred, err := s.GetByToken(ctx, token)
		if errors.Is(err, domain.ErrTokenNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !cred.Expired(now) {
			return cred, nil
		}
	}
	return nil, nil
}

func (s *CredentialStore) GetByToken(ctx context.Context, token string) (*domain.PresenceCredential, error) {
	payload, err := s.client.Get(ctx, credentialKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	var cred domain.PresenceCredential
	if err := json.Unmarshal(payload, &cred); err != nil {
		return nil, fmt.Errorf("failed to decode credential: %w", err)
	}
	return &cred, nil
}

// PurgeExpired drops credentials that expired before the horizon together
// with their poll index entries. Redis also evicts them once the retention
// TTL passes.
func (s *CredentialStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	var purged int64

	iter := s.client.Scan(ctx, 0, keyPrefix+"poll:*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		tokens, err := s.client.ZRange(ctx, key, 0, -1).Result()
		if err != nil {
			return purged, fmt.Errorf("failed to list poll credentials: %w", err)
		}

		for _, token := range tokens {
			cred, err := s.GetByToken(ctx, token)
			switch {
			case errors.Is(err, domain.ErrTokenNotFound):
			case err != nil:
				return purged, err
			case cred.ExpiresAt.Before(before):
				if err := s.client.Del(ctx, credentialKey(token)).Err(); err != nil {
					return purged, fmt.Errorf("failed to delete credential: %w", err)
				}
				purged++
			default:
				continue
			}
			if err := s.client.ZRem(ctx, key, token).Err(); err != nil {
				return purged, fmt.Errorf("failed to unindex credential: %w", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return purged, fmt.Errorf("failed to scan poll indexes: %w", err)
	}
	return purged, nil
}
