package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lightgrid/lightgrid-services-uploads/apperrors"
	"github.com/lightgrid/lightgrid-services-uploads/models"
)

// RedisSessionStore keeps upload sessions in redis. Layout per upload:
//
//	upload:session:{id}  JSON of the immutable session fields
//	upload:status:{id}   current status string (CAS target)
//	upload:chunks:{id}   set of received chunk indices
//	upload:expiry        zset of upload ids scored by expiry unix time
//
// Keys carry a redis TTL of session TTL plus a grace window, so lazy
// expiry checks still observe the session as EXPIRED after its logical
// deadline while redis eventually reclaims abandoned state on its own.
type RedisSessionStore struct {
	client *redis.Client
	grace  time.Duration
}

const expiryIndexKey = "upload:expiry"

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client, grace: 24 * time.Hour}
}

func sessionKey(id string) string { return "upload:session:" + id }
func statusKey(id string) string  { return "upload:status:" + id }
func chunksKey(id string) string  { return "upload:chunks:" + id }

func (s *RedisSessionStore) IsReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

func (s *RedisSessionStore) Name() string {
	return "SessionStore[redis]"
}

func (s *RedisSessionStore) Create(ctx context.Context, session models.UploadSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt) + s.grace

	ok, err := s.client.SetNX(ctx, sessionKey(session.UploadID), payload, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("upload session %s already exists", session.UploadID)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, statusKey(session.UploadID), string(session.Status), ttl)
	pipe.ZAdd(ctx, expiryIndexKey, redis.Z{
		Score:  float64(session.ExpiresAt.Unix()),
		Member: session.UploadID,
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisSessionStore) Get(ctx context.Context, uploadID string) (*models.UploadSession, error) {
	payload, err := s.client.Get(ctx, sessionKey(uploadID)).Bytes()
	if err == redis.Nil {
		return nil, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var session models.UploadSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", uploadID, err)
	}

	// the status key is authoritative; the JSON copy is the initial value
	statusStr, err := s.client.Get(ctx, statusKey(uploadID)).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	if statusStr != "" {
		status, err := models.ParseUploadStatus(statusStr)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", uploadID, err)
		}
		session.Status = status
	}

	return &session, nil
}

func (s *RedisSessionStore) ReceivedChunks(ctx context.Context, uploadID string) ([]int, error) {
	members, err := s.client.SMembers(ctx, chunksKey(uploadID)).Result()
	if err != nil {
		return nil, err
	}

	indices := make([]int, 0, len(members))
	for _, m := range members {
		i, err := strconv.Atoi(m)
		if err != nil {
			return nil, fmt.Errorf("corrupt chunk index %q for upload %s", m, uploadID)
		}
		indices = append(indices, i)
	}
	return indices, nil
}

// addChunk performs the per-index accept atomically: it refuses to touch
// the chunk set when the session record is gone (a bare SADD would
// resurrect the set with no TTL), relies on SADD's reply for the
// exactly-one-winner guarantee, and aligns the set's lifetime with the
// session keys in the same script.
var addChunk = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
if redis.call('SADD', KEYS[2], ARGV[1]) == 0 then
	return -2
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[2], ttl)
end
return redis.call('SCARD', KEYS[2])
`)

func (s *RedisSessionStore) AddChunk(ctx context.Context, uploadID string, index int) (int, error) {
	count, err := addChunk.Run(ctx, s.client,
		[]string{sessionKey(uploadID), chunksKey(uploadID)}, index).Int()
	if err != nil {
		return 0, err
	}

	switch count {
	case -1:
		return 0, apperrors.ErrSessionNotFound
	case -2:
		return 0, &ChunkConflictError{UploadID: uploadID, Index: index}
	}
	return count, nil
}

func (s *RedisSessionStore) RemoveChunk(ctx context.Context, uploadID string, index int) error {
	return s.client.SRem(ctx, chunksKey(uploadID), index).Err()
}

// statusMissingReply is returned by casStatus when the status key does
// not exist. It can never collide with a real status value.
const statusMissingReply = "!missing"

// casStatus swaps the status key only when it currently holds the
// expected value. A missing key is reported distinctly: it means the
// session was deleted or reclaimed, not that the swap succeeded.
var casStatus = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
	return '!missing'
end
if cur == ARGV[1] then
	redis.call('SET', KEYS[1], ARGV[2], 'KEEPTTL')
	return ''
end
return cur
`)

func (s *RedisSessionStore) TransitionStatus(ctx context.Context, uploadID string, from, to models.UploadStatus) error {
	res, err := casStatus.Run(ctx, s.client, []string{statusKey(uploadID)}, string(from), string(to)).Text()
	if err != nil {
		return err
	}

	switch res {
	case "":
		return nil
	case statusMissingReply:
		return apperrors.ErrSessionNotFound
	}

	actual, parseErr := models.ParseUploadStatus(res)
	if parseErr != nil {
		return fmt.Errorf("session %s: %w", uploadID, parseErr)
	}
	return &StatusConflictError{UploadID: uploadID, Expected: from, Actual: actual}
}

func (s *RedisSessionStore) SetStatus(ctx context.Context, uploadID string, status models.UploadStatus) error {
	// XX keeps a concurrent delete from resurrecting the status key
	ok, err := s.client.SetXX(ctx, statusKey(uploadID), string(status), redis.KeepTTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ErrSessionNotFound
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, uploadID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, sessionKey(uploadID), statusKey(uploadID), chunksKey(uploadID))
	pipe.ZRem(ctx, expiryIndexKey, uploadID)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisSessionStore) ExpiredSessions(ctx context.Context, now time.Time, limit int) ([]models.UploadSession, error) {
	ids, err := s.client.ZRangeByScore(ctx, expiryIndexKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}

	var sessions []models.UploadSession
	for _, id := range ids {
		session, err := s.Get(ctx, id)
		if errors.Is(err, apperrors.ErrSessionNotFound) {
			// redis already reclaimed the keys; drop the index entry
			s.client.ZRem(ctx, expiryIndexKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}
