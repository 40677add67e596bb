package cache

import (
	"context"
	"fmt"

	apperrors "event-ticket-gate/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CapacityInventory is the Redis front line for issuance. It rejects sold-out
// and duplicate-holder requests before they reach Postgres; Postgres stays the
// authority on remaining capacity.
type CapacityInventory interface {
	// WarmUp loads remaining capacity once; it is a no-op if the key already exists.
	WarmUp(ctx context.Context, eventID uuid.UUID, ticketType string, remaining int, onePerHolder bool) (bool, error)
	// Reserve atomically takes one unit (Lua). ErrCapacityExceeded, ErrDuplicateActiveTicket or ErrInventoryNotReady.
	Reserve(ctx context.Context, eventID uuid.UUID, ticketType string, userID int) error
	// Release gives back a unit taken by Reserve, after a failed issuance or a cancellation.
	Release(ctx context.Context, eventID uuid.UUID, ticketType string, userID int) error
}

type RedisCapacityInventory struct {
	client redis.Cmdable
}

func NewRedisCapacityInventory(client redis.Cmdable) CapacityInventory {
	return &RedisCapacityInventory{
		client: client,
	}
}

func InfoKey(eventID uuid.UUID, ticketType string) string {
	return fmt.Sprintf("capacity:%s:%s:info", eventID, ticketType)
}

func HoldersKey(eventID uuid.UUID, ticketType string) string {
	return fmt.Sprintf("capacity:%s:%s:holders", eventID, ticketType)
}

const (
	reserveOK        = 1
	reserveSoldOut   = -1
	reserveDuplicate = -2
	reserveNotWarm   = -3
)

const WarmUpScript = `
	local info_key = KEYS[1]
	if redis.call('EXISTS', info_key) == 1 then
		return 0
	end
	redis.call('HSET', info_key, 'remaining', ARGV[1], 'one_per_holder', ARGV[2])
	return 1
`

// ReserveScript checks remaining capacity, then the per-holder rule, then takes one unit.
const ReserveScript = `
	local info_key = KEYS[1]
	local holders_key = KEYS[2]
	local user_id = ARGV[1]

	local info = redis.call('HMGET', info_key, 'remaining', 'one_per_holder')
	local remaining = info[1]
	local one_per_holder = info[2]

	if not remaining or not one_per_holder then
		return -3
	end

	if tonumber(remaining) < 1 then
		return -1
	end

	if one_per_holder == '1' then
		local held = tonumber(redis.call('HGET', holders_key, user_id) or '0')
		if held > 0 then
			return -2
		end
	end

	redis.call('HINCRBY', info_key, 'remaining', -1)
	redis.call('HINCRBY', holders_key, user_id, 1)
	return 1
`

const ReleaseScript = `
	local info_key = KEYS[1]
	local holders_key = KEYS[2]
	local user_id = ARGV[1]

	if redis.call('EXISTS', info_key) == 0 then
		return 0
	end

	redis.call('HINCRBY', info_key, 'remaining', 1)
	local held = tonumber(redis.call('HGET', holders_key, user_id) or '0')
	if held > 0 then
		redis.call('HINCRBY', holders_key, user_id, -1)
	end
	return 1
`

func (m *RedisCapacityInventory) WarmUp(ctx context.Context, eventID uuid.UUID, ticketType string, remaining int, onePerHolder bool) (bool, error) {
	flag := "0"
	if onePerHolder {
		flag = "1"
	}

	res, err := m.client.Eval(ctx, WarmUpScript, []string{InfoKey(eventID, ticketType)}, remaining, flag).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (m *RedisCapacityInventory) Reserve(ctx context.Context, eventID uuid.UUID, ticketType string, userID int) error {
	keys := []string{InfoKey(eventID, ticketType), HoldersKey(eventID, ticketType)}

	code, err := m.client.Eval(ctx, ReserveScript, keys, userID).Int64()
	if err != nil {
		return err
	}

	switch code {
	case reserveOK:
		return nil
	case reserveSoldOut:
		return apperrors.ErrCapacityExceeded
	case reserveDuplicate:
		return apperrors.ErrDuplicateActiveTicket
	case reserveNotWarm:
		return apperrors.ErrInventoryNotReady
	default:
		return fmt.Errorf("unexpected reserve result %d", code)
	}
}

func (m *RedisCapacityInventory) Release(ctx context.Context, eventID uuid.UUID, ticketType string, userID int) error {
	keys := []string{InfoKey(eventID, ticketType), HoldersKey(eventID, ticketType)}
	return m.client.Eval(ctx, ReleaseScript, keys, userID).Err()
}
