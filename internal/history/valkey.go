package history

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/valkey-io/valkey-go"
)

const keyPrefix = "gmail:history:"

// advanceScript moves the watermark only when the new value is larger
// than the stored one. Running it server side keeps the compare and the
// write in one step, so concurrent replicas cannot rewind each other.
var advanceScript = valkey.NewLuaScript(`local current = tonumber(redis.call('GET', KEYS[1]))
if current == nil or tonumber(ARGV[1]) > current then
  redis.call('SET', KEYS[1], ARGV[1])
  return 1
end
return 0`)

// ValkeyStore keeps history baselines in a shared Valkey instance so
// multiple backend replicas see the same watermark.
type ValkeyStore struct {
	client valkey.Client
}

// NewValkeyStore connects to the given Valkey address.
func NewValkeyStore(addr string) (*ValkeyStore, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to valkey at %s: %w", addr, err)
	}
	return &ValkeyStore{client: client}, nil
}

func (s *ValkeyStore) Close() {
	s.client.Close()
}

func key(userEmail string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(userEmail))
}

// HistoryID returns the stored baseline, zero when absent.
func (s *ValkeyStore) HistoryID(ctx context.Context, userEmail string) (uint64, error) {
	resp := s.client.Do(ctx, s.client.B().Get().Key(key(userEmail)).Build())
	if err := resp.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get history id: %w", err)
	}

	value, err := resp.ToString()
	if err != nil {
		return 0, fmt.Errorf("read history id: %w", err)
	}
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse history id %q: %w", value, err)
	}
	return id, nil
}

// SetHistoryID stores the baseline. The watermark only moves forward,
// enforced by a server-side compare and set.
func (s *ValkeyStore) SetHistoryID(ctx context.Context, userEmail string, historyID uint64) error {
	resp := advanceScript.Exec(ctx, s.client, []string{key(userEmail)}, []string{strconv.FormatUint(historyID, 10)})
	if err := resp.Error(); err != nil {
		return fmt.Errorf("set history id: %w", err)
	}
	return nil
}
