// Package redisstore stores notifications in Redis, one hash per employee.
//
// Each notification is a hash field keyed "<code>|<date>" holding the JSON
// record. HSETNX makes the natural-key check and the insert one atomic step.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/notify"
)

const keyPrefix = "worktime:notifications:"

// NotificationStore implements notify.Store.
type NotificationStore struct {
	Client *redis.Client
}

var _ notify.Store = (*NotificationStore)(nil)

// NewNotificationStore connects to redis with short timeouts.
func NewNotificationStore(addr string) *NotificationStore {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &NotificationStore{Client: client}
}

// Healthy verifies redis connectivity.
func (s *NotificationStore) Healthy(ctx context.Context) bool {
	if s == nil || s.Client == nil {
		return false
	}
	return s.Client.Ping(ctx).Err() == nil
}

func (s *NotificationStore) Close() error { return s.Client.Close() }

type record struct {
	ID        string    `json:"id"`
	Code      int       `json:"code"`
	Date      string    `json:"date"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func field(code compliance.Code, date generic.Date) string {
	return strconv.Itoa(int(code)) + "|" + date.String()
}

func (s *NotificationStore) PutNotification(ctx context.Context, n notify.Notification) error {
	payload, err := json.Marshal(record{
		ID:        n.ID,
		Code:      int(n.Code),
		Date:      n.Date.String(),
		Message:   n.Message,
		CreatedAt: n.CreatedAt.UTC(),
	})
	if err != nil {
		return err
	}
	created, err := s.Client.HSetNX(ctx, keyPrefix+string(n.EmployeeID), field(n.Code, n.Date), payload).Result()
	if err != nil {
		return fmt.Errorf("redis hsetnx: %w", err)
	}
	if !created {
		return generic.ErrDuplicateNotification
	}
	return nil
}

func (s *NotificationStore) ListNotifications(ctx context.Context, id generic.EmployeeID) ([]notify.Notification, error) {
	fields, err := s.Client.HGetAll(ctx, keyPrefix+string(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	out := make([]notify.Notification, 0, len(fields))
	for k, v := range fields {
		var r record
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return nil, fmt.Errorf("decode notification %s: %w", k, err)
		}
		date, err := generic.ParseDate(r.Date)
		if err != nil {
			// fall back to the field name, which carries the date as well
			_, d, _ := strings.Cut(k, "|")
			if date, err = generic.ParseDate(d); err != nil {
				return nil, err
			}
		}
		out = append(out, notify.Notification{
			ID:         r.ID,
			EmployeeID: id,
			Code:       compliance.Code(r.Code),
			Date:       date,
			Message:    r.Message,
			CreatedAt:  r.CreatedAt,
		})
	}
	notify.SortNotifications(out)
	return out, nil
}
