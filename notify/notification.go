// Package notify turns compliance findings into persisted notifications,
// at most one per (employee, code, date).
package notify

import (
	"context"
	"sort"
	"time"

	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/generic"
)

// Notification is an immutable record of one violation.
type Notification struct {
	ID         string
	EmployeeID generic.EmployeeID
	Code       compliance.Code
	Date       generic.Date
	Message    string
	CreatedAt  time.Time
}

// Key is the natural key notifications are deduplicated on.
type Key struct {
	EmployeeID generic.EmployeeID
	Code       compliance.Code
	Date       generic.Date
}

func (n Notification) Key() Key {
	return Key{EmployeeID: n.EmployeeID, Code: n.Code, Date: n.Date}
}

// Store persists notifications. PutNotification must be atomic per key and
// return generic.ErrDuplicateNotification (possibly wrapped) when the key
// exists. No update or delete exists.
type Store interface {
	PutNotification(ctx context.Context, n Notification) error
	ListNotifications(ctx context.Context, employeeID generic.EmployeeID) ([]Notification, error)
}

// SortNotifications orders by date, then code.
func SortNotifications(ns []Notification) {
	sort.SliceStable(ns, func(i, j int) bool {
		if !ns[i].Date.Equal(ns[j].Date) {
			return ns[i].Date.Before(ns[j].Date)
		}
		return ns[i].Code < ns[j].Code
	})
}
