package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/generic"
)

// Outcome of recording one finding.
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeSuppressed
)

func (o Outcome) String() string {
	if o == OutcomeSuppressed {
		return "suppressed"
	}
	return "created"
}

// Summary counts the outcomes of RecordAll.
type Summary struct {
	Created    int
	Suppressed int
}

// Deduplicator records findings as notifications. Re-recording a finding
// with the same key is a successful no-op.
type Deduplicator struct {
	store Store
	log   logrus.FieldLogger
	now   func() time.Time

	// OnRecord observes every outcome (metrics).
	OnRecord func(f compliance.Finding, o Outcome)
}

func NewDeduplicator(store Store, log logrus.FieldLogger) *Deduplicator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Deduplicator{store: store, log: log, now: time.Now}
}

// WithClock replaces the CreatedAt clock.
func (d *Deduplicator) WithClock(now func() time.Time) *Deduplicator {
	d.now = now
	return d
}

// Record persists f unless a notification with the same key exists.
func (d *Deduplicator) Record(ctx context.Context, f compliance.Finding) (Outcome, error) {
	fields := logrus.Fields{"employee_id": f.EmployeeID, "code": f.Code.String(), "date": f.Date.String()}

	msg, err := Render(f)
	if err != nil {
		d.log.WithFields(fields).WithError(err).Error("no message template for finding")
		return OutcomeCreated, err
	}

	n := Notification{
		ID:         uuid.NewString(),
		EmployeeID: f.EmployeeID,
		Code:       f.Code,
		Date:       f.Date,
		Message:    msg,
		CreatedAt:  d.now().UTC(),
	}
	err = d.store.PutNotification(ctx, n)
	switch {
	case errors.Is(err, generic.ErrDuplicateNotification):
		d.log.WithFields(fields).Debug("notification already recorded")
		d.observe(f, OutcomeSuppressed)
		return OutcomeSuppressed, nil
	case err != nil:
		return OutcomeCreated, fmt.Errorf("put notification %s/%s/%s: %w", f.EmployeeID, f.Code, f.Date, err)
	}
	d.log.WithFields(fields).Info("notification created")
	d.observe(f, OutcomeCreated)
	return OutcomeCreated, nil
}

// RecordAll records findings in order and stops at the first hard error.
func (d *Deduplicator) RecordAll(ctx context.Context, fs []compliance.Finding) (Summary, error) {
	var s Summary
	for _, f := range fs {
		o, err := d.Record(ctx, f)
		if err != nil {
			return s, err
		}
		if o == OutcomeSuppressed {
			s.Suppressed++
		} else {
			s.Created++
		}
	}
	return s, nil
}

func (d *Deduplicator) observe(f compliance.Finding, o Outcome) {
	if d.OnRecord != nil {
		d.OnRecord(f, o)
	}
}
