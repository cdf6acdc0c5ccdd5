package runner

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Timer measures one named operation and logs its duration when stopped.
type Timer struct {
	log   logrus.FieldLogger
	name  string
	start time.Time
	now   func() time.Time
}

// StartTimer starts timing name.
func StartTimer(log logrus.FieldLogger, name string) *Timer {
	return startTimerAt(log, name, time.Now)
}

func startTimerAt(log logrus.FieldLogger, name string, now func() time.Time) *Timer {
	return &Timer{log: log, name: name, start: now(), now: now}
}

// Stop returns the elapsed time and logs it at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := t.now().Sub(t.start)
	t.log.WithFields(logrus.Fields{
		"op":      t.name,
		"elapsed": elapsed.Round(time.Millisecond).String(),
	}).Debug("completed")
	return elapsed
}
