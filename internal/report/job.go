package report

import (
	"context"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"sync"
	"time"
)

const (
	// DefaultSchedule fires every day at 09:00
	DefaultSchedule = "0 9 * * *"

	runTimeout = 5 * time.Minute
)

// BroadcastResult counts the outcome of one fan-out
type BroadcastResult struct {
	Destinations int
	Sent         int
	Failed       int
	Skipped      int
}

// Observer is told about every finished broadcast
type Observer interface {
	ObserveBroadcast(res BroadcastResult, err error)
}

// Status is a snapshot of the job for the ops endpoint
type Status struct {
	Running  bool      `json:"running"`
	Schedule string    `json:"schedule"`
	Timezone string    `json:"timezone"`
	NextRun  time.Time `json:"nextRun,omitempty"`
	LastRun  time.Time `json:"lastRun,omitempty"`
	LastSent int       `json:"lastSent"`
	LastErr  string    `json:"lastError,omitempty"`
}

// Job builds the daily market report and broadcasts it on a schedule
type Job struct {
	movers   MoverSource
	ai       Summarizer
	sink     Broadcaster
	observer Observer
	schedule string
	location *time.Location
	now      func() time.Time

	mu       sync.Mutex
	cron     *cron.Cron
	sched    cron.Schedule
	lastRun  time.Time
	lastSent int
	lastErr  error
}

// Option configures a Job
type Option func(*Job)

// WithSchedule sets the cron expression and the time zone it is read in
func WithSchedule(spec string, loc *time.Location) Option {
	return func(j *Job) {
		if spec != "" {
			j.schedule = spec
		}
		if loc != nil {
			j.location = loc
		}
	}
}

// WithObserver reports broadcast results, e.g. to metrics
func WithObserver(o Observer) Option {
	return func(j *Job) {
		j.observer = o
	}
}

// NewJob creates a stopped job
func NewJob(movers MoverSource, summarizer Summarizer, sink Broadcaster, opts ...Option) *Job {
	j := &Job{
		movers:   movers,
		ai:       summarizer,
		sink:     sink,
		schedule: DefaultSchedule,
		location: time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Start schedules the daily broadcast
func (j *Job) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cron != nil {
		log.Warn("⚠️ Daily report scheduler is already running")
		return nil
	}

	sched, err := cron.ParseStandard(j.schedule)
	if err != nil {
		return errors.Wrapf(err, "invalid report schedule %q", j.schedule)
	}
	c := cron.New(cron.WithLocation(j.location))
	c.Schedule(sched, cron.FuncJob(j.fire))
	c.Start()
	j.cron, j.sched = c, sched

	log.Infof("📅 Daily report scheduled (%s %s)", j.schedule, j.location)
	return nil
}

// Stop unschedules the job and waits for a running broadcast
func (j *Job) Stop() {
	j.mu.Lock()
	c := j.cron
	j.cron = nil
	j.mu.Unlock()

	if c == nil {
		log.Warn("⚠️ Daily report scheduler is not running")
		return
	}
	<-c.Stop().Done()
	log.Info("Daily report scheduler stopped")
}

// Status returns a snapshot of the job state
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()

	s := Status{
		Running:  j.cron != nil,
		Schedule: j.schedule,
		Timezone: j.location.String(),
		LastRun:  j.lastRun,
		LastSent: j.lastSent,
	}
	if j.cron != nil {
		s.NextRun = j.sched.Next(j.now().In(j.location))
	}
	if j.lastErr != nil {
		s.LastErr = j.lastErr.Error()
	}
	return s
}

func (j *Job) fire() {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("🔥 Panic recovered in daily report: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	log.Info("📊 Sending daily crypto report...")
	if _, err := j.Broadcast(ctx); err != nil {
		log.WithError(err).Error("❌ Daily report failed")
	}
}

// Broadcast builds one report and sends it to the best channel of every
// destination. A failing destination does not stop the others.
func (j *Job) Broadcast(ctx context.Context) (res BroadcastResult, err error) {
	defer func() {
		j.mu.Lock()
		j.lastRun = j.now()
		j.lastSent = res.Sent
		j.lastErr = err
		j.mu.Unlock()
		if j.observer != nil {
			j.observer.ObserveBroadcast(res, err)
		}
	}()

	r, err := j.Build(ctx, false)
	if err != nil {
		return res, err
	}

	dests, err := j.sink.Destinations(ctx)
	if err != nil {
		return res, errors.Wrap(err, "could not list destinations")
	}
	res.Destinations = len(dests)

	for _, d := range dests {
		ch, ok := BestChannel(d.Channels)
		if !ok {
			res.Skipped++
			log.WithField("destination", d.Name).Warn("⚠️ No writable channel, skipping")
			continue
		}
		if err := j.sink.Send(ctx, ch, r); err != nil {
			res.Failed++
			log.WithFields(log.Fields{"destination": d.Name, "channel": ch.Name}).WithError(err).Error("❌ Failed to send daily report")
			continue
		}
		res.Sent++
		log.WithFields(log.Fields{"destination": d.Name, "channel": ch.Name}).Info("✅ Daily report sent")
	}
	return res, nil
}

// SendNow builds a test report and sends it to a single channel right away
func (j *Job) SendNow(ctx context.Context, ch Channel) error {
	r, err := j.Build(ctx, true)
	if err != nil {
		return err
	}
	if err := j.sink.Send(ctx, ch, r); err != nil {
		return errors.Wrapf(err, "could not send test report to %s", ch.Name)
	}
	log.WithField("channel", ch.Name).Info("✅ Test report sent")
	return nil
}
