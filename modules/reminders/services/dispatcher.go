package services

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/ledgerdesk/modules/clients/domain/entities/client"
	"github.com/iota-uz/ledgerdesk/modules/reminders/domain/entities/reminder"
)

// Notifier delivers a reminder over one channel. Errors wrapped with
// reminder.Permanent are not retried.
type Notifier interface {
	Notify(ctx context.Context, r *reminder.Reminder, c *client.Client) error
}

type NotifierFunc func(ctx context.Context, r *reminder.Reminder, c *client.Client) error

func (f NotifierFunc) Notify(ctx context.Context, r *reminder.Reminder, c *client.Client) error {
	return f(ctx, r, c)
}

// LeaderLock elects one dispatching instance.
type LeaderLock interface {
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}

type DispatcherOptions struct {
	PollInterval    time.Duration
	BatchSize       int
	LockTTL         time.Duration
	MaxAttempts     int
	MaxBackoff      time.Duration
	JitterMax       time.Duration
	LastErrorMaxLen int
	SendTimeout     time.Duration

	// SingleActive requires the leader lock before dispatching.
	SingleActive bool

	ObserveDepthEvery time.Duration

	Logger *logrus.Entry
	Rand   *rand.Rand
	Now    func() time.Time
}

func (o *DispatcherOptions) setDefaults() {
	if o.PollInterval == 0 {
		o.PollInterval = 30 * time.Second
	}
	if o.BatchSize == 0 {
		o.BatchSize = 50
	}
	if o.LockTTL == 0 {
		o.LockTTL = 5 * time.Minute
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = 8
	}
	if o.MaxBackoff == 0 {
		o.MaxBackoff = time.Hour
	}
	if o.JitterMax == 0 {
		o.JitterMax = 30 * time.Second
	}
	if o.LastErrorMaxLen == 0 {
		o.LastErrorMaxLen = 2048
	}
	if o.SendTimeout == 0 {
		o.SendTimeout = 30 * time.Second
	}
	if o.ObserveDepthEvery == 0 {
		o.ObserveDepthEvery = time.Minute
	}
	if o.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		o.Logger = logrus.NewEntry(l)
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Dispatcher delivers due reminders. Failed deliveries are retried with
// exponential backoff until MaxAttempts, then marked dead.
type Dispatcher struct {
	queue     reminder.Queue
	clients   ClientReader
	notifiers map[reminder.Channel]Notifier
	leader    LeaderLock
	opts      DispatcherOptions
	m         *reminderMetrics
}

// DispatchResult counts what one ProcessOnce pass did.
type DispatchResult struct {
	Claimed int
	Sent    int
	Retried int
	Dead    int
}

func NewDispatcher(
	queue reminder.Queue,
	clients ClientReader,
	notifiers map[reminder.Channel]Notifier,
	leader LeaderLock,
	opts DispatcherOptions,
) (*Dispatcher, error) {
	if queue == nil {
		return nil, errors.New("reminders: queue is required")
	}
	if clients == nil {
		return nil, errors.New("reminders: client reader is required")
	}
	if opts.SingleActive && leader == nil {
		return nil, errors.New("reminders: single active dispatch requires a leader lock")
	}
	opts.setDefaults()
	return &Dispatcher{
		queue:     queue,
		clients:   clients,
		notifiers: notifiers,
		leader:    leader,
		opts:      opts,
		m:         getReminderMetrics(),
	}, nil
}

// Run polls until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.opts.SingleActive {
		d.m.leader.Set(1)
		return d.runLoop(ctx)
	}
	for {
		release, ok, err := d.leader.TryAcquire(ctx)
		if err != nil {
			d.opts.Logger.WithError(err).Warn("reminders: failed to attempt leader lock")
		}
		if ok {
			d.m.leader.Set(1)
			d.opts.Logger.Info("reminders: dispatcher became leader")
			err = d.runLoop(ctx)
			release()
			d.m.leader.Set(0)
			return err
		}
		d.m.leader.Set(0)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.opts.PollInterval):
		}
	}
}

func (d *Dispatcher) runLoop(ctx context.Context) error {
	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	nextDepthAt := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if time.Now().After(nextDepthAt) {
			if pending, locked, err := d.queue.Depth(ctx); err != nil {
				d.opts.Logger.WithError(err).Debug("reminders: observe queue depth failed")
			} else {
				d.m.pending.Set(float64(pending))
				d.m.locked.Set(float64(locked))
			}
			nextDepthAt = time.Now().Add(d.opts.ObserveDepthEvery)
		}

		if _, err := d.ProcessOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			d.opts.Logger.WithError(err).Warn("reminders: dispatch tick failed")
		}
	}
}

// ProcessOnce claims one batch of due reminders and delivers each of them.
func (d *Dispatcher) ProcessOnce(ctx context.Context) (DispatchResult, error) {
	var res DispatchResult
	channels := d.channels()
	if len(channels) == 0 {
		return res, nil
	}
	now := d.opts.Now()
	claimed, err := d.queue.Claim(ctx, now, now.Add(-d.opts.LockTTL), d.opts.MaxAttempts, d.opts.BatchSize, channels)
	if err != nil {
		return res, err
	}
	res.Claimed = len(claimed)

	for _, r := range claimed {
		log := d.opts.Logger.WithFields(logFields(r))
		start := time.Now()
		err := d.deliver(ctx, r)
		latency := time.Since(start)

		if err == nil {
			d.record(r.Channel, "success", latency)
			if ackErr := d.queue.Ack(ctx, r.ID); ackErr != nil {
				log.WithError(ackErr).Warn("reminders: ack failed")
			}
			res.Sent++
			continue
		}

		d.record(r.Channel, "failure", latency)
		lastErr := truncate(err.Error(), d.opts.LastErrorMaxLen)
		if reminder.IsPermanent(err) || r.Attempts >= d.opts.MaxAttempts {
			d.m.deadTotal.WithLabelValues(string(r.Channel)).Inc()
			if deadErr := d.queue.Dead(ctx, r.ID, lastErr); deadErr != nil {
				log.WithError(deadErr).Warn("reminders: dead update failed")
			}
			log.WithError(err).Warn("reminders: giving up on reminder")
			res.Dead++
			continue
		}

		next := d.opts.Now().Add(backoff(r.Attempts, d.opts.MaxBackoff) + jitter(d.opts.Rand, d.opts.JitterMax))
		if nackErr := d.queue.Nack(ctx, r.ID, lastErr, next); nackErr != nil {
			log.WithError(nackErr).Warn("reminders: nack failed")
		}
		res.Retried++
	}
	return res, nil
}

// channels lists the channels with a notifier. Reminders on other channels
// stay pending until one is configured.
func (d *Dispatcher) channels() []reminder.Channel {
	out := make([]reminder.Channel, 0, len(d.notifiers))
	for ch, n := range d.notifiers {
		if n != nil {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (d *Dispatcher) deliver(ctx context.Context, r *reminder.Reminder) error {
	notifier, ok := d.notifiers[r.Channel]
	if !ok || notifier == nil {
		return reminder.Permanent(reminder.ErrChannelOff)
	}
	c, err := d.clients.GetByID(ctx, r.ClientID)
	if errors.Is(err, client.ErrNotFound) {
		return reminder.Permanent(err)
	}
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
	defer cancel()
	return notifier.Notify(sendCtx, r, c)
}

func (d *Dispatcher) record(channel reminder.Channel, result string, latency time.Duration) {
	d.m.dispatchTotal.WithLabelValues(string(channel), result).Inc()
	d.m.dispatchLatency.WithLabelValues(string(channel), result).Observe(latency.Seconds())
}

func logFields(r *reminder.Reminder) logrus.Fields {
	return logrus.Fields{
		"reminder_id": r.ID.String(),
		"client_id":   r.ClientID.String(),
		"channel":     string(r.Channel),
		"kind":        string(r.Kind),
		"attempts":    r.Attempts,
	}
}
