package services

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/ledgerdesk/modules/clients/domain/entities/client"
	"github.com/iota-uz/ledgerdesk/modules/reminders/domain/entities/reminder"
)

func newDispatcher(t *testing.T, q *fakeQueue, clients clientMap, notifiers map[reminder.Channel]Notifier, now time.Time) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(q, clients, notifiers, nil, DispatcherOptions{
		MaxAttempts: 3,
		MaxBackoff:  time.Hour,
		JitterMax:   time.Second,
		Rand:        rand.New(rand.NewSource(1)),
		Now:         func() time.Time { return now },
	})
	require.NoError(t, err)
	return d
}

func TestDispatcher_ProcessOnce(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	jane := &client.Client{ID: uuid.New(), Email: "jane@foo.test"}
	sent := &reminder.Reminder{ID: uuid.New(), ClientID: jane.ID, Channel: reminder.ChannelEmail, Attempts: 1}
	flaky := &reminder.Reminder{ID: uuid.New(), ClientID: jane.ID, Channel: reminder.ChannelEmail, Subject: "flaky", Attempts: 2}
	exhausted := &reminder.Reminder{ID: uuid.New(), ClientID: jane.ID, Channel: reminder.ChannelEmail, Subject: "flaky", Attempts: 3}
	orphan := &reminder.Reminder{ID: uuid.New(), ClientID: uuid.New(), Channel: reminder.ChannelEmail, Attempts: 1}
	offline := &reminder.Reminder{ID: uuid.New(), ClientID: jane.ID, Channel: reminder.ChannelPost, Attempts: 1}

	var delivered []uuid.UUID
	email := NotifierFunc(func(ctx context.Context, r *reminder.Reminder, c *client.Client) error {
		_, hasDeadline := ctx.Deadline()
		require.True(t, hasDeadline)
		require.Equal(t, jane.ID, c.ID)
		if r.Subject == "flaky" {
			return errors.New("503 from mail api")
		}
		delivered = append(delivered, r.ID)
		return nil
	})

	q := &fakeQueue{claim: []*reminder.Reminder{sent, flaky, exhausted, orphan, offline}}
	d := newDispatcher(t, q, clientMap{jane.ID: jane}, map[reminder.Channel]Notifier{reminder.ChannelEmail: email}, now)

	res, err := d.ProcessOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, DispatchResult{Claimed: 5, Sent: 1, Retried: 1, Dead: 3}, res)
	require.Equal(t, []uuid.UUID{sent.ID}, delivered)
	require.Equal(t, []reminder.Channel{reminder.ChannelEmail}, q.channels)

	require.Len(t, q.calls, 5)
	require.Equal(t, queueCall{op: "ack", id: sent.ID}, q.calls[0])

	nack := q.calls[1]
	require.Equal(t, "nack", nack.op)
	require.Equal(t, "503 from mail api", nack.err)
	// Second attempt backs off two minutes plus at most one second of jitter.
	require.True(t, !nack.next.Before(now.Add(2*time.Minute)))
	require.True(t, !nack.next.After(now.Add(2*time.Minute+time.Second)))

	require.Equal(t, "dead", q.calls[2].op)
	require.Equal(t, exhausted.ID, q.calls[2].id)
	require.Equal(t, "dead", q.calls[3].op)
	require.Equal(t, client.ErrNotFound.Error(), q.calls[3].err)
	require.Equal(t, "dead", q.calls[4].op)
	require.Equal(t, reminder.ErrChannelOff.Error(), q.calls[4].err)
}

func TestDispatcher_PermanentNotifierError(t *testing.T) {
	jane := &client.Client{ID: uuid.New()}
	r := &reminder.Reminder{ID: uuid.New(), ClientID: jane.ID, Channel: reminder.ChannelEmail, Attempts: 1}
	email := NotifierFunc(func(context.Context, *reminder.Reminder, *client.Client) error {
		return reminder.Permanent(reminder.ErrNoRecipient)
	})
	q := &fakeQueue{claim: []*reminder.Reminder{r}}
	d := newDispatcher(t, q, clientMap{jane.ID: jane}, map[reminder.Channel]Notifier{reminder.ChannelEmail: email}, time.Now())

	res, err := d.ProcessOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Dead)
	require.Equal(t, "dead", q.calls[0].op)
}

func TestDispatcher_EmptyClaim(t *testing.T) {
	noop := NotifierFunc(func(context.Context, *reminder.Reminder, *client.Client) error { return nil })
	q := &fakeQueue{}
	d := newDispatcher(t, q, clientMap{}, map[reminder.Channel]Notifier{
		reminder.ChannelPost:  noop,
		reminder.ChannelEmail: noop,
	}, time.Now())
	res, err := d.ProcessOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, res.Claimed)
	require.Empty(t, q.calls)
	require.Equal(t, []reminder.Channel{reminder.ChannelEmail, reminder.ChannelPost}, q.channels)
}

func TestDispatcher_NoNotifiersLeavesQueueAlone(t *testing.T) {
	q := &fakeQueue{claim: []*reminder.Reminder{{ID: uuid.New()}}}
	d := newDispatcher(t, q, clientMap{}, nil, time.Now())
	res, err := d.ProcessOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, res.Claimed)
	require.Zero(t, q.claims)
}

func TestNewDispatcher_RequiresLeaderForSingleActive(t *testing.T) {
	_, err := NewDispatcher(&fakeQueue{}, clientMap{}, nil, nil, DispatcherOptions{SingleActive: true})
	require.Error(t, err)
}

type stubLeader struct {
	released bool
}

func (l *stubLeader) TryAcquire(context.Context) (func(), bool, error) {
	return func() { l.released = true }, true, nil
}

func TestDispatcher_Run_ReleasesLeaderOnCancel(t *testing.T) {
	leader := &stubLeader{}
	d, err := NewDispatcher(&fakeQueue{}, clientMap{}, nil, leader, DispatcherOptions{
		SingleActive: true,
		PollInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, d.Run(ctx), context.DeadlineExceeded)
	require.True(t, leader.released)
}

type purgeRecorder struct {
	sent, dead time.Time
}

func (p *purgeRecorder) Purge(_ context.Context, sentBefore, deadBefore time.Time) error {
	p.sent, p.dead = sentBefore, deadBefore
	return nil
}

func TestCleaner_CleanOnce(t *testing.T) {
	p := &purgeRecorder{}
	c := NewCleaner(p, time.Minute, 90*24*time.Hour, nil)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.CleanOnce(context.Background(), now))
	require.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), p.sent)
	require.Equal(t, p.sent, p.dead)
}
