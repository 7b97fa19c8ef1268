// Package coordinator elects the single market controller among replicas
// using a soft lease in the shared store. The lease is a plain document, not
// a lock: a claimant overwrites it unconditionally on mount, keeps it fresh
// with heartbeats, and every replica independently judges staleness. Brief
// dual-leadership during a handover is acceptable; the tick engine's writes
// are idempotent enough that the overlap only costs redundant work.
package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/governmentofsc/ATLExchange-sub000/internal/market"
	"github.com/governmentofsc/ATLExchange-sub000/internal/metrics"
	"github.com/governmentofsc/ATLExchange-sub000/internal/store"
)

// Config holds configuration for the coordinator.
type Config struct {
	// Heartbeat is how often the leader refreshes its lease.
	Heartbeat time.Duration
	// LeaseTTL is how old a lease heartbeat may be before any replica
	// considers it abandoned.
	LeaseTTL time.Duration
	// User is the display name recorded with the lease.
	User string
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Heartbeat: 3 * time.Second,
		LeaseTTL:  10 * time.Second,
		User:      "system",
	}
}

// Coordinator claims and maintains the controller lease for this process.
type Coordinator struct {
	cfg       Config
	store     store.Store
	log       *zap.Logger
	now       func() time.Time
	sessionID string

	leadership chan bool
	leaseCh    <-chan []byte
	cancels    []func()

	leader bool

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates the coordinator, steals the lease immediately, and starts the
// heartbeat loop. The newest mounted replica always wins the controller role.
func New(cfg Config, st store.Store, log *zap.Logger) (*Coordinator, error) {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = DefaultConfig().Heartbeat
	}
	if cfg.LeaseTTL <= cfg.Heartbeat {
		cfg.LeaseTTL = DefaultConfig().LeaseTTL
	}
	if cfg.User == "" {
		cfg.User = DefaultConfig().User
	}

	c := &Coordinator{
		cfg:        cfg,
		store:      st,
		log:        log,
		now:        time.Now,
		sessionID:  uuid.NewString(),
		leadership: make(chan bool, 4),
		closed:     make(chan struct{}),
	}

	ch, cancel, err := st.Watch(context.Background(), market.PathController)
	if err != nil {
		return nil, err
	}
	c.leaseCh = ch
	c.cancels = append(c.cancels, cancel)

	c.claim()

	c.wg.Add(1)
	go c.run()
	return c, nil
}

// SessionID returns this replica's lease identity.
func (c *Coordinator) SessionID() string { return c.sessionID }

// Leadership delivers a value on every leadership transition, current state
// first. The channel is buffered; a slow consumer loses intermediate flips
// but always sees the latest.
func (c *Coordinator) Leadership() <-chan bool { return c.leadership }

func (c *Coordinator) run() {
	defer c.wg.Done()

	heartbeat := time.NewTicker(c.cfg.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.closed:
			return
		case <-heartbeat.C:
			c.evaluate(true)
		case _, ok := <-c.leaseCh:
			if !ok {
				c.leaseCh = nil
				continue
			}
			// Writes (heartbeats, takeovers) happen only on the timer;
			// reacting to our own lease writes here would loop forever.
			c.evaluate(false)
		}
	}
}

// claim overwrites the lease with this session and mirrors the session
// metadata into the market state document.
func (c *Coordinator) claim() {
	ctx := context.Background()
	now := c.now().UnixMilli()

	err := c.store.Set(ctx, market.PathController, market.ControllerRecord{
		SessionID: c.sessionID,
		Timestamp: now,
		User:      c.cfg.User,
	})
	if err != nil {
		metrics.StoreWriteFailed()
		c.log.Warn("lease claim failed", zap.Error(err))
		return
	}
	err = c.store.Update(ctx, market.PathState, map[string]any{
		"sessionId": c.sessionID,
		"timestamp": now,
		"user":      c.cfg.User,
	})
	if err != nil {
		metrics.StoreWriteFailed()
		c.log.Warn("state mirror failed", zap.Error(err))
	}

	c.setLeader(true)
}

// evaluate reads the lease and decides whether this replica leads: yes when
// the record is missing, stale, or our own; no when another session holds a
// fresh lease. Store writes are only issued when mayWrite is set.
func (c *Coordinator) evaluate(mayWrite bool) {
	ctx := context.Background()

	var rec market.ControllerRecord
	err := c.store.Get(ctx, market.PathController, &rec)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if mayWrite {
			c.claim()
		}
		return
	case err != nil:
		// Unreadable lease: keep the current role rather than flap.
		c.log.Warn("lease read failed", zap.Error(err))
		return
	}

	if rec.SessionID == c.sessionID {
		if mayWrite {
			c.heartbeatLease()
		}
		c.setLeader(true)
		return
	}
	if rec.StaleAfter(c.cfg.LeaseTTL, c.now()) {
		if mayWrite {
			c.log.Info("taking over stale lease",
				zap.String("previous", rec.SessionID),
				zap.Int64("lastHeartbeat", rec.Timestamp))
			c.claim()
		}
		return
	}
	c.setLeader(false)
}

func (c *Coordinator) heartbeatLease() {
	err := c.store.Update(context.Background(), market.PathController, map[string]any{
		"timestamp": c.now().UnixMilli(),
	})
	if err != nil {
		metrics.StoreWriteFailed()
		c.log.Warn("lease heartbeat failed", zap.Error(err))
	}
}

func (c *Coordinator) setLeader(leader bool) {
	if leader == c.leader {
		return
	}
	c.leader = leader
	metrics.LeadershipChanged()
	c.log.Info("leadership changed",
		zap.Bool("leader", leader),
		zap.String("sessionId", c.sessionID))

	for {
		select {
		case c.leadership <- leader:
			return
		default:
			// Full buffer: drop the oldest flip, the latest state wins.
			select {
			case <-c.leadership:
			default:
			}
		}
	}
}

// Close stops heartbeating and lets the lease age out naturally; a successor
// steals it on mount or after the TTL.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		for _, cancel := range c.cancels {
			cancel()
		}
	})
	c.wg.Wait()
}
