package director

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/fleetsim/emergency-brake/internal/model"
	"github.com/fleetsim/emergency-brake/internal/model/messages"
)

// Brake state machine states and events, one machine per vehicle.
const (
	stateSafe        = "safe"
	stateTriggered   = "triggered"
	stateCommandSent = "command_sent"
	stateCooldown    = "cooldown"

	eventTrigger = "trigger"
	eventSend    = "send"
	eventAck     = "ack"
	eventExpire  = "expire"
)

// DefaultCooldown is how long a brake window stays open after a command.
const DefaultCooldown = 10 * time.Second

// Coordinator debounces brake triggers per vehicle. A triggered decision
// while the vehicle is in command_sent or cooldown is suppressed, so one
// unsafe condition produces exactly one published command per cooldown
// window. Expiry is lazy: there is no timer, the stored expiry timestamp is
// compared against the clock on the next decision or read.
type Coordinator struct {
	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	machines map[string]*fsm.FSM
}

func NewCoordinator(cooldown time.Duration, now func() time.Time) *Coordinator {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		cooldown: cooldown,
		now:      now,
		machines: make(map[string]*fsm.FSM),
	}
}

func (c *Coordinator) machine(vehicleID string) *fsm.FSM {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.machines[vehicleID]
	if !ok {
		m = fsm.NewFSM(
			stateSafe,
			fsm.Events{
				{Name: eventTrigger, Src: []string{stateSafe}, Dst: stateTriggered},
				{Name: eventSend, Src: []string{stateTriggered}, Dst: stateCommandSent},
				{Name: eventAck, Src: []string{stateCommandSent}, Dst: stateCooldown},
				{Name: eventExpire, Src: []string{stateCommandSent, stateCooldown}, Dst: stateSafe},
			},
			fsm.Callbacks{},
		)
		c.machines[vehicleID] = m
	}
	return m
}

// State exposes the current per-vehicle machine state (after lazy expiry).
func (c *Coordinator) State(vehicleID string, st *model.VehicleState) string {
	m := c.machine(vehicleID)
	c.expireIfDue(m, st)
	return m.Current()
}

// OnDecision turns a triggered decision into at most one BrakeCommand. It
// must be called under the vehicle's lock; the returned command is published
// by the caller after releasing it. suppressed is true when debouncing ate
// the trigger.
func (c *Coordinator) OnDecision(st *model.VehicleState, res model.DecisionResult) (cmd *messages.BrakeCommand, suppressed bool) {
	m := c.machine(res.VehicleID)
	c.expireIfDue(m, st)

	if !res.Triggered {
		return nil, false
	}
	if err := m.Event(context.Background(), eventTrigger); err != nil {
		// Already command_sent or cooling down.
		return nil, true
	}
	_ = m.Event(context.Background(), eventSend)

	now := c.now()
	st.BrakeExpiry = now.Add(c.cooldown)
	return &messages.BrakeCommand{
		Command:   messages.CommandBrake,
		CommandID: uuid.NewString(),
		VehicleID: res.VehicleID,
		Reason:    res.Reason,
		Timestamp: now.UTC(),
	}, false
}

// OnStatus applies a BrakeStatus acknowledgment: command_sent moves to
// cooldown ahead of the window, but the braking flag keeps its expiry, since
// cooldown duration is the authority for user-visible braking state.
// Replays are a no-op and return false.
func (c *Coordinator) OnStatus(vehicleID string, st *model.VehicleState) bool {
	m := c.machine(vehicleID)
	c.expireIfDue(m, st)
	return m.Event(context.Background(), eventAck) == nil
}

func (c *Coordinator) expireIfDue(m *fsm.FSM, st *model.VehicleState) {
	if st == nil {
		return
	}
	cur := m.Current()
	if cur == stateSafe || cur == stateTriggered {
		return
	}
	if !c.now().Before(st.BrakeExpiry) {
		_ = m.Event(context.Background(), eventExpire)
	}
}
