package director

import (
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/fleetsim/emergency-brake/internal/model"
)

const fleetShards = 16

// FleetState is the process-wide map of per-vehicle status. Entries are
// created on the first message for a vehicle and never deleted. Vehicle ids
// are sharded so distinct vehicles do not contend on one lock, and each
// entry carries its own mutex so the whole read-decide-write sequence for a
// vehicle runs under per-vehicle mutual exclusion.
type FleetState struct {
	shards [fleetShards]fleetShard
}

type fleetShard struct {
	mu       sync.Mutex
	vehicles map[string]*vehicleEntry
}

type vehicleEntry struct {
	mu    sync.Mutex
	state model.VehicleState
}

func NewFleetState() *FleetState {
	f := &FleetState{}
	for i := range f.shards {
		f.shards[i].vehicles = make(map[string]*vehicleEntry)
	}
	return f
}

func (f *FleetState) entry(vehicleID string) *vehicleEntry {
	h := fnv.New32a()
	h.Write([]byte(vehicleID))
	shard := &f.shards[h.Sum32()%fleetShards]

	shard.mu.Lock()
	defer shard.mu.Unlock()
	e, ok := shard.vehicles[vehicleID]
	if !ok {
		e = &vehicleEntry{state: model.VehicleState{VehicleID: vehicleID}}
		shard.vehicles[vehicleID] = e
	}
	return e
}

// Update runs fn under the vehicle's lock. fn must not perform network I/O;
// publishes and collaborator calls belong outside the lock.
func (f *FleetState) Update(vehicleID string, fn func(*model.VehicleState)) {
	e := f.entry(vehicleID)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.state)
}

// Snapshot returns a point-in-time copy of every vehicle, never live
// references, sorted by vehicle id for stable output.
func (f *FleetState) Snapshot() []model.VehicleState {
	var out []model.VehicleState
	for i := range f.shards {
		shard := &f.shards[i]
		shard.mu.Lock()
		entries := make([]*vehicleEntry, 0, len(shard.vehicles))
		for _, e := range shard.vehicles {
			entries = append(entries, e)
		}
		shard.mu.Unlock()

		for _, e := range entries {
			e.mu.Lock()
			out = append(out, e.state.Clone())
			e.mu.Unlock()
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out
}

// Braking reports the brake flag for one vehicle at now.
func (f *FleetState) Braking(vehicleID string, now time.Time) bool {
	e := f.entry(vehicleID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Braking(now)
}
