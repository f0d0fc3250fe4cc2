package director

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetsim/emergency-brake/internal/model"
)

func TestSnapshotIsSortedAndDetached(t *testing.T) {
	fleet := NewFleetState()
	fleet.Update("V2", func(st *model.VehicleState) { st.FrontDistance = f(30.0) })
	fleet.Update("V1", func(st *model.VehicleState) { st.FrontDistance = f(10.0) })

	snap := fleet.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "V1", snap[0].VehicleID)
	assert.Equal(t, "V2", snap[1].VehicleID)

	// Mutating the snapshot must not leak back into the live state.
	*snap[0].FrontDistance = 999
	fleet.Update("V1", func(st *model.VehicleState) {
		assert.InDelta(t, 10.0, *st.FrontDistance, 1e-9)
	})
}

func TestUpdateCreatesEntryOnFirstUse(t *testing.T) {
	fleet := NewFleetState()
	assert.Empty(t, fleet.Snapshot())

	fleet.Update("V1", func(st *model.VehicleState) {
		assert.Equal(t, "V1", st.VehicleID)
		assert.Nil(t, st.FrontDistance)
	})
	assert.Len(t, fleet.Snapshot(), 1)
}

func TestBrakingWindow(t *testing.T) {
	fleet := NewFleetState()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	assert.False(t, fleet.Braking("V1", now))

	fleet.Update("V1", func(st *model.VehicleState) { st.BrakeExpiry = now.Add(10 * time.Second) })
	assert.True(t, fleet.Braking("V1", now))
	assert.True(t, fleet.Braking("V1", now.Add(9*time.Second)))
	assert.False(t, fleet.Braking("V1", now.Add(10*time.Second)), "expiry instant is not braking")
}

func TestConcurrentUpdatesAreSerializedPerVehicle(t *testing.T) {
	fleet := NewFleetState()
	const workers = 8
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			vehicle := fmt.Sprintf("V%d", w%4)
			for i := 0; i < perWorker; i++ {
				fleet.Update(vehicle, func(st *model.VehicleState) {
					if st.FrontDistance == nil {
						st.FrontDistance = f(0)
					}
					*st.FrontDistance++
				})
			}
		}(w)
	}
	wg.Wait()

	snap := fleet.Snapshot()
	require.Len(t, snap, 4)
	for _, st := range snap {
		require.NotNil(t, st.FrontDistance)
		assert.InDelta(t, 2*perWorker, *st.FrontDistance, 1e-9)
	}
}
