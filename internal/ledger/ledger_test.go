package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/registry"
)

func TestClassify_FirstRunEverythingNew(t *testing.T) {
	t.Parallel()

	current := NewIDSet("1", "2", "3")

	newIDs, seen := Classify(nil, current)

	assert.Equal(t, current, newIDs)
	assert.Empty(t, seen)
}

func TestClassify_SplitsNewAndSeen(t *testing.T) {
	t.Parallel()

	existing := NewIDSet("1", "2")
	current := NewIDSet("2", "3")

	newIDs, seen := Classify(existing, current)

	assert.Equal(t, NewIDSet("3"), newIDs)
	assert.Equal(t, NewIDSet("2"), seen)

	// Inputs must not be touched.
	assert.Equal(t, NewIDSet("1", "2"), existing)
	assert.Equal(t, NewIDSet("2", "3"), current)
}

func TestUnion_Monotonic(t *testing.T) {
	t.Parallel()

	existing := NewIDSet("1", "2")

	// "2" disappeared from the snapshot; it must survive the union.
	updated := Union(existing, NewIDSet("1", "3"))

	for id := range existing {
		assert.True(t, updated.Contains(id), "id %q removed by union", id)
	}

	assert.Equal(t, NewIDSet("1", "2", "3"), updated)
}

func TestUnion_ReappearanceNotNew(t *testing.T) {
	t.Parallel()

	// Run 1: id 7 observed. Run 2: absent. Run 3: back again.
	run1 := NewIDSet("7")
	afterRun1 := Union(nil, run1)

	afterRun2 := Union(afterRun1, NewIDSet())

	newIDs, _ := Classify(afterRun2, NewIDSet("7"))

	assert.Empty(t, newIDs, "reappearing id must not be classified new")
}

func TestIDSet_EmptyIDsIgnored(t *testing.T) {
	t.Parallel()

	set := NewIDSet("", "1")
	set.Add("")

	assert.Equal(t, 1, set.Len())
	assert.False(t, set.Contains(""))
}

func TestIDSet_JSONRoundTripSorted(t *testing.T) {
	t.Parallel()

	set := NewIDSet("30", "1", "200")

	data, err := json.Marshal(set)

	require.NoError(t, err)
	assert.JSONEq(t, `["1","200","30"]`, string(data))

	var restored IDSet

	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, set, restored)
}

func TestLedger_SectorMissingIsEmpty(t *testing.T) {
	t.Parallel()

	led := New()

	set := led.Sector(registry.SectorMobile)

	assert.Equal(t, 0, set.Len())
	assert.False(t, set.Contains("1"))
}

func TestLedger_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	led := New()
	led[registry.SectorMobile] = NewIDSet("1", "2")
	led[registry.SectorHotel] = NewIDSet("9")

	data, err := json.Marshal(led)

	require.NoError(t, err)

	var restored Ledger

	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, led, restored)
	assert.Equal(t, 3, restored.TotalIDs())
}

func TestLedger_SectorChangeLeavesStaleEntry(t *testing.T) {
	t.Parallel()

	// A business reclassified from TAKEAWAY to RESTAURANT_CAFE shows up
	// as new under the new sector and stays recorded under the old one.
	led := New()
	led[registry.SectorTakeaway] = Union(led.Sector(registry.SectorTakeaway), NewIDSet("42"))

	newIDs, _ := Classify(led.Sector(registry.SectorRestaurant), NewIDSet("42"))

	assert.True(t, newIDs.Contains("42"))
	assert.True(t, led.Sector(registry.SectorTakeaway).Contains("42"))
}
