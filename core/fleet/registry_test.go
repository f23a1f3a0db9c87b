package fleet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/groundlink/core/model"
	"github.com/kilianp07/groundlink/core/watchdog"
	"github.com/kilianp07/groundlink/infra/logger"
)

type syncPoster struct{}

func (syncPoster) Submit(fn func()) { fn() }

func newTestRegistry(t *testing.T, catalog Catalog) (*Registry, *watchdog.Scheduler) {
	t.Helper()
	wd := watchdog.New(syncPoster{}, logger.NopLogger{})
	reg, err := NewRegistry(wd, catalog, nil, logger.NopLogger{}, time.Hour)
	require.NoError(t, err)
	return reg, wd
}

func TestNewRegistryNilParams(t *testing.T) {
	_, err := NewRegistry(nil, nil, nil, logger.NopLogger{}, time.Hour)
	require.Error(t, err)
}

func TestRegisterOrReplace(t *testing.T) {
	reg, wd := newTestRegistry(t, nil)
	v, err := reg.RegisterOrReplace("V1", 2, "")
	require.NoError(t, err)
	require.Equal(t, "V1", v.ID)
	require.Equal(t, model.StatusWaiting, v.Status)
	require.True(t, v.IsActive)
	require.True(t, v.IsAvailable)
	require.NotEmpty(t, v.SessionID)
	require.True(t, wd.Active("liveness/V1"))
}

func TestRegisterConflict(t *testing.T) {
	reg, _ := newTestRegistry(t, nil)
	_, err := reg.RegisterOrReplace("V1", 2, "")
	require.NoError(t, err)
	_, err = reg.RegisterOrReplace("V1", 3, "")
	require.ErrorIs(t, err, ErrConflict)
	v, ok := reg.Lookup("V1")
	require.True(t, ok)
	require.Equal(t, 2, v.JobsAvailable)
}

func TestRegisterUnknownType(t *testing.T) {
	catalog := Catalog{"rover": {Jobs: 4}}
	reg, _ := newTestRegistry(t, catalog)
	_, err := reg.RegisterOrReplace("V1", 2, "submarine")
	require.ErrorIs(t, err, ErrUnknownType)
	_, err = reg.RegisterOrReplace("V1", 2, "rover")
	require.NoError(t, err)
}

func TestDeactivateIsIdempotentAndReversible(t *testing.T) {
	reg, wd := newTestRegistry(t, nil)
	old, err := reg.RegisterOrReplace("V1", 2, "")
	require.NoError(t, err)

	reg.Deactivate("V1")
	v, ok := reg.Lookup("V1")
	require.True(t, ok)
	require.False(t, v.IsActive)
	require.False(t, v.IsAvailable)
	require.False(t, wd.Active("liveness/V1"))

	// Second deactivation is a no-op, not an error.
	reg.Deactivate("V1")
	// Unknown ids are ignored too.
	reg.Deactivate("ghost")

	// A reconnect replaces the stale record.
	fresh, err := reg.RegisterOrReplace("V1", 5, "")
	require.NoError(t, err)
	require.True(t, fresh.IsActive)
	require.Equal(t, 5, fresh.JobsAvailable)
	require.NotEqual(t, old.SessionID, fresh.SessionID)
}

func TestContactTimeoutDeactivates(t *testing.T) {
	wd := watchdog.New(syncPoster{}, logger.NopLogger{})
	reg, err := NewRegistry(wd, nil, nil, logger.NopLogger{}, 20*time.Millisecond)
	require.NoError(t, err)
	_, err = reg.RegisterOrReplace("V1", 1, "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		v, _ := reg.Lookup("V1")
		return !v.IsActive
	}, time.Second, 5*time.Millisecond)
}

func TestRenewContactExtendsDeadline(t *testing.T) {
	wd := watchdog.New(syncPoster{}, logger.NopLogger{})
	reg, err := NewRegistry(wd, nil, nil, logger.NopLogger{}, 60*time.Millisecond)
	require.NoError(t, err)
	_, err = reg.RegisterOrReplace("V1", 1, "")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		time.Sleep(30 * time.Millisecond)
		reg.RenewContact("V1")
	}
	v, _ := reg.Lookup("V1")
	require.True(t, v.IsActive)
}

func TestListSnapshot(t *testing.T) {
	reg, _ := newTestRegistry(t, nil)
	for _, id := range []string{"V3", "V1", "V2"} {
		_, err := reg.RegisterOrReplace(id, 1, "")
		require.NoError(t, err)
	}
	list := reg.List()
	require.Len(t, list, 3)
	require.Equal(t, "V1", list[0].ID)
	require.Equal(t, "V3", list[2].ID)

	// Mutating the snapshot must not touch the registry.
	list[0].IsActive = false
	v, _ := reg.Lookup("V1")
	require.True(t, v.IsActive)
	require.Equal(t, 3, reg.ActiveCount())
}

func TestSetAvailable(t *testing.T) {
	reg, _ := newTestRegistry(t, nil)
	_, err := reg.RegisterOrReplace("V1", 1, "")
	require.NoError(t, err)
	reg.SetAvailable("V1", false)
	v, _ := reg.Lookup("V1")
	require.False(t, v.IsAvailable)
	reg.SetAvailable("V1", true)
	require.True(t, v.IsAvailable)
}
