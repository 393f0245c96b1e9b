package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Ananth-NQI/farmline-ivr/internal/models"
)

var testEpoch = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestDatabaseStore(t *testing.T, clock clockwork.Clock) *DatabaseStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "sessions.db")), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.CallSessionRecord{}))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewDatabaseStore(db, clock)
}

// storeFactories runs each contract test against both implementations
func storeFactories() map[string]func(t *testing.T, clock clockwork.Clock) SessionStore {
	return map[string]func(t *testing.T, clock clockwork.Clock) SessionStore{
		"memory": func(_ *testing.T, clock clockwork.Clock) SessionStore {
			return NewMemoryStore(clock)
		},
		"database": func(t *testing.T, clock clockwork.Clock) SessionStore {
			return newTestDatabaseStore(t, clock)
		},
	}
}

func sampleSession() *models.CallSession {
	temp := 38.0
	return &models.CallSession{
		CallSID: "CA123",
		From:    "+919876543210",
		State:   models.StateWeatherSMSConsent,
		PIN:     "110001",
		Weather: &models.WeatherSnapshot{
			Place:        "New Delhi",
			Description:  "haze",
			TemperatureC: &temp,
		},
		SMSBody: "weather body",
	}
}

func TestSessionStore_SetGetRoundTrip(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t, clockwork.NewFakeClockAt(testEpoch))

			require.NoError(t, store.Set(ctx, "call:CA123", sampleSession(), SessionTTL))

			got, err := store.Get(ctx, "call:CA123")
			require.NoError(t, err)
			assert.Equal(t, models.StateWeatherSMSConsent, got.State)
			assert.Equal(t, "110001", got.PIN)
			require.NotNil(t, got.Weather)
			require.NotNil(t, got.Weather.TemperatureC)
			assert.Equal(t, 38.0, *got.Weather.TemperatureC)
			assert.Nil(t, got.Weather.PrecipitationMM)
		})
	}
}

func TestSessionStore_GetMissing(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			store := factory(t, clockwork.NewFakeClockAt(testEpoch))

			_, err := store.Get(context.Background(), "call:nope")
			assert.ErrorIs(t, err, ErrSessionNotFound)
		})
	}
}

func TestSessionStore_SetOverwrites(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t, clockwork.NewFakeClockAt(testEpoch))

			s := sampleSession()
			require.NoError(t, store.Set(ctx, "call:CA123", s, SessionTTL))
			s.State = models.StateTerminal
			require.NoError(t, store.Set(ctx, "call:CA123", s, SessionTTL))

			got, err := store.Get(ctx, "call:CA123")
			require.NoError(t, err)
			assert.Equal(t, models.StateTerminal, got.State)
		})
	}
}

func TestSessionStore_Delete(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t, clockwork.NewFakeClockAt(testEpoch))

			require.NoError(t, store.Set(ctx, "call:CA123", sampleSession(), SessionTTL))
			require.NoError(t, store.Delete(ctx, "call:CA123"))

			_, err := store.Get(ctx, "call:CA123")
			assert.ErrorIs(t, err, ErrSessionNotFound)

			// deleting again is fine
			require.NoError(t, store.Delete(ctx, "call:CA123"))
		})
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := clockwork.NewFakeClockAt(testEpoch)
			store := factory(t, clock)

			require.NoError(t, store.Set(ctx, "call:old", sampleSession(), SessionTTL))
			clock.Advance(30 * time.Minute)
			require.NoError(t, store.Set(ctx, "call:new", sampleSession(), SessionTTL))

			clock.Advance(31 * time.Minute)

			_, err := store.Get(ctx, "call:old")
			assert.ErrorIs(t, err, ErrSessionNotFound, "old session is past its hour")

			_, err = store.Get(ctx, "call:new")
			require.NoError(t, err)

			removed, err := store.DeleteExpired(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1), removed)

			_, err = store.Get(ctx, "call:new")
			require.NoError(t, err, "live session survives the sweep")
		})
	}
}

func TestSessionStore_Ping(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			store := factory(t, clockwork.NewFakeClockAt(testEpoch))
			assert.NoError(t, store.Ping(context.Background()))
		})
	}
}

func TestMemoryStore_StoresCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(clockwork.NewFakeClockAt(testEpoch))

	s := sampleSession()
	require.NoError(t, store.Set(ctx, "call:CA123", s, SessionTTL))
	s.State = models.StateMenu

	got, err := store.Get(ctx, "call:CA123")
	require.NoError(t, err)
	assert.Equal(t, models.StateWeatherSMSConsent, got.State, "mutating the caller's struct must not leak into the store")
	assert.Equal(t, 1, store.Len())
}
