package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Ananth-NQI/farmline-ivr/internal/models"
)

// DatabaseStore keeps sessions in a SQL table through gorm so several
// instances can share call state. Writes are last-write-wins upserts.
type DatabaseStore struct {
	db    *gorm.DB
	clock clockwork.Clock
}

// NewDatabaseStore creates a database-backed session store.
// The call_sessions table must already be migrated.
func NewDatabaseStore(db *gorm.DB, clock clockwork.Clock) *DatabaseStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &DatabaseStore{db: db, clock: clock}
}

func (s *DatabaseStore) now() time.Time {
	return s.clock.Now().UTC()
}

func (s *DatabaseStore) Get(ctx context.Context, key string) (*models.CallSession, error) {
	var record models.CallSessionRecord
	err := s.db.WithContext(ctx).
		Where("session_key = ? AND expires_at > ?", key, s.now()).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", key, err)
	}
	return decodeSession([]byte(record.Value))
}

func (s *DatabaseStore) Set(ctx context.Context, key string, session *models.CallSession, ttl time.Duration) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}

	now := s.now()
	record := models.CallSessionRecord{
		SessionKey: key,
		Value:      string(data),
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("set session %s: %w", key, err)
	}
	return nil
}

func (s *DatabaseStore) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).
		Where("session_key = ?", key).
		Delete(&models.CallSessionRecord{}).Error
	if err != nil {
		return fmt.Errorf("delete session %s: %w", key, err)
	}
	return nil
}

func (s *DatabaseStore) DeleteExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at <= ?", s.now()).
		Delete(&models.CallSessionRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *DatabaseStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
