package persistence

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/coagronet/console/internal/domain/session"
	"github.com/coagronet/console/internal/infrastructure/auth"
	"github.com/coagronet/console/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSessionStore keeps session values in console_session_values, one row
// per key. Every Apply runs in a single transaction.
type GormSessionStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewGormSessionStore creates a store. A positive ttl sets the expiry of
// every row of a session on each write.
func NewGormSessionStore(db *gorm.DB, ttl time.Duration) *GormSessionStore {
	return &GormSessionStore{db: db, ttl: ttl, now: time.Now}
}

// Load returns the live values of sid.
func (s *GormSessionStore) Load(ctx context.Context, sid string) (session.Values, error) {
	var rows []models.SessionValue
	err := s.db.WithContext(ctx).
		Where("session_key = ?", auth.HashSessionID(sid)).
		Where("expires_at IS NULL OR expires_at > ?", s.now()).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	v := make(session.Values, len(rows))
	for _, r := range rows {
		if k := session.Key(r.Key); k.Valid() {
			v[k] = r.Value
		}
	}
	return v, nil
}

// Apply writes u in one transaction. Any failure rolls back every key.
func (s *GormSessionStore) Apply(ctx context.Context, sid string, u session.Update) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if u.Empty() {
		return nil
	}

	key := auth.HashSessionID(sid)
	now := s.now()
	var expiresAt *time.Time
	if s.ttl > 0 {
		t := now.Add(s.ttl)
		expiresAt = &t
	}

	var del []string
	var upserts []models.SessionValue
	for _, k := range u.Delete {
		del = append(del, string(k))
	}
	for k, val := range u.Set {
		if val == "" {
			del = append(del, string(k))
			continue
		}
		upserts = append(upserts, models.SessionValue{
			SessionKey: key,
			Key:        string(k),
			Value:      val,
			UpdatedAt:  now,
			ExpiresAt:  expiresAt,
		})
	}

	// Fixed row order keeps concurrent writers from deadlocking.
	sort.Slice(upserts, func(i, j int) bool { return upserts[i].Key < upserts[j].Key })

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Rows of an expired session must not leak into the new one.
		if err := tx.Where("session_key = ? AND expires_at IS NOT NULL AND expires_at <= ?", key, now).
			Delete(&models.SessionValue{}).Error; err != nil {
			return err
		}
		if len(del) > 0 {
			if err := tx.Where("session_key = ? AND key IN ?", key, del).
				Delete(&models.SessionValue{}).Error; err != nil {
				return err
			}
		}
		if len(upserts) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "session_key"}, {Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at", "expires_at"}),
			}).Create(&upserts).Error; err != nil {
				return err
			}
		}
		if expiresAt != nil {
			if err := tx.Model(&models.SessionValue{}).
				Where("session_key = ?", key).
				Update("expires_at", expiresAt).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply session update: %w", err)
	}
	return nil
}

// Clear deletes every row of sid.
func (s *GormSessionStore) Clear(ctx context.Context, sid string) error {
	err := s.db.WithContext(ctx).
		Where("session_key = ?", auth.HashSessionID(sid)).
		Delete(&models.SessionValue{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// PurgeExpired deletes expired rows and returns how many were removed.
func (s *GormSessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now()).
		Delete(&models.SessionValue{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

var _ session.Store = (*GormSessionStore)(nil)
