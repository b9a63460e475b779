// Package replica implements the terminal-resident durable mirror of the
// remote collections, plus the pending-write queue and device settings.
// It is pure storage: no network awareness, no session logic.
package replica

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tillsync/internal/model"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// UpsertMany mirrors remote records into the replica with replace semantics:
// matching (collection, id) rows are overwritten, never duplicated. Rows
// flagged unsynced are skipped: a pull must not clobber a local write that
// has not reached the remote store yet.
func (s *Store) UpsertMany(ctx context.Context, collection string, recs []model.Record) error {
	if len(recs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range recs {
			id := rec.ID()
			if id == "" {
				continue
			}
			var existing model.Document
			err := tx.First(&existing, "collection = ? AND id = ?", collection, id).Error
			if err == nil && existing.Unsynced {
				continue
			}
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			doc, err := toDocument(collection, rec, false)
			if err != nil {
				return err
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
				UpdateAll: true,
			}).Create(&doc).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertUnsynced stores a locally originated write, flagged so that pulls
// will not overwrite it until the remote store acknowledges it.
func (s *Store) UpsertUnsynced(ctx context.Context, collection string, rec model.Record) error {
	doc, err := toDocument(collection, rec, true)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		UpdateAll: true,
	}).Create(&doc).Error
}

// MarkSynced clears the unsynced flag after a remote acknowledgement.
func (s *Store) MarkSynced(ctx context.Context, collection, id string) error {
	return s.db.WithContext(ctx).Model(&model.Document{}).
		Where("collection = ? AND id = ?", collection, id).
		Update("unsynced", false).Error
}

// GetAll returns every record in a collection. Filtering happens in the
// coordinator, the same way the terminal filtered its cache historically.
func (s *Store) GetAll(ctx context.Context, collection string) ([]model.Record, error) {
	var docs []model.Document
	if err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("id asc").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	recs := make([]model.Record, 0, len(docs))
	for _, d := range docs {
		rec, err := d.Record()
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// GetByID returns a single record, or nil when absent.
func (s *Store) GetByID(ctx context.Context, collection, id string) (model.Record, error) {
	var doc model.Document
	err := s.db.WithContext(ctx).First(&doc, "collection = ? AND id = ?", collection, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.Record()
}

// DeleteByID removes a record from the replica.
func (s *Store) DeleteByID(ctx context.Context, collection, id string) error {
	return s.db.WithContext(ctx).
		Delete(&model.Document{}, "collection = ? AND id = ?", collection, id).Error
}

// ClearOperatorData purges documents tagged with an operator's id. Pending
// writes survive: the device's own offline writes are never silently dropped,
// even across an operator switch.
func (s *Store) ClearOperatorData(ctx context.Context, operatorID string) error {
	if operatorID == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Delete(&model.Document{}, "operator_id = ?", operatorID).Error
}

// ClearAllData wipes every mirrored document, queued write, and setting.
// Called on logout; the data loss for unsynced writes is deliberate.
func (s *Store) ClearAllData(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.Document{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&model.PendingWrite{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&model.Setting{}).Error
	})
}

// GetSetting returns a device setting value, or "" when unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var setting model.Setting
	err := s.db.WithContext(ctx).First(&setting, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

// SetSetting stores a device setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&model.Setting{Key: key, Value: value}).Error
}

// DeleteSetting removes a device setting.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&model.Setting{}, "key = ?", key).Error
}

func toDocument(collection string, rec model.Record, unsynced bool) (model.Document, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return model.Document{}, err
	}
	operatorID := ""
	if model.OperatorScoped(collection) {
		operatorID = rec.String("operatorId")
	}
	return model.Document{
		Collection: collection,
		ID:         rec.ID(),
		Data:       data,
		OperatorID: operatorID,
		Unsynced:   unsynced,
		UpdatedAt:  time.Now(),
	}, nil
}
