// Package sql implements core.Store on a relational database through GORM.
//
// Each note is one row; images are kept as the codec blob in a binary
// column. SaveAll replaces the whole table inside one transaction, so a
// reader never observes a partially written collection.
package sql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aretw0/notebook/pkg/codec"
	"github.com/aretw0/notebook/pkg/core"
)

const batchSize = 100

// noteRecord is the row shape of a note.
type noteRecord struct {
	ID        string     `gorm:"primaryKey;size:36"`
	Title     string     `gorm:"type:text"`
	Body      string     `gorm:"type:text"`
	ImageBlob []byte     `gorm:"column:image_blob"`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime:false"`
	EditedAt  *time.Time `gorm:"index"`
}

func (noteRecord) TableName() string {
	return "notes"
}

// Config holds the configuration for the SQL store.
type Config struct {
	// DSN selects the driver: "postgres://" / "postgresql://" URLs and
	// "host=... user=..." key/value strings use PostgreSQL, anything else
	// is treated as a MySQL DSN.
	DSN      string
	Logger   *zap.Logger
	Codec    *codec.Codec
	LogLevel logger.LogLevel
}

// Store implements core.Store using GORM.
type Store struct {
	db     *gorm.DB
	config Config
	logger *zap.Logger
	codec  *codec.Codec
}

// Dialector picks the GORM dialector for dsn.
func Dialector(dsn string) (gorm.Dialector, string) {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case strings.HasPrefix(lower, "postgres://"),
		strings.HasPrefix(lower, "postgresql://"),
		strings.Contains(lower, "host=") && !strings.Contains(lower, "@tcp("):
		return postgres.Open(dsn), "postgres"
	default:
		return mysql.New(mysql.Config{
			DSN:               dsn,
			DefaultStringSize: 191,
		}), "mysql"
	}
}

// Open connects to the database named by config.DSN.
func Open(config Config) (*Store, error) {
	if config.DSN == "" {
		return nil, errors.New("sql store requires a DSN")
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Codec == nil {
		config.Codec = codec.New(config.Logger)
	}
	if config.LogLevel == 0 {
		config.LogLevel = logger.Warn
	}

	dialector, driver := Dialector(config.DSN)
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(config.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	return NewStore(db, config.Logger.With(zap.String("store", "sql"), zap.String("driver", driver)), config.Codec), nil
}

// NewStore wraps an already opened database.
func NewStore(db *gorm.DB, log *zap.Logger, c *codec.Codec) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if c == nil {
		c = codec.New(log)
	}
	return &Store{db: db, logger: log, codec: c}
}

// Initialize migrates the notes table.
func (s *Store) Initialize(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&noteRecord{}); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// FetchAll implements core.Store.
func (s *Store) FetchAll(ctx context.Context) ([]core.Note, error) {
	var records []noteRecord
	err := s.db.WithContext(ctx).
		Order("edited_at DESC").
		Order("created_at DESC").
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	notes := make([]core.Note, 0, len(records))
	for _, r := range records {
		notes = append(notes, s.toNote(r))
	}
	// NULL ordering differs between databases.
	core.SortNotes(notes)
	return notes, nil
}

// SaveAll replaces every row with notes in a single transaction.
func (s *Store) SaveAll(ctx context.Context, notes []core.Note) error {
	records := make([]noteRecord, 0, len(notes))
	for _, n := range notes {
		r, err := s.toRecord(n)
		if err != nil {
			return err
		}
		records = append(records, r)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&noteRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear notes: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(records, batchSize).Error; err != nil {
			return fmt.Errorf("failed to insert notes: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("notes table replaced", zap.Int("count", len(records)))
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("resolve sql db: %w", err)
	}
	return sqlDB.Close()
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "sql:" + s.db.Dialector.Name()
}

func (s *Store) toRecord(n core.Note) (noteRecord, error) {
	blob, err := s.codec.EncodeImages(n.Images)
	if err != nil {
		return noteRecord{}, fmt.Errorf("failed to encode images of %s: %w", n.ID, err)
	}
	r := noteRecord{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body,
		ImageBlob: blob,
		CreatedAt: n.CreatedAt.UTC(),
	}
	if n.EditedAt != nil {
		t := n.EditedAt.UTC()
		r.EditedAt = &t
	}
	return r, nil
}

func (s *Store) toNote(r noteRecord) core.Note {
	n := core.Note{
		ID:        r.ID,
		Title:     r.Title,
		Body:      r.Body,
		Images:    s.codec.DecodeImages(r.ImageBlob),
		CreatedAt: r.CreatedAt,
		EditedAt:  r.EditedAt,
	}
	if n.CreatedAt.IsZero() && n.EditedAt != nil {
		s.logger.Warn("row without creation time, using edit time", zap.String("id", n.ID))
		n.CreatedAt = *n.EditedAt
	}
	return n
}

var _ core.Store = (*Store)(nil)
