package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/party-queue/internal/host"
	"github.com/DoyleJ11/party-queue/internal/roster"
)

// Postgres stores one row per session and one row per participant. A save
// replaces the session's participant rows inside a transaction.
type Postgres struct {
	db  *gorm.DB
	log *zap.Logger
}

func Open(dsn string, log *zap.Logger) (*Postgres, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &Postgres{db: db, log: log.Named("store")}, nil
}

// Migrate creates or updates the sessions and participants tables.
func (p *Postgres) Migrate(ctx context.Context) error {
	if err := p.db.WithContext(ctx).AutoMigrate(&SessionRow{}, &ParticipantRow{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) SaveSnapshot(ctx context.Context, code string, settings host.Settings, s roster.State) error {
	session, rows := toRows(code, settings, s)

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"party_size", "rotation_width", "registration_mode", "updated_at"}),
		}).Omit("Participants").Create(&session).Error
		if err != nil {
			return err
		}
		if err := tx.Where("session_code = ?", code).Delete(&ParticipantRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("save session %s: %w", code, err)
	}
	p.log.Debug("snapshot saved", zap.String("session", code), zap.Int("participants", len(rows)))
	return nil
}

func (p *Postgres) LoadSnapshot(ctx context.Context, code string) (host.Settings, roster.State, error) {
	var session SessionRow
	err := p.db.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&session, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return host.Settings{}, roster.State{}, host.ErrNoSnapshot
	}
	if err != nil {
		return host.Settings{}, roster.State{}, fmt.Errorf("load session %s: %w", code, err)
	}
	settings, st := fromRows(session, session.Participants)
	return settings, st, nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
