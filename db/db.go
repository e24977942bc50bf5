// Package db persists LLM prompt audit rows in sqlite.
package db

import (
	"context"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"gorm.io/gorm"
)

// Prompt represents a prompt record in the database.
type Prompt struct {
	// IDs
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"not null;index:session"`

	// Content
	Agent      string `gorm:"not null"`
	State      string `gorm:"not null"`
	System     string `gorm:"not null"`
	HistoryLen int    `gorm:"not null"`
	Request    string `gorm:"not null"`
	Model      string `gorm:"not null"`
	Response   string

	// Time
	CreatedAt   time.Time `gorm:"not null"`
	MachTimeSum int       `gorm:"not null"`
	MachTime    string    `gorm:"not null"`
}

type DB struct {
	gorm *gorm.DB
}

// Open opens (and migrates) the sqlite DB under [dir].
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	file := gormlite.Open(filepath.Join(dir, "studai.db"))
	dbGorm, err := gorm.Open(file, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := dbGorm.AutoMigrate(&Prompt{}); err != nil {
		return nil, err
	}

	return &DB{gorm: dbGorm}, nil
}

func (d *DB) Close() error {
	conn, err := d.gorm.DB()
	if err != nil {
		return err
	}

	return conn.Close()
}

// AddPrompt inserts a prompt row and returns its id.
func (d *DB) AddPrompt(ctx context.Context, p *Prompt) (uint, error) {
	res := d.gorm.WithContext(ctx).Create(p)
	if res.Error != nil {
		return 0, res.Error
	}

	return p.ID, nil
}

// SetPromptResponse fills in the response of a previously added prompt.
func (d *DB) SetPromptResponse(ctx context.Context, id uint, resp string) error {
	res := d.gorm.WithContext(ctx).Model(&Prompt{}).Where("id = ?", id).
		Update("response", resp)

	return res.Error
}

// RecentPrompts returns the latest prompts of a session, newest first.
func (d *DB) RecentPrompts(ctx context.Context, sessionId string, limit int) ([]Prompt, error) {
	var out []Prompt
	res := d.gorm.WithContext(ctx).Where("session_id = ?", sessionId).
		Order("id desc").Limit(limit).Find(&out)

	return out, res.Error
}
