package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DedupHash records the hash of one normalized text so later jobs can skip it
type DedupHash struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	JobID            uuid.UUID `gorm:"type:uuid;not null;index:idx_dedup_job_hash" json:"job_id"`
	Hash             string    `gorm:"type:varchar(64);not null;index:idx_dedup_job_hash;index:idx_dedup_hash" json:"hash"`
	OriginalRowIndex int       `gorm:"not null" json:"original_row_index"`
	Kept             bool      `gorm:"not null;index:idx_dedup_kept" json:"kept"` // no gorm default, or false would be dropped on insert
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Job *NormalizationJob `gorm:"foreignKey:JobID" json:"job,omitempty"`
}

// TableName specifies the table name for GORM
func (DedupHash) TableName() string {
	return "dedup_hashes"
}

// BeforeCreate GORM hook
func (d *DedupHash) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
