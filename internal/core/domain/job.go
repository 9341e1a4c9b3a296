package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Job statuses
const (
	JobStatusQueued        = "queued"
	JobStatusNormalizing   = "normalizing"
	JobStatusDeduplicating = "deduplicating"
	JobStatusCompleted     = "completed"
	JobStatusFailed        = "failed"
)

// NormalizationJob represents one dataset file run through the normalizer
type NormalizationJob struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OriginalFilename string     `gorm:"type:varchar(500);not null" json:"original_filename"`
	FilePath         string     `gorm:"type:text" json:"file_path"`
	FileHash         string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"file_hash"` // For idempotency
	Status           string     `gorm:"type:varchar(50);not null;default:'queued'" json:"status"`
	TextField        string     `gorm:"type:varchar(255);not null;default:'text'" json:"text_field"`
	Deduplicate      bool       `gorm:"not null;default:false" json:"deduplicate"`
	RefineryVersion  string     `gorm:"type:varchar(20);not null;default:'v1'" json:"refinery_version"`
	Fingerprint      string     `gorm:"type:varchar(32)" json:"fingerprint"`
	TotalRecords     int        `gorm:"default:0" json:"total_records"`
	ProcessedRecords int        `gorm:"default:0" json:"processed_records"`
	EmptyRecords     int        `gorm:"default:0" json:"empty_records"`
	DuplicateRecords int        `gorm:"default:0" json:"duplicate_records"`
	CacheHits        int        `gorm:"default:0" json:"cache_hits"`
	OutputPath       string     `gorm:"type:text" json:"output_path,omitempty"`
	Error            string     `gorm:"type:text" json:"error,omitempty"`
	Config           JSONB      `gorm:"type:jsonb" json:"config"`
	Metadata         JSONB      `gorm:"type:jsonb" json:"metadata"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`

	// Relations
	DedupHashes []DedupHash `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"dedup_hashes,omitempty"`
}

// JobCounts holds the record counters written when a job completes
type JobCounts struct {
	TotalRecords     int `json:"total_records"`
	ProcessedRecords int `json:"processed_records"`
	EmptyRecords     int `json:"empty_records"`
	DuplicateRecords int `json:"duplicate_records"`
	CacheHits        int `json:"cache_hits"`
}

// JobSettings are the request and normalizer settings that determine a job's output
type JobSettings struct {
	TextField   string
	Deduplicate bool
	Fingerprint string
	Config      JSONB
}

// MatchesSettings reports whether the job was produced with the same settings
func (j *NormalizationJob) MatchesSettings(s JobSettings) bool {
	return j.Fingerprint == s.Fingerprint &&
		j.TextField == s.TextField &&
		j.Deduplicate == s.Deduplicate
}

// TableName specifies the table name for GORM
func (NormalizationJob) TableName() string {
	return "normalization_jobs"
}

// BeforeCreate GORM hook - called before creating a record
func (j *NormalizationJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// IsTerminal reports whether the job reached a final status
func (j *NormalizationJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// ValidStatuses returns list of valid job statuses
func ValidStatuses() []string {
	return []string{
		JobStatusQueued,
		JobStatusNormalizing,
		JobStatusDeduplicating,
		JobStatusCompleted,
		JobStatusFailed,
	}
}

// IsValidStatus checks if a status is valid
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}
