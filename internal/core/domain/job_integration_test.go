//go:build integration

package domain

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupTestDB creates a PostgreSQL testcontainer for testing
func setupTestDB(t *testing.T) *gorm.DB {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate postgres container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(pgdriver.Open(connStr), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := db.AutoMigrate(&NormalizationJob{}, &DedupHash{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func TestJob_BeforeCreate(t *testing.T) {
	db := setupTestDB(t)

	job := &NormalizationJob{
		OriginalFilename: "tweets.csv",
		FileHash:         "abc123",
	}
	assert.Equal(t, uuid.Nil, job.ID)

	require.NoError(t, db.Create(job).Error)
	assert.NotEqual(t, uuid.Nil, job.ID)
}

func TestJob_FileHashUniqueness(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.Create(&NormalizationJob{
		OriginalFilename: "file1.csv",
		FileHash:         "same_hash_123",
	}).Error)

	err := db.Create(&NormalizationJob{
		OriginalFilename: "file2.csv",
		FileHash:         "same_hash_123",
	}).Error
	assert.Error(t, err, "should fail due to UNIQUE constraint on file_hash")
}

func TestJob_DefaultValues(t *testing.T) {
	db := setupTestDB(t)

	job := &NormalizationJob{
		OriginalFilename: "tweets.csv",
		FileHash:         "hash123",
		Config:           JSONB{"keep_emojis": true},
	}
	require.NoError(t, db.Create(job).Error)

	var loaded NormalizationJob
	require.NoError(t, db.First(&loaded, "id = ?", job.ID).Error)

	assert.Equal(t, JobStatusQueued, loaded.Status)
	assert.Equal(t, "text", loaded.TextField)
	assert.Equal(t, "v1", loaded.RefineryVersion)
	assert.Equal(t, 0, loaded.TotalRecords)
	assert.Equal(t, true, loaded.Config["keep_emojis"])
	assert.NotZero(t, loaded.CreatedAt)
}

func TestJob_DedupHashesCascade(t *testing.T) {
	db := setupTestDB(t)

	job := &NormalizationJob{OriginalFilename: "tweets.csv", FileHash: "hash123"}
	require.NoError(t, db.Create(job).Error)

	require.NoError(t, db.Create(&DedupHash{JobID: job.ID, Hash: "h1", OriginalRowIndex: 0}).Error)
	require.NoError(t, db.Create(&DedupHash{JobID: job.ID, Hash: "h2", OriginalRowIndex: 1}).Error)

	var loaded NormalizationJob
	require.NoError(t, db.Preload("DedupHashes").First(&loaded, "id = ?", job.ID).Error)
	assert.Len(t, loaded.DedupHashes, 2)

	require.NoError(t, db.Delete(&NormalizationJob{}, "id = ?", job.ID).Error)

	var remaining int64
	require.NoError(t, db.Model(&DedupHash{}).Where("job_id = ?", job.ID).Count(&remaining).Error)
	assert.Equal(t, int64(0), remaining)
}

func TestJob_UpdatedAtAutoUpdate(t *testing.T) {
	db := setupTestDB(t)

	job := &NormalizationJob{OriginalFilename: "tweets.csv", FileHash: "hash123"}
	require.NoError(t, db.Create(job).Error)
	originalUpdatedAt := job.UpdatedAt

	time.Sleep(10 * time.Millisecond)
	job.Status = JobStatusCompleted
	require.NoError(t, db.Save(job).Error)

	assert.True(t, job.UpdatedAt.After(originalUpdatedAt))
}
