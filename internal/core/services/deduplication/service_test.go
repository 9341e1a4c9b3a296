package deduplication

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHashRepository implements HashRepository for testing
type mockHashRepository struct {
	existingHashes map[string]bool
	savedHashes    map[uuid.UUID][]HashEntry
	checkErr       error
}

func newMockHashRepository() *mockHashRepository {
	return &mockHashRepository{
		existingHashes: make(map[string]bool),
		savedHashes:    make(map[uuid.UUID][]HashEntry),
	}
}

func (m *mockHashRepository) CheckHashExists(ctx context.Context, hash string) (bool, error) {
	if m.checkErr != nil {
		return false, m.checkErr
	}
	return m.existingHashes[hash], nil
}

func (m *mockHashRepository) SaveHashes(ctx context.Context, jobID uuid.UUID, hashes []HashEntry) error {
	m.savedHashes[jobID] = hashes
	for _, h := range hashes {
		if h.Kept {
			m.existingHashes[h.Hash] = true
		}
	}
	return nil
}

func (m *mockHashRepository) GetJobHashes(ctx context.Context, jobID uuid.UUID) ([]HashEntry, error) {
	return m.savedHashes[jobID], nil
}

func textRecords(texts ...string) []Record {
	records := make([]Record, len(texts))
	for i, text := range texts {
		records[i] = Record{RowIndex: i, Data: map[string]interface{}{"cleanText": text}}
	}
	return records
}

func TestService_DeduplicateLevel1_ExactMatch(t *testing.T) {
	config := DefaultConfig()
	config.StoreHashes = false
	service := NewService(config, nil, nil)

	records := textRecords(
		"مرحبا بالعالم",
		"مرحبا بالعالم", // Duplicate
		"صباح الخير",
		"مرحبا بالعالم", // Duplicate
		"[رابط] شكرا",
	)

	result, err := service.Deduplicate(context.Background(), uuid.New(), records)

	require.NoError(t, err)
	assert.Equal(t, 5, result.OriginalCount)
	assert.Equal(t, 3, result.DeduplicatedCount)
	assert.Equal(t, 2, result.RemovedCount)
	assert.Equal(t, 2, result.Stats.Level1Duplicates)
	assert.Equal(t, 0, result.Stats.Level2Duplicates)

	// First occurrences are kept, in order
	indices := make([]int, 0, len(result.Records))
	for _, record := range result.Records {
		indices = append(indices, record.RowIndex)
	}
	assert.Equal(t, []int{0, 2, 4}, indices)
}

func TestService_DeduplicateLevel1_CaseHandling(t *testing.T) {
	records := func() []Record { return textRecords("Hello مرحبا", "hello مرحبا", "HELLO مرحبا") }

	sensitive := DefaultConfig()
	sensitive.CaseSensitive = true
	result, err := NewService(sensitive, nil, nil).Deduplicate(context.Background(), uuid.New(), records())
	require.NoError(t, err)
	assert.Equal(t, 3, result.DeduplicatedCount)

	insensitive := DefaultConfig()
	result, err = NewService(insensitive, nil, nil).Deduplicate(context.Background(), uuid.New(), records())
	require.NoError(t, err)
	assert.Equal(t, 1, result.DeduplicatedCount)
	assert.Equal(t, 2, result.RemovedCount)
}

func TestService_DeduplicateEmptyTexts(t *testing.T) {
	service := NewService(DefaultConfig(), nil, nil)

	records := textRecords("مرحبا", "", "   ", "مرحبا")
	records = append(records, Record{RowIndex: 4, Data: map[string]interface{}{"other": "x"}})

	result, err := service.Deduplicate(context.Background(), uuid.New(), records)
	require.NoError(t, err)

	assert.Equal(t, 5, result.OriginalCount)
	assert.Equal(t, 1, result.DeduplicatedCount)
	assert.Equal(t, 3, result.Stats.EmptyRecords)
	assert.Equal(t, 1, result.Stats.Level1Duplicates)
	assert.Equal(t, 4, result.RemovedCount)
}

func TestService_KeepEmptyTexts(t *testing.T) {
	config := DefaultConfig()
	config.DropEmpty = false
	service := NewService(config, nil, nil)

	result, err := service.Deduplicate(context.Background(), uuid.New(), textRecords("", "", "مرحبا"))
	require.NoError(t, err)

	// the two empty texts share a hash
	assert.Equal(t, 2, result.DeduplicatedCount)
	assert.Equal(t, 0, result.Stats.EmptyRecords)
}

func TestService_DeduplicateLevel2_CrossJob(t *testing.T) {
	mockRepo := newMockHashRepository()

	config := DefaultConfig()
	config.Strategy = StrategyUniversal
	config.EnableLevel2 = true

	service := NewService(config, mockRepo, nil)

	result1, err := service.Deduplicate(context.Background(), uuid.New(), textRecords("مرحبا", "صباح الخير"))
	require.NoError(t, err)
	assert.Equal(t, 2, result1.DeduplicatedCount)

	result2, err := service.Deduplicate(context.Background(), uuid.New(), textRecords("مرحبا", "صباح الخير", "مساء الخير"))
	require.NoError(t, err)

	assert.Equal(t, 3, result2.OriginalCount)
	assert.Equal(t, 1, result2.DeduplicatedCount)
	assert.Equal(t, 0, result2.Stats.Level1Duplicates)
	assert.Equal(t, 2, result2.Stats.Level2Duplicates)
	assert.Equal(t, "مساء الخير", result2.Records[0].Data["cleanText"])
}

func TestService_DeduplicateLevel2_FailOpen(t *testing.T) {
	mockRepo := newMockHashRepository()
	mockRepo.checkErr = errors.New("connection refused")

	config := DefaultConfig()
	config.EnableLevel2 = true
	config.StoreHashes = false

	service := NewService(config, mockRepo, nil)

	result, err := service.Deduplicate(context.Background(), uuid.New(), textRecords("مرحبا", "صباح الخير"))
	require.NoError(t, err)
	assert.Equal(t, 2, result.DeduplicatedCount, "lookup errors keep the record")
}

func TestService_DeduplicateMultipleFields(t *testing.T) {
	config := DefaultConfig()
	config.CleanFields = []string{"cleanText", "cleanTitle"}
	config.StoreHashes = false

	service := NewService(config, nil, nil)

	records := []Record{
		{RowIndex: 0, Data: map[string]interface{}{"cleanText": "مرحبا", "cleanTitle": "تحية"}},
		{RowIndex: 1, Data: map[string]interface{}{"cleanText": "مرحبا", "cleanTitle": "سؤال"}},
		{RowIndex: 2, Data: map[string]interface{}{"cleanText": "مرحبا", "cleanTitle": "تحية"}},
	}

	result, err := service.Deduplicate(context.Background(), uuid.New(), records)

	require.NoError(t, err)
	assert.Equal(t, 2, result.DeduplicatedCount)
	assert.Equal(t, 1, result.RemovedCount)
}

func TestService_DeduplicateEmptyRecords(t *testing.T) {
	service := NewService(DefaultConfig(), nil, nil)

	result, err := service.Deduplicate(context.Background(), uuid.New(), []Record{})

	require.NoError(t, err)
	assert.Equal(t, 0, result.OriginalCount)
	assert.Equal(t, 0, result.DeduplicatedCount)
	assert.Empty(t, result.Records)
}

func TestService_DeduplicateCancelled(t *testing.T) {
	service := NewService(DefaultConfig(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.Deduplicate(ctx, uuid.New(), textRecords("مرحبا"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_StoreHashes(t *testing.T) {
	mockRepo := newMockHashRepository()
	service := NewService(DefaultConfig(), mockRepo, nil)

	jobID := uuid.New()
	result, err := service.Deduplicate(context.Background(), jobID, textRecords("مرحبا", "مرحبا", "شكرا"))

	require.NoError(t, err)
	assert.Equal(t, 2, result.DeduplicatedCount)

	savedHashes, err := mockRepo.GetJobHashes(context.Background(), jobID)
	require.NoError(t, err)
	assert.Len(t, savedHashes, 3)

	keptCount := 0
	for _, h := range savedHashes {
		if h.Kept {
			keptCount++
		}
	}
	assert.Equal(t, 2, keptCount)
}

func TestGenerateHash_Consistency(t *testing.T) {
	config := DefaultConfig()
	record := Record{Data: map[string]interface{}{"cleanText": "مرحبا بالعالم"}}
	fields := []string{"cleanText"}

	hash1, err := generateHash(record, fields, config)
	require.NoError(t, err)
	hash2, err := generateHash(record, fields, config)
	require.NoError(t, err)

	assert.Equal(t, hash1, hash2)
	assert.Len(t, hash1, 64)
}

func TestGenerateHash_TrimsUnicodeWhitespace(t *testing.T) {
	config := DefaultConfig()
	fields := []string{"cleanText"}

	plain, err := generateHash(Record{Data: map[string]interface{}{"cleanText": "مرحبا"}}, fields, config)
	require.NoError(t, err)
	padded, err := generateHash(Record{Data: map[string]interface{}{"cleanText": " مرحبا　"}}, fields, config)
	require.NoError(t, err)

	assert.Equal(t, plain, padded)
}

func BenchmarkService_Deduplicate(b *testing.B) {
	config := DefaultConfig()
	config.StoreHashes = false
	service := NewService(config, nil, nil)

	texts := make([]string, 1000)
	for i := range texts {
		texts[i] = "مرحبا بالعالم"
		if i%2 == 0 {
			texts[i] = "صباح الخير"
		}
	}

	ctx := context.Background()
	jobID := uuid.New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = service.Deduplicate(ctx, jobID, textRecords(texts...))
	}
}
