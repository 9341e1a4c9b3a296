package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alejandroruanova/arabic-text-normalizer/internal/core/services/corpus"
	apperrors "github.com/alejandroruanova/arabic-text-normalizer/internal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type run struct {
	code   int
	stdout string
	stderr string
}

func execute(t *testing.T, stdin string, args ...string) run {
	t.Helper()

	t.Setenv("STORAGE_BASE_PATH", t.TempDir())
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("CORPUS_MODEL_INPUT", "false")

	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)

	return run{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestNormalizeCmd_Arguments(t *testing.T) {
	r := execute(t, "", "normalize", "مَرْحَبًا", "hello @user123 bye")

	require.Equal(t, apperrors.ExitOK, r.code, r.stderr)
	assert.Equal(t, "مرحبا\nhello [مستخدم] bye\n", r.stdout)
}

func TestNormalizeCmd_Stdin(t *testing.T) {
	r := execute(t, "رائععععع\n\nعام2020\n", "normalize")

	require.Equal(t, apperrors.ExitOK, r.code, r.stderr)
	assert.Equal(t, "رائعع\n\nعام 2020\n", r.stdout)
}

func TestNormalizeCmd_EmojiFlag(t *testing.T) {
	r := execute(t, "", "normalize", "جميل 😀")
	require.Equal(t, apperrors.ExitOK, r.code, r.stderr)
	assert.Equal(t, "جميل 😀\n", r.stdout)

	r = execute(t, "", "normalize", "--keep-emojis=false", "جميل 😀")
	require.Equal(t, apperrors.ExitOK, r.code, r.stderr)
	assert.Equal(t, "جميل\n", r.stdout)
}

func TestNormalizeCmd_ConfigFromEnvironment(t *testing.T) {
	t.Setenv("NORMALIZER_STRIP_DIACRITICS", "false")

	r := execute(t, "", "normalize", "--keep-emojis=false", "مَرْحَبًا")
	require.Equal(t, apperrors.ExitOK, r.code, r.stderr)
	assert.Equal(t, "مَرْحَبًا\n", r.stdout)

	// flags win over the environment
	r = execute(t, "", "normalize", "--keep-emojis=false", "--strip-diacritics", "مَرْحَبًا")
	require.Equal(t, apperrors.ExitOK, r.code, r.stderr)
	assert.Equal(t, "مرحبا\n", r.stdout)
}

func TestNormalizeCmd_JSON(t *testing.T) {
	r := execute(t, "", "normalize", "--json", "مَرْحَبًا")
	require.Equal(t, apperrors.ExitOK, r.code, r.stderr)

	var line map[string]string
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &line))
	assert.Equal(t, map[string]string{"text": "مَرْحَبًا", "cleanText": "مرحبا"}, line)
}

func TestNormalizeCmd_UsageErrors(t *testing.T) {
	r := execute(t, "", "normalize", "--no-such-flag")
	assert.Equal(t, apperrors.ExitUsage, r.code)
	assert.Contains(t, r.stderr, "unknown flag")

	r = execute(t, "", "normalize", "--refinery", "v9", "text")
	assert.Equal(t, apperrors.ExitUsage, r.code)
	assert.Contains(t, r.stderr, "v9")
}

func TestStepsCmd(t *testing.T) {
	r := execute(t, "", "steps")
	require.Equal(t, apperrors.ExitOK, r.code, r.stderr)

	assert.Contains(t, r.stdout, "v1  Arabic Text Normalization")
	assert.Contains(t, r.stdout, "aliases: ar, arabert, arabic")
	assert.Contains(t, r.stdout, "1. unescape_html")
	assert.Contains(t, r.stdout, "9. normalize_whitespace")
}

func TestStepsCmd_JSON(t *testing.T) {
	r := execute(t, "", "steps", "--json")
	require.Equal(t, apperrors.ExitOK, r.code, r.stderr)

	var registry map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &registry))
	require.Contains(t, registry, "v1")
	assert.Len(t, registry["v1"]["steps"], 9)
}

func TestVersionCmd(t *testing.T) {
	original := version
	version = "test-version-1.0.0"
	defer func() { version = original }()

	r := execute(t, "", "version")
	require.Equal(t, apperrors.ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "arnorm version test-version-1.0.0")
	assert.Contains(t, r.stdout, "v1")
}

func TestProcessCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tweets.jsonl")
	content := "{\"text\":\"مَرْحَبًا\"}\n{\"text\":\"مرحبا\"}\n{\"text\":\"\"}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	r := execute(t, "", "process", "--json", path)
	require.Equal(t, apperrors.ExitOK, r.code, r.stderr)

	var result corpus.ProcessResult
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &result))
	assert.Equal(t, 3, result.TotalRecords)
	assert.Equal(t, 1, result.ProcessedRecords)
	assert.Equal(t, 1, result.EmptyRecords)
	assert.Equal(t, 1, result.DuplicateRecords)
	assert.Empty(t, result.LLMInputFiles)

	data, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"cleanText":"مرحبا"`)
}

func TestProcessCmd_Summary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tweets.txt")
	require.NoError(t, os.WriteFile(path, []byte("مرحبا\nمرحبا\n"), 0644))

	r := execute(t, "", "process", "--no-dedup", path)
	require.Equal(t, apperrors.ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "2 total, 2 written")
	assert.Contains(t, r.stdout, "0 empty, 0 duplicate")
}

func TestProcessCmd_Errors(t *testing.T) {
	r := execute(t, "", "process")
	assert.Equal(t, apperrors.ExitUsage, r.code)

	r = execute(t, "", "process", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Equal(t, apperrors.ExitUsage, r.code)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("[{"), 0644))
	r = execute(t, "", "process", path)
	assert.Equal(t, apperrors.ExitDataErr, r.code)
}

func TestCleanupCmd(t *testing.T) {
	r := execute(t, "", "cleanup", "--older-than", "1h")
	require.Equal(t, apperrors.ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Removed 0 job directories")
}

func TestEnqueueCmd_RequiresFile(t *testing.T) {
	r := execute(t, "", "enqueue")
	assert.Equal(t, apperrors.ExitUsage, r.code)
}
