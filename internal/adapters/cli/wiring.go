package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandroruanova/arabic-text-normalizer/internal/core/services/corpus"
	"github.com/alejandroruanova/arabic-text-normalizer/internal/core/services/deduplication"
	"github.com/alejandroruanova/arabic-text-normalizer/internal/core/services/llm_input"
	"github.com/alejandroruanova/arabic-text-normalizer/internal/core/services/refinery"
	"github.com/alejandroruanova/arabic-text-normalizer/internal/infrastructure/cache"
	"github.com/alejandroruanova/arabic-text-normalizer/internal/infrastructure/database"
	"github.com/alejandroruanova/arabic-text-normalizer/internal/infrastructure/database/repositories"
	"github.com/alejandroruanova/arabic-text-normalizer/internal/infrastructure/parsers"
	"github.com/alejandroruanova/arabic-text-normalizer/internal/infrastructure/storage"
	apperrors "github.com/alejandroruanova/arabic-text-normalizer/internal/pkg/errors"
	"github.com/spf13/cobra"
)

// normalizerFlags override the normalizer section of the configuration
type normalizerFlags struct {
	refinery              string
	keepEmojis            bool
	stripDiacritics       bool
	stripElongation       bool
	removeHTML            bool
	replaceURLs           bool
	insertWhiteSpaces     bool
	collapseRepeatedChars bool
}

func (f *normalizerFlags) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&f.refinery, "refinery", "", "refinery version or alias (default from config, v1)")
	flags.BoolVar(&f.keepEmojis, "keep-emojis", true, "keep emojis in the output")
	flags.BoolVar(&f.stripDiacritics, "strip-diacritics", true, "remove tashkeel")
	flags.BoolVar(&f.stripElongation, "strip-elongation", true, "remove tatweel")
	flags.BoolVar(&f.removeHTML, "remove-html", true, "drop HTML tags")
	flags.BoolVar(&f.replaceURLs, "replace-urls", true, "replace URLs, emails and mentions with placeholders")
	flags.BoolVar(&f.insertWhiteSpaces, "insert-spaces", true, "separate digits, Latin and Arabic runs with spaces")
	flags.BoolVar(&f.collapseRepeatedChars, "collapse-repeats", true, "collapse characters repeated three or more times")
}

// overrides returns the refinery config built from the configuration plus
// the flags the user actually set
func (f *normalizerFlags) overrides(cmd *cobra.Command, base map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base))
	for k, v := range base {
		out[k] = v
	}

	set := map[string]struct {
		key   string
		value bool
	}{
		"keep-emojis":      {"keep_emojis", f.keepEmojis},
		"strip-diacritics": {"strip_diacritics", f.stripDiacritics},
		"strip-elongation": {"strip_elongation", f.stripElongation},
		"remove-html":      {"remove_html_markup", f.removeHTML},
		"replace-urls":     {"replace_urls_emails_mentions", f.replaceURLs},
		"insert-spaces":    {"insert_white_spaces", f.insertWhiteSpaces},
		"collapse-repeats": {"collapse_repeated_chars", f.collapseRepeatedChars},
	}
	for name, override := range set {
		if cmd.Flags().Changed(name) {
			out[override.key] = override.value
		}
	}

	return out
}

func (a *app) buildPipeline(cmd *cobra.Command) (*refinery.Pipeline, error) {
	refineryType := a.normalizer.refinery
	if refineryType == "" {
		refineryType = a.cfg.Normalizer.Version
	}

	pipeline, err := refinery.NewPipeline(refineryType, a.normalizer.overrides(cmd, a.cfg.NormalizerOverrides()))
	if err != nil {
		if _, ok := apperrors.GetAppError(err); ok {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "cannot build the normalizer", apperrors.ExitUsage)
	}

	for _, warning := range pipeline.Warnings() {
		a.logger.Debug("normalizer configured with warnings", "warning", warning)
	}

	return pipeline, nil
}

// buildCorpusService wires the corpus service with whatever infrastructure
// the configuration enables. The returned func releases it.
func (a *app) buildCorpusService(cmd *cobra.Command) (*corpus.Service, func(), error) {
	var closers []func()
	release := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	pipeline, err := a.buildPipeline(cmd)
	if err != nil {
		return nil, release, err
	}

	files, err := storage.NewLocalStorage(&storage.LocalStorageConfig{BasePath: a.cfg.Storage.BasePath}, a.logger)
	if err != nil {
		return nil, release, err
	}

	parserConfig := parsers.DefaultParserConfig()
	parserConfig.TextColumn = a.cfg.Corpus.TextField
	if a.cfg.Corpus.MaxFileMB > 0 {
		parserConfig.MaxFileSize = a.cfg.Corpus.MaxFileMB * 1024 * 1024
	}

	dedupConfig := deduplication.DefaultConfig()
	dedupConfig.CleanFields = []string{a.cfg.Corpus.OutputField}

	var opts []corpus.Option
	if a.cfg.Corpus.ModelInput {
		opts = append(opts, corpus.WithGenerator(llm_input.NewGenerator(a.logger)))
	}

	var hashRepo deduplication.HashRepository
	if a.cfg.Database.Enabled {
		db, err := database.NewPostgresDB(&a.cfg.Database, a.logger)
		if err != nil {
			return nil, release, err
		}
		closers = append(closers, func() { _ = db.Close() })

		if err := db.Migrate(); err != nil {
			release()
			return nil, func() {}, apperrors.DatabaseError(err)
		}

		opts = append(opts, corpus.WithJobStore(repositories.NewJobRepository(db.DB, a.logger)))
		hashRepo = repositories.NewDedupHashRepository(db.DB, a.logger)

		dedupConfig.Strategy = deduplication.StrategyUniversal
		dedupConfig.EnableLevel2 = true
	} else {
		dedupConfig.StoreHashes = false
	}
	opts = append(opts, corpus.WithDeduplicator(deduplication.NewService(dedupConfig, hashRepo, a.logger)))

	if a.cfg.Cache.Enabled {
		redisCache, err := cache.NewRedisCache(&a.cfg.Cache, a.logger)
		if err != nil {
			// the cache only saves work; run without it
			a.logger.Warn("normalized-text cache unavailable", "error", err)
		} else {
			closers = append(closers, func() { _ = redisCache.Close() })
			ttl := time.Duration(a.cfg.Cache.TTLHours) * time.Hour
			opts = append(opts, corpus.WithCache(cache.NewNormalizedTextCache(redisCache, ttl, a.logger)))
		}
	}

	service, err := corpus.NewService(pipeline, parsers.NewParserFactory(parserConfig), files, corpus.Config{
		TextField:   a.cfg.Corpus.TextField,
		OutputField: a.cfg.Corpus.OutputField,
		Deduplicate: a.cfg.Corpus.Deduplicate,
		Workers:     a.cfg.Corpus.Workers,
		ChunkSize:   a.cfg.Corpus.ChunkSize,
	}, a.logger, opts...)
	if err != nil {
		release()
		return nil, func() {}, err
	}

	return service, release, nil
}

// commandContext returns the command context, never nil
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func logDuration(logger *slog.Logger, msg string, start time.Time) {
	logger.Debug(msg, slog.Int64("duration_ms", time.Since(start).Milliseconds()))
}
