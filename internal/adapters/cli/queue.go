package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/alejandroruanova/arabic-text-normalizer/internal/core/services/corpus"
	"github.com/alejandroruanova/arabic-text-normalizer/internal/infrastructure/queue"
	apperrors "github.com/alejandroruanova/arabic-text-normalizer/internal/pkg/errors"
	"github.com/spf13/cobra"
)

func newEnqueueCmd(a *app) *cobra.Command {
	var (
		textField string
		queueName string
		timeout   time.Duration
		noDedup   bool
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "enqueue <file>",
		Short: "Queue a dataset file for a worker",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// workers may run from another directory
			path, err := filepath.Abs(args[0])
			if err != nil {
				return apperrors.InvalidInput(err.Error())
			}

			payload := corpus.NormalizeFilePayload{
				FilePath:  path,
				TextField: textField,
				Force:     force,
			}
			if noDedup {
				off := false
				payload.Deduplicate = &off
			}

			task, err := corpus.NewNormalizeFileTask(payload, corpus.TaskOptions{
				Queue:    queueName,
				MaxRetry: a.cfg.Queue.MaxRetries,
				Timeout:  timeout,
			})
			if err != nil {
				return err
			}

			client, err := queue.NewAsynqClient(&a.cfg.Queue, a.logger)
			if err != nil {
				return apperrors.QueueError(err, "failed to connect to the queue")
			}
			defer client.Close()

			info, err := client.EnqueueContext(commandContext(cmd), task)
			if err != nil {
				return apperrors.QueueError(err, "failed to enqueue task")
			}

			cmd.Printf("Enqueued task %s on queue %q\n", info.ID, info.Queue)
			return nil
		},
	}

	cmd.Flags().StringVar(&textField, "text-field", "", "column holding the text (default from config)")
	cmd.Flags().StringVar(&queueName, "queue", queue.QueueDefault,
		fmt.Sprintf("queue name (%s, %s or %s)", queue.QueueCritical, queue.QueueHigh, queue.QueueDefault))
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "maximum processing time for the task")
	cmd.Flags().BoolVar(&noDedup, "no-dedup", false, "keep empty and duplicate texts")
	cmd.Flags().BoolVar(&force, "force", false, "reprocess a file already completed with the same settings")

	return cmd
}

func newWorkerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Process queued files until interrupted",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.cfg.LogConfig(a.logger)

			service, release, err := a.buildCorpusService(cmd)
			if err != nil {
				return err
			}
			defer release()

			server, err := queue.NewAsynqServer(&a.cfg.Queue, a.logger)
			if err != nil {
				return apperrors.QueueError(err, "failed to create worker")
			}

			server.Use(queue.LoggingMiddleware(a.logger))
			server.HandleFunc(queue.TaskTypeNormalizeFile, service.HandleNormalizeFileTask)

			// Run blocks until SIGINT or SIGTERM
			if err := server.Start(); err != nil {
				return apperrors.QueueError(err, "worker stopped")
			}
			return nil
		},
	}
}
