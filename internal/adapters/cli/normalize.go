package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alejandroruanova/arabic-text-normalizer/internal/core/services/refinery"
	"github.com/spf13/cobra"
)

const maxInputLine = 4 * 1024 * 1024

func newNormalizeCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "normalize [text...]",
		Short: "Normalize text given as arguments or on stdin",
		Long: `Normalizes each argument and prints one result per line.
Without arguments, every line read from stdin is normalized in order.`,
		Example: `  arnorm normalize "مَرْحَبًا بالعالم"
  cat tweets.txt | arnorm normalize --keep-emojis=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := a.buildPipeline(cmd)
			if err != nil {
				return err
			}

			out := newLineWriter(cmd.OutOrStdout(), asJSON)

			if len(args) > 0 {
				for _, arg := range args {
					if err := out.write(arg, pipeline.CleanText(arg)); err != nil {
						return err
					}
				}
				return nil
			}

			start := time.Now()
			n, err := normalizeStream(pipeline, cmd.InOrStdin(), out)
			if err != nil {
				return err
			}
			logDuration(a.logger.With("lines", n), "stdin normalized", start)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON objects with the input and its normalized form")

	return cmd
}

func normalizeStream(pipeline *refinery.Pipeline, r io.Reader, out *lineWriter) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxInputLine)

	n := 0
	for scanner.Scan() {
		line := scanner.Text()
		if err := out.write(line, pipeline.CleanText(line)); err != nil {
			return n, err
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("failed to read input: %w", err)
	}
	return n, nil
}

type lineWriter struct {
	w       io.Writer
	encoder *json.Encoder
}

func newLineWriter(w io.Writer, asJSON bool) *lineWriter {
	lw := &lineWriter{w: w}
	if asJSON {
		lw.encoder = json.NewEncoder(w)
		lw.encoder.SetEscapeHTML(false)
	}
	return lw
}

func (lw *lineWriter) write(input, normalized string) error {
	if lw.encoder != nil {
		return lw.encoder.Encode(map[string]string{"text": input, "cleanText": normalized})
	}
	_, err := fmt.Fprintln(lw.w, normalized)
	return err
}
