package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/KhalidKhader/NoteGenAIAPIs/internal/app"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/clients/notegen"
	"github.com/KhalidKhader/NoteGenAIAPIs/internal/domain"
)

var (
	processFile    string
	processDeliver bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process one encounter request file and print the results",
	Long: `Process reads an encounter request (the same JSON accepted by
POST /api/encounters), runs every section synchronously and prints the job
and section results as JSON.

Results are only sent to the NoteGen backend when --deliver is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := readRequest(processFile)
		if err != nil {
			return err
		}
		opts := app.Options{}
		if !processDeliver {
			opts.Deliverer = notegen.NewWriterDeliverer(io.Discard)
		}
		ctx := cmd.Context()
		a, err := app.New(ctx, opts)
		if err != nil {
			return fmt.Errorf("init app: %w", err)
		}
		defer a.Close(ctx)

		sum, err := a.Orchestrator.Run(ctx, req)
		if err != nil {
			return fmt.Errorf("process encounter: %w", err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"job":     sum.Job,
			"results": sum.Results,
		})
	},
}

func init() {
	processCmd.Flags().StringVarP(&processFile, "file", "f", "", "encounter request JSON (- for stdin)")
	processCmd.Flags().BoolVar(&processDeliver, "deliver", false, "send results to the configured NoteGen backend")
	_ = processCmd.MarkFlagRequired("file")
}

func readRequest(path string) (domain.EncounterRequest, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return domain.EncounterRequest{}, fmt.Errorf("read request: %w", err)
	}
	var req domain.EncounterRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return domain.EncounterRequest{}, fmt.Errorf("decode request %s: %w", path, err)
	}
	return req, nil
}
