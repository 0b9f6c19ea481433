package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/nebula-ml/internal/httpapi"
	"github.com/ajitpratap0/nebula-ml/internal/service"
	nebulajson "github.com/ajitpratap0/nebula-ml/pkg/json"
	"github.com/ajitpratap0/nebula-ml/pkg/table"
)

const (
	outputJSON = "json"
	outputText = "text"
)

// readRows accepts either {"rows": [...]} or a bare array of rows
func readRows(r io.Reader) ([][]table.Cell, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var rows [][]table.Cell
		if err := nebulajson.Unmarshal([]byte(trimmed), &rows); err != nil {
			return nil, fmt.Errorf("failed to parse rows: %w", err)
		}
		return rows, nil
	}
	var req httpapi.OperationRequest
	if err := nebulajson.Unmarshal([]byte(trimmed), &req); err != nil {
		return nil, fmt.Errorf("failed to parse rows: %w", err)
	}
	return req.Rows, nil
}

func writeTable(w io.Writer, tbl *table.Table, format string) error {
	switch format {
	case outputText:
		return tbl.WriteText(w)
	case outputJSON, "":
		enc := nebulajson.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(httpapi.OperationResponse{Table: tbl})
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// runOperation opens the configured store and runs one operation in-process
func runOperation(cmd *cobra.Command, load configLoader, op string, rows [][]table.Cell, output string) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	log, cleanup, err := setup(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	reg, err := service.OpenRegistry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer reg.Close()

	tbl, err := service.New(reg, log).Invoke(ctx, op, rows)
	if err != nil {
		return err
	}
	return writeTable(cmd.OutOrStdout(), tbl, output)
}

func newInvokeCommand(load configLoader) *cobra.Command {
	var rowsFile, output string
	cmd := &cobra.Command{
		Use:   "invoke <operation>",
		Short: "Run one operation against the configured store",
		Long: `Run one operation in-process. Rows are read as JSON, either
{"rows": [[...], ...]} or a bare array of rows.

Example:
  echo '[["iris"]]' | nebula-ml invoke get-features --output text`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if rowsFile != "-" {
				f, err := os.Open(rowsFile) //nolint:gosec // G304: path comes from the operator
				if err != nil {
					return fmt.Errorf("failed to open rows file: %w", err)
				}
				defer f.Close()
				in = f
			}
			rows, err := readRows(in)
			if err != nil {
				return err
			}
			return runOperation(cmd, load, args[0], rows, output)
		},
	}
	cmd.Flags().StringVarP(&rowsFile, "rows", "r", "-", "JSON rows file, - for stdin")
	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "Output format (json, text)")
	return cmd
}

func newModelsCommand(load configLoader) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "models [pattern]",
		Short: "List stored models matching a glob pattern",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := ""
			if len(args) == 1 {
				pattern = args[0]
			}
			return runOperation(cmd, load, string(table.OpListModels), [][]table.Cell{table.Row(pattern)}, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format (json, text)")
	return cmd
}

func newOperationsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "operations",
		Short: "List the supported operations",
		Run: func(cmd *cobra.Command, args []string) {
			for _, op := range table.Operations() {
				fmt.Fprintln(cmd.OutOrStdout(), op)
			}
		},
	}
}
