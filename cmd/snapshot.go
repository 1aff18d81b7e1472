package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"doc-rag/internal/chromemdb"
	"doc-rag/internal/config"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Export or import the local chromem index",
}

var snapshotExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the index to a single file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := chromemForSnapshot(cmd)
		if err != nil {
			return err
		}
		if err := m.Export(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported collection %q to %s\n", cfg.VectorStore.Chromem.Collection, args[0])
		return nil
	},
}

var snapshotImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load the index from a file written by export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := chromemForSnapshot(cmd)
		if err != nil {
			return err
		}
		if err := m.Import(args[0]); err != nil {
			return err
		}
		n, err := m.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows into collection %q\n", n, cfg.VectorStore.Chromem.Collection)
		return nil
	},
}

func init() {
	snapshotCmd.AddCommand(snapshotExportCmd, snapshotImportCmd)
}

func chromemForSnapshot(cmd *cobra.Command) (*chromemdb.VectorDBManager, error) {
	if cfg.VectorStore.Backend != config.BackendChromem {
		return nil, fmt.Errorf("snapshots are only supported for the chromem backend, not %q", cfg.VectorStore.Backend)
	}
	m, err := openChromem(cfg)
	if err != nil {
		return nil, err
	}
	if err := m.EnsureSchema(cmd.Context()); err != nil {
		return nil, err
	}
	return m, nil
}
