package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"doc-rag/internal/helper"
	"doc-rag/internal/models"
	"doc-rag/internal/rag"
)

var (
	askK    int
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the indexed documents",
	Long:  "Ask a single question, or start an interactive session when no question is given.",
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askK, "k", "k", 0, "number of chunks to retrieve (default rag.top_k)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the answer as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	service, err := newRAG(cfg, store)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(args) > 0 {
		return askOne(cmd, service, strings.Join(args, " "), out)
	}

	fmt.Fprintln(out, "Ask about your documents. Empty line or Ctrl-D to quit.")
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		q := strings.TrimSpace(scanner.Text())
		if q == "" || q == "exit" || q == "quit" {
			return nil
		}
		if err := askOne(cmd, service, q, out); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
}

func askOne(cmd *cobra.Command, service *rag.RAG, question string, out io.Writer) error {
	ans, err := service.Ask(cmd.Context(), question, askK)
	if err != nil {
		return err
	}
	if askJSON {
		return helper.PrettyPrint(out, ans)
	}
	printAnswer(out, ans)
	return nil
}

func printAnswer(out io.Writer, ans models.Answer) {
	fmt.Fprintln(out, ans.Answer)
	if len(ans.Sources) > 0 {
		fmt.Fprintf(out, "\nSources: %s\n", strings.Join(ans.Sources, ", "))
	}
}
