package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ragdesk/internal/bootstrap"
	"ragdesk/internal/config"
	"ragdesk/internal/ingest"
	"ragdesk/internal/search"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build and fill the document search index",
	Long: `ingest prepares the search index the chat service retrieves from.

Example usage:
  ingest create-index          # drop and recreate the index
  ingest upload                # chunk, embed and upload ./docs
  ingest upload ./handbook     # same for another directory

With AZURE_BLOB_CONN set, upload reads the PDFs of the blob container
first and only walks the local directory when the container has none.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, logger, err = bootstrap.Base()
		if err != nil {
			return err
		}
		return cfg.Validate()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var createIndexCmd = &cobra.Command{
	Use:   "create-index",
	Short: "Drop and recreate the passage index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := bootstrap.NewSearchClient(cfg)
		def := search.PassageIndex(cfg.Search.Index, cfg.LLM.EmbedDimensions)
		if err := client.RecreateIndex(cmd.Context(), def); err != nil {
			return fmt.Errorf("create index %s failed: %w", cfg.Search.Index, err)
		}
		logger.Info("index created", zap.String("index", cfg.Search.Index), zap.Int("dimensions", cfg.LLM.EmbedDimensions))
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload [dir]",
	Short: "Chunk, embed and upload every PDF under dir (default docs)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runUpload,
}

func init() {
	rootCmd.AddCommand(createIndexCmd, uploadCmd)
	uploadCmd.Flags().Int("concurrency", 4, "parallel embedding requests")
}

func runUpload(cmd *cobra.Command, args []string) error {
	root := "docs"
	if len(args) == 1 {
		root = args[0]
	}
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	var blob *ingest.BlobSource
	if cfg.Blob.ConnectionString != "" {
		var err error
		blob, err = ingest.NewBlobSource(cfg.Blob.ConnectionString, cfg.Blob.Container)
		if err != nil {
			return err
		}
	}
	tmpDir, err := os.MkdirTemp("", "ragdesk-ingest-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	files, err := ingest.CollectSources(cmd.Context(), blob, tmpDir, root, ingest.Location{
		Account:   cfg.Blob.Account,
		Container: cfg.Blob.Container,
	})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Warn("no pdf files found", zap.String("dir", root), zap.Bool("blob", blob != nil))
		return nil
	}

	pipeline := ingest.NewPipeline(
		bootstrap.NewAIClient(cfg),
		bootstrap.NewSearchClient(cfg),
		nil,
		ingest.Options{
			ChunkSize:      cfg.RAG.ChunkSize,
			ChunkOverlap:   cfg.RAG.ChunkOverlap,
			EmbedBatchSize: cfg.LLM.EmbedBatchSize,
			Concurrency:    concurrency,
		},
		logger.Named("ingest"),
	)
	res, err := pipeline.Run(cmd.Context(), files)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d docs from %d files (%d failed).\n", res.Uploaded, res.Files, len(res.Failed))
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
