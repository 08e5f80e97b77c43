// bookshelf-import runs the bulk import pipeline against the database
// without going through the HTTP API.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"bookshelf-backend/internal/imagestore"
	"bookshelf-backend/internal/platform/db"
	"bookshelf-backend/internal/shelf/bulkimport"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		owner      int64
		source     string
		photosDir  string
	)

	cmd := &cobra.Command{
		Use:   "bookshelf-import",
		Short: "Import a collection export (books, wishlist, photos) for one owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if owner <= 0 {
				return fmt.Errorf("--owner must be a positive user id")
			}
			cfg, err := db.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if source == "" {
				source = cfg.Import.SourceFile
			}
			if source == "" {
				return fmt.Errorf("no source: pass --source or set import.source_file")
			}
			if photosDir == "" {
				photosDir = cfg.Import.PhotosDir
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			conn, err := db.Connect(cfg.DB)
			if err != nil {
				return err
			}
			defer conn.Close()

			batch, err := bulkimport.FileSource{Path: source}.Load(ctx)
			if err != nil {
				return err
			}

			images := imagestore.New(imagestore.Config{
				URL:           cfg.ImageStore.URL,
				Timeout:       cfg.ImageStore.Timeout,
				RatePerSecond: cfg.ImageStore.RatePerSecond,
				Burst:         cfg.ImageStore.Burst,
			})
			p := bulkimport.NewPipeline(photosDir, images, bulkimport.NewSQLSink(conn), cfg.Import.UploadConcurrency)

			log.Printf("[INFO] importing %d books and %d wishlist items from %s",
				len(batch.Books), len(batch.Wishlist), source)
			res, err := p.Run(ctx, owner, batch)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Summary())
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", db.ConfigPath(), "path to config.yaml")
	cmd.Flags().Int64Var(&owner, "owner", 0, "user id that will own the imported rows")
	cmd.Flags().StringVar(&source, "source", "", "JSON export of the workbook (default: import.source_file)")
	cmd.Flags().StringVar(&photosDir, "photos", "", "photo root with one directory per Ref No. (default: import.photos_dir)")
	_ = cmd.MarkFlagRequired("owner")

	cmd.SetContext(context.Background())
	return cmd
}
