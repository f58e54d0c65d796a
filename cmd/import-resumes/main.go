// Command import-resumes loads a directory of markdown resumes into the
// configured store.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/debemdeboas/resumark/internal/config"
	"github.com/debemdeboas/resumark/internal/db"
	"github.com/debemdeboas/resumark/internal/logger"
	"github.com/debemdeboas/resumark/internal/model"
	"github.com/debemdeboas/resumark/internal/store"
	"github.com/debemdeboas/resumark/internal/util"
)

type importOptions struct {
	Path   string
	Owner  string
	Config string
	Share  bool
}

type importResult struct {
	File string
	ID   model.ResumeID
	URL  string
}

func newRootCmd() *cobra.Command {
	options := importOptions{}

	cmd := &cobra.Command{
		Use:   "import-resumes --path DIR --owner USER [flags]",
		Short: "Import markdown resumes into the resume store",
		Example: `  # Import every .md file in ./resumes for the administrator
  import-resumes --path ./resumes --owner admin

  # Import and publish share links
  import-resumes --path ./resumes --owner admin --share`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			l := logger.New(os.Getenv("LOG_LEVEL"))
			config.SetLogger(l)
			db.SetLogger(l)
			store.SetLogger(l)

			if err := config.LoadConfig(options.Config); err != nil {
				return err
			}

			resumes, database, err := store.Open(cmd.Context(), config.AppConfig, os.Getenv("S3_ACCESS_KEY_ID"), os.Getenv("S3_SECRET_ACCESS_KEY"))
			if err != nil {
				return err
			}
			if database != nil {
				defer database.Close()
			}

			results, err := importDir(cmd.Context(), resumes, os.DirFS(options.Path), options, l)
			for _, res := range results {
				line := fmt.Sprintf("%s\t%s", res.ID, res.File)
				if res.URL != "" {
					line += "\t" + res.URL
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&options.Path, "path", "", "directory containing .md files")
	cmd.Flags().StringVar(&options.Owner, "owner", "", "user ID that owns the imported resumes")
	cmd.Flags().StringVar(&options.Config, "config", "config.yaml", "path to the config file")
	cmd.Flags().BoolVar(&options.Share, "share", false, "share every imported resume")
	cmd.MarkFlagRequired("path")
	cmd.MarkFlagRequired("owner")

	return cmd
}

// importDir stores every top level .md file of dir. IDs are derived from the
// owner and file name so running the import twice updates the same resumes.
func importDir(ctx context.Context, resumes store.ResumeStore, dir fs.FS, options importOptions, l zerolog.Logger) ([]importResult, error) {
	entries, err := fs.ReadDir(dir, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var results []importResult
	var failed int
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		res, err := importFile(ctx, resumes, dir, entry.Name(), options)
		if err != nil {
			failed++
			l.Error().Err(err).Str("file", entry.Name()).Msg("Failed to import resume")
			continue
		}
		l.Debug().Str("file", entry.Name()).Str("id", string(res.ID)).Msg("Imported resume")
		results = append(results, res)
	}

	if failed > 0 {
		return results, fmt.Errorf("%d of %d files failed to import", failed, failed+len(results))
	}
	return results, nil
}

func importFile(ctx context.Context, resumes store.ResumeStore, dir fs.FS, name string, options importOptions) (importResult, error) {
	content, err := fs.ReadFile(dir, name)
	if err != nil {
		return importResult{}, err
	}

	title := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if fm, err := util.GetFrontMatter(content); err == nil && fm.Title != "" {
		title = fm.Title
	}

	draft := model.Draft{
		ID:      model.ResumeID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(options.Owner+"/"+name)).String()),
		Title:   title,
		Content: string(content),
		Owner:   model.UserID(options.Owner),
	}

	res := importResult{File: name, ID: draft.ID}
	if options.Share {
		link, err := resumes.Share(ctx, draft)
		if err != nil {
			return importResult{}, err
		}
		res.URL = link.URL
		return res, nil
	}
	return res, resumes.Persist(ctx, draft)
}

func main() {
	godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
