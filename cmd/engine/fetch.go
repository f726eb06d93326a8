package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/internal/drive"
	"github.com/andresuchdata/stockcast/internal/storage"
	"github.com/andresuchdata/stockcast/pkg/logger"
)

const (
	fetchDrive = "drive"
	fetchS3    = "s3"
)

func fetchFeeds(c *cli.Context) error {
	cfg := config.Load()
	feedDir := firstNonEmpty(c.String("feed-dir"), cfg.App.FeedDir)

	var (
		files []string
		err   error
	)
	switch c.String("from") {
	case fetchDrive:
		files, err = fetchFromDrive(c, cfg, feedDir)
	case fetchS3:
		files, err = fetchFromS3(c, cfg, feedDir)
	default:
		return fmt.Errorf("unknown fetch source %q (want %s or %s)", c.String("from"), fetchDrive, fetchS3)
	}
	if err != nil {
		return err
	}

	logger.Log.Info().Str("from", c.String("from")).Str("feed_dir", feedDir).Int("files", len(files)).Msg("feeds fetched")
	return nil
}

func fetchFromDrive(c *cli.Context, cfg *config.Config, feedDir string) ([]string, error) {
	credentialsFile := firstNonEmpty(c.String("credentials"), cfg.Drive.CredentialsFile)
	if credentialsFile == "" {
		return nil, errors.New("google credentials file is required (GOOGLE_CREDENTIALS_FILE)")
	}
	folderID := firstNonEmpty(c.String("folder-id"), cfg.Drive.FolderID)
	if folderID == "" && c.String("folder-path") == "" {
		return nil, errors.New("either --folder-id or --folder-path is required")
	}

	credentials, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	svc, err := drive.NewService(c.Context, credentials)
	if err != nil {
		return nil, err
	}

	return drive.NewDownloader(svc).DownloadFeeds(c.Context, drive.DownloadOptions{
		FolderID:    folderID,
		FolderPath:  c.String("folder-path"),
		DownloadDir: feedDir,
	})
}

func fetchFromS3(c *cli.Context, cfg *config.Config, feedDir string) ([]string, error) {
	if !cfg.Storage.Enabled() {
		return nil, errors.New("S3_ENDPOINT and S3_BUCKET are required")
	}
	client, err := storage.NewS3Client(cfg.Storage)
	if err != nil {
		return nil, err
	}
	prefix := firstNonEmpty(c.String("prefix"), cfg.Storage.FeedPrefix)
	return storage.FetchPrefix(c.Context, client, prefix, feedDir)
}
