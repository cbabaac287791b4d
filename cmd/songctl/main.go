package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/tendant/songbook/pkg/songbook/client"
	"github.com/tendant/songbook/pkg/songbook/config"
)

const usage = `Songbook CLI

Manage the song catalog through the HTTP API of a running songbook server.

USAGE:
  songctl <command> [options]

COMMANDS:
  token                   Mint a session token (needs SESSION_SECRET)
  list                    List songs, newest first
  get                     Show one song
  create                  Create a song
  delete                  Delete a song and its media
  upload                  Upload a media file, optionally attaching it to a song
  upload-metadata-image   Crop an image to 1200x628 and attach it as a song's link preview
  orphans                 List media files the server failed to delete
  stats                   Show catalog statistics

ENVIRONMENT VARIABLES:
  SONGBOOK_URL      Server base URL (default: http://localhost:8080)
  SONGBOOK_TOKEN    Admin session token sent as a bearer header
  SESSION_SECRET    When SONGBOOK_TOKEN is unset, an admin token is minted with this secret

  Configuration can be loaded from a .env file in the current directory.

EXAMPLES:
  songctl token --user=mestre --admin --ttl=24h
  songctl list --json
  songctl create --title="Paranauê" --lyrics-file=paranaue.md
  songctl upload --kind=audio --file=paranaue.mp3 --song=<id>
  songctl upload-metadata-image --file=roda.png --song=<id>
  songctl delete --id=<id>
  songctl stats --json

OPTIONS:
  --id=<id>               Song id (get, delete)
  --song=<id>             Song to attach the upload to
  --title=<text>          Song title (create)
  --lyrics-file=<path>    Markdown lyrics (create)
  --kind=<kind>           audio, video, image or metadata-image (upload)
  --file=<path>           File to upload
  --user=<id>             Token subject (token, default: admin)
  --admin                 Grant admin rights (token)
  --ttl=<duration>        Token lifetime, positive (token, default: 24h)
  --json                  Output as JSON
`

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "help" || command == "--help" || command == "-h" {
		fmt.Print(usage)
		os.Exit(0)
	}

	flags := parseFlags(os.Args[2:])
	ctx := context.Background()

	cfg, err := config.Load(config.WithEnv(""))
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	if command == "token" {
		if err := runToken(os.Stdout, cfg, flags); err != nil {
			slog.Error("Command failed", "command", command, "err", err)
			os.Exit(1)
		}
		return
	}

	c, err := newCLI(cfg, os.Stdout)
	if err != nil {
		slog.Error("Failed to create client", "err", err)
		os.Exit(1)
	}

	var runErr error
	switch command {
	case "list":
		runErr = c.list(ctx, flags)
	case "get":
		runErr = c.get(ctx, flags)
	case "create":
		runErr = c.create(ctx, flags)
	case "delete":
		runErr = c.delete(ctx, flags)
	case "upload":
		runErr = c.upload(ctx, flags)
	case "upload-metadata-image":
		runErr = c.uploadMetadataImage(ctx, flags)
	case "orphans":
		runErr = c.orphans(ctx, flags)
	case "stats":
		runErr = c.stats(ctx, flags)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage)
		os.Exit(1)
	}

	if runErr != nil {
		slog.Error("Command failed", "command", command, "err", runErr)
		os.Exit(1)
	}
}

func baseURL() string {
	if v := os.Getenv("SONGBOOK_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

// sessionToken prefers SONGBOOK_TOKEN and otherwise mints a short-lived
// admin token from the session secret.
func sessionToken(cfg *config.ServerConfig) (string, error) {
	if v := os.Getenv("SONGBOOK_TOKEN"); v != "" {
		return v, nil
	}
	if cfg.SessionSecret == "" {
		return "", nil
	}
	a, err := cfg.BuildAuthenticator()
	if err != nil {
		return "", err
	}
	return a.IssueToken("songctl", true, time.Hour)
}

func newCLI(cfg *config.ServerConfig, out io.Writer) (*cli, error) {
	token, err := sessionToken(cfg)
	if err != nil {
		return nil, err
	}

	opts := []client.Option{}
	if token != "" {
		opts = append(opts, client.WithToken(token))
	}
	c := client.New(baseURL(), opts...)

	putter := client.NewPutter(client.WithProgress(func(n int64) {
		slog.Debug("Upload progress", "bytes", n)
	}))

	return &cli{
		out:      out,
		catalog:  client.NewCatalog(c, nil),
		client:   c,
		uploader: client.NewUploader(c, putter),
	}, nil
}
