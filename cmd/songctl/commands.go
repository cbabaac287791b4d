package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/tendant/songbook/pkg/songbook"
	"github.com/tendant/songbook/pkg/songbook/admin"
	"github.com/tendant/songbook/pkg/songbook/api"
	"github.com/tendant/songbook/pkg/songbook/client"
	"github.com/tendant/songbook/pkg/songbook/config"
	"github.com/tendant/songbook/pkg/songbook/imagecrop"
)

type cli struct {
	out      io.Writer
	catalog  *client.Catalog
	client   *client.Client
	uploader *client.Uploader
}

func parseFlags(args []string) map[string]string {
	flags := make(map[string]string)
	for _, arg := range args {
		key, value := parseFlag(arg)
		if key != "" {
			flags[key] = value
		}
	}
	return flags
}

func parseFlag(arg string) (string, string) {
	if !strings.HasPrefix(arg, "--") || len(arg) == 2 {
		return "", ""
	}
	arg = arg[2:]
	if i := strings.IndexByte(arg, '='); i >= 0 {
		return arg[:i], arg[i+1:]
	}
	return arg, "true"
}

func required(flags map[string]string, key string) (string, error) {
	v := flags[key]
	if v == "" || v == "true" {
		return "", fmt.Errorf("--%s is required", key)
	}
	return v, nil
}

func runToken(out io.Writer, cfg *config.ServerConfig, flags map[string]string) error {
	if cfg.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required to mint tokens")
	}
	a, err := cfg.BuildAuthenticator()
	if err != nil {
		return err
	}

	user := flags["user"]
	if user == "" {
		user = "admin"
	}
	ttl := 24 * time.Hour
	if v, ok := flags["ttl"]; ok {
		ttl, err = time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid --ttl: %w", err)
		}
		if ttl <= 0 {
			return fmt.Errorf("invalid --ttl %s: must be positive", v)
		}
	}

	token, err := a.IssueToken(user, flags["admin"] == "true", ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

func (c *cli) printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, string(data))
	return nil
}

func (c *cli) list(ctx context.Context, flags map[string]string) error {
	songs, err := c.catalog.Songs(ctx)
	if err != nil {
		return err
	}
	if flags["json"] == "true" {
		return c.printJSON(songs)
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tTITLE\tMEDIA\tUPDATED\n")
	for _, s := range songs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			s.ID,
			truncate(s.Title, 40),
			mediaSummary(s),
			s.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func (c *cli) get(ctx context.Context, flags map[string]string) error {
	id, err := required(flags, "id")
	if err != nil {
		return err
	}
	song, err := c.catalog.Song(ctx, id)
	if err != nil {
		return err
	}
	return c.printJSON(song)
}

func (c *cli) create(ctx context.Context, flags map[string]string) error {
	title, err := required(flags, "title")
	if err != nil {
		return err
	}
	req := api.CreateSongRequest{Title: title}
	if path := flags["lyrics-file"]; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read lyrics: %w", err)
		}
		req.Lyrics = string(data)
	}

	song, err := c.catalog.Create(ctx, req)
	if err != nil {
		return err
	}
	if flags["json"] == "true" {
		return c.printJSON(song)
	}
	fmt.Fprintf(c.out, "Created %s (%s)\n", song.ID, song.Title)
	return nil
}

func (c *cli) delete(ctx context.Context, flags map[string]string) error {
	id, err := required(flags, "id")
	if err != nil {
		return err
	}
	if err := c.catalog.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Deleted %s\n", id)
	return nil
}

func (c *cli) upload(ctx context.Context, flags map[string]string) error {
	kind := songbook.MediaKind(flags["kind"])
	if !kind.IsValid() {
		return fmt.Errorf("--kind must be one of audio, video, image, metadata-image")
	}
	path, err := required(flags, "file")
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	name := filepath.Base(path)
	return c.attach(ctx, flags["song"], kind, name, contentTypeOf(name), f)
}

func (c *cli) uploadMetadataImage(ctx context.Context, flags map[string]string) error {
	id, err := required(flags, "song")
	if err != nil {
		return err
	}
	path, err := required(flags, "file")
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cropped, err := imagecrop.Process(f)
	if err != nil {
		return err
	}

	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + ".jpg"
	return c.attach(ctx, id, songbook.MediaKindMetadataImage, name, imagecrop.ContentType, bytes.NewReader(cropped))
}

// attach uploads body and, when songID is set, points the song's media slot
// at the new key. The replaced file is deleted by the server.
func (c *cli) attach(ctx context.Context, songID string, kind songbook.MediaKind, name, contentType string, body io.Reader) error {
	if songID == "" {
		key, err := c.uploader.Upload(ctx, kind, name, contentType, body)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, key)
		return nil
	}

	song, err := c.catalog.Song(ctx, songID)
	if err != nil {
		return err
	}

	form := client.NewEditForm(song)
	key, err := c.uploader.Replace(ctx, form, kind, name, contentType, body)
	if err != nil {
		return err
	}
	if _, err := c.catalog.Update(ctx, songID, form.Request()); err != nil {
		return fmt.Errorf("uploaded %s but failed to update song: %w", key, err)
	}
	fmt.Fprintf(c.out, "Attached %s to %s\n", key, songID)
	return nil
}

func (c *cli) orphans(ctx context.Context, flags map[string]string) error {
	orphans, err := c.client.Orphans(ctx)
	if err != nil {
		return err
	}
	if flags["json"] == "true" {
		return c.printJSON(orphans)
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "KEY\tATTEMPTS\tFAILED\tERROR\n")
	for _, o := range orphans {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", o.Key, o.Attempts, o.FailedAt.Format(time.RFC3339), truncate(o.LastError, 60))
	}
	return w.Flush()
}

func (c *cli) stats(ctx context.Context, flags map[string]string) error {
	stats, err := admin.New(c.client).Statistics(ctx)
	if err != nil {
		return err
	}
	if flags["json"] == "true" {
		return c.printJSON(stats)
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Songs\t%d\n", stats.TotalCount)
	for _, kind := range songbook.MediaKinds {
		fmt.Fprintf(w, "With %s\t%d\n", kind, stats.ByMedia[kind])
	}
	fmt.Fprintf(w, "Without lyrics\t%d\n", stats.WithoutLyrics)
	fmt.Fprintf(w, "Without media\t%d\n", stats.WithoutMedia)
	fmt.Fprintf(w, "Missing link preview\t%d\n", stats.MissingMetadataImage)
	if stats.LastUpdate != nil {
		fmt.Fprintf(w, "Last update\t%s\n", stats.LastUpdate.Format(time.RFC3339))
	}
	return w.Flush()
}

func contentTypeOf(name string) string {
	if ct := songbook.ContentTypeByExtension(name); ct != "" {
		if i := strings.IndexByte(ct, ';'); i >= 0 {
			ct = ct[:i]
		}
		return ct
	}
	return "application/octet-stream"
}

func mediaSummary(s *songbook.Song) string {
	var parts []string
	for _, kind := range songbook.MediaKinds {
		if s.MediaKey(kind) != "" {
			parts = append(parts, string(kind))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
