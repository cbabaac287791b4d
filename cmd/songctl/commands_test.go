package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/songbook/pkg/songbook"
	"github.com/tendant/songbook/pkg/songbook/api"
	"github.com/tendant/songbook/pkg/songbook/config"
	"github.com/tendant/songbook/pkg/songbook/imagecrop"
)

type ctlEnv struct {
	cli *cli
	out *bytes.Buffer
	rt  *config.Runtime
}

func setupCLI(t *testing.T) *ctlEnv {
	t.Helper()

	router := chi.NewRouter()
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	t.Setenv("SONGBOOK_URL", srv.URL)
	t.Setenv("SONGBOOK_TOKEN", "")
	cfg, err := config.Load(
		config.WithFilesystem(t.TempDir(), srv.URL+"/storage", "ctl-signing-key"),
		config.WithSessionSecret("ctl-secret"),
	)
	require.NoError(t, err)

	rt, err := cfg.BuildService(context.Background())
	require.NoError(t, err)
	t.Cleanup(rt.Close)

	authenticator, err := cfg.BuildAuthenticator()
	require.NoError(t, err)
	router.Mount("/api", api.NewSongHandler(rt.Service, authenticator).Routes())
	router.Mount("/storage", rt.FS.Handlers().Routes())

	var out bytes.Buffer
	c, err := newCLI(cfg, &out)
	require.NoError(t, err)

	return &ctlEnv{cli: c, out: &out, rt: rt}
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestParseFlags(t *testing.T) {
	flags := parseFlags([]string{"--title=Paranauê", "--json", "stray", "--", "--lyrics-file=a=b.md"})

	assert.Equal(t, map[string]string{
		"title":       "Paranauê",
		"json":        "true",
		"lyrics-file": "a=b.md",
	}, flags)
}

func TestRequired(t *testing.T) {
	_, err := required(map[string]string{"id": "true"}, "id")
	assert.EqualError(t, err, "--id is required")

	v, err := required(map[string]string{"id": "abc"}, "id")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)
}

func TestRunToken(t *testing.T) {
	cfg, err := config.Load(config.WithSessionSecret("token-secret"))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runToken(&out, cfg, map[string]string{"user": "mestre", "admin": "true", "ttl": "1h"}))
	token := strings.TrimSpace(out.String())
	assert.Len(t, strings.Split(token, "."), 3)

	err = runToken(&out, cfg, map[string]string{"ttl": "forever"})
	assert.Error(t, err)

	for _, ttl := range []string{"-1m", "0s"} {
		out.Reset()
		err = runToken(&out, cfg, map[string]string{"admin": "true", "ttl": ttl})
		assert.ErrorContains(t, err, "must be positive", ttl)
		assert.Empty(t, out.String())
	}

	cfg.SessionSecret = ""
	assert.Error(t, runToken(&out, cfg, nil))
}

func TestCLI_CreateListDelete(t *testing.T) {
	env := setupCLI(t)
	ctx := context.Background()

	lyrics := writeFile(t, "lyrics.md", []byte("Paranauê, paranauê, paraná"))
	require.NoError(t, env.cli.create(ctx, map[string]string{"title": "Paranauê", "lyrics-file": lyrics}))
	assert.Contains(t, env.out.String(), "Created ")

	songs, err := env.rt.Service.ListSongs(ctx)
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, "Paranauê, paranauê, paraná", songs[0].Lyrics)

	env.out.Reset()
	require.NoError(t, env.cli.list(ctx, nil))
	assert.Contains(t, env.out.String(), "TITLE")
	assert.Contains(t, env.out.String(), "Paranauê")

	env.out.Reset()
	require.NoError(t, env.cli.delete(ctx, map[string]string{"id": songs[0].ID}))
	assert.Contains(t, env.out.String(), "Deleted "+songs[0].ID)

	assert.Error(t, env.cli.create(ctx, map[string]string{}))
}

func TestCLI_UploadAttachesToSong(t *testing.T) {
	env := setupCLI(t)
	ctx := context.Background()

	song, err := env.rt.Service.CreateSong(ctx, songbook.CreateSongRequest{Title: "Marinheiro só"})
	require.NoError(t, err)

	path := writeFile(t, "marinheiro.mp3", []byte("first take"))
	require.NoError(t, env.cli.upload(ctx, map[string]string{"kind": "audio", "file": path, "song": song.ID}))

	updated, err := env.rt.Service.GetSong(ctx, song.ID)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(updated.AudioKey, "audio/"), updated.AudioKey)
	firstKey := updated.AudioKey

	path = writeFile(t, "marinheiro-take2.mp3", []byte("second take"))
	require.NoError(t, env.cli.upload(ctx, map[string]string{"kind": "audio", "file": path, "song": song.ID}))

	updated, err = env.rt.Service.GetSong(ctx, song.ID)
	require.NoError(t, err)
	assert.NotEqual(t, firstKey, updated.AudioKey)

	require.NoError(t, env.rt.Cleaner.Flush(ctx))
	_, _, err = env.rt.FS.Open(ctx, firstKey)
	assert.Error(t, err, "replaced audio should be removed")

	rc, contentType, err := env.rt.FS.Open(ctx, updated.AudioKey)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "audio/mpeg", contentType)
}

func TestCLI_UploadWithoutSongPrintsKey(t *testing.T) {
	env := setupCLI(t)

	path := writeFile(t, "roda.png", []byte("not really a png"))
	require.NoError(t, env.cli.upload(context.Background(), map[string]string{"kind": "image", "file": path}))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(env.out.String()), "images/"), env.out.String())

	assert.Error(t, env.cli.upload(context.Background(), map[string]string{"kind": "poster", "file": path}))
}

func TestCLI_UploadMetadataImage(t *testing.T) {
	env := setupCLI(t)
	ctx := context.Background()

	song, err := env.rt.Service.CreateSong(ctx, songbook.CreateSongRequest{Title: "Zum zum zum"})
	require.NoError(t, err)

	img := image.NewRGBA(image.Rect(0, 0, 800, 800))
	for y := 0; y < 800; y++ {
		for x := 0; x < 800; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := writeFile(t, "roda.png", buf.Bytes())

	require.NoError(t, env.cli.uploadMetadataImage(ctx, map[string]string{"song": song.ID, "file": path}))

	updated, err := env.rt.Service.GetSong(ctx, song.ID)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(updated.MetadataImageKey, "metadata-images/"), updated.MetadataImageKey)
	assert.True(t, strings.HasSuffix(updated.MetadataImageKey, ".jpg"), updated.MetadataImageKey)

	rc, contentType, err := env.rt.FS.Open(ctx, updated.MetadataImageKey)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, imagecrop.ContentType, contentType)

	decoded, err := jpeg.Decode(rc)
	require.NoError(t, err)
	assert.Equal(t, imagecrop.TargetWidth, decoded.Bounds().Dx())
	assert.Equal(t, imagecrop.TargetHeight, decoded.Bounds().Dy())
}

func TestCLI_Orphans(t *testing.T) {
	env := setupCLI(t)
	require.NoError(t, env.cli.orphans(context.Background(), nil))
	assert.Contains(t, env.out.String(), "KEY")
}

func TestCLI_Stats(t *testing.T) {
	env := setupCLI(t)
	ctx := context.Background()

	_, err := env.rt.Service.CreateSong(ctx, songbook.CreateSongRequest{Title: "Paranauê", AudioKey: "audio/1-p.mp3"})
	require.NoError(t, err)

	require.NoError(t, env.cli.stats(ctx, nil))
	assert.Contains(t, env.out.String(), "Songs")
	assert.Contains(t, env.out.String(), "With audio")

	env.out.Reset()
	require.NoError(t, env.cli.stats(ctx, map[string]string{"json": "true"}))
	assert.Contains(t, env.out.String(), `"totalCount": 1`)
}

func TestContentTypeOf(t *testing.T) {
	assert.Equal(t, "audio/mpeg", contentTypeOf("a.MP3"))
	assert.Equal(t, "image/png", contentTypeOf("a.png"))
	assert.Equal(t, "application/octet-stream", contentTypeOf("a.unknownext"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Param...", truncate("Paramarimbau", 8))
}

func TestUsage(t *testing.T) {
	assert.True(t, strings.HasSuffix(usage, "\n"), "printed with fmt.Print")
	for _, command := range []string{"token", "list", "get", "create", "delete", "upload", "upload-metadata-image", "orphans", "stats"} {
		assert.Contains(t, usage, "  "+command+" ", command)
	}
}
