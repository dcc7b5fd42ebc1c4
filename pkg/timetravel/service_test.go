package timetravel

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/recallhq/chronofs/pkg/graph"
	"github.com/recallhq/chronofs/pkg/rehydrate"
)

var sessionStart = time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T, seed ...graph.FileEvent) *Service {
	t.Helper()
	client := graph.NewMemoryClient()
	client.Seed(seed...)
	return NewService(rehydrate.New(client, nil))
}

func sampleEvents(sessionID string) []graph.FileEvent {
	return []graph.FileEvent{
		graph.NewContentEvent(sessionID, "/src/main.go", graph.ActionCreate,
			sessionStart, 0, "package main\n"),
		graph.NewContentEvent(sessionID, "/src/util/helper.go", graph.ActionCreate,
			sessionStart.Add(time.Minute), 0, "package util\n"),
		graph.NewContentEvent(sessionID, "/readme.md", graph.ActionCreate,
			sessionStart.Add(2*time.Minute), 0, "# readme\n"),
	}
}

func TestListFiles(t *testing.T) {
	s := newService(t, sampleEvents("s1")...)

	names, err := s.ListFiles(context.Background(), "s1", sessionStart.Add(time.Hour), "/src")
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go", "util"}, names)
}

func TestListFilesRoot(t *testing.T) {
	s := newService(t, sampleEvents("s1")...)

	names, err := s.ListFiles(context.Background(), "s1", sessionStart.Add(time.Hour), "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"readme.md", "src"}, names)
}

func TestListFilesEmptyHistory(t *testing.T) {
	s := newService(t)

	names, err := s.ListFiles(context.Background(), "no-such-session", time.Now(), "/")
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func TestListFilesMissingPath(t *testing.T) {
	s := newService(t, sampleEvents("s1")...)

	names, err := s.ListFiles(context.Background(), "s1", sessionStart.Add(time.Hour), "/does/not/exist")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestGetFilesystemState(t *testing.T) {
	s := newService(t, sampleEvents("s1")...)

	fs, err := s.GetFilesystemState(context.Background(), "s1", sessionStart.Add(time.Hour))
	require.NoError(t, err)

	content, err := fs.ReadFile("/src/main.go")
	require.NoError(t, err)
	assert.Equal(t, "package main\n", content)
}

func TestGetFilesystemStateRespectsTimestamp(t *testing.T) {
	s := newService(t, sampleEvents("s1")...)

	fs, err := s.GetFilesystemState(context.Background(), "s1", sessionStart.Add(30*time.Second))
	require.NoError(t, err)

	assert.True(t, fs.Exists("/src/main.go"))
	assert.False(t, fs.Exists("/src/util/helper.go"))
	assert.False(t, fs.Exists("/readme.md"))
}

func TestFindFiles(t *testing.T) {
	s := newService(t, sampleEvents("s1")...)
	ctx := context.Background()
	asOf := sessionStart.Add(time.Hour)

	matches, err := s.FindFiles(ctx, "s1", asOf, "/src/**.go")
	require.NoError(t, err)
	assert.Equal(t, []string{"/src/main.go", "/src/util/helper.go"}, matches)

	matches, err = s.FindFiles(ctx, "s1", asOf, "/*.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"/readme.md"}, matches)

	matches, err = s.FindFiles(ctx, "s1", asOf, "/nothing/*")
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = s.FindFiles(ctx, "s1", asOf, "[")
	assert.ErrorContains(t, err, "compile pattern")
}

func TestGetZippedStateRoundTrip(t *testing.T) {
	s := newService(t, sampleEvents("s1")...)
	asOf := sessionStart.Add(time.Hour)

	data, err := s.GetZippedState(context.Background(), "s1", asOf)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	restored, err := LoadZippedState(data)
	require.NoError(t, err)

	content, err := restored.ReadFile("/src/main.go")
	require.NoError(t, err)
	assert.Equal(t, "package main\n", content)

	content, err = restored.ReadFile("/readme.md")
	require.NoError(t, err)
	assert.Equal(t, "# readme\n", content)
}

func TestGetZippedStateReproducible(t *testing.T) {
	s := newService(t, sampleEvents("s1")...)
	asOf := sessionStart.Add(time.Hour)
	ctx := context.Background()

	first, err := s.GetZippedState(ctx, "s1", asOf)
	require.NoError(t, err)
	second, err := s.GetZippedState(ctx, "s1", asOf)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second), "archives for the same state must be byte-identical")
}

func TestGetZippedStateManifest(t *testing.T) {
	events := append(sampleEvents("s1"),
		// A directory left empty by a later delete still appears in the
		// manifest and survives extraction.
		graph.NewContentEvent("s1", "/empty/gone.txt", graph.ActionCreate,
			sessionStart.Add(3*time.Minute), 0, "x"),
		graph.NewActionEvent("s1", "/empty/gone.txt", graph.ActionDelete,
			sessionStart.Add(4*time.Minute), 0),
	)
	s := newService(t, events...)

	data, err := s.GetZippedState(context.Background(), "s1", sessionStart.Add(time.Hour))
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var manifest archiveManifest
	found := false
	for _, f := range zr.File {
		if f.Name != manifestName {
			continue
		}
		rc, openErr := f.Open()
		require.NoError(t, openErr)
		raw, readErr := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, readErr)
		require.NoError(t, yaml.Unmarshal(raw, &manifest))
		found = true
	}
	require.True(t, found, "archive must contain a manifest entry")

	assert.Equal(t, "s1", manifest.SessionID)
	assert.Equal(t, 3, manifest.FileCount)
	assert.Contains(t, manifest.Directories, "/empty")

	restored, err := LoadZippedState(data)
	require.NoError(t, err)
	assert.True(t, restored.Exists("/empty"))
	names, err := restored.ReadDir("/empty")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestGetZippedStateEmptySession(t *testing.T) {
	s := newService(t)

	data, err := s.GetZippedState(context.Background(), "empty", time.Now())
	require.NoError(t, err)

	restored, err := LoadZippedState(data)
	require.NoError(t, err)
	names, err := restored.ReadDir("/")
	require.NoError(t, err)
	assert.Empty(t, names)
}
