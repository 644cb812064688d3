/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package transcript

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlGame = `players:
  - id: 1
    name: Alice
    role: Villager
  - id: 2
    name: Bob
    role: Werewolf
dialogue:
  - speaker: Alice
    type: Say
    content: hi
  - speaker: Bob
    type: Say
    content: hello
`

func TestFileSourceReadsJSONAndYAML(t *testing.T) {
	src := NewFSSource(fstest.MapFS{
		"round-1.json": {Data: []byte(backendGame)},
		"round-2.yaml": {Data: []byte(yamlGame)},
		"round-3.yml":  {Data: []byte(yamlGame)},
	})

	tr, err := src.Load(context.Background(), Request{Round: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, tr.Len())

	for _, round := range []int{2, 3} {
		tr, err = src.Load(context.Background(), Request{Round: round})
		require.NoError(t, err)
		require.Len(t, tr.Players, 2)
		assert.Equal(t, RoleWerewolf, tr.Players[1].Role)
		assert.Equal(t, "hello", tr.Dialogue[1].Content)
	}
}

func TestFileSourceMissingRound(t *testing.T) {
	src := NewFSSource(fstest.MapFS{})

	_, err := src.Load(context.Background(), Request{Round: 9})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileSourceRejectsUnknownYAMLFields(t *testing.T) {
	src := NewFSSource(fstest.MapFS{
		"round-1.yaml": {Data: []byte("players: []\ndialog: []\n")},
	})

	_, err := src.Load(context.Background(), Request{Round: 1})
	assert.Error(t, err)
}

func TestNewFileSourceFromDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "round-1.yaml"), []byte(yamlGame), 0o644))

	src, err := NewFileSource(dir)
	require.NoError(t, err)

	tr, err := src.Load(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, 2, tr.Len())

	_, err = NewFileSource(filepath.Join(dir, "round-1.yaml"))
	assert.Error(t, err)

	_, err = NewFileSource(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
