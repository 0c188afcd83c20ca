package persistent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"Go2ResSpectra/internal/config"
	"Go2ResSpectra/internal/resources"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(i int) *resources.Snapshot {
	return &resources.Snapshot{
		Stamp: time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC),
		Nodes: []resources.NodeSample{{Name: "move_group", CPU: float64(i), IO: resources.IO{ReadCount: float64(i)}}},
	}
}

func TestRecorder_GobRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(config.RecorderConfig{Path: dir, Encoding: "gob"})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.True(t, rec.Enqueue(testSnapshot(i)))
	}
	rec.Stop()
	assert.False(t, rec.Enqueue(testSnapshot(9)), "enqueue after stop is refused")

	snaps, err := ReadRecording(rec.Path())
	require.NoError(t, err)
	require.Len(t, snaps, 5)
	for i, snap := range snaps {
		assert.Equal(t, float64(i), snap.Nodes[0].CPU)
		assert.True(t, testSnapshot(i).Stamp.Equal(snap.Stamp))
	}
}

func TestRecorder_Text(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(config.RecorderConfig{Path: dir, Encoding: "text"})
	require.NoError(t, err)

	require.True(t, rec.Enqueue(testSnapshot(1)))
	rec.Stop()
	rec.Stop()

	assert.Equal(t, ".log", filepath.Ext(rec.Path()))
	data, err := os.ReadFile(rec.Path())
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "move_group cpu=1.00"), string(data))
}

func TestRecorder_UnknownEncoding(t *testing.T) {
	_, err := NewRecorder(config.RecorderConfig{Path: t.TempDir(), Encoding: "xml"})
	assert.Error(t, err)
}

func TestReadRecording_MissingFile(t *testing.T) {
	_, err := ReadRecording(filepath.Join(t.TempDir(), "missing.gob"))
	assert.Error(t, err)
}
