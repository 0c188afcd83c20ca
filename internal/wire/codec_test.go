package wire

import (
	"testing"
	"time"

	"Go2ResSpectra/internal/resources"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func sampleSnapshot() *resources.Snapshot {
	return &resources.Snapshot{
		Stamp: time.Date(2024, 3, 1, 12, 0, 0, 250, time.UTC),
		Nodes: []resources.NodeSample{
			{
				Name:    "move_group",
				CPU:     12.5,
				Memory:  3.25,
				IO:      resources.IO{ReadCount: 1, WriteCount: 2, ReadBytes: 3, WriteBytes: 4},
				Network: resources.Network{BytesSent: 1, BytesRecv: 2, PacketsSent: 3, PacketsRecv: 4, ErrIn: 5, ErrOut: 6, DropIn: 7, DropOut: 8},
			},
			{Name: "planner", CPU: 0.5},
		},
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	want := sampleSnapshot()

	data, err := Marshal(want)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, want.Stamp.Equal(got.Stamp), "stamp: want %s, got %s", want.Stamp, got.Stamp)
	assert.Equal(t, want.Nodes, got.Nodes)
}

func TestUnmarshal_NoStamp(t *testing.T) {
	snap := sampleSnapshot()
	snap.Stamp = time.Time{}

	data, err := Marshal(snap)
	require.NoError(t, err)
	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, got.Stamp.IsZero())
	assert.Len(t, got.Nodes, 2)
}

func TestUnmarshal_MissingSubRecord(t *testing.T) {
	// A node record carrying only a name and cpu.
	var node []byte
	node = protowire.AppendTag(node, nodeName, protowire.BytesType)
	node = protowire.AppendString(node, "bare")
	node = appendDouble(node, nodeCPU, 1)

	var msg []byte
	msg = protowire.AppendTag(msg, resourcesNodes, protowire.BytesType)
	msg = protowire.AppendBytes(msg, node)

	_, err := Unmarshal(msg)
	assert.ErrorIs(t, err, ErrMissingField)
	assert.ErrorIs(t, err, resources.ErrMalformedSnapshot)
}

func TestUnmarshal_SkipsUnknownFields(t *testing.T) {
	data, err := Marshal(sampleSnapshot())
	require.NoError(t, err)
	data = protowire.AppendTag(data, 15, protowire.VarintType)
	data = protowire.AppendVarint(data, 7)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Len(t, got.Nodes, 2)
}

func TestUnmarshal_Truncated(t *testing.T) {
	data, err := Marshal(sampleSnapshot())
	require.NoError(t, err)

	_, err = Unmarshal(data[:len(data)-3])
	assert.ErrorIs(t, err, resources.ErrMalformedSnapshot)
}

func TestMarshal_Nil(t *testing.T) {
	_, err := Marshal(nil)
	assert.ErrorIs(t, err, resources.ErrMalformedSnapshot)
}
