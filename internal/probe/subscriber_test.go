package probe

import (
	"errors"
	"testing"

	"Go2ResSpectra/internal/config"
	"Go2ResSpectra/internal/resources"
	"Go2ResSpectra/internal/wire"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch(t *testing.T) {
	data, err := wire.Marshal(&resources.Snapshot{Nodes: []resources.NodeSample{{Name: "a", CPU: 1}}})
	require.NoError(t, err)

	var got []*resources.Snapshot
	var decodeErrs []error
	handler := func(snap *resources.Snapshot) error {
		got = append(got, snap)
		return errors.New("handler errors are logged, not returned")
	}
	onError := func(err error) { decodeErrs = append(decodeErrs, err) }

	dispatch(data, handler, onError)
	dispatch([]byte{0xff, 0xff}, handler, onError)

	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Nodes[0].Name)
	require.Len(t, decodeErrs, 1)
	assert.ErrorIs(t, decodeErrs[0], resources.ErrMalformedSnapshot)
}

func TestNewSourceUnknownType(t *testing.T) {
	_, err := NewSource(config.TransportConfig{Type: "zmq"})
	assert.Error(t, err)

	_, err = NewSnapshotPublisher(config.TransportConfig{Type: "zmq"})
	assert.Error(t, err)
}
