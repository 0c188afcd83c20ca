// Package wire encodes resource snapshots in the protobuf layout of the Resources message
// published on the resource stream:
//
//	message Resources     { google.protobuf.Timestamp stamp = 1; repeated NodeResources nodes = 2; }
//	message NodeResources { string node_name = 1; double cpu = 2; double memory = 3; IO io = 4; Network network = 5; }
//	message IO            { double read_count = 1; ... double write_bytes = 4; }
//	message Network       { double bytes_sent = 1; ... double dropout = 8; }
package wire

import (
	"errors"
	"fmt"
	"math"

	"Go2ResSpectra/internal/resources"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// ErrMissingField is returned when a node record lacks its name, IO or Network sub-record.
var ErrMissingField = errors.New("missing required field")

const (
	resourcesStamp protowire.Number = 1
	resourcesNodes protowire.Number = 2

	nodeName    protowire.Number = 1
	nodeCPU     protowire.Number = 2
	nodeMemory  protowire.Number = 3
	nodeIO      protowire.Number = 4
	nodeNetwork protowire.Number = 5
)

// Marshal encodes a snapshot.
func Marshal(snap *resources.Snapshot) ([]byte, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: nil snapshot", resources.ErrMalformedSnapshot)
	}
	var b []byte
	if !snap.Stamp.IsZero() {
		stamp, err := proto.Marshal(timestamppb.New(snap.Stamp))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal stamp: %w", err)
		}
		b = protowire.AppendTag(b, resourcesStamp, protowire.BytesType)
		b = protowire.AppendBytes(b, stamp)
	}
	for i := range snap.Nodes {
		b = protowire.AppendTag(b, resourcesNodes, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalNode(&snap.Nodes[i]))
	}
	return b, nil
}

func marshalNode(n *resources.NodeSample) []byte {
	var b []byte
	b = protowire.AppendTag(b, nodeName, protowire.BytesType)
	b = protowire.AppendString(b, n.Name)
	b = appendDouble(b, nodeCPU, n.CPU)
	b = appendDouble(b, nodeMemory, n.Memory)

	io := n.IO.Values()
	b = protowire.AppendTag(b, nodeIO, protowire.BytesType)
	b = protowire.AppendBytes(b, marshalDoubles(io[:]))

	network := n.Network.Values()
	b = protowire.AppendTag(b, nodeNetwork, protowire.BytesType)
	b = protowire.AppendBytes(b, marshalDoubles(network[:]))
	return b
}

// marshalDoubles writes values as fields 1..len(values).
func marshalDoubles(values []float64) []byte {
	var b []byte
	for i, v := range values {
		b = appendDouble(b, protowire.Number(i+1), v)
	}
	return b
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

// Unmarshal decodes a snapshot. Unknown fields are skipped.
func Unmarshal(data []byte) (*resources.Snapshot, error) {
	snap := &resources.Snapshot{}
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == resourcesStamp && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			var ts timestamppb.Timestamp
			if err := proto.Unmarshal(v, &ts); err != nil {
				return 0, fmt.Errorf("failed to unmarshal stamp: %w", err)
			}
			snap.Stamp = ts.AsTime()
			return n, nil
		case num == resourcesNodes && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			node, err := unmarshalNode(v)
			if err != nil {
				return 0, fmt.Errorf("node %d: %w", len(snap.Nodes), err)
			}
			snap.Nodes = append(snap.Nodes, node)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", resources.ErrMalformedSnapshot, err)
	}
	return snap, nil
}

func unmarshalNode(data []byte) (resources.NodeSample, error) {
	var (
		node                        resources.NodeSample
		hasName, hasIO, hasNetwork bool
	)
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == nodeName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			node.Name, hasName = v, true
			return n, nil
		case num == nodeCPU && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			node.CPU = math.Float64frombits(v)
			return n, nil
		case num == nodeMemory && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			node.Memory = math.Float64frombits(v)
			return n, nil
		case num == nodeIO && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			var io [resources.IOFields]float64
			if err := unmarshalDoubles(v, io[:]); err != nil {
				return 0, fmt.Errorf("io: %w", err)
			}
			node.IO = resources.IO{ReadCount: io[0], WriteCount: io[1], ReadBytes: io[2], WriteBytes: io[3]}
			hasIO = true
			return n, nil
		case num == nodeNetwork && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			var nw [resources.NetworkFields]float64
			if err := unmarshalDoubles(v, nw[:]); err != nil {
				return 0, fmt.Errorf("network: %w", err)
			}
			node.Network = resources.Network{
				BytesSent: nw[0], BytesRecv: nw[1], PacketsSent: nw[2], PacketsRecv: nw[3],
				ErrIn: nw[4], ErrOut: nw[5], DropIn: nw[6], DropOut: nw[7],
			}
			hasNetwork = true
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	if err != nil {
		return node, err
	}

	switch {
	case !hasName:
		return node, fmt.Errorf("%w: node_name", ErrMissingField)
	case !hasIO:
		return node, fmt.Errorf("%w: io (node %q)", ErrMissingField, node.Name)
	case !hasNetwork:
		return node, fmt.Errorf("%w: network (node %q)", ErrMissingField, node.Name)
	}
	return node, nil
}

// unmarshalDoubles fills dst from fields 1..len(dst). Fields outside that range are skipped.
func unmarshalDoubles(data []byte, dst []float64) error {
	return walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ == protowire.Fixed64Type && num >= 1 && int(num) <= len(dst) {
			v, n := protowire.ConsumeFixed64(b)
			dst[num-1] = math.Float64frombits(v)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

// walk iterates the fields of one message. fn consumes the field value and returns its length,
// or a negative protowire error code.
func walk(data []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		m, err := fn(num, typ, data)
		if err != nil {
			return err
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		data = data[m:]
	}
	return nil
}
