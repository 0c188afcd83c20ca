package resources

import (
	"math"
	"strconv"
	"time"
)

const (
	// IOFields is the number of counters carried by an IO record.
	IOFields = 4
	// NetworkFields is the number of counters carried by a Network record.
	NetworkFields = 8
)

var ioFieldNames = [IOFields]string{"read_count", "write_count", "read_bytes", "write_bytes"}

var networkFieldNames = [NetworkFields]string{
	"bytes_sent", "bytes_recv", "packets_sent", "packets_recv",
	"errin", "errout", "dropin", "dropout",
}

// IO holds the disk counters reported for a node.
type IO struct {
	ReadCount  float64 `yaml:"read_count" json:"read_count"`
	WriteCount float64 `yaml:"write_count" json:"write_count"`
	ReadBytes  float64 `yaml:"read_bytes" json:"read_bytes"`
	WriteBytes float64 `yaml:"write_bytes" json:"write_bytes"`
}

// Values returns the counters in wire order.
func (io IO) Values() [IOFields]float64 {
	return [IOFields]float64{io.ReadCount, io.WriteCount, io.ReadBytes, io.WriteBytes}
}

func ioFromValues(v [IOFields]float64) IO {
	return IO{ReadCount: v[0], WriteCount: v[1], ReadBytes: v[2], WriteBytes: v[3]}
}

// Network holds the interface counters reported for a node.
type Network struct {
	BytesSent   float64 `yaml:"bytes_sent" json:"bytes_sent"`
	BytesRecv   float64 `yaml:"bytes_recv" json:"bytes_recv"`
	PacketsSent float64 `yaml:"packets_sent" json:"packets_sent"`
	PacketsRecv float64 `yaml:"packets_recv" json:"packets_recv"`
	ErrIn       float64 `yaml:"errin" json:"errin"`
	ErrOut      float64 `yaml:"errout" json:"errout"`
	DropIn      float64 `yaml:"dropin" json:"dropin"`
	DropOut     float64 `yaml:"dropout" json:"dropout"`
}

// Values returns the counters in wire order.
func (n Network) Values() [NetworkFields]float64 {
	return [NetworkFields]float64{
		n.BytesSent, n.BytesRecv, n.PacketsSent, n.PacketsRecv,
		n.ErrIn, n.ErrOut, n.DropIn, n.DropOut,
	}
}

func networkFromValues(v [NetworkFields]float64) Network {
	return Network{
		BytesSent: v[0], BytesRecv: v[1], PacketsSent: v[2], PacketsRecv: v[3],
		ErrIn: v[4], ErrOut: v[5], DropIn: v[6], DropOut: v[7],
	}
}

// NodeSample is the reading for one node inside a snapshot.
type NodeSample struct {
	Name    string  `yaml:"node_name" json:"node_name"`
	CPU     float64 `yaml:"cpu" json:"cpu"`
	Memory  float64 `yaml:"memory" json:"memory"`
	IO      IO      `yaml:"io" json:"io"`
	Network Network `yaml:"network" json:"network"`
}

// Snapshot is one message from the resource stream: readings for many nodes at one instant.
type Snapshot struct {
	Stamp time.Time    `yaml:"stamp" json:"stamp"`
	Nodes []NodeSample `yaml:"nodes" json:"nodes"`
}

// round2 rounds to two decimals using the exact binary value of v, half to even.
func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// roundScaled rounds to two decimals by scaling, rounding half to even and scaling back.
// Means are rounded this way, so 15.005 becomes 15.0.
func roundScaled(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.RoundToEven(v*100) / 100
}

// mean returns the rounded arithmetic mean, or NaN for an empty series.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return roundScaled(sum / float64(len(values)))
}
