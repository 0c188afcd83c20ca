package resources

// buffer accumulates the samples of one node/kind pair.
type buffer interface {
	add(s NodeSample)
	len() int
	// raw returns a copy of the samples in the array form used by result writers.
	raw() any
	average() Average
}

// bufferFactories is indexed by Kind; every Kind must have an entry.
var bufferFactories = [len(kindNames)]func() buffer{
	KindCPU: func() buffer {
		return &scalarBuffer{kind: KindCPU, pick: func(s NodeSample) float64 { return s.CPU }}
	},
	KindMem: func() buffer {
		return &scalarBuffer{kind: KindMem, pick: func(s NodeSample) float64 { return s.Memory }}
	},
	KindIO:      func() buffer { return &ioBuffer{} },
	KindNetwork: func() buffer { return &networkBuffer{} },
}

type scalarBuffer struct {
	kind    Kind
	pick    func(NodeSample) float64
	samples []float64
}

func (b *scalarBuffer) add(s NodeSample) {
	b.samples = append(b.samples, round2(b.pick(s)))
}

func (b *scalarBuffer) len() int { return len(b.samples) }

func (b *scalarBuffer) raw() any {
	return append([]float64{}, b.samples...)
}

func (b *scalarBuffer) average() Average {
	return Average{Kind: b.kind, Samples: len(b.samples), Scalar: mean(b.samples)}
}

type ioBuffer struct {
	samples []IO
}

func (b *ioBuffer) add(s NodeSample) {
	v := s.IO.Values()
	for i := range v {
		v[i] = round2(v[i])
	}
	b.samples = append(b.samples, ioFromValues(v))
}

func (b *ioBuffer) len() int { return len(b.samples) }

func (b *ioBuffer) series() [][]float64 {
	// Sub-series only exist once the first sample arrived.
	if len(b.samples) == 0 {
		return [][]float64{}
	}
	out := make([][]float64, IOFields)
	for i := range out {
		out[i] = make([]float64, 0, len(b.samples))
	}
	for _, s := range b.samples {
		for i, v := range s.Values() {
			out[i] = append(out[i], v)
		}
	}
	return out
}

func (b *ioBuffer) raw() any { return b.series() }

func (b *ioBuffer) average() Average {
	avg := Average{Kind: KindIO, Samples: len(b.samples)}
	if avg.Samples == 0 {
		return avg
	}
	var means [IOFields]float64
	for i, s := range b.series() {
		means[i] = mean(s)
	}
	avg.IO = ioFromValues(means)
	return avg
}

type networkBuffer struct {
	samples []Network
}

func (b *networkBuffer) add(s NodeSample) {
	v := s.Network.Values()
	for i := range v {
		v[i] = round2(v[i])
	}
	b.samples = append(b.samples, networkFromValues(v))
}

func (b *networkBuffer) len() int { return len(b.samples) }

func (b *networkBuffer) series() [][]float64 {
	if len(b.samples) == 0 {
		return [][]float64{}
	}
	out := make([][]float64, NetworkFields)
	for i := range out {
		out[i] = make([]float64, 0, len(b.samples))
	}
	for _, s := range b.samples {
		for i, v := range s.Values() {
			out[i] = append(out[i], v)
		}
	}
	return out
}

func (b *networkBuffer) raw() any { return b.series() }

func (b *networkBuffer) average() Average {
	avg := Average{Kind: KindNetwork, Samples: len(b.samples)}
	if avg.Samples == 0 {
		return avg
	}
	var means [NetworkFields]float64
	for i, s := range b.series() {
		means[i] = mean(s)
	}
	avg.Network = networkFromValues(means)
	return avg
}
