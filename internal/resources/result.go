package resources

import (
	"encoding/json"
	"math"
	"sort"
	"time"
)

const (
	LabelResources        = "resources"
	LabelAverageResources = "average_resources"
)

// Payload maps node -> resource name -> buffer or average, in the array form result
// writers consume.
//
// Raw payloads hold []float64 for cpu/mem and [][]float64 (4 or 8 sub-series) for io/network.
// Average payloads hold float64 for cpu/mem and []float64 (4 or 8 entries) for io/network.
type Payload map[string]map[string]any

// Average is the reduction of one buffer. Only the field matching Kind is set.
// Scalar is NaN when no sample was recorded.
type Average struct {
	Kind    Kind
	Samples int
	Scalar  float64
	IO      IO
	Network Network
}

func (a Average) payload() any {
	switch a.Kind {
	case KindIO:
		if a.Samples == 0 {
			return []float64{}
		}
		v := a.IO.Values()
		return v[:]
	case KindNetwork:
		if a.Samples == 0 {
			return []float64{}
		}
		v := a.Network.Values()
		return v[:]
	default:
		return a.Scalar
	}
}

// Fields returns the named averages in wire order. Vector kinds without samples have none.
func (a Average) Fields() ([]string, []float64) {
	switch a.Kind {
	case KindIO:
		if a.Samples == 0 {
			return nil, nil
		}
		v := a.IO.Values()
		return ioFieldNames[:], v[:]
	case KindNetwork:
		if a.Samples == 0 {
			return nil, nil
		}
		v := a.Network.Values()
		return networkFieldNames[:], v[:]
	default:
		return []string{a.Kind.String()}, []float64{a.Scalar}
	}
}

// NodeAverages holds the averages of one node keyed by kind.
type NodeAverages map[Kind]Average

// Result is the output of Aggregator.Result. Labels[i] names Payloads[i]: the raw buffers
// come first, the averages second.
type Result struct {
	Timestamp   float64
	// ActivatedAt is the time Timestamp was derived from, zero before the first Start.
	ActivatedAt time.Time
	Labels      [2]string
	Payloads    [2]Payload
	Averages    map[string]NodeAverages
}

// Raw returns the raw buffers payload.
func (r Result) Raw() Payload { return r.Payloads[0] }

// Average returns the averages payload.
func (r Result) Average() Payload { return r.Payloads[1] }

// Row is one flattened average, used by tabular writers.
type Row struct {
	Node     string
	Resource string
	Field    string
	Average  float64
	Samples  int
}

// Rows flattens the averages of every sampled node/kind pair, ordered by node then kind.
func (r Result) Rows() []Row {
	names := make([]string, 0, len(r.Averages))
	for name := range r.Averages {
		names = append(names, name)
	}
	sort.Strings(names)

	var rows []Row
	for _, name := range names {
		node := r.Averages[name]
		kinds := make([]Kind, 0, len(node))
		for k := range node {
			kinds = append(kinds, k)
		}
		sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

		for _, kind := range kinds {
			av := node[kind]
			if av.Samples == 0 {
				continue
			}
			fields, values := av.Fields()
			for i := range fields {
				rows = append(rows, Row{
					Node:     name,
					Resource: kind.String(),
					Field:    fields[i],
					Average:  values[i],
					Samples:  av.Samples,
				})
			}
		}
	}
	return rows
}

// SampleCount returns the number of samples buffered across all node/kind pairs.
func (r Result) SampleCount() int {
	total := 0
	for _, node := range r.Averages {
		for _, av := range node {
			total += av.Samples
		}
	}
	return total
}

// MarshalJSON encodes the result as {"timestamp", "labels", "payloads"}. NaN and infinite
// values, in samples or averages, are written as null.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Timestamp float64    `json:"timestamp"`
		Labels    [2]string  `json:"labels"`
		Payloads  [2]Payload `json:"payloads"`
	}{r.Timestamp, r.Labels, [2]Payload{jsonPayload(r.Raw()), jsonPayload(r.Average())}})
}

func jsonPayload(p Payload) Payload {
	out := make(Payload, len(p))
	for node, kinds := range p {
		m := make(map[string]any, len(kinds))
		for k, v := range kinds {
			m[k] = jsonValue(v)
		}
		out[node] = m
	}
	return out
}

// jsonValue maps non-finite floats to nil inside the payload value shapes.
func jsonValue(v any) any {
	switch v := v.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	case []float64:
		out := make([]any, len(v))
		for i, f := range v {
			out[i] = jsonValue(f)
		}
		return out
	case [][]float64:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = jsonValue(s)
		}
		return out
	default:
		return v
	}
}
