package graph

import "fmt"

// StageKind is the role of one node in the signal chain.
type StageKind int

const (
	StageSource StageKind = iota
	StageChannelGain
	StageMerge
	StageCompressor
	StageFilter
	StageAnalyser
	StageMasterGain
	StageSink
)

var stageNames = [...]string{
	StageSource:      "source",
	StageChannelGain: "channel-gain",
	StageMerge:       "merge",
	StageCompressor:  "compressor",
	StageFilter:      "filter",
	StageAnalyser:    "analyser",
	StageMasterGain:  "master-gain",
	StageSink:        "sink",
}

func (k StageKind) String() string {
	if k < 0 || int(k) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(k))
	}
	return stageNames[k]
}

// Stage is one node of the chain.
type Stage struct {
	Kind  StageKind
	Label string
}

func (s Stage) String() string {
	if s.Label == "" {
		return s.Kind.String()
	}
	return s.Kind.String() + "(" + s.Label + ")"
}

// Topology is an ordered snapshot of the live chain, from sources to sink.
// A zero Topology means nothing is connected.
type Topology struct {
	Mode   Mode
	Stages []Stage
}

// Len returns the number of nodes.
func (t Topology) Len() int { return len(t.Stages) }

// Count returns how many stages have kind k.
func (t Topology) Count(k StageKind) int {
	n := 0
	for _, s := range t.Stages {
		if s.Kind == k {
			n++
		}
	}
	return n
}

func (t Topology) clone() Topology {
	return Topology{Mode: t.Mode, Stages: append([]Stage(nil), t.Stages...)}
}
