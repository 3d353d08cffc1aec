package model

import "encoding/json"

// VersionedRecord captures schema and codec evolution for archived data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Node type names as reported by the simulation backend.
const (
	NodeInput  = "input"
	NodeOutput = "output"
	NodeHidden = "hidden"
	NodeMemory = "memory"
)

type BrainSnapshot struct {
	ID          int          `json:"id"`
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
	GP          float64      `json:"gp"`
	Fitness     float64      `json:"fitness"`
	Age         float64      `json:"age"`
}

type Node struct {
	ID         int     `json:"id"`
	Type       string  `json:"type"`
	Activation string  `json:"activation"`
	Bias       float64 `json:"bias"`
	Threshold  float64 `json:"threshold"`
}

type Connection struct {
	ID         int     `json:"id"`
	From       int     `json:"from"`
	To         int     `json:"to"`
	Weight     float64 `json:"weight"`
	Plasticity float64 `json:"plasticity"`
	Enabled    bool    `json:"enabled"`
}

type BrainSummary struct {
	ID          int     `json:"id"`
	Nodes       int     `json:"nodes"`
	Connections int     `json:"connections"`
	GP          float64 `json:"gp"`
	Fitness     float64 `json:"fitness"`
	Age         float64 `json:"age"`
}

type PopulationStats struct {
	Size           int     `json:"size"`
	AvgFitness     float64 `json:"avg_fitness"`
	MaxFitness     float64 `json:"max_fitness"`
	AvgNodes       float64 `json:"avg_nodes"`
	AvgConnections float64 `json:"avg_connections"`
	Generation     int     `json:"generation"`
}

type TaskInfo struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Kind    string  `json:"kind"`
	Weight  float64 `json:"weight"`
	Enabled bool    `json:"enabled"`
}

type EvolveRequest struct {
	MutationRate   float64 `json:"mutation_rate"`
	PopulationSize int     `json:"population_size"`
}

// Event feed envelope types.
const (
	EventPopulationUpdate = "population_update"
	EventBrainUpdate      = "brain_update"
	EventTaskUpdate       = "task_update"
	EventEvolutionStep    = "evolution_step"
	EventControl          = "control"
)

type Envelope struct {
	Type          string          `json:"type"`
	SchemaVersion string          `json:"schema_version"`
	TS            string          `json:"ts"`
	Data          json.RawMessage `json:"data"`
}
