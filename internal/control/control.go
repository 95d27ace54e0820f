// Package control serves the daemon's status API over a Unix socket and
// provides the client the CLI uses to query it.
package control

import "time"

// Status is the daemon-level snapshot served at /v1/status.
type Status struct {
	Version         string    `json:"version"`
	RunID           string    `json:"run_id"`
	PID             int       `json:"pid"`
	StartedAt       time.Time `json:"started_at"`
	UptimeSeconds   int64     `json:"uptime_seconds"`
	ClientName      string    `json:"client_name"`
	SequencerClient int       `json:"sequencer_client"`
	SoftwareClients int       `json:"software_clients"`
	HardwareClients int       `json:"hardware_clients"`
	LinksMade       int       `json:"links_made"`
	LinksDuplicate  int       `json:"links_duplicate"`
	LinksFailed     int       `json:"links_failed"`
}

// Endpoint is one tracked client as served at /v1/endpoints.
type Endpoint struct {
	Client int    `json:"client"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Input  string `json:"input,omitempty"`
	Output string `json:"output,omitempty"`
}

// EndpointsResponse wraps the endpoint list.
type EndpointsResponse struct {
	Endpoints []Endpoint `json:"endpoints"`
}

// RulesInfo describes the loaded policy as served at /v1/rules.
type RulesInfo struct {
	Path          string `json:"path"`
	AllowRules    int    `json:"allow_rules"`
	DisallowRules int    `json:"disallow_rules"`
}

// Snapshotter provides the state the API serves. Implementations must be
// safe to call from the server goroutine while the daemon dispatches events.
type Snapshotter interface {
	Status() Status
	Endpoints() []Endpoint
	Rules() RulesInfo
}
