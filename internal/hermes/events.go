package hermes

import "time"

type PopulationCreatedEvent struct {
	PopulationID string `json:"population_id"`
	Name         string `json:"name"`
	Groups       int    `json:"groups"`
	Size         int    `json:"size"`
	Source       string `json:"source,omitempty"`
}

type ChainComputedEvent struct {
	PopulationID string  `json:"population_id"`
	Budgets      int     `json:"budgets"`
	Repairs      int     `json:"repairs"`
	FullUtility  float64 `json:"full_utility"`
	BuildMs      int64   `json:"build_ms"`
}

type ChainFailedEvent struct {
	PopulationID string `json:"population_id"`
	Budget       int    `json:"budget,omitempty"`
	Error        string `json:"error"`
}

type StatsEvent struct {
	Populations int       `json:"populations"`
	Chains      int       `json:"chains"`
	AvgBuildMs  float64   `json:"avg_build_ms"`
	Timestamp   time.Time `json:"timestamp"`
}
