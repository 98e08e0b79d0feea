package config

// Config is the top-level YAML structure.
type Config struct {
	Version  string       `yaml:"version" validate:"required"`
	Analysis AnalysisConf `yaml:"analysis"`
	Threats  ThreatConf   `yaml:"threats"`
	Networks []NetworkDef `yaml:"networks" validate:"dive"`
}

// AnalysisConf holds evaluation limits and worker pool sizing.
type AnalysisConf struct {
	MaxNodes          int    `yaml:"max_nodes" validate:"gte=0,lte=30"`
	CriticalThreshold int    `yaml:"critical_threshold" validate:"gte=0"`
	FragilityMode     string `yaml:"fragility_mode" validate:"omitempty,oneof=exact product"`
	Workers           int    `yaml:"workers" validate:"gte=0"`
	QueueDepth        int    `yaml:"queue_depth" validate:"gte=0"`
	TimeoutMs         int    `yaml:"timeout_ms" validate:"gte=0"`
}

// ThreatConf tunes the external threat generator. Fields left unset keep the
// built-in parameters of their threat.
type ThreatConf struct {
	HackerAttack         ThreatDef `yaml:"hacker_attack"`
	PowerOutage          ThreatDef `yaml:"power_outage"`
	CommunicationFailure ThreatDef `yaml:"communication_failure"`
}

// ThreatDef describes one threat: with probability Chance it strikes up to Targets
// random nodes, each of which is affected with probability Impact and has its
// reliability multiplied by Factor. Nil fields are unset, so an explicit zero
// (e.g. factor: 0) still overrides.
type ThreatDef struct {
	Chance  *float64 `yaml:"chance" validate:"omitempty,gte=0,lte=1"`
	Impact  *float64 `yaml:"impact" validate:"omitempty,gte=0,lte=1"`
	Factor  *float64 `yaml:"factor" validate:"omitempty,gte=0,lte=1"`
	Targets *int     `yaml:"targets" validate:"omitempty,gte=0"`
}

// NetworkDef declares one network. Links are given either as a list or as a 0/1
// matrix indexed in node order, never both.
type NetworkDef struct {
	ID          string    `yaml:"id" json:"id" validate:"required"`
	Description string    `yaml:"description" json:"description"`
	Nodes       []NodeDef `yaml:"nodes" json:"nodes" validate:"dive"`
	Links       []LinkDef `yaml:"links" json:"links" validate:"dive"`
	Matrix      [][]int   `yaml:"matrix" json:"matrix"`
}

// NodeDef is a network node with its probability of being up.
type NodeDef struct {
	ID          string  `yaml:"id" json:"id" validate:"required"`
	Type        string  `yaml:"type" json:"type"`
	Reliability float64 `yaml:"reliability" json:"reliability" validate:"gte=0,lte=1"`
	Capacity    float64 `yaml:"capacity" json:"capacity" validate:"gte=0"`
}

// LinkDef is an undirected link between two nodes.
type LinkDef struct {
	Source    string  `yaml:"source" json:"source" validate:"required"`
	Target    string  `yaml:"target" json:"target" validate:"required"`
	Bandwidth float64 `yaml:"bandwidth" json:"bandwidth" validate:"gte=0"`
}
