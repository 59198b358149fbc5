package hermes

const (
	SubjectStats = "swarm.themis.stats"

	StreamName   = "THEMIS_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

func SubjectPopulationCreated(popID string) string {
	return "swarm.themis.population." + popID + ".created"
}

func SubjectPopulationDeleted(popID string) string {
	return "swarm.themis.population." + popID + ".deleted"
}

func SubjectChainComputed(popID string) string { return "swarm.themis.chain." + popID + ".computed" }
func SubjectChainFailed(popID string) string   { return "swarm.themis.chain." + popID + ".failed" }
