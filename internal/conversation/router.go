package conversation

// Stage identifies a step of the per-turn pipeline. Every turn walks
// relevance → security → consent → dispatch → pii, short-circuiting to
// the rejection stage the moment a gate triggers.
type Stage string

const (
	StageRelevance Stage = "relevance_check"
	StageSecurity  Stage = "security_check"
	StageConsent   Stage = "consent_check"
	StageDispatch  Stage = "agent_dispatch"
	StagePII       Stage = "pii_check"
	StageRejection Stage = "rejection"
	StageDone      Stage = "done"
)

// nextStage returns the stage that follows current. A triggered guardrail
// always routes to the rejection stage; the consent stage never blocks, so
// the triggered flag is not consulted there.
func nextStage(current Stage, triggered bool) Stage {
	switch current {
	case StageRelevance:
		if triggered {
			return StageRejection
		}
		return StageSecurity
	case StageSecurity:
		if triggered {
			return StageRejection
		}
		return StageConsent
	case StageConsent:
		return StageDispatch
	case StageDispatch:
		return StagePII
	case StagePII:
		if triggered {
			return StageRejection
		}
		return StageDone
	case StageRejection:
		return StageDone
	default:
		return StageDone
	}
}
