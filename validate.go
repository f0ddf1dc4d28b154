package flowchart

// CanConnect decides whether a source -> target edge may be created next
// to the existing connections. It returns nil when the edge is allowed and
// a *ValidationError otherwise. Rules are checked in order and the first
// match wins: self-loop, consumer as source, producer as target, duplicate
// edge. A reverse edge (target -> source) does not count as a duplicate.
//
// CanConnect has no side effects and does not look the nodes up; callers
// pass the kinds they already hold.
func CanConnect(sourceKind, targetKind Kind, existing []Connection, sourceID, targetID string) error {
	if sourceID == targetID {
		return Reject(ReasonSelfLoop)
	}
	switch sourceKind {
	case Consumer:
		return Reject(ReasonConsumerSource)
	case Producer, Processor:
	}
	switch targetKind {
	case Producer:
		return Reject(ReasonProducerTarget)
	case Consumer, Processor:
	}
	for _, c := range existing {
		if c.SourceID == sourceID && c.TargetID == targetID {
			return Reject(ReasonDuplicate)
		}
	}
	return nil
}
