package scenario

// Kind names a segment of simulated behavior.
type Kind string

// Segment kinds.
const (
	KindAttentive Kind = "attentive"
	KindBlink     Kind = "blink"
	KindDoze      Kind = "doze"
	KindLookAway  Kind = "look_away"
	KindAbsent    Kind = "absent"
	KindMissed    Kind = "missed"
	KindLost      Kind = "lost"
)

// Kinds lists the segment kinds in documentation order.
func Kinds() []Kind {
	return []Kind{KindAttentive, KindBlink, KindDoze, KindLookAway, KindAbsent, KindMissed, KindLost}
}

// DefaultPlan exercises every state and one intervention with the default
// pipeline settings.
const DefaultPlan = "attentive:6,blink:8,doze:6,attentive:4,look_away:12,absent:3,attentive:4"

// Value ranges for generated samples.
const (
	attentiveYawMax   = 10.0
	attentivePitchMax = 8.0
	rollMax           = 5.0
	openEARMin        = 0.26
	openEARRange      = 0.08
	closedEARMin      = 0.05
	closedEARRange    = 0.10
	awayYawMin        = 35.0
	awayYawRange      = 25.0
	blinkPeriod       = 4
	blinkPhase        = 2
)

// File permission constants.
const (
	directoryPermission = 0o750
	logFilePermission   = 0o600
)

// Seed mixing constant for the second PCG word.
const seedStream = 0x9e3779b97f4a7c15
