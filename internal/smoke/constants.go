package smoke

// Defaults for a smoke run.
const (
	DefaultLimit         = 5
	WorkerChannelFactor  = 2
	PercentageMultiplier = 100
	unknownTitle         = "\x00cinematch-smoke-unknown-title"
)
