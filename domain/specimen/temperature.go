package specimen

// Temperature sources
const (
	SourceManual    = "manual"
	SourceTimeOfDay = "time_of_day"
)

// TemperatureContext is a resolved ambient temperature. The engine treats the value as
// an opaque input; resolving it is the caller's job.
type TemperatureContext struct {
	AmbientC float64 `json:"ambient_c"`
	Source   string  `json:"source"`
}

// Manual wraps an operator-supplied temperature
func Manual(ambientC float64) TemperatureContext {
	return TemperatureContext{AmbientC: ambientC, Source: SourceManual}
}
