package pmi

import (
	"encoding/json"
	"strings"

	"pmiengine/domain/core"
)

// Method identifies one development model variant
type Method int

const (
	ADDStandard Method = iota
	ADDOptimistic
	ADDConservative
	ADHMethod
	IsomegalenMethod
	ThermalSummation
	DevelopmentRate

	// MethodCount is the number of method variants; keep it last.
	MethodCount
)

var methodNames = [MethodCount]string{
	ADDStandard:      "add_standard",
	ADDOptimistic:    "add_optimistic",
	ADDConservative:  "add_conservative",
	ADHMethod:        "adh_method",
	IsomegalenMethod: "isomegalen_method",
	ThermalSummation: "thermal_summation",
	DevelopmentRate:  "development_rate",
}

// DefaultMethod is used when callers do not choose one
const DefaultMethod = ADDStandard

// AllMethods returns every variant in declaration order
func AllMethods() []Method {
	out := make([]Method, 0, MethodCount)
	for m := Method(0); m < MethodCount; m++ {
		out = append(out, m)
	}
	return out
}

// ParseMethod maps a method name to its variant. An empty name selects the default.
func ParseMethod(name string) (Method, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultMethod, nil
	}
	for m, n := range methodNames {
		if n == name {
			return Method(m), nil
		}
	}
	return 0, core.NewUnknownMethodError(name)
}

// Valid reports whether m is a declared variant
func (m Method) Valid() bool {
	return m >= 0 && m < MethodCount
}

func (m Method) String() string {
	if !m.Valid() {
		return "unknown"
	}
	return methodNames[m]
}

// UsesLength reports whether the variant reads the specimen length
func (m Method) UsesLength() bool {
	return m == IsomegalenMethod
}

func (m Method) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Method) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMethod(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
