package species

import (
	"fmt"
	"strings"
)

// Stage is a development stage of a forensically important fly
type Stage string

const (
	FirstInstar  Stage = "1st_instar"
	SecondInstar Stage = "2nd_instar"
	ThirdInstar  Stage = "3rd_instar"
	Pupa         Stage = "pupa"
)

// Stages lists every stage in developmental order
var Stages = []Stage{FirstInstar, SecondInstar, ThirdInstar, Pupa}

// ParseStage accepts the canonical stage names plus a few common spellings.
func ParseStage(s string) (Stage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1st_instar", "first_instar", "l1":
		return FirstInstar, nil
	case "2nd_instar", "second_instar", "l2":
		return SecondInstar, nil
	case "3rd_instar", "third_instar", "l3":
		return ThirdInstar, nil
	case "pupa", "pupal":
		return Pupa, nil
	}
	return "", fmt.Errorf("unrecognized stage %q", s)
}

// Index returns the developmental position of the stage, or -1 when unknown
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the four known stages
func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// Next returns the following stage; ok is false for the pupa
func (s Stage) Next() (Stage, bool) {
	i := s.Index()
	if i < 0 || i == len(Stages)-1 {
		return "", false
	}
	return Stages[i+1], true
}

func (s Stage) String() string {
	return string(s)
}
