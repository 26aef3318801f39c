package domain

// ModeType names one of the coaching tracks.
type ModeType string

const (
	ModeAuto          ModeType = "auto"
	ModeReaktivierung ModeType = "reaktivierung"
	ModeCoaching      ModeType = "coaching"
	ModeUmsetzung     ModeType = "umsetzung"
)

// Valid reports whether t is a known mode.
func (t ModeType) Valid() bool {
	switch t {
	case ModeAuto, ModeReaktivierung, ModeCoaching, ModeUmsetzung:
		return true
	}
	return false
}

// NuxMode is the classifier's current guess at the coaching track.
type NuxMode struct {
	Type       ModeType `json:"type"`
	Confidence float64  `json:"confidence"`
	Triggers   []string `json:"triggers"`
}

// InitialMode is the mode every conversation starts in.
func InitialMode() NuxMode {
	return NuxMode{Type: ModeAuto, Confidence: 0.5, Triggers: []string{}}
}

// Clone returns a copy that does not share the triggers slice.
func (m NuxMode) Clone() NuxMode {
	c := m
	c.Triggers = append([]string{}, m.Triggers...)
	return c
}
