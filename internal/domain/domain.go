package domain

// Bounds on the number of targets a mission is created with.
const (
	MinTargets = 1
	MaxTargets = 3
)

type Cat struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Experience int     `json:"experience"`
	Breed      string  `json:"breed"`
	Salary     float64 `json:"salary"`
	MissionID  *int64  `json:"mission_id"`
}

// Assigned reports whether the cat currently holds a mission.
func (c Cat) Assigned() bool { return c.MissionID != nil }

type Target struct {
	ID        int64  `json:"id"`
	MissionID int64  `json:"-"`
	Name      string `json:"name"`
	Country   string `json:"country"`
	Notes     string `json:"notes"`
	Complete  bool   `json:"complete"`
}

// Locked reports whether the target's notes can no longer change.
func (t Target) Locked(m Mission) bool { return t.Complete || m.Complete }

type Mission struct {
	ID       int64    `json:"id"`
	Complete bool     `json:"complete"`
	CatID    *int64   `json:"cat_id"`
	Targets  []Target `json:"targets"`
}

func (m Mission) Assigned() bool { return m.CatID != nil }

// AllTargetsComplete is true when every owned target is complete.
func (m Mission) AllTargetsComplete() bool {
	if len(m.Targets) == 0 {
		return false
	}
	for _, t := range m.Targets {
		if !t.Complete {
			return false
		}
	}
	return true
}

// NewTarget is the input for one target at mission creation.
type NewTarget struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}
