package domain

// StatusKind is the semantic lifecycle stage a named status maps to.
type StatusKind string

const (
	StatusKindUnclaimed  StatusKind = "UNCLAIMED"
	StatusKindInProgress StatusKind = "IN_PROGRESS"
	StatusKindAwaiting   StatusKind = "AWAITING"
	StatusKindResolved   StatusKind = "RESOLVED"
	StatusKindClosed     StatusKind = "CLOSED"
)

// StatusFlags are the behavioral capabilities of a status.
type StatusFlags struct {
	Initial      bool `json:"is_initial"`
	InProgress   bool `json:"is_in_progress"`
	Final        bool `json:"is_final"`
	AllowsReopen bool `json:"allows_reopen"`
}

var statusKindFlags = map[StatusKind]StatusFlags{
	StatusKindUnclaimed:  {Initial: true},
	StatusKindInProgress: {InProgress: true},
	StatusKindAwaiting:   {},
	StatusKindResolved:   {Final: true, AllowsReopen: true},
	StatusKindClosed:     {Final: true},
}

// StatusKinds lists every kind in lifecycle order.
func StatusKinds() []StatusKind {
	return []StatusKind{
		StatusKindUnclaimed,
		StatusKindInProgress,
		StatusKindAwaiting,
		StatusKindResolved,
		StatusKindClosed,
	}
}

// Valid reports whether k is a known kind.
func (k StatusKind) Valid() bool {
	_, ok := statusKindFlags[k]
	return ok
}

// Flags returns the capability flags for the kind. Unknown kinds have none.
func (k StatusKind) Flags() StatusFlags {
	return statusKindFlags[k]
}

// KindsWhere returns the kinds whose flags satisfy pred.
func KindsWhere(pred func(StatusFlags) bool) []StatusKind {
	var kinds []StatusKind
	for _, k := range StatusKinds() {
		if pred(k.Flags()) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// ReopenableKinds returns the kinds a requester may reopen from.
func ReopenableKinds() []StatusKind {
	return KindsWhere(func(f StatusFlags) bool { return f.AllowsReopen })
}

// FinalKinds returns the kinds counted as finalized.
func FinalKinds() []StatusKind {
	return KindsWhere(func(f StatusFlags) bool { return f.Final })
}

// Status is a named lifecycle stage.
type Status struct {
	ID   string
	Name string
	Kind StatusKind
}

func (s Status) IsInitial() bool    { return s.Kind.Flags().Initial }
func (s Status) IsInProgress() bool { return s.Kind.Flags().InProgress }
func (s Status) IsFinal() bool      { return s.Kind.Flags().Final }
func (s Status) AllowsReopen() bool { return s.Kind.Flags().AllowsReopen }

// ProblemType classifies what went wrong with a device.
type ProblemType struct {
	ID   string
	Name string
}
