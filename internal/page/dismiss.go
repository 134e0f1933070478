package page

// DismissState tracks the one-shot outside-click listener of an open dropdown.
type DismissState string

const (
	DismissIdle  DismissState = "idle"
	DismissArmed DismissState = "armed"
	DismissFired DismissState = "fired"
)

// DismissSubscription fires at most once per Arm.
type DismissSubscription struct {
	state DismissState
}

func NewDismissSubscription() *DismissSubscription {
	return &DismissSubscription{state: DismissIdle}
}

func (d *DismissSubscription) Arm() {
	d.state = DismissArmed
}

// Fire reports whether the subscription was armed. An armed subscription
// moves to fired and ignores every later call.
func (d *DismissSubscription) Fire() bool {
	if d.state != DismissArmed {
		return false
	}
	d.state = DismissFired
	return true
}

// Cancel deregisters without firing.
func (d *DismissSubscription) Cancel() {
	if d.state == DismissArmed {
		d.state = DismissIdle
	}
}

func (d *DismissSubscription) State() DismissState {
	return d.state
}
