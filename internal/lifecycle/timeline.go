package lifecycle

import "github.com/safehold/escrowpay/internal/models"

// TimelineStep is one milestone on the happy-path stepper.
type TimelineStep struct {
	Status models.EscrowStatus `json:"status"`
	Label  string              `json:"label"`
	Icon   string              `json:"icon"`
}

var timelineSteps = []TimelineStep{
	{Status: models.StatusPending, Label: "Created", Icon: "clock"},
	{Status: models.StatusAccepted, Label: "Accepted", Icon: "handshake"},
	{Status: models.StatusFunded, Label: "Funded", Icon: "lock"},
	{Status: models.StatusDelivered, Label: "Delivered", Icon: "package"},
	{Status: models.StatusCompleted, Label: "Completed", Icon: "check"},
	{Status: models.StatusPaidOut, Label: "Paid Out", Icon: "banknote"},
}

// TimelineSteps returns the fixed six-step happy path, in order.
func TimelineSteps() []TimelineStep {
	steps := make([]TimelineStep, len(timelineSteps))
	copy(steps, timelineSteps)
	return steps
}

// StepIndex maps a status to its position on the stepper. cancelled, disputed
// and unknown statuses have no position and return -1; they render as a
// terminal banner instead.
func StepIndex(status models.EscrowStatus) int {
	for i, step := range timelineSteps {
		if step.Status == status {
			return i
		}
	}
	return -1
}

var progress = map[models.EscrowStatus]int{
	models.StatusPending:   16,
	models.StatusAccepted:  33,
	models.StatusFunded:    50,
	models.StatusDelivered: 66,
	models.StatusCompleted: 83,
	models.StatusPaidOut:   100,
	models.StatusCancelled: 0,
	models.StatusDisputed:  50,
}

// ProgressPercent maps a status to its stepper progress. disputed sits at the
// midpoint, signaling stopped partway; unknown statuses report 0.
func ProgressPercent(status models.EscrowStatus) int {
	return progress[status]
}
