package models

// TrackerStepReturn is the name of the synthetic step appended for returns
const TrackerStepReturn = "return"

// TrackerStep is one node of the order progress indicator
type TrackerStep struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	IsCompleted bool   `json:"isCompleted"`
	IsActive    bool   `json:"isActive"`
}

// BuildTrackerSteps renders the progress steps for an order.
// Steps before the current status are completed and the current one is active.
// A cancelled order shows the regular steps untouched plus an active cancelled step.
// When returnStatus is set a return step is appended, completed once the
// return completes and active otherwise.
func BuildTrackerSteps(status OrderStatus, returnStatus *ReturnStatus) []TrackerStep {
	current := -1
	for i, s := range orderTrackerSequence {
		if s == status {
			current = i
			break
		}
	}

	steps := make([]TrackerStep, 0, len(orderTrackerSequence)+1)
	for i, s := range orderTrackerSequence {
		steps = append(steps, TrackerStep{
			Name:        string(s),
			Label:       s.DisplayName(),
			IsCompleted: current >= 0 && i < current,
			IsActive:    i == current,
		})
	}

	if status == OrderStatusCancelled {
		steps = append(steps, TrackerStep{
			Name:     string(OrderStatusCancelled),
			Label:    OrderStatusCancelled.DisplayName(),
			IsActive: true,
		})
	}

	if returnStatus != nil {
		done := *returnStatus == ReturnStatusCompleted
		steps = append(steps, TrackerStep{
			Name:        TrackerStepReturn,
			Label:       returnStatus.DisplayName(),
			IsCompleted: done,
			IsActive:    !done,
		})
	}
	return steps
}
