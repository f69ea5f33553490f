package health

import (
	"fmt"
	"sort"
	"time"
)

// severity orders status values; unknown values rank as unhealthy.
func severity(status string) int {
	switch status {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// NewHealthy returns a healthy status for component
func NewHealthy(component, message string) Status {
	return newStatus(component, StatusHealthy, message)
}

// NewUnhealthy returns an unhealthy status for component
func NewUnhealthy(component, message string) Status {
	return newStatus(component, StatusUnhealthy, message)
}

// NewDegraded returns a degraded status for component
func NewDegraded(component, message string) Status {
	return newStatus(component, StatusDegraded, message)
}

func newStatus(component, status, message string) Status {
	return Status{
		Component: component,
		Healthy:   status == StatusHealthy,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Aggregate takes the worst of subStatuses as the status of component.
// The message counts the components at that level. Sub-statuses are
// copied and ordered by component.
func Aggregate(component string, subStatuses []Status) Status {
	if len(subStatuses) == 0 {
		return NewHealthy(component, "No components reported")
	}

	worst, count := StatusHealthy, 0
	for _, sub := range subStatuses {
		switch s := severity(sub.Status); {
		case s > severity(worst):
			worst, count = sub.Status, 1
			if s == 2 {
				worst = StatusUnhealthy
			}
		case s == severity(worst):
			count++
		}
	}

	msg := fmt.Sprintf("%d of %d components %s", count, len(subStatuses), worst)
	status := newStatus(component, worst, msg)

	status.SubStatuses = make([]Status, len(subStatuses))
	copy(status.SubStatuses, subStatuses)
	sort.Slice(status.SubStatuses, func(i, j int) bool {
		return status.SubStatuses[i].Component < status.SubStatuses[j].Component
	})
	return status
}
