package domain

// Advised status transitions. Statuses not listed as a key are terminal.
// Whether these are enforced is a deployment choice; see
// LifecycleConfig.StrictTransitions.
var TicketTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:       {TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed, TicketStatusRejected},
	TicketStatusInProgress: {TicketStatusResolved, TicketStatusClosed, TicketStatusRejected},
	TicketStatusResolved:   {TicketStatusClosed},
}

var RequestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusPending:    {RequestStatusApproved, RequestStatusRejected},
	RequestStatusApproved:   {RequestStatusInProgress, RequestStatusCompleted, RequestStatusRejected},
	RequestStatusInProgress: {RequestStatusCompleted, RequestStatusRejected},
}

// IsAdvisedTicketTransition reports whether current -> next appears in TicketTransitions.
func IsAdvisedTicketTransition(current, next TicketStatus) bool {
	for _, candidate := range TicketTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsAdvisedRequestTransition reports whether current -> next appears in RequestTransitions.
func IsAdvisedRequestTransition(current, next RequestStatus) bool {
	for _, candidate := range RequestTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
