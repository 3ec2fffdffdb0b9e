package services

import "ridezon-backend/internal/models"

// IsMember reports whether the user belongs to the ride's group: the
// user is the creator, a connected passenger, or has an ACCEPTED join
// request. Membership is derived, never stored, so it is always
// recomputed from the ride snapshot: accepting or rejecting a request
// takes effect on the very next check.
//
// Identity matching is deliberately permissive: different relation paths
// populate different identifier subsets, so a single matching id, email,
// name or phone (trimmed, case-folded) is enough. A user with no
// populated identifiers matches nothing.
//
// Pure function, no side effects, safe to call concurrently.
func IsMember(user models.Identity, ride *models.Ride) bool {
	if ride == nil || len(user.Keys()) == 0 {
		return false
	}

	if ride.Creator != nil && user.Matches(*ride.Creator) {
		return true
	}
	if user.Matches(models.Identity{ID: ride.CreatorID}) {
		return true
	}

	for _, passenger := range ride.Passengers {
		if user.Matches(passenger) {
			return true
		}
	}

	for _, req := range ride.Requests {
		if req.Status != models.RequestAccepted {
			continue
		}
		if user.Matches(models.Identity{ID: req.UserID}) {
			return true
		}
		if req.User != nil && user.Matches(*req.User) {
			return true
		}
	}

	return false
}
