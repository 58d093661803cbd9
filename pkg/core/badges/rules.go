package badges

import (
	"github.com/cticu/cticu-schedule/pkg/core/model"
)

// Identity is who the badge is computed for
type Identity struct {
	Username   string
	Role       model.Role
	DoctorCode string
}

func IdentityFromUser(u model.User) Identity {
	return Identity{Username: u.Username, Role: u.Role, DoctorCode: u.DoctorCode}
}

func (i Identity) IsAdmin() bool {
	return i.Role == model.RoleAdmin
}

// SeenKey identifies one lifecycle stage of a request. A request that moves to a
// new status has a new key and counts as unseen again.
type SeenKey struct {
	ID     int64
	Status model.Status
}

func KeyOf(r model.ShiftChangeRequest) SeenKey {
	return SeenKey{ID: r.ID, Status: r.Status}
}

type SeenSet map[SeenKey]struct{}

func (s SeenSet) Has(k SeenKey) bool {
	_, ok := s[k]
	return ok
}

func (s SeenSet) Add(k SeenKey) {
	s[k] = struct{}{}
}

// CountUnseen applies the badge rule.
//
// Admins see the pending queue, regardless of seen state. Everyone else is
// notified of unseen requests they are part of: their own requests once resolved,
// and requests naming their doctor code in any status.
func CountUnseen(requests []model.ShiftChangeRequest, who Identity, seen SeenSet) int {
	count := 0
	for _, r := range requests {
		if who.IsAdmin() {
			if r.Status == model.StatusPending {
				count++
			}
			continue
		}
		if seen.Has(KeyOf(r)) {
			continue
		}
		if notifies(r, who) {
			count++
		}
	}
	return count
}

func notifies(r model.ShiftChangeRequest, who Identity) bool {
	if r.RequesterUsername == who.Username {
		return r.Status.IsResolved()
	}
	return r.Involves(who.DoctorCode)
}
