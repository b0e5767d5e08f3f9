package policy

// AccessStore is the subset of storage the gate consults.
type AccessStore interface {
	IsAdmin(userID int64) (bool, error)
	IsBanned(userID int64, username string) (bool, error)
}

// Gate combines admin status, ban status, and the cooldown into a single
// admission decision for an incoming message.
type Gate struct {
	store    AccessStore
	cooldown *Cooldown
}

// NewGate builds a Gate over the given store and cooldown limiter.
func NewGate(store AccessStore, cooldown *Cooldown) *Gate {
	return &Gate{store: store, cooldown: cooldown}
}

// Decision is the outcome of admitting a single message.
type Decision struct {
	Admin   bool // sender is an admin
	Banned  bool // sender is banned (and not an admin)
	Limited bool // sender is inside the cooldown window (and not an admin)
}

// Allowed reports whether the message should be handled at all.
func (d Decision) Allowed() bool {
	return !d.Banned && !d.Limited
}

// Admit evaluates a sender. Admins bypass both the ban list and the
// cooldown. For everyone else, a ban wins over the cooldown so a banned
// user's messages never consume cooldown tokens.
func (g *Gate) Admit(userID int64, username string) (Decision, error) {
	admin, err := g.store.IsAdmin(userID)
	if err != nil {
		return Decision{}, err
	}
	if admin {
		return Decision{Admin: true}, nil
	}

	banned, err := g.store.IsBanned(userID, username)
	if err != nil {
		return Decision{}, err
	}
	if banned {
		return Decision{Banned: true}, nil
	}

	if g.cooldown != nil && !g.cooldown.Allow(userID) {
		return Decision{Limited: true}, nil
	}
	return Decision{}, nil
}
