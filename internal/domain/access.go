package domain

// CanView reports whether the user may read a ticket: admins see every
// ticket, regular users only their own.
func CanView(user *User, ticket *Ticket) bool {
	if user == nil || ticket == nil {
		return false
	}
	return user.IsAdmin() || ticket.CreatedBy == user.ID
}

// CanEdit shares the view rule; editing and appending interactions use the
// same gate.
func CanEdit(user *User, ticket *Ticket) bool {
	return CanView(user, ticket)
}

// CanDelete shares the view rule.
func CanDelete(user *User, ticket *Ticket) bool {
	return CanView(user, ticket)
}

// CanReassign reports whether the user may change a ticket's assignee away
// from its current value.
func CanReassign(user *User) bool {
	return user.IsAdmin()
}
