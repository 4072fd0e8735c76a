package utils

import (
	"slices"

	"loopbot/command"
	"loopbot/model"
)

// AccessFor resolves the command access level of a guild member.
func AccessFor(auth model.Auth, userID string, roles []string) command.Access {
	if auth.OwnerID != "" && auth.OwnerID == userID {
		return command.Owner
	}
	for _, role := range roles {
		if slices.Contains(auth.AdminRoleIDs, role) {
			return command.Admin
		}
	}
	return command.Everyone
}
