package rbac

import "errors"

var (
	// ErrUnknownPermission is returned when a role references a permission
	// identifier that is not part of the catalog.
	ErrUnknownPermission = errors.New("unknown permission identifier")

	// ErrRoleNotFound is returned when a role cannot be found by name or ID.
	ErrRoleNotFound = errors.New("role not found")

	// ErrRoleExists is returned when attempting to create a role whose name is taken.
	ErrRoleExists = errors.New("role already exists")

	// ErrSystemRoleImmutable is returned when attempting to rename or delete a system role.
	ErrSystemRoleImmutable = errors.New("system role cannot be renamed or deleted")

	// ErrAssignmentExists is returned when a user already holds the role being assigned.
	ErrAssignmentExists = errors.New("role already assigned to user")

	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrTeamNotFound is returned when a referenced team does not exist.
	ErrTeamNotFound = errors.New("team not found")

	// ErrInvalidTeamRole is returned when a team role outside the fixed ladder is given.
	ErrInvalidTeamRole = errors.New("invalid team role")

	// ErrMembershipExists is returned when the user already has an active membership in the team.
	ErrMembershipExists = errors.New("user is already a member of the team")

	// ErrMembershipNotFound is returned when no active membership exists for the (user, team) pair.
	ErrMembershipNotFound = errors.New("team membership not found")

	// ErrLastOwner is returned when demoting or removing the sole remaining OWNER
	// of a team. Ownership must be transferred first.
	ErrLastOwner = errors.New("cannot demote or remove the last owner of a team; transfer ownership first")
)
