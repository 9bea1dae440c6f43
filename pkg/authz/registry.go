package authz

const (
	RoleAdministrator = "administrator"
	RoleContributor   = "contributor"
	RoleAnonymous     = "anonymous"
)

const (
	ActionRead    = "read"
	ActionWrite   = "write"
	ActionExecute = "execute"
)

const (
	ObjectRules    = "manifestmod.rules"
	ObjectEvaluate = "manifestmod.evaluate"
)
