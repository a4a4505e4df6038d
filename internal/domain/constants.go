package domain

const (
	// Payment methods accepted at checkout
	MethodPix        = "pix"
	MethodCreditCard = "credit_card"
	MethodBoleto     = "boleto"

	// Split roles
	RoleProducer   = "producer"
	RoleCoproducer = "coproducer"
	RoleAffiliate  = "affiliate"
	RolePlatform   = "platform"

	// Split statuses
	SplitStatusPending     = "PENDING"
	SplitStatusProcessed   = "PROCESSED"
	SplitStatusTransferred = "TRANSFERRED"

	// Fee rule scopes
	ScopeGlobal = "global"
	ScopeTenant = "tenant"
)

// IsValidMethod checks if the payment method is supported.
func IsValidMethod(method string) bool {
	switch method {
	case MethodPix, MethodCreditCard, MethodBoleto:
		return true
	default:
		return false
	}
}

// IsValidRole checks if the split role is supported.
func IsValidRole(role string) bool {
	switch role {
	case RoleProducer, RoleCoproducer, RoleAffiliate, RolePlatform:
		return true
	default:
		return false
	}
}
