package codes

// Error codes for the Consent Lifecycle Service
const (
	// General errors
	InternalServerError = "CSE-5000"
	DatabaseError       = "CSE-5001"
	ConfigurationError  = "CSE-5002"
	InvalidRequest      = "CSE-4000"
	ValidationError     = "CSE-4001"
	ResourceNotFound    = "CSE-4004"
	ConflictError       = "CSE-4009"

	// Dispatch and sweep errors, never surfaced to API callers
	DeliveryError  = "CSE-5040"
	PartitionError = "CSE-5041"
)
