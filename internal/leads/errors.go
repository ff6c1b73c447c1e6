package leads

import "errors"

var (
	// ErrLeadNotFound is returned when a lead ID is unknown to the CRM
	ErrLeadNotFound = errors.New("lead not found")

	// ErrPreleadRequired is returned when a lead operation runs before a prelead exists
	ErrPreleadRequired = errors.New("no prelead registered")

	// ErrLeadRequired is returned when enrichment runs before a complete lead exists
	ErrLeadRequired = errors.New("no complete lead registered")

	// ErrInvalidData is returned when customer data fails validation
	ErrInvalidData = errors.New("invalid customer data")
)
