package contract

import "errors"

var (
	ErrModelInvoke        = errors.New("model invoke failed")
	ErrSchemaViolation    = errors.New("model response violates schema")
	ErrValidation         = errors.New("validation failed")
	ErrClassification     = errors.New("intent classification failed")
	ErrPlanning           = errors.New("action planning failed")
	ErrCapabilityNotFound = errors.New("capability not registered")
	ErrHandlerTimeout     = errors.New("handler timed out")
	ErrRepository         = errors.New("record query failed")
	ErrStoreWrite         = errors.New("conversation store write failed")
)
