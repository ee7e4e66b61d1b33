package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// ErrNotFound states a fact, not a failure: a missing entitlement row is a
// valid outcome. For validation errors (bad input, missing fields), use
// pkg/domainerrors.
var ErrNotFound = errors.New("not found")
