package schema

import (
	am "github.com/pancsta/asyncmachine-go/pkg/machine"
)

// aliases

type S = am.S
type State = am.State

var (
	SchemaMerge = am.SchemaMerge
	StateAdd    = am.StateAdd
	SAdd        = am.SAdd
	Exception   = am.StateException
)
