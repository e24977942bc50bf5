package schema

import (
	am "github.com/pancsta/asyncmachine-go/pkg/machine"

	base "github.com/pancsta/studai/schema"
)

// aliases

type S = am.S

var SchemaMerge = am.SchemaMerge

// ///// ///// /////

// ///// STATES

// ///// ///// /////

// BotStatesDef contains all the states of the Bot agent machine.
type BotStatesDef struct {
	*am.StatesBase

	// InUpdate is a normalized inbound chat update from the transport.
	InUpdate string

	// inherit from AgentBase
	*base.AgentBaseStatesDef
}

// BotGroupsDef contains all the state groups of the Bot agent machine.
type BotGroupsDef struct{}

// BotSchema represents all relations and properties of BotStates.
var BotSchema = SchemaMerge(
	// inherit from AgentBase
	base.AgentSchema,
	am.Schema{

		ssB.InUpdate: {
			Multi:   true,
			Require: S{ssB.Start},
		},
	})

// EXPORTS AND GROUPS

var (
	ssB = am.NewStates(BotStatesDef{})
	sgB = am.NewStateGroups(BotGroupsDef{})

	// BotStates contains all the states for the Bot machine.
	BotStates = ssB
	// BotGroups contains all the state groups for the Bot machine.
	BotGroups = sgB
)
