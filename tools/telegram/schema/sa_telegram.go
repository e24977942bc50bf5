// Package schema contains a stateful schema-v2 for the Telegram tool.
package schema

import (
	am "github.com/pancsta/asyncmachine-go/pkg/machine"

	baseschema "github.com/pancsta/studai/schema"
)

type S = am.S

// TelegramStatesDef contains all the states of the Telegram tool machine.
type TelegramStatesDef struct {
	*am.StatesBase

	// Polling is the long-poll loop for inbound updates.
	Polling string

	// inherit from ToolStatesDef
	*baseschema.ToolStatesDef
}

// TelegramGroupsDef contains all the state groups of the Telegram tool.
type TelegramGroupsDef struct{}

// TelegramSchema represents all relations and properties of TelegramStates.
var TelegramSchema = am.SchemaMerge(
	// inherit from ToolSchema
	baseschema.ToolSchema,
	am.Schema{
		ssTg.Polling: {Require: S{ssTg.Ready}},

		// OVERRIDES

		ssTg.Ready: am.StateAdd(baseschema.ToolSchema[ssTg.Ready], am.State{
			Add: S{ssTg.Polling},
		}),
	})

// EXPORTS AND GROUPS

var (
	ssTg = am.NewStates(TelegramStatesDef{})
	sgTg = am.NewStateGroups(TelegramGroupsDef{})

	// TelegramStates contains all the states for the Telegram tool machine.
	TelegramStates = ssTg
	// TelegramGroups contains all the state groups for the Telegram tool.
	TelegramGroups = sgTg
)
