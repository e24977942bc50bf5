// Package schema contains a stateful schema-v2 for AgentBase and Tool.
package schema

import (
	am "github.com/pancsta/asyncmachine-go/pkg/machine"
	ssam "github.com/pancsta/asyncmachine-go/pkg/states"
)

// AgentBaseStatesDef contains all the states of the base agent state machine.
type AgentBaseStatesDef struct {
	*am.StatesBase

	// ERRORS

	ErrLLM   string
	ErrDB    string
	ErrStore string
	ErrTool  string

	// STATUS

	// Agent is currently requesting >=1 tools.
	RequestingTool string
	// Agent is currently requesting >=1 LLMs.
	RequestingLLM string
	// Requesting implies either RequestingTool or RequestingLLM being active.
	Requesting string

	// DB

	BaseDBStarting string
	BaseDBReady    string
	// BaseDBSaving is lazy query execution.
	BaseDBSaving string

	// ACTIONS

	// Prompt is the text the user has sent us.
	Prompt string
	// Msg will output the passed text to the chat.
	Msg string

	// inherit from BasicStatesDef
	*ssam.BasicStatesDef
	// inherit from DisposedStatesDef
	*ssam.DisposedStatesDef
}

// AgentBaseGroupsDef contains all the state groups of the base agent machine.
type AgentBaseGroupsDef struct{}

// AgentSchema represents all relations and properties of AgentBaseStates.
var AgentSchema = SchemaMerge(
	// inherit from BasicStruct
	ssam.BasicSchema,
	// inherit from DisposedStruct
	ssam.DisposedSchema,
	am.Schema{

		// ERRORS

		ssAB.ErrLLM: {
			Multi:   true,
			Require: S{Exception},
		},
		ssAB.ErrDB: {
			Multi:   true,
			Require: S{Exception},
		},
		ssAB.ErrStore: {
			Multi:   true,
			Require: S{Exception},
		},
		ssAB.ErrTool: {
			Multi:   true,
			Require: S{Exception},
		},

		// BASIC OVERRIDES

		ssAB.Start: {Add: S{ssAB.BaseDBStarting}},
		ssAB.Ready: {Require: S{ssAB.Start}},

		// STATUS

		ssAB.Requesting: {},
		ssAB.RequestingTool: {
			Multi: true,
			Add:   S{ssAB.Requesting},
		},
		ssAB.RequestingLLM: {
			Multi: true,
			Add:   S{ssAB.Requesting},
		},

		// DB

		ssAB.BaseDBStarting: {
			Require: S{ssAB.Start},
			Remove:  S{ssAB.BaseDBReady},
		},
		ssAB.BaseDBReady: {
			Require: S{ssAB.Start},
			Remove:  S{ssAB.BaseDBStarting},
		},
		ssAB.BaseDBSaving: {Multi: true},

		// ACTIONS

		ssAB.Prompt: {
			Multi:   true,
			Require: S{ssAB.Start},
		},
		ssAB.Msg: {
			Multi:   true,
			Require: S{ssAB.Start},
		},
	})

// EXPORTS AND GROUPS

// TagPrompt is for states with LLM prompts.
const TagPrompt = "prompt"

// TagFlow is for per-chat dialogue flow states.
const TagFlow = "flow"

var (
	ssAB = am.NewStates(AgentBaseStatesDef{})
	sgAB = am.NewStateGroups(AgentBaseGroupsDef{})

	// AgentBaseStates contains all the states for the base agent machine.
	AgentBaseStates = ssAB
	// AgentBaseGroups contains all the state groups for the base agent machine.
	AgentBaseGroups = sgAB
)

// ///// ///// /////

// ///// TOOL

// ///// ///// /////

// ToolStatesDef contains all the states of the Tool state machine.
type ToolStatesDef struct {
	*am.StatesBase

	// STATUS

	Working string
	Idle    string

	// inherit from BasicStatesDef
	*ssam.BasicStatesDef
	// inherit from DisposedStatesDef
	*ssam.DisposedStatesDef
}

// ToolGroupsDef contains all the state groups of the Tool state machine.
type ToolGroupsDef struct {
}

// ToolSchema represents all relations and properties of ToolStates.
var ToolSchema = SchemaMerge(
	// inherit from BasicStruct
	ssam.BasicSchema,
	// inherit from DisposedStruct
	ssam.DisposedSchema,
	am.Schema{

		// status

		ssT.Working: {
			Require: S{ssT.Ready},
			Remove:  S{ssT.Idle},
		},
		ssT.Idle: {
			Auto:    true,
			Require: S{ssT.Ready},
			Remove:  S{ssT.Working},
		},
	})

var (
	ssT = am.NewStates(ToolStatesDef{})
	sgT = am.NewStateGroups(ToolGroupsDef{})

	// ToolStates contains all the states for the Tool machine.
	ToolStates = ssT
	// ToolGroups contains all the state groups for the Tool machine.
	ToolGroups = sgT
)

// ///// ///// /////

// ///// COMMON APIS

// ///// ///// /////

// Paper is a single academic search result.
type Paper struct {
	Title    string `description:"The title of the paper."`
	Authors  string `description:"Formatted author list."`
	Abstract string `description:"A snippet of the abstract."`
	URL      string `description:"Link to the paper."`
}
