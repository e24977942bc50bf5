package shared

import (
	"context"

	amhelp "github.com/pancsta/asyncmachine-go/pkg/helpers"
	am "github.com/pancsta/asyncmachine-go/pkg/machine"
)

// APrefix is the args prefix of the framework layer.
const APrefix = "studai"

// DocRef points to an uploaded document on the local filesystem.
type DocRef struct {
	Path    string
	Name    string
	Caption string
}

// A is a struct for framework-level arguments. It's a typesafe alternative
// to [am.A], and agents embed it in their own args structs.
type A struct {
	// Prompt is raw text sent by the user.
	Prompt string `log:"prompt"`
	// BtnId is the id of a pressed inline button.
	BtnId string `log:"btn_id"`
	// ChatId routes the mutation to / from a specific chat.
	ChatId int64 `log:"chat_id"`
	// Msg is an outbound chat message.
	Msg *Msg
	// Doc is an inbound document upload.
	Doc *DocRef
	// IntByTimeout marks an interruption caused by a timeout.
	IntByTimeout bool

	// non-RPC args

	// DBQuery is a lazy SQL query, executed once the DB is ready.
	DBQuery func(ctx context.Context) error
}

// ARpc is a subset of [A] that can be passed over RPC (no channels, funcs).
type ARpc struct {
	Prompt       string `log:"prompt"`
	BtnId        string `log:"btn_id"`
	ChatId       int64  `log:"chat_id"`
	Msg          *Msg
	Doc          *DocRef
	IntByTimeout bool
}

// ParseArgs extracts A from [am.Event.Args][APrefix] (decoder).
func ParseArgs(args am.A) *A {
	// RPC-only args (pointer)
	if r, ok := args[APrefix].(*ARpc); ok {
		return amhelp.ArgsToArgs(r, &A{})
	}

	// RPC-only args (value, eg from a network transport)
	if r, ok := args[APrefix].(ARpc); ok {
		return amhelp.ArgsToArgs(&r, &A{})
	}

	// regular args (pointer)
	if a, _ := args[APrefix].(*A); a != nil {
		return a
	}

	return &A{}
}

// Pass prepares [am.A] from A to be passed to further mutations (encoder).
func Pass(args *A) am.A {
	return am.A{APrefix: args}
}

// PassRpc is a network-safe version of Pass.
func PassRpc(args *A) am.A {
	return am.A{APrefix: amhelp.ArgsToArgs(args, &ARpc{})}
}

// LogArgs is an args logger for A.
func LogArgs(args am.A) map[string]string {
	a := ParseArgs(args)
	if a == nil {
		return nil
	}

	return amhelp.ArgsToLogMap(a, 0)
}
