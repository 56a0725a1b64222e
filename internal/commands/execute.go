package commands

import "fmt"

// Result carries the acknowledgment payload returned to the sender.
// Every recognized command acks with an empty JSON object.
type Result struct {
	Ack string
}

var okResult = Result{Ack: "{}"}

func OK() Result {
	return okResult
}

type Handlers struct {
	StartInterval func(StartIntervalArgs) (Result, error)
	StartTask     func(StartTaskArgs) (Result, error)
	Cancel        func() (Result, error)
	Sync          func() (Result, error)
	// Unknown receives the unrecognized command name; it reports to
	// diagnostics and the command is otherwise ignored.
	Unknown func(name string)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeStartInterval:
		if handlers.StartInterval == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "start_interval handler not configured"}
		}
		return handlers.StartInterval(*cmd.StartInterval)
	case TypeStartTask:
		if handlers.StartTask == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "start_task handler not configured"}
		}
		return handlers.StartTask(*cmd.StartTask)
	case TypeCancel:
		if handlers.Cancel == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "cancel handler not configured"}
		}
		return handlers.Cancel()
	case TypeSync:
		if handlers.Sync == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "sync handler not configured"}
		}
		return handlers.Sync()
	case TypeUnknown:
		if handlers.Unknown != nil {
			handlers.Unknown(cmd.Unknown)
		}
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", cmd.Unknown)}
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}
