// Package commands decodes remote device messages of the form
// {"command": name, "data": {...}} into a closed set of typed
// commands, decoded once at the boundary and matched exhaustively.
package commands

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Type string

const (
	TypeStartInterval Type = "start_interval"
	TypeStartTask     Type = "start_task"
	TypeCancel        Type = "cancel"
	TypeSync          Type = "sync"
	// TypeUnknown is the only place a protocol error surfaces: the
	// message is reported and ignored, never applied partially.
	TypeUnknown Type = "unknown"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeMalformedJSON   ErrorCode = "malformed_json"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type StartIntervalArgs struct {
	Deadline   int
	ActivityID int64
	Note       string
	HasNote    bool
}

type StartTaskArgs struct {
	Deadline   int
	ActivityID int64
	TaskID     int64
}

type Command struct {
	Type          Type
	Raw           string
	StartInterval *StartIntervalArgs
	StartTask     *StartTaskArgs
	// Unknown holds the unrecognized command name.
	Unknown string
}

type envelope struct {
	Command string          `json:"command"`
	Data    json.RawMessage `json:"data"`
}

type startIntervalData struct {
	Deadline   *int    `json:"deadline"`
	ActivityID *int64  `json:"activity_id"`
	Note       *string `json:"note"`
}

type startTaskData struct {
	Deadline   *int   `json:"deadline"`
	ActivityID *int64 `json:"activity_id"`
	TaskID     *int64 `json:"task_id"`
}

// Decode parses one raw message. An unrecognized command name decodes
// successfully into TypeUnknown; only malformed JSON or missing
// required fields fail.
func Decode(raw []byte) (Command, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "message is empty"}
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Command{}, &CommandError{Code: ErrCodeMalformedJSON, Message: err.Error()}
	}
	if env.Command == "" {
		return Command{}, &CommandError{Code: ErrCodeMalformedJSON, Message: "missing command name"}
	}

	switch Type(env.Command) {
	case TypeStartInterval:
		return decodeStartInterval(string(raw), env.Data)
	case TypeStartTask:
		return decodeStartTask(string(raw), env.Data)
	case TypeCancel:
		return Command{Type: TypeCancel, Raw: string(raw)}, nil
	case TypeSync:
		return Command{Type: TypeSync, Raw: string(raw)}, nil
	default:
		return Command{Type: TypeUnknown, Raw: string(raw), Unknown: env.Command}, nil
	}
}

func decodeStartInterval(raw string, data json.RawMessage) (Command, error) {
	var d startIntervalData
	if len(data) > 0 {
		if err := json.Unmarshal(data, &d); err != nil {
			return Command{}, &CommandError{Code: ErrCodeMalformedJSON, Message: err.Error()}
		}
	}
	if d.Deadline == nil || d.ActivityID == nil {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "start_interval requires deadline and activity_id"}
	}
	args := &StartIntervalArgs{Deadline: *d.Deadline, ActivityID: *d.ActivityID}
	if d.Note != nil {
		args.Note = *d.Note
		args.HasNote = true
	}
	return Command{Type: TypeStartInterval, Raw: raw, StartInterval: args}, nil
}

func decodeStartTask(raw string, data json.RawMessage) (Command, error) {
	var d startTaskData
	if len(data) > 0 {
		if err := json.Unmarshal(data, &d); err != nil {
			return Command{}, &CommandError{Code: ErrCodeMalformedJSON, Message: err.Error()}
		}
	}
	if d.Deadline == nil || d.ActivityID == nil || d.TaskID == nil {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "start_task requires deadline, activity_id and task_id"}
	}
	return Command{
		Type: TypeStartTask,
		Raw:  raw,
		StartTask: &StartTaskArgs{
			Deadline:   *d.Deadline,
			ActivityID: *d.ActivityID,
			TaskID:     *d.TaskID,
		},
	}, nil
}
