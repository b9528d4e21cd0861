package domain

import "fmt"

// UnknownOccurrenceError is returned by the Controller when a command names
// an occurrence id with no matching record.
type UnknownOccurrenceError struct {
	OccurrenceID string
}

func (e *UnknownOccurrenceError) Error() string {
	return fmt.Sprintf("unknown occurrence: %s", e.OccurrenceID)
}

// UnknownTaskError is returned by the Controller when a command names a task
// id with no matching record.
type UnknownTaskError struct {
	TaskID string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("unknown task: %s", e.TaskID)
}

// InvalidNotifyChannelError is returned by the notifier's handler registry
// when a task names a notify_channel with no registered handler.
type InvalidNotifyChannelError struct {
	Channel string
}

func (e *InvalidNotifyChannelError) Error() string {
	return fmt.Sprintf("invalid notify channel: %s", e.Channel)
}
