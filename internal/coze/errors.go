package coze

import (
	"errors"
	"fmt"
)

// ErrNoAnswer indicates the completed turn contained no assistant answer.
var ErrNoAnswer = errors.New("未找到智能体回复")

// ErrPollingTimeout indicates the in-progress poll budget was exhausted.
var ErrPollingTimeout = errors.New("轮询次数已用尽")

// RemoteError wraps a transport-level failure talking to the platform.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// APIError is a platform response with a non-zero business code.
type APIError struct {
	Op   string
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = "未知错误"
	}
	return fmt.Sprintf("%s: code %d: %s", e.Op, e.Code, msg)
}

// TurnIncompleteError is returned when polling stops at a terminal status
// other than completed.
type TurnIncompleteError struct {
	Status string
	Polls  int
}

func (e *TurnIncompleteError) Error() string {
	return fmt.Sprintf("对话未完成，状态: %s，重试次数: %d", e.Status, e.Polls)
}
