/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

// CommunicationFailure is the only error kind the controller surfaces. It
// wraps whatever went wrong talking to the answering service.
type CommunicationFailure struct {
	Err error
}

func (e *CommunicationFailure) Error() string {
	if e.Err == nil {
		return "communication failure"
	}
	return "communication failure: " + e.Err.Error()
}

func (e *CommunicationFailure) Unwrap() error {
	return e.Err
}
