package domain

import "errors"

var (
	ErrNoServer      = errors.New("no remote host is defined for this job")
	ErrTransport     = errors.New("connection to remote server failed")
	ErrEmptyResponse = errors.New("got a blank response from remote server")
	ErrParse         = errors.New("malformed response from remote server")
	ErrRemoteFailed  = errors.New("the remote job did not succeed")
	ErrInterrupted   = errors.New("wait for remote build interrupted")
	ErrInvalidInput  = errors.New("invalid input")
	ErrParamFile     = errors.New("cannot load parameter file")
)
