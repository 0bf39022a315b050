package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type BuildStatus string

const (
	StatusNotStarted BuildStatus = "NOT_STARTED"
	StatusRunning    BuildStatus = "RUNNING"
	StatusUnknown    BuildStatus = "UNKNOWN"
	StatusSuccess    BuildStatus = "SUCCESS"
)

// Terminal reports whether s is a completion result reported by the remote server.
func (s BuildStatus) Terminal() bool {
	switch s {
	case "", StatusNotStarted, StatusRunning, StatusUnknown:
		return false
	default:
		return true
	}
}

type Credential struct {
	Username string
	Password string
}

func (c Credential) String() string { return c.Username + ":" + c.Password }

// Anonymous is true for the ":" pair, which suppresses the Authorization header.
func (c Credential) Anonymous() bool { return c.String() == ":" }

type RemoteServer struct {
	Name             string
	Address          string
	TokenRootSupport bool
	Auth             Credential
}

type TriggerRequest struct {
	RemoteServer string
	Job          string
	Token        string
	Parameters   []string

	LoadParamsFromFile bool
	ParameterFile      string

	PreventRemoteBuildQueue bool
	BlockUntilComplete      bool
	PollInterval            time.Duration
	RetryLimit              int

	OverrideAuth bool
	Auth         Credential

	ShouldNotFailBuild bool
}

// Variables maps environment variable names to values.
type Variables map[string]string

func (v Variables) Merge(other Variables) {
	for k, val := range other {
		v[k] = val
	}
}

func (v Variables) Clone() Variables {
	out := make(Variables, len(v))
	out.Merge(v)
	return out
}

// Payload is a JSON object returned by the remote server.
type Payload struct {
	raw json.RawMessage
}

func ParsePayload(b []byte) (*Payload, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: response is not a JSON object", ErrParse)
	}
	return &Payload{raw: json.RawMessage(b)}, nil
}

func (p *Payload) Decode(v any) error {
	if err := json.Unmarshal(p.raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nil
}

func (p *Payload) String() string { return string(p.raw) }

// BuildInfo is the subset of a build (or lastBuild) document the poller reads.
type BuildInfo struct {
	Building bool    `json:"building"`
	Result   *string `json:"result"`
}

type JobInfo struct {
	NextBuildNumber *int `json:"nextBuildNumber"`
}

type Outcome struct {
	ID          string
	Server      string
	Job         string
	BuildNumber int
	Status      BuildStatus
	BuildURL    string
	Variables   Variables
	Err         error
	Started     time.Time
	Finished    time.Time
}

func (o Outcome) Failed() bool { return o.Err != nil }

type Snapshot struct {
	Outcome   Outcome
	Retrieved int64
}
