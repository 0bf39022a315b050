package domain

import "context"

type ServerRegistry interface {
	Lookup(name string) (RemoteServer, bool)
}

// Expander resolves $VAR and ${VAR} references in text.
type Expander interface {
	Expand(text string) (string, error)
}

type ParamFileLoader interface {
	Load(ctx context.Context, path string) ([]string, error)
}

// RemoteExecutor performs one authenticated call. A nil payload with a nil
// error means the server answered with an empty body.
type RemoteExecutor interface {
	Send(ctx context.Context, method, url string) (*Payload, error)
}

type ExecutorFactory func(cred Credential, retryLimit int) RemoteExecutor

type Notifier interface {
	Notify(ctx context.Context, title, body, url string) error
}

type StatusCache interface {
	Write(ctx context.Context, s Snapshot) error
}

type AuditLog interface {
	Record(ctx context.Context, o Outcome) error
}

type VariableStore interface {
	Load() (Variables, error)
	Merge(vars Variables) error
}
