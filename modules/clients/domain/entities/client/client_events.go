package client

// CreatedEvent is published after a client has been stored.
type CreatedEvent struct {
	Result Client
}

// UpdatedEvent carries the client before and after the change.
type UpdatedEvent struct {
	Before Client
	Result Client
}

type DeletedEvent struct {
	Result Client
}
