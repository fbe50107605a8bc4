package session

import "context"

// Store persists session records. Get returns (nil, nil) when the session
// does not exist; errors are reserved for backend failures.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, s *Session) error
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Session, error)
}
