package authorization

import "context"

// Service decides whether an actor role may perform an action on an object.
type Service interface {
	Authorize(ctx context.Context, role string, object string, action string) error
}
