package testutil

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"caseflow/pkg/requestcontext"
)

// WithActor stamps an actor identity onto the request context, simulating
// what the auth middleware does for authenticated requests.
func WithActor(req *http.Request, actorID uuid.UUID, name string) *http.Request {
	ctx := requestcontext.WithActor(req.Context(),
		requestcontext.ActorIdentity{ID: actorID, Name: name})
	return req.WithContext(ctx)
}

// WithFixedTime pins the request clock, matching the RequestTime middleware.
func WithFixedTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
