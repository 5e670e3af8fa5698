package jwttoken

import (
	"caseflow/internal/platform/middleware"
	"caseflow/pkg/requestcontext"
)

// JWTServiceAdapter exposes the token service through the middleware's
// validator interface, translating claims into an actor identity.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (requestcontext.ActorIdentity, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return requestcontext.ActorIdentity{}, err
	}
	actorID, err := claims.ParsedActorID()
	if err != nil {
		return requestcontext.ActorIdentity{}, err
	}
	return requestcontext.ActorIdentity{ID: actorID, Name: claims.ActorName}, nil
}

var _ middleware.ActorValidator = (*JWTServiceAdapter)(nil)
