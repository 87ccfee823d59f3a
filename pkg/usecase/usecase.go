package usecase

import (
	"github.com/secmon-lab/kizuna/pkg/domain/interfaces"
)

type UseCases struct {
	Session *SessionUseCase
}

func New(backend interfaces.Backend, credentials interfaces.CredentialStore, cache interfaces.Cache, opts ...SessionOption) *UseCases {
	return &UseCases{
		Session: NewSessionUseCase(backend, credentials, cache, opts...),
	}
}
