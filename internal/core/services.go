package core

import "github.com/rs/zerolog"

type Services struct {
	Fitness *FitnessService
}

func NewServices(db DB, provider FitnessProviderClient, verifiers VerifierStore, logger zerolog.Logger) *Services {
	return &Services{
		Fitness: NewFitnessService(db, provider, verifiers, logger),
	}
}
