//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"us-bars/internal/app"
)

// InitializeApp builds App (Config + Saver + Validator) via Wire.
func InitializeApp() (*App, error) {
	wire.Build(
		app.ProvideConfig,
		app.ProvideTableSaver,
		app.ProvideValidator,
		wire.Struct(new(App), "Config", "Saver", "Validator"),
	)
	return nil, nil
}
