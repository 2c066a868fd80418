package main

import (
	"us-bars/internal/app"
	"us-bars/internal/saver"
	"us-bars/internal/validate"
)

// App holds application dependencies built by Wire.
type App struct {
	Config    *app.Config
	Saver     saver.TableSaver
	Validator *validate.Validator
}
