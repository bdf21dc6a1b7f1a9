package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v2"
)

func TestNewCLIApp_Commands(t *testing.T) {
	app := newCLIApp()

	assert.Equal(t, serviceName, app.Name)
	assert.NotNil(t, app.Action, "running without a command must serve")
	for _, name := range []string{"serve", "migrate", "reload"} {
		assert.NotNil(t, app.Command(name), name)
	}
}

func TestNewCLIApp_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Chdir(t.TempDir())

	app := newCLIApp()
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run([]string{serviceName, "migrate"})
	assert.ErrorContains(t, err, "DATABASE_URL")
}
