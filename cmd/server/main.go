package main

import (
	"github.com/act-placemat/loom/internal/server"
	"github.com/act-placemat/loom/internal/util"
	"github.com/act-placemat/loom/pkg/logger"
	"github.com/act-placemat/loom/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
