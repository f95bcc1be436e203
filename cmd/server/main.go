package main

import (
	"github.com/commscope/backend/internal/server"
	"github.com/commscope/backend/internal/setup"
	"github.com/commscope/backend/internal/util"
)

func main() {
	util.LoadEnv()
	setup.Logger()

	server.Init()
}
