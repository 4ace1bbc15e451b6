package main

import (
	"clarify/cmd/handlers"
	"clarify/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
