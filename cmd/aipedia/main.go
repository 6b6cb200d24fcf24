package main

import (
	"aipedia/cmd/handlers"
	"aipedia/internal/logger"
)

func main() {
	logger.Init() // Initialize the logger
	handlers.Execute()
}
