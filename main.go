package main

import "github.com/flameberry/PrimePatrol/cmd"

//go:generate swag init -g main.go -o docs

// @title PrimePatrol API
// @version 1.0
// @description Civic issue reporting: posts, workers and users.
// @BasePath /api/v1
func main() {
	cmd.Execute()
}
