package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/hufs-wider/wider/internal/app"
)

func main() {
	// .envは開発用。存在しなくてもエラーにしない
	_ = godotenv.Load()

	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "wider: %v\n", err)
		os.Exit(1)
	}
}
