package main

import (
	"os"

	"github.com/gzale/wrapcycle/internal/app"
)

func main() {
	os.Exit(app.NewRunner().Run(os.Args[1:]))
}
