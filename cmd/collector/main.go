package main

import "github.com/agromonitor/copernicus/internal/cli"

func main() {
	cli.Execute()
}
