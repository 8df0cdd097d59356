package main

import "github.com/clinicops/clinic-console/cmd"

func main() {
	cmd.Execute()
}
