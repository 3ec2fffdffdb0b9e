package main

import "ridezon-backend/cmd"

func main() {
	cmd.Run()
}
