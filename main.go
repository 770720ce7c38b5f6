package main

import "lost-found-backend/cmd"

func main() {
	cmd.Run()
}
