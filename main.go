package main

import "github.com/ahmed-abdelmageed/vise-services-sub001/cmd"

func main() {
	cmd.Execute()
}
