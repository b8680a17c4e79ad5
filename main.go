/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

*/
package main

import "github.com/renotari/karaoke-player-sub002/cmd"

func main() {
	cmd.Execute()
}
