/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/kmorran/ancf/cmd/ancf/cmd"
)

func main() {
	cmd.Execute()
}
