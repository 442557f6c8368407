package main

import "github.com/liugang926/HOOK-GZEAMS-sub000/cmd"

func main() {
	cmd.Execute()
}
