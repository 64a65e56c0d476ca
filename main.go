/*
Copyright © 2024 Dean
*/
package main

import "github.com/TayoO/embedchain/cmd"

func main() {
	cmd.Execute()
}
