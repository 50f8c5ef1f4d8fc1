package main

import "github.com/quocvuong92/spconsole/cmd"

func main() {
	cmd.Execute()
}
