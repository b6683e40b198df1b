// Public domain.

package main

import "github.com/saft-obs/saftlog/internal/wxprog"

func main() {
	wxprog.Main()
}
