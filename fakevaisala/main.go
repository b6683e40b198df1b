// Public domain.

package main

import "github.com/saft-obs/saftlog/internal/fvprog"

func main() {
	fvprog.Main()
}
