// Public domain.

package main

import "github.com/saft-obs/saftlog/internal/acqprog"

func main() {
	acqprog.Main()
}
