// Public domain.

package main

import "github.com/saft-obs/saftlog/internal/alprog"

func main() {
	alprog.Main()
}
