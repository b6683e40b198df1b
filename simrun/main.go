// Public domain.

package main

import "github.com/saft-obs/saftlog/internal/simprog"

func main() {
	simprog.Main()
}
