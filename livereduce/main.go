// Public domain.

package main

import "github.com/saft-obs/saftlog/internal/lrprog"

func main() {
	lrprog.Main()
}
