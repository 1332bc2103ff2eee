package memregion

import "log"

// DefaultExitFn is invoked by functions and methods ending in the
// "OrExit" suffix when an error occurs. Tests override it to capture
// the error instead of terminating the process.
var DefaultExitFn = func(err error) {
	log.Fatalln(err)
}
