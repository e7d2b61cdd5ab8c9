// Command persistdsctl is a thin cobra-based CLI over package persistds: it
// opens the engine, dispatches one subcommand, and closes it. All
// data-structure semantics live in the library; this package only parses
// flags and formats output, per sirgallo-mari's separation of the engine
// package from any CLI and joshuapare-hivekit's cmd/hivectl layering.
package main

func main() {
	execute()
}
