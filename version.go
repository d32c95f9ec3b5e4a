package tendril

// Version is the library version, surfaced by the CLI.
var Version = "0.1.0"
