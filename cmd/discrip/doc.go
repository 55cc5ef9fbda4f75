// Package main hosts the discrip CLI entrypoint and command graph.
//
// Running discrip with no subcommand rips the disc in the located drive once
// and exits with a status describing the outcome. The remaining commands
// inspect the resolved configuration, the drive, the hook directory, and the
// run history, or keep the process alive to rip every inserted disc.
//
// Stdout carries the progress stream that hook scripts and log scrapers
// consume; structured logs go to stderr. Keep that split intact when adding
// commands.
package main
