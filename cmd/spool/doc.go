// Command spool is the CLI for the spool download daemon.
package main
