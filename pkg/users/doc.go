// Package users holds the User aggregate: contact addresses, mobile push
// tokens and per-channel delivery settings, plus the commands that change
// them. Commands are executed through pkg/command.
package users
