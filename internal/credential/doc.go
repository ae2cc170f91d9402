// Package credential stores connector secrets in the operating system
// keyring.
package credential
