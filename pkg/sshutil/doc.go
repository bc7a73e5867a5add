// Package sshutil provides the SSH/SFTP client plumbing used by remote
// publish targets.
//
// It manages a single pooled SSH connection per provider instance and
// exposes two views of it: an SFTP-backed FileSystem for writing rendered
// zone files, and a CommandRunner for running reload commands on the
// remote host.
//
// Authentication supports private key files, inline key material, and
// passwords. Host keys are verified against a known_hosts file when one
// is configured; otherwise verification is skipped with a warning.
package sshutil
