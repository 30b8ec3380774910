// Package process runs compiler subprocesses in their own group so that
// cancellation reaches helpers the engine spawned (mktexpk, shell escape),
// not only the direct child.
package process
