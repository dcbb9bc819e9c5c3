// Package security decides at startup which sandboxing primitives the host
// supports and whether that is enough for Secure Validator Mode.
//
// Probing is delegated to the worker binary: each capability is tested by a
// short-lived worker process started with a self-test flag, so the result
// reflects what a real job would get. Missing Landlock is tolerated when the
// worker can unshare a user namespace and change root, and vice versa.
// Missing seccomp is never tolerated.
//
// The package also offers a best-effort seccomp violation monitor that reads
// the system audit log after a job has finished.
package security
