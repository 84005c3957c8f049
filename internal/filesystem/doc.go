/*
Package filesystem wraps the handful of filesystem calls the variant pipeline
makes (stat, open, remove, rename) with retry logic for NFS stale file
handle errors.

The storage directory is frequently an NFS export shared by several API
instances, and ESTALE (errno 116) shows up when a file handle is invalidated
by another client. Only ESTALE triggers a retry; every other error,
including os.ErrNotExist, is returned immediately so callers can apply their
own policy (the janitor treats a missing file as already removed).

Defaults (DefaultRetryConfig): 3 retries, 50ms initial backoff doubling up
to 500ms.

Operations are labeled with a volume name for metrics. The CLI registers
"storage" and "staging" with SetDefaultVolumeResolver and installs the
Prometheus observer with SetObserver; without an observer nothing is
recorded.
*/
package filesystem
