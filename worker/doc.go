// Package worker runs the poll-claim-execute-report loop. Workers are
// stateless between iterations; every pass re-reads the queue, so a
// restarted worker resumes exactly where the directory says things
// stand. A claim lost to another worker just moves on to the next
// pending task.
package worker
