/*
Package workers sizes and runs the bounded fan-out used for variant
encoding.

# Sizing

Count and its helpers derive a worker count from GOMAXPROCS, which Go 1.19+
sets from the container CPU limit (runtime.NumCPU reports host CPUs and
would oversubscribe a limited pod):

	workers.ForCPU(8)   // 1 per CPU, at most 8
	workers.ForIO(8)    // 2 per CPU, at most 8
	workers.ForMixed(8) // 1.5 per CPU, at most 8

VARIANT_WORKERS pins the count for every helper; the limit still applies.

# Running

Run executes n indexed jobs on at most limit goroutines:

	results := make([]Output, len(jobs))
	err := workers.Run(ctx, len(jobs), limit, func(ctx context.Context, i int) error {
		out, err := process(jobs[i])
		results[i] = out
		return err
	})

Each job writes only its own slot, so the result order is the job order
whatever order the jobs finish in. The first failure is returned and
unstarted jobs are skipped.
*/
package workers
