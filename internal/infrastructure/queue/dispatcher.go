// Package queue runs batches of task operations on a fixed set of workers.
package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
)

// Job is one operation on a single task.
type Job struct {
	TaskID int64
	Run    func(ctx context.Context) error
}

// Result is the outcome of the job at the same index.
type Result struct {
	TaskID int64
	Err    error
}

// Dispatcher routes jobs to workers by consistent hashing on the task id:
// jobs for different tasks run concurrently, jobs for the same task run in
// submission order.
type Dispatcher struct {
	workers int
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	return &Dispatcher{
		workers: numWorkers,
		log:     log.With().Str("component", "dispatcher").Logger(),
	}
}

// Run executes jobs and blocks until all of them finished. Jobs not yet
// started when ctx is cancelled report ctx.Err().
func (d *Dispatcher) Run(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	shards := make([]chan int, min(d.workers, len(jobs)))
	var wg sync.WaitGroup
	for i := range shards {
		shards[i] = make(chan int, channelBuffer)
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.runWorker(ctx, i, shards[i], jobs, results)
		}()
	}

	for i, job := range jobs {
		shards[shardIndex(job.TaskID, len(shards))] <- i
	}
	for _, ch := range shards {
		close(ch)
	}
	wg.Wait()
	return results
}

// shardIndex maps a task id deterministically to a worker index.
func shardIndex(taskID int64, n int) int {
	h := fnv.New32a()
	_, _ = h.Write(strconv.AppendInt(nil, taskID, 10))
	return int(h.Sum32() % uint32(n))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan int, jobs []Job, results []Result) {
	for idx := range ch {
		job := jobs[idx]
		if err := ctx.Err(); err != nil {
			results[idx] = Result{TaskID: job.TaskID, Err: err}
			continue
		}
		err := job.Run(ctx)
		if err != nil {
			d.log.Debug().Err(err).
				Int64("task_id", job.TaskID).
				Int("worker_id", id).
				Msg("job failed")
		}
		results[idx] = Result{TaskID: job.TaskID, Err: err}
	}
}
