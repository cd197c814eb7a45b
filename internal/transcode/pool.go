// Package transcode runs a bounded pool of ffmpeg workers that convert the
// MP3 clips found in an extracted batch into Opus, the format the GPU
// worker's transcription and classification stages operate on.
package transcode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const perFileTimeout = 120 * time.Second

// Job describes a single MP3-to-Opus conversion.
type Job struct {
	MP3Path  string
	OpusPath string
}

// Result reports the outcome of one conversion job.
type Result struct {
	Job           Job
	FileSizeBytes int64
	Err           error
}

// Pool converts MP3 clips to Opus across a fixed number of concurrent
// ffmpeg invocations, mirroring the pipeline's original per-file process
// pool without paying for a full subprocess worker per CPU.
type Pool struct {
	ffmpegBinary string
	bitrate      string
	workerCount  int
}

// NewPool builds a Pool that shells out to ffmpegBinary with the given Opus
// bitrate (e.g. "32k"), using workerCount concurrent conversions.
func NewPool(ffmpegBinary, bitrate string, workerCount int) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &Pool{ffmpegBinary: ffmpegBinary, bitrate: bitrate, workerCount: workerCount}
}

// Run converts every job, returning one Result per job in input order. A
// per-job failure does not halt the other jobs: it is reported as a
// non-nil Err on its Result so the caller can record a failed clip and
// continue, the same liveness guarantee the unpack worker needs when a
// handful of files in a large batch are corrupt.
func (p *Pool) Run(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	indices := make(chan int, len(jobs))
	for i := range jobs {
		indices <- i
	}
	close(indices)

	var wg sync.WaitGroup
	for w := 0; w < p.workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				results[i] = p.convert(ctx, jobs[i])
			}
		}()
	}
	wg.Wait()
	return results
}

func (p *Pool) convert(ctx context.Context, job Job) Result {
	if err := os.MkdirAll(filepath.Dir(job.OpusPath), 0o755); err != nil {
		return Result{Job: job, Err: fmt.Errorf("transcode: prepare output dir: %w", err)}
	}

	runCtx, cancel := context.WithTimeout(ctx, perFileTimeout)
	defer cancel()

	binary := strings.TrimSpace(p.ffmpegBinary)
	if binary == "" {
		binary = "ffmpeg"
	}

	cmd := exec.CommandContext(runCtx, binary,
		"-y",
		"-i", job.MP3Path,
		"-c:a", "libopus",
		"-b:a", p.bitrate,
		"-vn",
		job.OpusPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Result{Job: job, Err: fmt.Errorf("transcode: ffmpeg %s: %w: %s", job.MP3Path, err, strings.TrimSpace(string(output)))}
	}

	info, err := os.Stat(job.OpusPath)
	if err != nil {
		return Result{Job: job, Err: fmt.Errorf("transcode: missing output for %s: %w", job.MP3Path, err)}
	}
	return Result{Job: job, FileSizeBytes: info.Size()}
}
