// Package filters removes camera noise from video cubes before inversion.
// Every filter implements video.Filter and returns a new cube, leaving its
// input untouched.
package filters

import (
	"runtime"
	"sync"
)

// forEachRow fans per-row pixel work out across GOMAXPROCS workers. The
// worker receives the row index.
func forEachRow(rows int, work func(i int)) {
	workers := runtime.GOMAXPROCS(0)
	if workers > rows {
		workers = rows
	}
	if workers <= 1 {
		for i := 0; i < rows; i++ {
			work(i)
		}
		return
	}

	var wg sync.WaitGroup
	ch := make(chan int, rows)
	for i := 0; i < rows; i++ {
		ch <- i
	}
	close(ch)

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range ch {
				work(i)
			}
		}()
	}
	wg.Wait()
}
