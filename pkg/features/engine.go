// Package features finds keypoints in a frame, and matches them up with
// the keypoints of another frame. The stitcher only sees it through the
// Engine interface, so tests can swap in a deterministic stub.
package features

import (
	"fmt"
	"sync"

	"github.com/abworrall/panostitch/pkg/emath"
	"github.com/abworrall/panostitch/pkg/raster"
)

// A Correspondence says that P1 in one image and P2 in the other are the
// same point in the scene. Score is the ratio-test value (best distance
// over second-best), so lower is better; 0 if unknown.
type Correspondence struct {
	P1, P2 emath.Point
	Score  float64
}

func (c Correspondence) String() string {
	return fmt.Sprintf("%s->%s", c.P1, c.P2)
}

// Delta is P2 - P1
func (c Correspondence) Delta() (float64, float64) { return c.P2.X - c.P1.X, c.P2.Y - c.P1.Y }

// Split unzips the correspondences into two parallel point lists.
func Split(corrs []Correspondence) (src, dst []emath.Point) {
	src = make([]emath.Point, len(corrs))
	dst = make([]emath.Point, len(corrs))
	for i, c := range corrs {
		src[i], dst[i] = c.P1, c.P2
	}
	return src, dst
}

// Features are the keypoints found in one image, with a descriptor
// vector for each.
type Features struct {
	Keypoints   []emath.Point
	Descriptors [][]float32
}

func (f Features) Len() int { return len(f.Keypoints) }

// An Engine detects features and matches them between images.
type Engine interface {
	Detect(r *raster.Raster) (Features, error)
	Match(a, b Features) []Correspondence
}

type detectJob struct {
	Index    int
	Raster   *raster.Raster
	Features Features
	Err      error
}

// DetectAll runs Detect over all the rasters, using a pool of goroutines.
// Detection is independent per frame, so can happen ahead of the
// (strictly sequential) stitching. Results come back in input order.
func DetectAll(e Engine, rasters []*raster.Raster, nWorkers int) ([]Features, error) {
	if nWorkers < 1 {
		nWorkers = 1
	}
	var wg sync.WaitGroup
	jobsChan := make(chan detectJob, len(rasters))
	resultsChan := make(chan detectJob, len(rasters))

	// Kick off worker pool
	for i := 0; i < nWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobsChan {
				job.Features, job.Err = e.Detect(job.Raster)
				resultsChan <- job
			}
		}()
	}

	// Feed in jobs
	for i, r := range rasters {
		jobsChan <- detectJob{Index: i, Raster: r}
	}

	close(jobsChan)
	wg.Wait()
	close(resultsChan)

	out := make([]Features, len(rasters))
	for result := range resultsChan {
		if result.Err != nil {
			return nil, fmt.Errorf("detect frame %d: %v", result.Index, result.Err)
		}
		out[result.Index] = result.Features
	}
	return out, nil
}
