// Package sprites loads the arena's PNG sprites in the background and
// reports how far loading has got.
package sprites

import (
	"fmt"
	"image"
	_ "image/png"
	"io/fs"
	"runtime"
	"sync"

	"github.com/remeh/sizedwaitgroup"
)

// Sprite names, relative to the data directory without the .png suffix.
const (
	PlayerBack  = "player/back"
	PlayerFront = "player/front"
	PlayerLeft  = "player/left"
	PlayerRight = "player/right"
	BombRange1  = "powerups/bomb_range_1"
	BombRange2  = "powerups/bomb_range_2"
	Shield      = "powerups/shield"
	Bomb        = "bombs/bomb"
)

// All lists every sprite the client draws.
var All = []string{
	PlayerBack, PlayerFront, PlayerLeft, PlayerRight,
	BombRange1, BombRange2, Shield, Bomb,
}

// Set is a collection of decoded sprites. Missing or broken files are
// recorded and simply absent from the set; callers draw a fallback shape.
type Set struct {
	mu     sync.Mutex
	images map[string]image.Image
	failed map[string]error
	loaded int
	total  int
	done   chan struct{}
}

// Load starts decoding names from fsys and returns at once. At most workers
// files decode concurrently; zero means one per CPU. logf is called for each
// failed sprite, one call at a time, before Done is closed.
func Load(fsys fs.FS, names []string, workers int, logf func(string, ...any)) *Set {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	s := &Set{
		images: make(map[string]image.Image, len(names)),
		failed: make(map[string]error),
		total:  len(names),
		done:   make(chan struct{}),
	}
	go func() {
		wg := sizedwaitgroup.New(workers)
		for _, name := range names {
			wg.Add()
			go func(name string) {
				defer wg.Done()
				img, err := decode(fsys, name)
				s.mu.Lock()
				defer s.mu.Unlock()
				if err != nil {
					s.failed[name] = err
					if logf != nil {
						logf("sprite %s: %v", name, err)
					}
				} else {
					s.images[name] = img
				}
				s.loaded++
			}(name)
		}
		wg.Wait()
		close(s.done)
	}()
	return s
}

func decode(fsys fs.FS, name string) (image.Image, error) {
	f, err := fsys.Open(name + ".png")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}

// Get returns a decoded sprite, or nil if it is missing or not loaded yet.
func (s *Set) Get(name string) image.Image {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.images[name]
}

// Progress returns how many sprites have finished (loaded or failed) and
// how many there are in total.
func (s *Set) Progress() (done, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded, s.total
}

// Done is closed once every sprite has finished.
func (s *Set) Done() <-chan struct{} { return s.done }

// Complete reports whether loading has finished.
func (s *Set) Complete() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Missing returns the sprites that failed to load.
func (s *Set) Missing() map[string]error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]error, len(s.failed))
	for k, v := range s.failed {
		out[k] = v
	}
	return out
}
