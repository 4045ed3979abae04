// Command thumbs generates thumbnail variants for offering pictures stored in
// the local upload directory. It scans once by default; with -watch it keeps
// running and thumbnails new pictures as they are uploaded.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
)

var verbose bool

// image extensions eligible for thumbnailing
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

const thumbSuffix = "_thumb"

func main() {
	dirFlag := flag.String("dir", "uploads/pictures", "directory to scan for offering pictures")
	width := flag.Int("width", 480, "thumbnail width in pixels (height keeps aspect)")
	watch := flag.Bool("watch", false, "watch directory for new files")
	workers := flag.Int("workers", 0, "worker pool size (default NumCPU)")
	flag.BoolVar(&verbose, "verbose", false, "verbose per-file logging")
	flag.Parse()

	if *workers <= 0 {
		*workers = runtime.NumCPU()
	}

	files := listImageFiles(*dirFlag)
	log.Printf("Found %d candidate files in %s", len(files), *dirFlag)
	processAll(*dirFlag, files, *width, *workers)

	if *watch {
		if err := watchDir(*dirFlag, *width); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}

// listImageFiles returns picture filenames in dir that still need a thumbnail.
func listImageFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("failed to read %s: %v", dir, err)
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if needsThumb(dir, name) {
			out = append(out, name)
		}
	}
	return out
}

func needsThumb(dir, name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if !imageExts[ext] {
		return false
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if strings.HasSuffix(base, thumbSuffix) {
		return false
	}
	if _, err := os.Stat(filepath.Join(dir, thumbPath(name))); err == nil {
		return false // thumbnail already exists
	}
	return true
}

func thumbPath(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + thumbSuffix + ".jpg"
}

// processAll runs the thumbnail pipeline over files with a bounded worker pool.
func processAll(dir string, files []string, width, workers int) {
	if len(files) == 0 {
		return
	}
	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				if err := makeThumb(dir, name, width); err != nil {
					log.Printf("thumbnail %s: %v", name, err)
				} else if verbose {
					log.Printf("thumbnail %s -> %s", name, thumbPath(name))
				}
			}
		}()
	}
	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	wg.Wait()
}

func makeThumb(dir, name string, width int) error {
	src, err := imaging.Open(filepath.Join(dir, name), imaging.AutoOrientation(true))
	if err != nil {
		return err
	}
	// width-bound resize, height follows aspect ratio
	thumb := imaging.Resize(src, width, 0, imaging.Lanczos)
	return imaging.Save(thumb, filepath.Join(dir, thumbPath(name)), imaging.JPEGQuality(82))
}

// watchDir blocks thumbnailing new files as they appear in dir.
func watchDir(dir string, width int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("Watching %s for new pictures", dir)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create == fsnotify.Create {
				name := filepath.Base(ev.Name)
				if !needsThumb(dir, name) {
					continue
				}
				// give the upload a moment to finish writing
				time.Sleep(500 * time.Millisecond)
				if err := makeThumb(dir, name, width); err != nil {
					log.Printf("thumbnail %s: %v", name, err)
				} else if verbose {
					log.Printf("thumbnail %s -> %s", name, thumbPath(name))
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)
		}
	}
}
