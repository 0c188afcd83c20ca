package persistent

import (
	"bufio"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"Go2ResSpectra/internal/config"
	"Go2ResSpectra/internal/resources"

	log "github.com/sirupsen/logrus"
)

// Recorder manages a pool of goroutines that append received snapshots to disk.
type Recorder struct {
	snapshotChan chan *resources.Snapshot
	sendMu       sync.RWMutex // guards stopped against Enqueue
	stopped      bool
	stopOnce     sync.Once
	done         chan struct{}
	wg           sync.WaitGroup
	mu           sync.Mutex // serializes writes to the shared file
	file         *os.File
}

// NewRecorder creates and starts a recorder writing into a new timestamped file under cfg.Path.
func NewRecorder(cfg config.RecorderConfig) (*Recorder, error) {
	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create recording directory: %w", err)
	}

	bufferSize := cfg.ChannelBufferSize
	if bufferSize <= 0 {
		bufferSize = 1024
	}

	r := &Recorder{
		snapshotChan: make(chan *resources.Snapshot, bufferSize),
		done:         make(chan struct{}),
	}
	if err := r.start(cfg); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Recorder) start(cfg config.RecorderConfig) error {
	file, err := createOutputFile(cfg)
	if err != nil {
		return fmt.Errorf("failed to create recording file: %w", err)
	}
	r.file = file

	var workerFunc func()
	var flush func() error
	switch cfg.Encoding {
	case "gob":
		encoder := gob.NewEncoder(file)
		workerFunc = func() { r.runGobWorker(encoder) }
		flush = func() error { return nil }
	case "text":
		writer := bufio.NewWriter(file)
		workerFunc = func() { r.runTextWorker(writer) }
		flush = writer.Flush
	default:
		file.Close()
		return fmt.Errorf("unknown recorder encoding: '%s'", cfg.Encoding)
	}

	numWorkers := cfg.NumWorkers
	if numWorkers <= 0 {
		numWorkers = 1 // a single writer keeps snapshots in arrival order
	}

	r.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer r.wg.Done()
			workerFunc()
		}()
	}

	go func() {
		defer close(r.done)
		r.wg.Wait()
		if err := flush(); err != nil {
			log.Errorf("Recorder: Error flushing file: %v", err)
		}
		if err := file.Close(); err != nil {
			log.Errorf("Recorder: Error closing file: %v", err)
		}
		log.Info("Recorder stopped and file closed.")
	}()

	log.Infof("Recorder started with %d goroutines, encoding: %s, writing to: %s", numWorkers, cfg.Encoding, file.Name())
	return nil
}

func createOutputFile(cfg config.RecorderConfig) (*os.File, error) {
	ext := ".log"
	if cfg.Encoding == "gob" {
		ext = ".gob"
	}
	fileName := fmt.Sprintf("%s%s", time.Now().Format("2006-01-02_15-04-05.000"), ext)
	filePath := filepath.Join(cfg.Path, fileName)
	return os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
}

func (r *Recorder) runGobWorker(encoder *gob.Encoder) {
	for snap := range r.snapshotChan {
		r.mu.Lock()
		err := encoder.Encode(snap)
		r.mu.Unlock()
		if err != nil {
			log.Errorf("Recorder (gob): Error encoding snapshot: %v", err)
		}
	}
}

func (r *Recorder) runTextWorker(writer *bufio.Writer) {
	for snap := range r.snapshotChan {
		r.mu.Lock()
		for _, node := range snap.Nodes {
			line := fmt.Sprintf("%s - %s cpu=%.2f mem=%.2f io=%v net=%v\n",
				snap.Stamp.Format("2006-01-02 15:04:05.000"),
				node.Name,
				node.CPU,
				node.Memory,
				node.IO.Values(),
				node.Network.Values(),
			)
			if _, err := writer.WriteString(line); err != nil {
				log.Errorf("Recorder (text): Error writing snapshot: %v", err)
			}
		}
		r.mu.Unlock()
	}
}

// Path returns the file the recorder writes to.
func (r *Recorder) Path() string {
	return r.file.Name()
}

// Stop shuts down the worker pool and waits until the file is closed.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		r.sendMu.Lock()
		r.stopped = true
		close(r.snapshotChan)
		r.sendMu.Unlock()
	})
	<-r.done
}

// Enqueue hands a snapshot to the workers. It never blocks; snapshots are dropped when the
// channel is full.
func (r *Recorder) Enqueue(snap *resources.Snapshot) bool {
	r.sendMu.RLock()
	defer r.sendMu.RUnlock()
	if r.stopped {
		return false
	}
	select {
	case r.snapshotChan <- snap:
		return true
	default:
		log.Warn("Recorder: Channel is full, dropping snapshot.")
		return false
	}
}

// ReadRecording decodes every snapshot from a gob recording, in file order.
func ReadRecording(path string) ([]*resources.Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer file.Close()

	decoder := gob.NewDecoder(bufio.NewReader(file))
	var snaps []*resources.Snapshot
	for {
		var snap resources.Snapshot
		if err := decoder.Decode(&snap); err != nil {
			if errors.Is(err, io.EOF) {
				return snaps, nil
			}
			return snaps, fmt.Errorf("failed to decode snapshot %d: %w", len(snaps), err)
		}
		snaps = append(snaps, &snap)
	}
}
