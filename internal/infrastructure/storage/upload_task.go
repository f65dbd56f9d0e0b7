package storage

import "sync"

// UploadTask is an in-flight asset upload. Progress delivers monotonically
// increasing percentages in [0,100] and is closed when the upload settles;
// Wait blocks until then and returns the object address or the failure.
//
// Progress never blocks the uploader: when the buffer is full the oldest
// pending value is dropped, so a slow reader may skip intermediate values
// but always sees the latest one.
type UploadTask struct {
	progress chan int
	done     chan struct{}

	mu   sync.Mutex
	last int
	url  string
	err  error
	once sync.Once
}

// NewUploadTask returns a pending task. Asset stores (and test fakes) drive
// it with Report and Finish.
func NewUploadTask() *UploadTask {
	return &UploadTask{
		progress: make(chan int, 16),
		done:     make(chan struct{}),
		last:     -1,
	}
}

func (t *UploadTask) Progress() <-chan int {
	return t.progress
}

// Wait blocks until the upload settles.
func (t *UploadTask) Wait() (string, error) {
	<-t.done
	return t.url, t.err
}

// Report publishes percent if it is greater than the last reported value.
// Values are clamped to [0,100].
func (t *UploadTask) Report(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-t.done:
		return
	default:
	}
	if percent <= t.last {
		return
	}
	t.last = percent
	t.emit(percent)
}

// Finish settles the task. A successful upload always ends on 100.
// Only the first call has an effect.
func (t *UploadTask) Finish(url string, err error) {
	t.once.Do(func() {
		if err == nil {
			t.Report(100)
		}

		t.mu.Lock()
		t.url, t.err = url, err
		close(t.done)
		close(t.progress)
		t.mu.Unlock()
	})
}

// emit must be called with mu held; it is the only sender.
func (t *UploadTask) emit(percent int) {
	for {
		select {
		case t.progress <- percent:
			return
		default:
		}
		select {
		case <-t.progress:
		default:
		}
	}
}

// progressReader counts bytes the MinIO client reports as sent.
type progressReader struct {
	task  *UploadTask
	total int64

	mu   sync.Mutex
	sent int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	p.mu.Lock()
	p.sent += int64(len(b))
	sent := p.sent
	p.mu.Unlock()

	if p.total > 0 {
		p.task.Report(int(sent * 100 / p.total))
	}
	return len(b), nil
}
