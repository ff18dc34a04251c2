package logging

import (
	"fmt"
	"os"
	"sync"
)

type asyncEntry struct {
	data []byte
	rec  *Record
}

// AsyncSink 异步写入器
// 在后台协程中把记录交给下游 Sink；队列满时阻塞等待，保证不丢日志
type AsyncSink struct {
	sink       Sink
	entryCh    chan asyncEntry
	wg         sync.WaitGroup
	mu         sync.RWMutex
	closed     bool
	errHandler func(error)
}

// NewAsyncSink 创建异步写入器
func NewAsyncSink(sink Sink, bufferSize int) *AsyncSink {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	w := &AsyncSink{
		sink:    sink,
		entryCh: make(chan asyncEntry, bufferSize),
	}

	// 启动后台写入协程
	w.wg.Add(1)
	go w.process()

	return w
}

// Unwrap 返回下游 Sink
func (w *AsyncSink) Unwrap() Sink {
	return w.sink
}

// Write 入队（非阻塞，除非 buffer 满）
func (w *AsyncSink) Write(p []byte, rec *Record) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrClosed
	}

	entry := asyncEntry{data: p, rec: rec}
	select {
	case w.entryCh <- entry:
	default:
		// 队列满，阻塞等待直到有空间
		w.entryCh <- entry
	}
	return nil
}

// Close 等待队列写完后关闭下游 Sink
func (w *AsyncSink) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.entryCh)
	w.mu.Unlock()

	w.wg.Wait()
	return w.sink.Close()
}

// SetErrorHandler 设置错误处理函数，必须在第一次 Write 之前调用
func (w *AsyncSink) SetErrorHandler(handler func(error)) {
	w.errHandler = handler
}

func (w *AsyncSink) process() {
	defer w.wg.Done()

	for entry := range w.entryCh {
		if err := w.sink.Write(entry.data, entry.rec); err != nil {
			if w.errHandler != nil {
				w.errHandler(err)
			} else {
				fmt.Fprintf(os.Stderr, "AsyncSink write error: %v\n", err)
			}
		}
	}
}
