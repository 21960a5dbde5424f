package utils

import (
	"io"
	"sync"
)

// FlushingWriter makes buffered report output visible immediately by invoking Flush after each write.
type FlushingWriter struct {
	writer io.Writer
	mutex  sync.Mutex
}

type flushableWriter interface {
	Flush() error
}

// NewFlushingWriter wraps the provided writer, flushing it after each write when supported.
func NewFlushingWriter(writer io.Writer) io.Writer {
	if writer == nil {
		return nil
	}
	if _, alreadyWrapped := writer.(*FlushingWriter); alreadyWrapped {
		return writer
	}
	return &FlushingWriter{writer: writer}
}

// Write delegates to the underlying writer and flushes it when possible.
func (flushingWriter *FlushingWriter) Write(data []byte) (int, error) {
	if flushingWriter == nil || flushingWriter.writer == nil {
		return 0, nil
	}

	flushingWriter.mutex.Lock()
	defer flushingWriter.mutex.Unlock()

	bytesWritten, writeError := flushingWriter.writer.Write(data)
	if writeError != nil {
		return bytesWritten, writeError
	}

	if flushCapableWriter, implementsFlush := flushingWriter.writer.(flushableWriter); implementsFlush {
		if flushError := flushCapableWriter.Flush(); flushError != nil {
			return bytesWritten, flushError
		}
	}

	return bytesWritten, nil
}
